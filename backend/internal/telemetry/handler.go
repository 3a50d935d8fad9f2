package telemetry

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"lanerush/backend/internal/shared/types"
)

const defaultPageSize = 100

// NewHandler serves /health, /v1/events and /metrics over store.
func NewHandler(store *Store) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/v1/events", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var ev types.TelemetryEvent
			if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request"})
				return
			}
			normalized, err := Normalize(ev)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}
			store.Ingest(normalized)
			writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "event_id": normalized.EventID})
		case http.MethodGet:
			limit := min(defaultPageSize, store.Limit())
			if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
				limit = min(v, store.Limit())
			}
			recent := store.ListRecent(limit)
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"count":  len(recent),
				"limit":  limit,
				"events": recent,
			})
		default:
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method_not_allowed"})
		}
	})
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		summary := store.Summary()
		_, _ = fmt.Fprintln(w, "# HELP lanerush_telemetry_events_total Total telemetry events ingested")
		_, _ = fmt.Fprintln(w, "# TYPE lanerush_telemetry_events_total counter")
		_, _ = fmt.Fprintf(w, "lanerush_telemetry_events_total %d\n", summary.Total)
		for _, typ := range sortedKeys(summary.ByType) {
			_, _ = fmt.Fprintf(w, "lanerush_telemetry_events_by_type{event_type=\"%s\"} %d\n", typ, summary.ByType[typ])
		}
		_, _ = fmt.Fprintln(w, "# TYPE lanerush_crashes_by_severity counter")
		for _, sev := range sortedKeys(summary.BySeverity) {
			_, _ = fmt.Fprintf(w, "lanerush_crashes_by_severity{severity=\"%s\"} %d\n", sev, summary.BySeverity[sev])
		}
	})
	return withCORS(mux)
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
