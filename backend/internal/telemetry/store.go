package telemetry

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"lanerush/backend/internal/shared/types"
)

const (
	EventBarrierCrash  = "barrier_crash"
	EventObstacleHit   = "obstacle_hit"
	EventSessionStart  = "session_start"
	EventSessionEnd    = "session_end"
	EventRespawn       = "respawn"
	defaultRecentLimit = 1000
)

// Store keeps recent events and running counters in memory.
type Store struct {
	mu          sync.RWMutex
	recent      []types.TelemetryEvent
	limit       int
	totalIngest int64
	byType      map[string]int64
	bySeverity  map[string]int64
}

// Summary is a point-in-time copy of the counters.
type Summary struct {
	Total      int64
	ByType     map[string]int64
	BySeverity map[string]int64
}

// NewStore keeps at most limit recent events; limit <= 0 uses the default.
func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	return &Store{
		recent:     make([]types.TelemetryEvent, 0, 512),
		limit:      limit,
		byType:     make(map[string]int64),
		bySeverity: make(map[string]int64),
	}
}

// Normalize fills in the id and timestamp and validates the event type.
func Normalize(ev types.TelemetryEvent) (types.TelemetryEvent, error) {
	if ev.EventType == "" {
		return ev, fmt.Errorf("event_type_required")
	}
	if ev.EventID == "" {
		ev.EventID = "ev_" + uuid.NewString()
	}
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().UTC().UnixMilli()
	}
	return ev, nil
}

func (s *Store) Ingest(ev types.TelemetryEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalIngest++
	s.byType[ev.EventType]++
	if sev, ok := ev.Payload["severity"].(string); ok && sev != "" {
		s.bySeverity[sev]++
	}
	s.recent = append(s.recent, ev)
	if len(s.recent) > s.limit {
		s.recent = s.recent[len(s.recent)-s.limit:]
	}
}

// Limit is the most events the store retains.
func (s *Store) Limit() int { return s.limit }

func (s *Store) ListRecent(limit int) []types.TelemetryEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.recent) {
		limit = len(s.recent)
	}
	out := make([]types.TelemetryEvent, limit)
	copy(out, s.recent[len(s.recent)-limit:])
	return out
}

func (s *Store) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Summary{
		Total:      s.totalIngest,
		ByType:     copyCounts(s.byType),
		BySeverity: copyCounts(s.bySeverity),
	}
}

func copyCounts(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
