package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lanerush/backend/internal/shared/types"
	"lanerush/backend/internal/simulation"
)

// Client posts events to the telemetry service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns nil when baseURL is empty; a nil client drops events.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		return nil
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 3 * time.Second},
	}
}

// Send posts one event.
func (c *Client) Send(ctx context.Context, ev types.TelemetryEvent) error {
	if c == nil {
		return nil
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/events", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("post event: status %d", resp.StatusCode)
	}
	return nil
}

// BarrierEvent converts a barrier crash into a telemetry event.
func BarrierEvent(sessionID, riderID string, ev types.BarrierEvent) types.TelemetryEvent {
	return types.TelemetryEvent{
		EventType: EventBarrierCrash,
		SessionID: sessionID,
		RiderID:   riderID,
		Payload: map[string]interface{}{
			"severity":     ev.Severity,
			"impact_speed": ev.ImpactSpeed,
			"speed_mph":    ev.SpeedMph,
			"x":            ev.Position.X,
			"z":            ev.Position.Z,
		},
	}
}

// ImpactEvent converts a graded obstacle hit into a telemetry event.
func ImpactEvent(sessionID, riderID string, hit simulation.Impact) types.TelemetryEvent {
	return types.TelemetryEvent{
		EventType: EventObstacleHit,
		SessionID: sessionID,
		RiderID:   riderID,
		Payload: map[string]interface{}{
			"severity":     hit.Severity.String(),
			"impact_speed": hit.Speed,
			"angle":        hit.Angle,
			"crashed":      hit.Crashed,
		},
	}
}
