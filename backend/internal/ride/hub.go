// Package ride hosts one simulated bike per connected rider on a shared
// traffic field and steps them all from a single clock.
package ride

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"lanerush/backend/internal/obstacles"
	"lanerush/backend/internal/shared/types"
	"lanerush/backend/internal/simulation"
)

// MaxStep caps the dt handed to a bike after a stalled tick.
const MaxStep = 0.05

var ErrSessionNotFound = errors.New("session not found")

// Session is one rider's bike.
type Session struct {
	ID      string
	RiderID string
	Name    string

	mu     sync.Mutex
	bike   *simulation.Bike
	latest types.BikeSnapshot
}

func (s *Session) ApplyControls(in types.ControlInput) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bike.SetControls(in)
}

func (s *Session) ApplyStats(in types.BikeStatsInput) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bike.SetStats(in)
}

// Respawn puts the bike back on the spawn point and publishes the new state.
func (s *Session) Respawn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bike.Reset()
	s.latest = s.bike.Snapshot()
}

// Latest returns the snapshot taken at the end of the last step.
func (s *Session) Latest() types.BikeSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

func (s *Session) step(dt float64, provider simulation.ObstacleProvider) simulation.TickResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := s.bike.Update(dt, provider)
	s.latest = res.Snapshot
	return res
}

// Event is a collision outcome raised by one session during a step.
type Event struct {
	SessionID string
	RiderID   string
	Barrier   *types.BarrierEvent
	Impact    *simulation.Impact
}

// Hub owns the sessions and the traffic they share.
type Hub struct {
	geo    simulation.Geometry
	tuning simulation.Tuning
	field  *obstacles.Field

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewHub validates geo up front so Open never fails on geometry. A nil field
// means an empty road.
func NewHub(geo simulation.Geometry, tuning simulation.Tuning, field *obstacles.Field) (*Hub, error) {
	if err := geo.Validate(); err != nil {
		return nil, err
	}
	if field == nil {
		field = obstacles.NewField(0)
	}
	return &Hub{
		geo:      geo,
		tuning:   tuning,
		field:    field,
		sessions: make(map[string]*Session),
	}, nil
}

func (h *Hub) Open(riderID, name string) (*Session, error) {
	bike, err := simulation.NewBike(h.geo, h.tuning)
	if err != nil {
		return nil, fmt.Errorf("open session for %s: %w", riderID, err)
	}
	s := &Session{
		ID:      "ride_" + uuid.NewString(),
		RiderID: riderID,
		Name:    name,
		bike:    bike,
		latest:  bike.Snapshot(),
	}
	h.mu.Lock()
	h.sessions[s.ID] = s
	h.mu.Unlock()
	return s, nil
}

func (h *Hub) Close(id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[id]; !ok {
		return fmt.Errorf("close %s: %w", id, ErrSessionNotFound)
	}
	delete(h.sessions, id)
	return nil
}

func (h *Hub) Get(id string) (*Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[id]
	return s, ok
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Step advances traffic then every bike by dt, clamped to MaxStep.
// Rejected ticks leave traffic where it was.
func (h *Hub) Step(dt float64) []Event {
	if dt > MaxStep {
		dt = MaxStep
	}
	if !(dt >= 0) {
		return nil
	}
	h.field.Advance(dt)

	h.mu.RLock()
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()

	var events []Event
	for _, s := range sessions {
		res := s.step(dt, h.field)
		if res.Barrier == nil && res.Impact == nil {
			continue
		}
		events = append(events, Event{
			SessionID: s.ID,
			RiderID:   s.RiderID,
			Barrier:   res.Barrier,
			Impact:    res.Impact,
		})
	}
	return events
}
