package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"lanerush/backend/internal/obstacles"
	"lanerush/backend/internal/replication"
	"lanerush/backend/internal/ride"
	"lanerush/backend/internal/shared/logger"
	"lanerush/backend/internal/shared/types"
	"lanerush/backend/internal/simulation"
	"lanerush/backend/internal/telemetry"
)

type frame struct {
	binary bool
	data   []byte
}

type client struct {
	session *ride.Session
	conn    *websocket.Conn
	send    chan frame
}

type server struct {
	log       *logger.Logger
	hub       *ride.Hub
	telemetry *telemetry.Client
	upgrader  websocket.Upgrader
	tickHz    int
	replHz    int

	mu      sync.RWMutex
	clients map[string]*client
}

func main() {
	log := logger.New("rideserver")
	addr := getEnv("RIDE_ADDR", ":9003")

	geo := simulation.DefaultGeometry()
	geo.RoadHalfWidth = getEnvFloat("ROAD_HALF_WIDTH", geo.RoadHalfWidth)
	geo.BarrierOffset = getEnvFloat("BARRIER_OFFSET", geo.BarrierOffset)

	courseLength := getEnvFloat("COURSE_LENGTH", 2000)
	field := obstacles.NewField(courseLength)
	field.Populate(obstacles.Lanes(geo.RoadHalfWidth, 4), getEnvInt("TRAFFIC_COUNT", 24), 80, courseLength/40, getEnvFloat("TRAFFIC_CRUISE", 22))

	hub, err := ride.NewHub(geo, simulation.DefaultTuning(), field)
	if err != nil {
		log.Fatalf("bad road geometry: %v", err)
	}

	s := &server{
		log:       log,
		hub:       hub,
		telemetry: telemetry.NewClient(getEnv("TELEMETRY_HTTP", "")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		tickHz:  getEnvInt("TICK_HZ", 60),
		replHz:  getEnvInt("REPLICATION_HZ", 30),
		clients: make(map[string]*client),
	}

	go s.runSimulationLoop()
	go s.runReplicationLoop()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWS)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("ride server listening on %s (tick=%dHz replication=%dHz traffic=%d)", addr, s.tickHz, s.replHz, field.Len())
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server failed: %v", err)
	}
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": "ok", "sessions": s.hub.Len()})
}

func (s *server) handleWS(w http.ResponseWriter, r *http.Request) {
	riderID := r.URL.Query().Get("rider_id")
	if riderID == "" {
		riderID = fmt.Sprintf("guest_%d", time.Now().UTC().UnixNano())
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = riderID
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Printf("websocket upgrade error: %v", err)
		return
	}

	session, err := s.hub.Open(riderID, name)
	if err != nil {
		s.log.Printf("open session failed rider=%s err=%v", riderID, err)
		_ = conn.Close()
		return
	}
	c := &client{session: session, conn: conn, send: make(chan frame, 64)}
	s.register(c)

	s.log.Printf("rider connected session=%s rider=%s remote=%s", session.ID, riderID, r.RemoteAddr)
	s.report(telemetry.EventSessionStart, c, nil)

	state := session.Latest()
	s.sendJSON(c, types.ServerEnvelope{
		Type:      "welcome",
		SessionID: session.ID,
		Tick:      state.Tick,
		State:     &state,
		ServerMS:  time.Now().UTC().UnixMilli(),
		Message:   "connected",
	})

	go s.writePump(c)
	s.readPump(c)
}

func (s *server) readPump(c *client) {
	defer func() {
		s.unregister(c)
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Printf("rider disconnected session=%s", c.session.ID)
				return
			}
			s.log.Printf("read error session=%s err=%v", c.session.ID, err)
			return
		}

		var in types.ClientEnvelope
		if err := json.Unmarshal(msg, &in); err != nil {
			s.sendError(c, "bad_payload")
			continue
		}

		switch in.Type {
		case "controls":
			if in.Controls == nil {
				s.sendError(c, "missing_controls")
				continue
			}
			c.session.ApplyControls(*in.Controls)
		case "stats":
			if in.Stats == nil {
				s.sendError(c, "missing_stats")
				continue
			}
			c.session.ApplyStats(*in.Stats)
		case "respawn":
			c.session.Respawn()
			s.report(telemetry.EventRespawn, c, nil)
		case "ping":
			s.sendJSON(c, types.ServerEnvelope{Type: "pong", ServerMS: time.Now().UTC().UnixMilli()})
		default:
			s.sendError(c, "unsupported_message_type")
		}
	}
}

func (s *server) writePump(c *client) {
	ticker := time.NewTicker(20 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case f, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			kind := websocket.TextMessage
			if f.binary {
				kind = websocket.BinaryMessage
			}
			if err := c.conn.WriteMessage(kind, f.data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				return
			}
		}
	}
}

func (s *server) register(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.session.ID] = c
}

func (s *server) unregister(c *client) {
	s.mu.Lock()
	if _, ok := s.clients[c.session.ID]; ok {
		close(c.send)
		delete(s.clients, c.session.ID)
	}
	s.mu.Unlock()

	if err := s.hub.Close(c.session.ID); err != nil {
		s.log.Printf("close session: %v", err)
	}
	s.report(telemetry.EventSessionEnd, c, nil)
}

func (s *server) sendJSON(c *client, env types.ServerEnvelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		s.log.Printf("marshal %s failed: %v", env.Type, err)
		return
	}
	s.enqueue(c, frame{data: payload})
}

func (s *server) sendError(c *client, message string) {
	s.sendJSON(c, types.ServerEnvelope{Type: "error", Message: message})
}

func (s *server) sendBinary(c *client, env types.ServerEnvelope) {
	payload, err := replication.Encode(env)
	if err != nil {
		s.log.Printf("encode failed session=%s: %v", c.session.ID, err)
		return
	}
	s.enqueue(c, frame{binary: true, data: payload})
}

// enqueue drops the frame when the client is behind. Callers hold no lock on
// s.mu, so the channel may already be closed by unregister.
func (s *server) enqueue(c *client, f frame) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.clients[c.session.ID]; !ok {
		return
	}
	select {
	case c.send <- f:
	default:
	}
}

func (s *server) runSimulationLoop() {
	hz := s.tickHz
	if hz <= 0 {
		hz = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(hz))
	defer ticker.Stop()

	last := time.Now()
	for now := range ticker.C {
		dt := now.Sub(last).Seconds()
		last = now
		for _, ev := range s.hub.Step(dt) {
			s.dispatch(ev)
		}
	}
}

func (s *server) dispatch(ev ride.Event) {
	s.mu.RLock()
	c, ok := s.clients[ev.SessionID]
	s.mu.RUnlock()
	if !ok {
		return
	}

	if ev.Barrier != nil {
		s.log.Printf("barrier crash session=%s severity=%s mph=%.1f", ev.SessionID, ev.Barrier.Severity, ev.Barrier.SpeedMph)
		s.sendBinary(c, types.ServerEnvelope{
			Type:      "barrier",
			SessionID: ev.SessionID,
			Barrier:   ev.Barrier,
			ServerMS:  time.Now().UTC().UnixMilli(),
		})
		s.report(telemetry.EventBarrierCrash, c, ev.Barrier)
	}
	if ev.Impact != nil {
		s.forward(telemetry.ImpactEvent(ev.SessionID, ev.RiderID, *ev.Impact))
	}
}

func (s *server) runReplicationLoop() {
	hz := s.replHz
	if hz <= 0 {
		hz = 30
	}
	ticker := time.NewTicker(time.Second / time.Duration(hz))
	defer ticker.Stop()

	for range ticker.C {
		s.mu.RLock()
		clients := make([]*client, 0, len(s.clients))
		for _, c := range s.clients {
			clients = append(clients, c)
		}
		s.mu.RUnlock()

		for _, c := range clients {
			state := c.session.Latest()
			s.sendBinary(c, types.ServerEnvelope{
				Type:      "state",
				SessionID: c.session.ID,
				Tick:      state.Tick,
				State:     &state,
				ServerMS:  time.Now().UTC().UnixMilli(),
			})
		}
	}
}

func (s *server) report(eventType string, c *client, barrier *types.BarrierEvent) {
	if barrier != nil {
		s.forward(telemetry.BarrierEvent(c.session.ID, c.session.RiderID, *barrier))
		return
	}
	s.forward(types.TelemetryEvent{
		EventType: eventType,
		SessionID: c.session.ID,
		RiderID:   c.session.RiderID,
		Payload:   map[string]interface{}{"name": c.session.Name},
	})
}

// forward posts off the simulation goroutine.
func (s *server) forward(ev types.TelemetryEvent) {
	if s.telemetry == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := s.telemetry.Send(ctx, ev); err != nil {
			s.log.Printf("telemetry %s dropped: %v", ev.EventType, err)
		}
	}()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
