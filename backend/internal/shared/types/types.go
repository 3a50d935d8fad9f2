package types

// Vec3 represents a position or vector in world space.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Rotator stores orientation in radians. Yaw is heading, roll is lean.
type Rotator struct {
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	Roll  float64 `json:"roll"`
}

// ControlInput is a partial control update. Nil fields keep their previous value.
type ControlInput struct {
	Throttle   *float64 `json:"throttle,omitempty"`    // 0..1
	Brake      *float64 `json:"brake,omitempty"`       // 0..1, split 70/30 front/rear
	FrontBrake *float64 `json:"front_brake,omitempty"` // 0..1
	RearBrake  *float64 `json:"rear_brake,omitempty"`  // 0..1
	Steer      *float64 `json:"steer,omitempty"`       // -1..1
}

// BikeStatsInput carries vehicle-selection stats. Nil fields are left unchanged.
type BikeStatsInput struct {
	Speed        *float64 `json:"speed,omitempty"` // 100..150 scale
	Acceleration *float64 `json:"acceleration,omitempty"`
	Handling     *float64 `json:"handling,omitempty"`
}

// CollisionView is the minimal collision state exposed to consumers.
type CollisionView struct {
	IsWobbling   bool `json:"is_wobbling"`
	IsCrashed    bool `json:"is_crashed"`
	Invulnerable bool `json:"invulnerable"`
}

// BikeSnapshot is a copy of the bike state taken once per tick.
type BikeSnapshot struct {
	Tick        uint64        `json:"tick"`
	Position    Vec3          `json:"position"`
	Velocity    Vec3          `json:"velocity"`
	Rotation    Rotator       `json:"rotation"`
	Speed       float64       `json:"speed"`        // mph
	ActualSpeed float64       `json:"actual_speed"` // m/s
	RPM         int           `json:"rpm"`
	Gear        int           `json:"gear"`
	LeanAngle   float64       `json:"lean_angle"` // degrees
	TurnRate    float64       `json:"turn_rate"`  // degrees/s
	Collision   CollisionView `json:"collision"`
}

// BarrierEvent is emitted on the tick a bike hits the barrier.
type BarrierEvent struct {
	Type        string  `json:"type"` // barrier
	ImpactSpeed float64 `json:"impact_speed"`
	SpeedMph    float64 `json:"speed_mph"`
	Position    Vec3    `json:"position"`
	Severity    string  `json:"severity"` // smear|explode
	IsCrashed   bool    `json:"is_crashed"`
}

// ClientEnvelope is sent from client to server.
type ClientEnvelope struct {
	Type     string          `json:"type"` // controls|stats|respawn|ping
	Controls *ControlInput   `json:"controls,omitempty"`
	Stats    *BikeStatsInput `json:"stats,omitempty"`
}

// ServerEnvelope is sent from server to client.
type ServerEnvelope struct {
	Type      string        `json:"type"` // welcome|state|barrier|pong|error
	SessionID string        `json:"session_id,omitempty"`
	Tick      uint64        `json:"tick,omitempty"`
	State     *BikeSnapshot `json:"state,omitempty"`
	Barrier   *BarrierEvent `json:"barrier,omitempty"`
	ServerMS  int64         `json:"server_ms,omitempty"`
	Message   string        `json:"message,omitempty"`
}

// TelemetryEvent represents a gameplay/platform event.
type TelemetryEvent struct {
	EventID   string                 `json:"event_id"`
	EventType string                 `json:"event_type"`
	SessionID string                 `json:"session_id,omitempty"`
	RiderID   string                 `json:"rider_id,omitempty"`
	Timestamp int64                  `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload"`
}
