package simulation

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"lanerush/backend/internal/shared/types"
)

// WallSide identifies which barrier a sliding bike is pinned against.
type WallSide int

const (
	WallNone WallSide = iota
	WallLeft
	WallRight
)

func (s WallSide) String() string {
	switch s {
	case WallLeft:
		return "left"
	case WallRight:
		return "right"
	default:
		return ""
	}
}

// Stats are the vehicle-selection multipliers.
type Stats struct {
	SpeedMultiplier        float64
	AccelerationMultiplier float64
	HandlingMultiplier     float64
}

// Controls is the canonical, clamped control record.
type Controls struct {
	Throttle   float64
	Brake      float64
	FrontBrake float64
	RearBrake  float64
	Steer      float64

	lever float64
}

// Collision is the damage sub-state.
type Collision struct {
	IsWobbling       bool
	WobbleTime       float64
	WobbleAmplitude  float64
	LateralVelocity  float64
	IsCrashed        bool
	RecoveryTime     float64
	InvulnerableTime float64
	IsSlidingOnWall  bool
	WallSide         WallSide
	SlideTime        float64
}

// Bike is the single mutable vehicle state advanced by Update.
// It is not safe for concurrent use; hosts serialise access per session.
type Bike struct {
	geo    Geometry
	tuning Tuning

	Position mgl64.Vec3
	Velocity mgl64.Vec3
	Rotation types.Rotator

	Speed     float64
	TurnSpeed float64
	LeanAngle float64
	RPM       float64
	Gear      int

	ThrottleHoldTime     float64
	OffThrottleTime      float64
	TrailBrakeMultiplier float64

	Stats     Stats
	Controls  Controls
	Collision Collision

	tick        uint64
	wobbleClock float64
}

// TickResult is what one Update call produces.
type TickResult struct {
	Snapshot types.BikeSnapshot
	Barrier  *types.BarrierEvent
	Impact   *Impact
	// Skipped is set when dt was rejected and no state changed.
	Skipped bool
}

// NewBike creates a bike at the geometry's spawn point.
func NewBike(geo Geometry, tuning Tuning) (*Bike, error) {
	if err := geo.Validate(); err != nil {
		return nil, err
	}
	b := &Bike{
		geo:    geo,
		tuning: tuning,
		Stats: Stats{
			SpeedMultiplier:        1,
			AccelerationMultiplier: 1,
			HandlingMultiplier:     1,
		},
	}
	b.Reset()
	return b, nil
}

// Geometry returns the lane layout the bike was built with.
func (b *Bike) Geometry() Geometry { return b.geo }

// Reset returns the bike to spawn with zero speed and clean collision state.
// Stats survive a reset.
func (b *Bike) Reset() {
	b.Position = b.geo.Spawn
	b.Position[1] = b.geo.GroundHeight
	b.Velocity = mgl64.Vec3{}
	b.Rotation = types.Rotator{}
	b.Speed = 0
	b.TurnSpeed = 0
	b.LeanAngle = 0
	b.RPM = b.tuning.IdleRPM
	b.Gear = 1
	b.ThrottleHoldTime = 0
	b.OffThrottleTime = 0
	b.TrailBrakeMultiplier = 1
	b.Controls = Controls{}
	b.Collision = Collision{}
	b.wobbleClock = 0
}

// SetStats applies vehicle-selection stats. Unset or non-finite fields are ignored.
func (b *Bike) SetStats(in types.BikeStatsInput) {
	if v, ok := finitePtr(in.Speed); ok {
		b.Stats.SpeedMultiplier = 1 + (clamp(v, 100, 150)-100)/100
	}
	if v, ok := finitePtr(in.Acceleration); ok && v > 0 {
		b.Stats.AccelerationMultiplier = v
	}
	if v, ok := finitePtr(in.Handling); ok && v > 0 {
		b.Stats.HandlingMultiplier = v
	}
}

// Update advances the bike by dt seconds. The host is expected to bound dt;
// a non-finite or negative dt is rejected and the current state is returned.
func (b *Bike) Update(dt float64, obstacles ObstacleProvider) TickResult {
	if !finite(dt) || dt < 0 {
		return TickResult{Snapshot: b.Snapshot(), Skipped: true}
	}
	b.tick++

	b.tickTimers(dt)
	b.updateDrivetrain(dt)
	b.updateTurning(dt)
	b.integrate(dt)

	hit := b.detect(obstacles)
	barrier, impact := b.respond(hit, dt)

	b.applyRoll()
	b.Speed = math.Max(0, b.Speed)

	return TickResult{Snapshot: b.Snapshot(), Barrier: barrier, Impact: impact}
}

func clamp(v, minV, maxV float64) float64 {
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

// approach moves v toward target by at most step without overshooting.
func approach(v, target, step float64) float64 {
	if v < target {
		return math.Min(v+step, target)
	}
	return math.Max(v-step, target)
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func finitePtr(p *float64) (float64, bool) {
	if p == nil || !finite(*p) {
		return 0, false
	}
	return *p, true
}
