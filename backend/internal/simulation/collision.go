package simulation

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"lanerush/backend/internal/shared/types"
)

// Obstacle is another vehicle reported by the host.
type Obstacle struct {
	Position mgl64.Vec3
	Velocity mgl64.Vec3
}

// ObstacleProvider answers proximity queries against host-owned traffic.
type ObstacleProvider interface {
	CheckCollision(position mgl64.Vec3, radius float64) (Obstacle, bool)
}

// Severity grades an obstacle impact by how square the hit was.
type Severity int

const (
	Glancing Severity = iota
	SideSwipe
	TBone
	HeadOn
)

func (s Severity) String() string {
	switch s {
	case Glancing:
		return "glancing"
	case SideSwipe:
		return "side_swipe"
	case TBone:
		return "t_bone"
	case HeadOn:
		return "head_on"
	default:
		return "unknown"
	}
}

// ImpactResponse is the fixed reaction to one severity.
type ImpactResponse struct {
	SpeedLoss       float64
	Deflection      float64
	WobbleDuration  float64
	WobbleAmplitude float64
	Crash           bool
}

var impactResponses = [...]ImpactResponse{
	Glancing:  {SpeedLoss: 0.10, Deflection: 2.0, WobbleDuration: 0.8, WobbleAmplitude: 0.15},
	SideSwipe: {SpeedLoss: 0.30, Deflection: 4.0, WobbleDuration: 1.2, WobbleAmplitude: 0.30, Crash: true},
	TBone:     {SpeedLoss: 0.60, Deflection: 6.0, WobbleDuration: 1.5, WobbleAmplitude: 0.45, Crash: true},
	HeadOn:    {SpeedLoss: 0.90, Deflection: 3.0, WobbleDuration: 2.0, WobbleAmplitude: 0.60, Crash: true},
}

// Response returns the reaction table entry for s.
func (s Severity) Response() ImpactResponse {
	if s < Glancing || s > HeadOn {
		return impactResponses[HeadOn]
	}
	return impactResponses[s]
}

// ClassifyImpact maps an impact angle in degrees onto a severity. The angle is
// between the bike heading and the obstacle's direction of travel: 0 when both
// go the same way, 180 head on.
func ClassifyImpact(angle float64) Severity {
	switch {
	case angle < 20:
		return Glancing
	case angle < 45:
		return SideSwipe
	case angle < 90:
		return TBone
	default:
		return HeadOn
	}
}

// Impact describes an obstacle hit that went through severity grading.
type Impact struct {
	Severity Severity
	Angle    float64
	Speed    float64
	Crashed  bool
}

const (
	movingObstacleSpeed = 0.5
	barrierWobble       = 0.3
	barrierSlowLoss     = 0.3
	barrierFastLoss     = 0.5
)

// impactAngle is 0 when both vehicles travel the same way and 180 head on.
// A parked obstacle has no heading, so the hit counts as squarer the closer
// it sits to dead ahead.
func impactAngle(yaw float64, pos mgl64.Vec3, obs Obstacle) float64 {
	heading := forward(yaw)
	ov := mgl64.Vec3{obs.Velocity.X(), 0, obs.Velocity.Z()}
	if ov.Len() > movingObstacleSpeed {
		return angleBetween(heading, ov)
	}
	bearing := obs.Position.Sub(pos)
	bearing[1] = 0
	if bearing.Len() < 1e-9 {
		return 180
	}
	return clamp(180*(1-angleBetween(heading, bearing)/90), 0, 180)
}

func angleBetween(u, v mgl64.Vec3) float64 {
	cos := u.Dot(v) / (u.Len() * v.Len())
	return mgl64.RadToDeg(math.Acos(clamp(cos, -1, 1)))
}

type contact struct {
	obstacle *Obstacle
	shoulder bool
	barrier  bool
}

// detect runs the obstacle and road-edge checks. It never mutates the bike.
func (b *Bike) detect(obstacles ObstacleProvider) contact {
	var hit contact
	if obstacles != nil && b.Collision.InvulnerableTime <= 0 {
		if obs, ok := obstacles.CheckCollision(b.Position, ObstacleProbeRadius); ok {
			hit.obstacle = &obs
		}
	}
	x := math.Abs(b.Position.X())
	hit.shoulder = x > b.geo.RoadHalfWidth
	hit.barrier = !b.Collision.IsSlidingOnWall && x > b.geo.wallLine()
	return hit
}

func (b *Bike) tickTimers(dt float64) {
	col := &b.Collision
	col.InvulnerableTime = math.Max(0, col.InvulnerableTime-dt)

	if col.RecoveryTime > 0 {
		col.RecoveryTime -= dt
		if col.RecoveryTime <= 0 {
			col.RecoveryTime = 0
			col.IsCrashed = false
		}
	}

	if col.IsWobbling {
		col.WobbleTime -= dt
		col.WobbleAmplitude *= math.Exp(-WobbleDecay * dt)
		b.wobbleClock += dt
		if col.WobbleTime <= 0 {
			col.IsWobbling = false
			col.WobbleTime = 0
			col.WobbleAmplitude = 0
		}
	}
}

func (b *Bike) startWobble(duration, amplitude float64) {
	col := &b.Collision
	if !col.IsWobbling {
		b.wobbleClock = 0
	}
	col.IsWobbling = true
	col.WobbleTime = math.Max(col.WobbleTime, duration)
	col.WobbleAmplitude = math.Max(col.WobbleAmplitude, amplitude)
}

// respond is the only place outside integrate that rewrites speed or position.
func (b *Bike) respond(hit contact, dt float64) (*types.BarrierEvent, *Impact) {
	b.slideTick(dt)

	var event *types.BarrierEvent
	if hit.barrier {
		event = b.hitBarrier()
	}

	var impact *Impact
	if hit.obstacle != nil && b.Collision.InvulnerableTime <= 0 {
		impact = b.hitObstacle(*hit.obstacle)
	}

	if hit.shoulder && !hit.barrier && !b.Collision.IsSlidingOnWall {
		b.Speed *= math.Max(0, 1-ShoulderDrag*dt)
	}

	b.Velocity = forward(b.Rotation.Yaw).Mul(b.Speed)
	b.drift(dt)
	if b.Collision.IsSlidingOnWall {
		b.Velocity[0] = 0
	}
	return event, impact
}

func (b *Bike) hitObstacle(obs Obstacle) *Impact {
	col := &b.Collision
	side := right(b.Rotation.Yaw)
	away := 1.0
	if obs.Position.Sub(b.Position).Dot(side) > 0 {
		away = -1
	}

	if b.Speed < NudgeSpeed {
		col.LateralVelocity += away * NudgeImpulse
		return nil
	}

	pre := b.Speed
	angle := impactAngle(b.Rotation.Yaw, b.Position, obs)
	sev := ClassifyImpact(angle)
	r := sev.Response()

	b.Speed *= 1 - r.SpeedLoss
	col.LateralVelocity += away * r.Deflection
	b.startWobble(r.WobbleDuration, r.WobbleAmplitude)
	col.InvulnerableTime = InvulnerableTime

	// Speed is not zeroed here; the death animation owns the stop.
	crashed := r.Crash && pre > crashMinSpeed
	if crashed && !col.IsSlidingOnWall {
		col.IsCrashed = true
		col.RecoveryTime = CrashRecoveryTime
	}
	return &Impact{Severity: sev, Angle: angle, Speed: pre, Crashed: crashed}
}

func (b *Bike) hitBarrier() *types.BarrierEvent {
	col := &b.Collision
	pre := b.Speed

	severity := "explode"
	slide := ExplodeSlideTime
	if pre > smearMinSpeed {
		severity = "smear"
		slide = SmearSlideTime
	}

	col.WallSide = WallLeft
	if b.Position.X() > 0 {
		col.WallSide = WallRight
	}
	b.pinToWall()
	col.LateralVelocity = 0
	b.Rotation.Yaw = 0
	b.TurnSpeed = 0

	if pre < barrierSlowSpeed {
		b.Speed *= barrierSlowLoss
	} else {
		b.Speed *= barrierFastLoss
	}

	col.IsSlidingOnWall = true
	col.SlideTime = slide
	b.startWobble(slide, barrierWobble)
	col.IsCrashed = true
	col.RecoveryTime = 0

	return &types.BarrierEvent{
		Type:        "barrier",
		ImpactSpeed: pre,
		SpeedMph:    pre * MphPerMS,
		Position:    toVec3(b.Position),
		Severity:    severity,
		IsCrashed:   col.IsCrashed,
	}
}

func (b *Bike) pinToWall() {
	x := b.geo.wallLine()
	if b.Collision.WallSide == WallLeft {
		x = -x
	}
	b.Position[0] = x
}

// slideTick keeps a sliding bike against the wall until it stops or the timer ends.
func (b *Bike) slideTick(dt float64) {
	col := &b.Collision
	if !col.IsSlidingOnWall {
		return
	}
	b.pinToWall()
	b.Speed *= WallSlideDecay
	col.SlideTime -= dt
	if col.SlideTime <= 0 || b.Speed < WallSlideMinSpeed {
		col.IsSlidingOnWall = false
		col.SlideTime = 0
		if b.Speed < WallSlideMinSpeed {
			col.IsCrashed = true
		}
	}
}

// drift applies and damps the sideways push left by impacts.
func (b *Bike) drift(dt float64) {
	col := &b.Collision
	if col.LateralVelocity == 0 {
		return
	}
	if col.IsSlidingOnWall {
		col.LateralVelocity = 0
		return
	}
	push := right(b.Rotation.Yaw).Mul(col.LateralVelocity)
	b.Position = b.Position.Add(push.Mul(dt))
	b.Velocity = b.Velocity.Add(push)
	col.LateralVelocity *= math.Exp(-LateralDamping * dt)
	if math.Abs(col.LateralVelocity) < 1e-3 {
		col.LateralVelocity = 0
	}
}

// applyRoll mirrors the lean onto roll with the wobble overlay on top.
func (b *Bike) applyRoll() {
	roll := b.LeanAngle
	col := b.Collision
	if col.IsWobbling && col.WobbleAmplitude > MinWobbleAmplitude {
		roll += col.WobbleAmplitude * math.Sin(2*math.Pi*WobbleFrequency*b.wobbleClock)
	}
	limit := b.tuning.MaxLeanAngle
	b.Rotation.Roll = clamp(roll, -limit, limit)
}
