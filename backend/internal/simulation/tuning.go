package simulation

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// MphPerMS converts m/s to display mph.
const MphPerMS = 2.237

const (
	MaxGear = 6

	ObstacleProbeRadius = 1.5
	InvulnerableTime    = 1.0
	CrashRecoveryTime   = 2.0
	SmearSlideTime      = 2.0
	ExplodeSlideTime    = 0.5
	WallSlideDecay      = 0.98
	WallSlideMinSpeed   = 5.0
	NudgeSpeed          = 5.0
	NudgeImpulse        = 0.5
	LateralDamping      = 4.0
	ShoulderDrag        = 0.6
	WobbleFrequency     = 3.0
	WobbleDecay         = 1.5
	MinWobbleAmplitude  = 0.01
)

// ErrInvalidGeometry is returned when road and barrier constants cannot describe a lane.
var ErrInvalidGeometry = errors.New("invalid road geometry")

// Display-speed thresholds, converted to m/s once so the tick never works in mph.
var (
	crashMinSpeed    = fromMPH(20)
	smearMinSpeed    = fromMPH(150)
	barrierSlowSpeed = fromMPH(50)
	coastDragSpeed   = fromMPH(100)

	gearUpshift = [MaxGear - 1]float64{
		fromMPH(20), fromMPH(40), fromMPH(65), fromMPH(95), fromMPH(135),
	}

	milestones = [...]struct {
		speed float64
		boost float64
	}{
		{fromMPH(100), 1.003},
		{fromMPH(200), 1.004},
		{fromMPH(300), 1.005},
	}

	turnBand = [...]float64{fromMPH(20), fromMPH(50), fromMPH(80)}
)

func fromMPH(mph float64) float64 { return mph / MphPerMS }

// Geometry is the host-owned lane layout. X is lateral, Z is down the road.
type Geometry struct {
	RoadHalfWidth float64
	BarrierOffset float64
	BarrierBuffer float64
	GroundHeight  float64
	Spawn         mgl64.Vec3
}

// DefaultGeometry returns a four-lane road with barriers just past the shoulder.
func DefaultGeometry() Geometry {
	return Geometry{
		RoadHalfWidth: 7.5,
		BarrierOffset: 9.0,
		BarrierBuffer: 0.4,
		GroundHeight:  0,
		Spawn:         mgl64.Vec3{0, 0, 0},
	}
}

// Validate reports whether the geometry can host a bike.
func (g Geometry) Validate() error {
	switch {
	case !finite(g.RoadHalfWidth) || g.RoadHalfWidth <= 0:
		return fmt.Errorf("%w: road half width %v", ErrInvalidGeometry, g.RoadHalfWidth)
	case !finite(g.BarrierOffset) || g.BarrierOffset <= g.RoadHalfWidth:
		return fmt.Errorf("%w: barrier offset %v must exceed road half width %v", ErrInvalidGeometry, g.BarrierOffset, g.RoadHalfWidth)
	case !finite(g.BarrierBuffer) || g.BarrierBuffer < 0 || g.BarrierBuffer >= g.BarrierOffset-g.RoadHalfWidth:
		return fmt.Errorf("%w: barrier buffer %v", ErrInvalidGeometry, g.BarrierBuffer)
	case math.Abs(g.Spawn.X()) >= g.BarrierOffset-g.BarrierBuffer:
		return fmt.Errorf("%w: spawn x %v is inside the barrier zone", ErrInvalidGeometry, g.Spawn.X())
	}
	return nil
}

// wallLine is the lateral distance at which a barrier impact triggers.
func (g Geometry) wallLine() float64 { return g.BarrierOffset - g.BarrierBuffer }

// Tuning holds the power, turning and lean constants.
type Tuning struct {
	BaseAcceleration  float64
	BrakeDeceleration float64
	TopSpeed          float64

	IdleRPM       float64
	RedlineRPM    float64
	LowRPMTorque  float64
	MidRPMTorque  float64
	HighRPMTorque float64
	RPMSmoothing  float64
	ThrottleRPM   float64

	GearRatios         [MaxGear + 1]float64
	FinalDrive         float64
	PrimaryRatio       float64
	WheelCircumference float64

	MaxTurnSpeed     float64
	TurnAcceleration float64
	TurnDamping      float64 // per 60 Hz tick
	SteerDeadzone    float64
	MaxLeanAngle     float64
	LeanRate         float64
	FullLeanSpeed    float64
	TrailBrakeLean   float64
}

// DefaultTuning returns the arcade sport-bike feel.
func DefaultTuning() Tuning {
	return Tuning{
		BaseAcceleration:  9.0,
		BrakeDeceleration: 28.0,
		TopSpeed:          fromMPH(340),

		IdleRPM:       1100,
		RedlineRPM:    13000,
		LowRPMTorque:  0.75,
		MidRPMTorque:  1.0,
		HighRPMTorque: 0.85,
		RPMSmoothing:  0.3,
		ThrottleRPM:   400,

		GearRatios:         [MaxGear + 1]float64{0, 2.6, 1.9, 1.55, 1.32, 1.16, 1.05},
		FinalDrive:         2.8,
		PrimaryRatio:       1.6,
		WheelCircumference: 1.95,

		MaxTurnSpeed:     2.2,
		TurnAcceleration: 9.0,
		TurnDamping:      0.85,
		SteerDeadzone:    0.05,
		MaxLeanAngle:     0.8,
		LeanRate:         3.5,
		FullLeanSpeed:    20,
		TrailBrakeLean:   0.25,
	}
}
