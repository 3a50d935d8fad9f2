package simulation

import "math"

const (
	minTurnSpeed       = 0.5
	trailSteerMin      = 0.1
	trailSpeedMin      = 5.0
	trailThrottleMax   = 0.3
	trailRampTime      = 0.5
	trailThrottleGain  = 0.8
	trailTimeGain      = 1.2
	maxTrailMultiplier = 3.0
	trailEaseIn        = 8.0
	trailEaseOut       = 4.0
	offThrottleDecay   = 3.0
	turnSettle         = 1e-4
)

// turnSpeedFactor shapes the reachable turn rate: sharp at walking pace,
// tapering off through the mid range and flattening out at speed.
func turnSpeedFactor(speed float64) float64 {
	switch {
	case speed < turnBand[0]:
		return 0.8
	case speed < turnBand[1]:
		return lerp(0.8, 0.5, (speed-turnBand[0])/(turnBand[1]-turnBand[0]))
	case speed < turnBand[2]:
		return lerp(0.5, 0.2, (speed-turnBand[1])/(turnBand[2]-turnBand[1]))
	default:
		return 0.2 * math.Max(0.1, turnBand[2]/speed)
	}
}

// updateTrailBrake grows the turn multiplier while the rider holds a lean
// off the gas and lets it relax once power comes back.
func (b *Bike) updateTrailBrake(dt float64) {
	c := b.Controls
	active := math.Abs(c.Steer) > trailSteerMin && b.Speed > trailSpeedMin

	if active && c.Throttle < trailThrottleMax {
		b.OffThrottleTime += dt
		timeEffect := math.Min(1, b.OffThrottleTime/trailRampTime)
		throttleEffect := 1 - c.Throttle/trailThrottleMax
		target := math.Min(maxTrailMultiplier, 1+throttleEffect*trailThrottleGain+timeEffect*trailTimeGain)
		b.TrailBrakeMultiplier += (target - b.TrailBrakeMultiplier) * math.Min(1, trailEaseIn*dt)
		return
	}

	b.OffThrottleTime = math.Max(0, b.OffThrottleTime-offThrottleDecay*dt)
	b.TrailBrakeMultiplier += (1 - b.TrailBrakeMultiplier) * math.Min(1, trailEaseOut*dt)
	b.TrailBrakeMultiplier = math.Max(1, b.TrailBrakeMultiplier)
}

func (b *Bike) updateTurning(dt float64) {
	t := b.tuning
	b.updateTrailBrake(dt)

	steer := t.steerInput(b.Controls.Steer)
	switch {
	case b.Speed < minTurnSpeed:
		b.TurnSpeed = 0
	case steer == 0:
		b.TurnSpeed *= math.Pow(t.TurnDamping, dtScale(dt))
		if math.Abs(b.TurnSpeed) < turnSettle {
			b.TurnSpeed = 0
		}
	default:
		target := -steer * t.MaxTurnSpeed * turnSpeedFactor(b.Speed) *
			b.TrailBrakeMultiplier * b.Stats.HandlingMultiplier
		b.TurnSpeed = approach(b.TurnSpeed, target, t.TurnAcceleration*dt)
	}

	b.Rotation.Yaw += b.TurnSpeed * dt

	leanFactor := math.Min(1, b.Speed/t.FullLeanSpeed)
	trailLean := (b.TrailBrakeMultiplier - 1) * t.TrailBrakeLean
	leanTarget := clamp(-b.TurnSpeed*leanFactor*(0.5+trailLean), -t.MaxLeanAngle, t.MaxLeanAngle)
	b.LeanAngle = clamp(approach(b.LeanAngle, leanTarget, t.LeanRate*dt), -t.MaxLeanAngle, t.MaxLeanAngle)
}
