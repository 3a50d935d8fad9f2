package simulation

import (
	"math"

	"lanerush/backend/internal/shared/types"
)

const (
	rearBrakeWeight = 0.7
	leverFrontShare = 0.7
	leverRearShare  = 0.3
)

// SetControls merges a partial control update. Every written value is clamped;
// nil and NaN fields keep their previous value.
func (b *Bike) SetControls(in types.ControlInput) {
	c := &b.Controls
	if v, ok := finitePtr(in.Throttle); ok {
		c.Throttle = clamp(v, 0, 1)
	}
	if v, ok := finitePtr(in.Steer); ok {
		c.Steer = clamp(v, -1, 1)
	}
	if v, ok := finitePtr(in.FrontBrake); ok {
		c.FrontBrake = clamp(v, 0, 1)
		c.lever = 0
	}
	if v, ok := finitePtr(in.RearBrake); ok {
		c.RearBrake = clamp(v, 0, 1)
		c.lever = 0
	}
	if v, ok := finitePtr(in.Brake); ok {
		c.lever = clamp(v, 0, 1)
		c.FrontBrake = c.lever * leverFrontShare
		c.RearBrake = c.lever * leverRearShare
	}

	// Highest source wins; brake inputs never stack.
	c.Brake = math.Max(c.lever, math.Max(c.FrontBrake, c.RearBrake*rearBrakeWeight))
}

// steerInput applies the deadzone and rescales the rest to the full range.
func (t Tuning) steerInput(steer float64) float64 {
	mag := math.Abs(steer)
	if mag < t.SteerDeadzone {
		return 0
	}
	return math.Copysign((mag-t.SteerDeadzone)/(1-t.SteerDeadzone), steer)
}
