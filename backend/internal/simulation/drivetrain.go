package simulation

import "math"

const (
	maxTimeBoost     = 2.0
	timeBoostPeriod  = 10.0
	brakeSpeedScale  = 50.0
	maxBrakeFactor   = 1.5
	antiLockFraction = 0.95
	coastBaseDrag    = 0.1
	coastDragPerMS   = 0.001 * MphPerMS
	minDragCoeff     = 0.3
	brakeDive        = 0.06
	launchWheelie    = 0.05
	pitchRate        = 0.5
)

// dragBand interpolates the drag coefficient linearly up to a speed (m/s).
type dragBand struct {
	upTo     float64
	from, to float64
}

var (
	dragBands = [...]dragBand{
		{fromMPH(60), 1.00, 0.85},
		{fromMPH(100), 0.85, 0.72},
		{fromMPH(150), 0.72, 0.58},
		{fromMPH(200), 0.58, 0.47},
		{fromMPH(300), 0.47, 0.36},
	}
	dragDecayScale = fromMPH(150)
	wheelieSpeed   = fromMPH(35)
)

// dragCoefficient falls as speed rises; above the last band it decays
// exponentially but never below minDragCoeff.
func dragCoefficient(speed float64) float64 {
	lo := 0.0
	for _, band := range dragBands {
		if speed < band.upTo {
			return lerp(band.from, band.to, (speed-lo)/(band.upTo-lo))
		}
		lo = band.upTo
	}
	last := dragBands[len(dragBands)-1].to
	return math.Max(minDragCoeff, last*math.Exp(-(speed-lo)/dragDecayScale))
}

func (t Tuning) torqueMultiplier(rpm float64) float64 {
	band := rpm / t.RedlineRPM
	switch {
	case band < 0.3:
		return t.LowRPMTorque
	case band <= 0.7:
		return t.MidRPMTorque
	default:
		return t.HighRPMTorque
	}
}

func gearRatioFactor(gear int) float64 {
	switch {
	case gear <= 3:
		return 1.2
	case gear <= 5:
		return 1.0
	default:
		return 0.85
	}
}

// gearFor picks the gear purely from speed.
func gearFor(speed float64) int {
	gear := 1
	for _, up := range gearUpshift {
		if speed >= up {
			gear++
		}
	}
	return gear
}

func (t Tuning) targetRPM(speed float64, gear int) float64 {
	rpm := speed * t.GearRatios[gear] * t.FinalDrive * t.PrimaryRatio * 60 / t.WheelCircumference
	return clamp(rpm, t.IdleRPM, t.RedlineRPM)
}

func (b *Bike) updateDrivetrain(dt float64) {
	c := b.Controls
	t := b.tuning

	switch {
	case c.Brake > 0:
		b.ThrottleHoldTime = 0
		factor := math.Min(maxBrakeFactor, 1+b.Speed/brakeSpeedScale)
		power := t.BrakeDeceleration * factor * c.Brake
		if dt > 0 {
			b.Speed -= math.Min(power*dt, (b.Speed/dt)*antiLockFraction)
		}
		b.Speed = math.Max(0, b.Speed)

	case c.Throttle > 0:
		b.ThrottleHoldTime += dt
		timeBoost := 1 + math.Min(b.ThrottleHoldTime/timeBoostPeriod, maxTimeBoost)
		accel := t.BaseAcceleration *
			t.torqueMultiplier(b.RPM) *
			dragCoefficient(b.Speed) *
			gearRatioFactor(b.Gear) *
			timeBoost *
			b.Stats.AccelerationMultiplier

		before := b.Speed
		b.Speed += c.Throttle * accel * dt * b.Stats.SpeedMultiplier
		for _, m := range milestones {
			if before < m.speed && b.Speed >= m.speed {
				b.Speed *= m.boost
			}
		}
		b.Speed = math.Min(b.Speed, t.TopSpeed*b.Stats.SpeedMultiplier)

	default:
		b.ThrottleHoldTime = 0
		drag := coastBaseDrag
		if b.Speed > coastDragSpeed {
			drag += (b.Speed - coastDragSpeed) * coastDragPerMS
		}
		b.Speed = math.Max(0, b.Speed-drag*dt)
	}

	b.Gear = gearFor(b.Speed)
	target := t.targetRPM(b.Speed, b.Gear)
	b.RPM += (target - b.RPM) * t.RPMSmoothing
	b.RPM = clamp(b.RPM+c.Throttle*t.ThrottleRPM*dtScale(dt), t.IdleRPM, t.RedlineRPM)

	pitch := -brakeDive * c.Brake
	if b.Speed < wheelieSpeed {
		pitch += launchWheelie * c.Throttle
	}
	b.Rotation.Pitch = approach(b.Rotation.Pitch, pitch, pitchRate*dt)
}

// dtScale is 1 at 60 Hz, so per-tick feedback stays comparable across frame rates.
func dtScale(dt float64) float64 { return dt * 60 }
