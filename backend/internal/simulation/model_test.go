package simulation

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lanerush/backend/internal/shared/types"
)

func TestDragCoefficientFallsWithSpeed(t *testing.T) {
	prev := dragCoefficient(0)
	assert.InDelta(t, 1.0, prev, 1e-9)

	for mph := 1.0; mph <= 600; mph++ {
		c := dragCoefficient(fromMPH(mph))
		assert.GreaterOrEqual(t, c, minDragCoeff, "mph=%v", mph)
		if mph <= 300 {
			assert.Less(t, c, prev, "mph=%v", mph)
		} else {
			assert.LessOrEqual(t, c, prev, "mph=%v", mph)
		}
		prev = c
	}
	assert.Equal(t, minDragCoeff, dragCoefficient(fromMPH(2000)))
}

func TestGearFollowsDisplaySpeed(t *testing.T) {
	cases := []struct {
		mph  float64
		gear int
	}{
		{0, 1}, {19.9, 1}, {20, 2}, {39, 2}, {40, 3}, {64.9, 3},
		{65, 4}, {94, 4}, {95, 5}, {134.9, 5}, {135, 6}, {320, 6},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.gear, gearFor(fromMPH(tc.mph)), "mph=%v", tc.mph)
	}

	prev := gearFor(0)
	for mph := 0.0; mph <= 250; mph += 0.5 {
		g := gearFor(fromMPH(mph))
		require.GreaterOrEqual(t, g, prev, "gear dropped at %v mph", mph)
		prev = g
	}
}

func TestRPMStaysInBand(t *testing.T) {
	tune := DefaultTuning()
	assert.Equal(t, tune.IdleRPM, tune.targetRPM(0, 1))
	assert.Equal(t, tune.RedlineRPM, tune.targetRPM(200, 1))

	b, err := NewBike(DefaultGeometry(), tune)
	require.NoError(t, err)
	b.SetControls(types.ControlInput{Throttle: f(1)})
	for range 600 {
		b.Update(tick, nil)
		require.GreaterOrEqual(t, b.RPM, tune.IdleRPM)
		require.LessOrEqual(t, b.RPM, tune.RedlineRPM)
	}
}

func TestTorqueBands(t *testing.T) {
	tune := DefaultTuning()
	assert.Equal(t, tune.LowRPMTorque, tune.torqueMultiplier(0.2*tune.RedlineRPM))
	assert.Equal(t, tune.MidRPMTorque, tune.torqueMultiplier(0.5*tune.RedlineRPM))
	assert.Equal(t, tune.HighRPMTorque, tune.torqueMultiplier(0.9*tune.RedlineRPM))
	assert.Equal(t, 1.2, gearRatioFactor(3))
	assert.Equal(t, 1.0, gearRatioFactor(5))
	assert.Equal(t, 0.85, gearRatioFactor(6))
}

func TestTurnSpeedFactor(t *testing.T) {
	assert.Equal(t, 0.8, turnSpeedFactor(fromMPH(10)))
	assert.InDelta(t, 0.65, turnSpeedFactor(fromMPH(35)), 1e-9)
	assert.InDelta(t, 0.5, turnSpeedFactor(fromMPH(50)), 1e-9)
	assert.InDelta(t, 0.2, turnSpeedFactor(fromMPH(80)), 1e-9)
	assert.InDelta(t, 0.1, turnSpeedFactor(fromMPH(160)), 1e-9)
	assert.InDelta(t, 0.02, turnSpeedFactor(fromMPH(5000)), 1e-9)
}

func TestSteerDeadzone(t *testing.T) {
	tune := DefaultTuning()
	assert.Equal(t, 0.0, tune.steerInput(0.04))
	assert.Equal(t, 0.0, tune.steerInput(-0.049))
	assert.InDelta(t, 1.0, tune.steerInput(1), 1e-12)
	assert.InDelta(t, -1.0, tune.steerInput(-1), 1e-12)
	assert.InDelta(t, -0.5, tune.steerInput(-0.525), 1e-12)
}

func TestSetControlsClampsAndResolvesBrakes(t *testing.T) {
	b, err := NewBike(DefaultGeometry(), DefaultTuning())
	require.NoError(t, err)

	b.SetControls(types.ControlInput{Throttle: f(2), Steer: f(-3)})
	assert.Equal(t, 1.0, b.Controls.Throttle)
	assert.Equal(t, -1.0, b.Controls.Steer)

	b.SetControls(types.ControlInput{Throttle: f(math.NaN())})
	assert.Equal(t, 1.0, b.Controls.Throttle, "NaN must keep the previous value")

	b.SetControls(types.ControlInput{Brake: f(1)})
	assert.Equal(t, 1.0, b.Controls.Brake)
	assert.InDelta(t, 0.7, b.Controls.FrontBrake, 1e-12)
	assert.InDelta(t, 0.3, b.Controls.RearBrake, 1e-12)

	b.SetControls(types.ControlInput{RearBrake: f(1), FrontBrake: f(0)})
	assert.InDelta(t, 0.7, b.Controls.Brake, 1e-12)

	b.SetControls(types.ControlInput{FrontBrake: f(0.9)})
	assert.InDelta(t, 0.9, b.Controls.Brake, 1e-12, "highest source wins")

	b.SetControls(types.ControlInput{Brake: f(0)})
	assert.Equal(t, 0.0, b.Controls.Brake)
	assert.Equal(t, 1.0, b.Controls.Throttle, "partial updates leave other fields alone")
}

func TestSetStats(t *testing.T) {
	b, err := NewBike(DefaultGeometry(), DefaultTuning())
	require.NoError(t, err)

	b.SetStats(types.BikeStatsInput{Speed: f(150), Handling: f(1.2)})
	assert.InDelta(t, 1.5, b.Stats.SpeedMultiplier, 1e-12)
	assert.Equal(t, 1.2, b.Stats.HandlingMultiplier)
	assert.Equal(t, 1.0, b.Stats.AccelerationMultiplier)

	b.SetStats(types.BikeStatsInput{Acceleration: f(1.1)})
	assert.InDelta(t, 1.5, b.Stats.SpeedMultiplier, 1e-12, "unset fields keep their value")
	assert.Equal(t, 1.1, b.Stats.AccelerationMultiplier)

	b.SetStats(types.BikeStatsInput{Speed: f(90)})
	assert.Equal(t, 1.0, b.Stats.SpeedMultiplier)

	b.Reset()
	assert.Equal(t, 1.1, b.Stats.AccelerationMultiplier, "stats survive reset")
}

func TestClassifyImpact(t *testing.T) {
	cases := []struct {
		angle float64
		want  Severity
	}{
		{0, Glancing}, {19.9, Glancing}, {20, SideSwipe}, {44.9, SideSwipe},
		{45, TBone}, {89.9, TBone}, {90, HeadOn}, {180, HeadOn},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyImpact(tc.angle), "angle=%v", tc.angle)
	}
	assert.False(t, Glancing.Response().Crash)
	for _, s := range []Severity{SideSwipe, TBone, HeadOn} {
		assert.True(t, s.Response().Crash, s.String())
	}
}

func TestImpactAngle(t *testing.T) {
	pos := mgl64.Vec3{}
	sameWay := Obstacle{Position: mgl64.Vec3{0, 0, 2}, Velocity: mgl64.Vec3{0, 0, 15}}
	oncoming := Obstacle{Position: mgl64.Vec3{0, 0, 2}, Velocity: mgl64.Vec3{0, 0, -15}}
	crossing := Obstacle{Position: mgl64.Vec3{0, 0, 2}, Velocity: mgl64.Vec3{15, 0, 0}}
	parkedAhead := Obstacle{Position: mgl64.Vec3{0, 0, 2}}
	parkedBeside := Obstacle{Position: mgl64.Vec3{2, 0, 0}}

	assert.InDelta(t, 0, impactAngle(0, pos, sameWay), 1e-9)
	assert.InDelta(t, 180, impactAngle(0, pos, oncoming), 1e-9)
	assert.InDelta(t, 90, impactAngle(0, pos, crossing), 1e-9)
	assert.InDelta(t, 180, impactAngle(0, pos, parkedAhead), 1e-9)
	assert.InDelta(t, 0, impactAngle(0, pos, parkedBeside), 1e-9)
}

func obstacleAt(b *Bike, angleDeg float64) *stubObstacle {
	rad := mgl64.DegToRad(angleDeg)
	dir := mgl64.Vec3{math.Sin(rad), 0, math.Cos(rad)}
	return &stubObstacle{obs: Obstacle{
		Position: b.Position.Add(mgl64.Vec3{0.8, 0, 1}),
		Velocity: dir.Mul(12),
	}}
}

func TestObstacleSeverityDecidesCrash(t *testing.T) {
	cases := []struct {
		angle float64
		sev   Severity
		crash bool
	}{
		{5, Glancing, false},
		{30, SideSwipe, true},
		{60, TBone, true},
		{170, HeadOn, true},
	}
	for _, tc := range cases {
		t.Run(tc.sev.String(), func(t *testing.T) {
			b, err := NewBike(DefaultGeometry(), DefaultTuning())
			require.NoError(t, err)
			b.Speed = 30

			res := b.Update(tick, obstacleAt(b, tc.angle))
			require.NotNil(t, res.Impact)
			assert.Equal(t, tc.sev, res.Impact.Severity)
			assert.Equal(t, tc.crash, b.Collision.IsCrashed)
			assert.True(t, b.Collision.IsWobbling)
			assert.True(t, res.Snapshot.Collision.Invulnerable)
			assert.Less(t, b.Collision.LateralVelocity, 0.0, "pushed away from an obstacle on the right")

			loss := tc.sev.Response().SpeedLoss
			assert.InDelta(t, res.Impact.Speed*(1-loss), b.Speed, 1e-6)
		})
	}
}

func TestSlowCrashSeverityOnlyWobbles(t *testing.T) {
	b, err := NewBike(DefaultGeometry(), DefaultTuning())
	require.NoError(t, err)
	b.Speed = fromMPH(15)

	res := b.Update(tick, obstacleAt(b, 170))
	require.NotNil(t, res.Impact)
	assert.Equal(t, HeadOn, res.Impact.Severity)
	assert.False(t, res.Impact.Crashed)
	assert.False(t, b.Collision.IsCrashed)
}

func TestLowSpeedContactIsANudge(t *testing.T) {
	b, err := NewBike(DefaultGeometry(), DefaultTuning())
	require.NoError(t, err)
	b.Speed = 3

	res := b.Update(tick, obstacleAt(b, 170))
	assert.Nil(t, res.Impact)
	assert.False(t, b.Collision.IsCrashed)
	assert.False(t, b.Collision.IsWobbling)
	assert.Zero(t, b.Collision.InvulnerableTime)
	assert.Less(t, b.Collision.LateralVelocity, 0.0)
}

func TestInvulnerabilitySuppressesSecondImpact(t *testing.T) {
	b, err := NewBike(DefaultGeometry(), DefaultTuning())
	require.NoError(t, err)
	b.Speed = 30

	provider := obstacleAt(b, 5)
	first := b.Update(tick, provider)
	require.NotNil(t, first.Impact)
	require.Equal(t, 1, provider.calls)
	require.InDelta(t, InvulnerableTime, b.Collision.InvulnerableTime, 1e-12)

	for range 30 {
		res := b.Update(tick, provider)
		assert.Nil(t, res.Impact)
	}
	assert.Equal(t, 1, provider.calls, "provider is not queried while invulnerable")

	prev := b.Collision.InvulnerableTime
	for range 40 {
		b.Update(tick, nil)
		require.LessOrEqual(t, b.Collision.InvulnerableTime, prev)
		prev = b.Collision.InvulnerableTime
	}
	assert.Equal(t, 0.0, b.Collision.InvulnerableTime)

	res := b.Update(tick, provider)
	assert.NotNil(t, res.Impact)
	assert.Equal(t, 2, provider.calls)
}

func TestCrashRecoveryClearsObstacleCrash(t *testing.T) {
	b, err := NewBike(DefaultGeometry(), DefaultTuning())
	require.NoError(t, err)
	b.Speed = 30

	b.Update(tick, obstacleAt(b, 60))
	require.True(t, b.Collision.IsCrashed)
	assert.InDelta(t, CrashRecoveryTime, b.Collision.RecoveryTime, 1e-12)

	for range 119 {
		b.Update(tick, nil)
	}
	assert.True(t, b.Collision.IsCrashed)
	b.Update(tick, nil)
	b.Update(tick, nil)
	assert.False(t, b.Collision.IsCrashed)
}

func TestBarrierSeverityBoundary(t *testing.T) {
	for _, tc := range []struct {
		mph  float64
		want string
	}{
		{151, "smear"},
		{150, "explode"},
		{90, "explode"},
	} {
		b, err := NewBike(DefaultGeometry(), DefaultTuning())
		require.NoError(t, err)
		b.Speed = fromMPH(tc.mph)
		b.Position = mgl64.Vec3{b.geo.wallLine() + 0.01, 0, 0}

		ev := b.hitBarrier()
		require.NotNil(t, ev)
		assert.Equal(t, tc.want, ev.Severity, "mph=%v", tc.mph)
		assert.InDelta(t, tc.mph, ev.SpeedMph, 1e-9)
		assert.True(t, b.Collision.IsCrashed)
	}
}

func TestWobbleIsCosmetic(t *testing.T) {
	plain, err := NewBike(DefaultGeometry(), DefaultTuning())
	require.NoError(t, err)
	wobbly, err := NewBike(DefaultGeometry(), DefaultTuning())
	require.NoError(t, err)
	for _, b := range []*Bike{plain, wobbly} {
		b.Speed = 20
	}
	wobbly.startWobble(1.0, 0.4)

	var sawOverlay bool
	for range 30 {
		plain.Update(tick, nil)
		wobbly.Update(tick, nil)
		assert.Equal(t, plain.Position, wobbly.Position)
		assert.Equal(t, plain.Speed, wobbly.Speed)
		if wobbly.Rotation.Roll != plain.Rotation.Roll {
			sawOverlay = true
		}
		assert.LessOrEqual(t, math.Abs(wobbly.Rotation.Roll), wobbly.tuning.MaxLeanAngle)
	}
	assert.True(t, sawOverlay)

	for range 60 {
		wobbly.Update(tick, nil)
	}
	assert.False(t, wobbly.Collision.IsWobbling)
	assert.Zero(t, wobbly.Collision.WobbleAmplitude)
}
