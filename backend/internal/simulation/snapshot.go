package simulation

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"lanerush/backend/internal/shared/types"
)

func toVec3(v mgl64.Vec3) types.Vec3 {
	return types.Vec3{X: v.X(), Y: v.Y(), Z: v.Z()}
}

// Snapshot returns a copy of the bike state for rendering, HUD and replication.
// Nothing in it aliases the live bike.
func (b *Bike) Snapshot() types.BikeSnapshot {
	col := b.Collision
	return types.BikeSnapshot{
		Tick:        b.tick,
		Position:    toVec3(b.Position),
		Velocity:    toVec3(b.Velocity),
		Rotation:    b.Rotation,
		Speed:       b.Speed * MphPerMS,
		ActualSpeed: b.Speed,
		RPM:         int(math.Round(b.RPM)),
		Gear:        b.Gear,
		LeanAngle:   mgl64.RadToDeg(b.LeanAngle),
		TurnRate:    mgl64.RadToDeg(b.TurnSpeed),
		Collision: types.CollisionView{
			IsWobbling:   col.IsWobbling,
			IsCrashed:    col.IsCrashed,
			Invulnerable: col.InvulnerableTime > 0,
		},
	}
}
