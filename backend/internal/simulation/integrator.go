package simulation

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

func forward(yaw float64) mgl64.Vec3 {
	return mgl64.Vec3{math.Sin(yaw), 0, math.Cos(yaw)}
}

func right(yaw float64) mgl64.Vec3 {
	return mgl64.Vec3{math.Cos(yaw), 0, -math.Sin(yaw)}
}

// integrate derives velocity from speed and heading and moves the bike.
func (b *Bike) integrate(dt float64) {
	b.Velocity = forward(b.Rotation.Yaw).Mul(b.Speed)
	b.Position = b.Position.Add(b.Velocity.Mul(dt))
	b.Position[1] = b.geo.GroundHeight
}
