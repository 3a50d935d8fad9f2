// Package obstacles holds the host-side traffic the ride core queries for
// contacts. It only moves vehicles along their lanes; spawning and driving
// decisions belong to the traffic layer.
package obstacles

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"lanerush/backend/internal/simulation"
)

const DefaultVehicleRadius = 1.1

// Vehicle is one obstacle in the field.
type Vehicle struct {
	ID       string
	Position mgl64.Vec3
	Velocity mgl64.Vec3
	Radius   float64
}

// Field is a shared set of lane vehicles. Safe for concurrent use.
type Field struct {
	mu           sync.RWMutex
	vehicles     []Vehicle
	courseLength float64
}

// NewField creates a field whose vehicles wrap around every courseLength metres
// along Z. A non-positive length disables wrapping.
func NewField(courseLength float64) *Field {
	return &Field{courseLength: courseLength}
}

// Add inserts a vehicle and returns its id.
func (f *Field) Add(v Vehicle) string {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.Radius <= 0 {
		v.Radius = DefaultVehicleRadius
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vehicles = append(f.vehicles, v)
	return v.ID
}

// Remove drops a vehicle by id.
func (f *Field) Remove(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, v := range f.vehicles {
		if v.ID == id {
			f.vehicles = append(f.vehicles[:i], f.vehicles[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of vehicles.
func (f *Field) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vehicles)
}

// Vehicles returns a copy of the current vehicles.
func (f *Field) Vehicles() []Vehicle {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]Vehicle, len(f.vehicles))
	copy(out, f.vehicles)
	return out
}

// Advance moves every vehicle at constant velocity for dt seconds.
func (f *Field) Advance(dt float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.vehicles {
		v := &f.vehicles[i]
		v.Position = v.Position.Add(v.Velocity.Mul(dt))
		if f.courseLength > 0 {
			v.Position[2] = wrap(v.Position.Z(), f.courseLength)
		}
	}
}

// CheckCollision reports the nearest vehicle overlapping a probe circle on the
// ground plane. Riders are not wrapped, so on a looping course the vehicle is
// matched on the shortest Z delta and reported in the rider's lap. A nil field
// never reports a contact.
func (f *Field) CheckCollision(position mgl64.Vec3, radius float64) (simulation.Obstacle, bool) {
	if f == nil {
		return simulation.Obstacle{}, false
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	best := -1
	bestDist := math.Inf(1)
	var bestDelta mgl64.Vec3
	for i, v := range f.vehicles {
		d := v.Position.Sub(position)
		d[1] = 0
		if f.courseLength > 0 {
			d[2] = lapDelta(d.Z(), f.courseLength)
		}
		dist := d.Len()
		if dist <= radius+v.Radius && dist < bestDist {
			best = i
			bestDist = dist
			bestDelta = d
		}
	}
	if best < 0 {
		return simulation.Obstacle{}, false
	}
	v := f.vehicles[best]
	pos := position.Add(bestDelta)
	pos[1] = v.Position.Y()
	return simulation.Obstacle{Position: pos, Velocity: v.Velocity}, true
}

// Lanes returns lateral lane centres for a road of the given half width.
func Lanes(roadHalfWidth float64, count int) []float64 {
	if count <= 0 {
		return nil
	}
	width := 2 * roadHalfWidth / float64(count)
	out := make([]float64, count)
	for i := range out {
		out[i] = -roadHalfWidth + width*(float64(i)+0.5)
	}
	return out
}

// Populate lays out count vehicles round-robin across lanes, spaced gap metres
// apart starting at startZ. Lanes left of centre run oncoming.
func (f *Field) Populate(lanes []float64, count int, startZ, gap, cruise float64) {
	if len(lanes) == 0 {
		return
	}
	for i := range count {
		x := lanes[i%len(lanes)]
		vz := cruise
		if x < 0 {
			vz = -cruise
		}
		f.Add(Vehicle{
			Position: mgl64.Vec3{x, 0, startZ + gap*float64(i)},
			Velocity: mgl64.Vec3{0, 0, vz},
		})
	}
}

func wrap(z, length float64) float64 {
	z = math.Mod(z, length)
	if z < 0 {
		z += length
	}
	return z
}

// lapDelta folds dz into [-length/2, length/2).
func lapDelta(dz, length float64) float64 {
	return wrap(dz+length/2, length) - length/2
}
