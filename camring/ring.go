// Package camring plans rings of cameras orbiting a scene.
//
// A ring is parameterized by a radius, a height and a number of samples. Cameras sit on a
// horizontal circle around the world Z axis, all tilted by the same angle so that they look at
// the origin, with yaw advancing by 2π/samples from one camera to the next.
package camring

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/synthcam/spatialmath"
)

// Params describe a ring of cameras.
type Params struct {
	Radius  float64 `json:"radius"`
	Height  float64 `json:"height"`
	Samples int     `json:"samples"`
}

// Validate ensures the parameters describe a ring that can be planned.
func (p Params) Validate() error {
	if p.Samples <= 0 {
		return newConfigurationError("samples", p.Samples, "must be at least 1")
	}
	if math.IsNaN(p.Radius) || math.IsInf(p.Radius, 0) || p.Radius <= 0 {
		return newConfigurationError("radius", p.Radius, "must be a finite number greater than 0")
	}
	if math.IsNaN(p.Height) || math.IsInf(p.Height, 0) {
		return newConfigurationError("height", p.Height, "must be a finite number")
	}
	if p.Height == 0 {
		return newConfigurationError("height", p.Height, "must not be 0, the camera tilt is atan(radius/height)")
	}
	return nil
}

// Step is the angle between two consecutive cameras.
func (p Params) Step() float64 {
	return 2 * math.Pi / float64(p.Samples)
}

// Tilt is the angle every camera of the ring is tilted by about its X axis.
func (p Params) Tilt() float64 {
	return math.Atan(p.Radius / p.Height)
}

// Pose is a single camera of a ring.
type Pose struct {
	Position r3.Vector
	Rotation spatialmath.EulerAngles
}

// Spatial converts the camera pose into a spatialmath.Pose.
func (p Pose) Spatial() spatialmath.Pose {
	rot := p.Rotation
	return spatialmath.NewPose(p.Position, &rot)
}

// Ring is an ordered set of camera poses. The order is the order cameras are registered with a
// renderer and therefore the frame order of everything rendered from it.
type Ring []Pose

// Pose returns the i-th camera as a spatialmath.Pose.
func (r Ring) Pose(i int) spatialmath.Pose {
	return r[i].Spatial()
}

// Plan computes the ring of cameras described by the parameters.
//
// The first camera sits on the +X axis at (radius, 0, height) with rotation (atan(radius/height), 0, π/2).
// Camera i sits at angle θ = 2πi/samples around Z. Roll and pitch are carried over from the
// previous camera and yaw accumulates by 2π/samples, which keeps every camera facing the Z axis.
func Plan(params Params) (Ring, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	step := params.Step()
	ring := make(Ring, 0, params.Samples)
	ring = append(ring, Pose{
		Position: r3.Vector{X: params.Radius, Y: 0, Z: params.Height},
		Rotation: spatialmath.EulerAngles{Roll: params.Tilt(), Pitch: 0, Yaw: math.Pi / 2},
	})
	for i := 1; i < params.Samples; i++ {
		last := ring[len(ring)-1]
		theta := (2 * float64(i) * math.Pi) / float64(params.Samples)
		ring = append(ring, Pose{
			Position: r3.Vector{
				X: params.Radius * math.Cos(theta),
				Y: params.Radius * math.Sin(theta),
				Z: last.Position.Z,
			},
			Rotation: spatialmath.EulerAngles{
				Roll:  last.Rotation.Roll,
				Pitch: last.Rotation.Pitch,
				Yaw:   last.Rotation.Yaw + step,
			},
		})
	}
	return ring, nil
}
