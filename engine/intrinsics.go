package engine

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// DefaultResolution is the width and height of rendered frames when nothing else is configured.
const DefaultResolution = 512

// DefaultFOV is the horizontal field of view of a 50mm lens on a 36mm sensor.
var DefaultFOV = 2 * math.Atan(18./50.)

// Intrinsics holds the parameters of a pinhole camera.
type Intrinsics struct {
	Width  int     `json:"width_px"`
	Height int     `json:"height_px"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Ppx    float64 `json:"ppx"`
	Ppy    float64 `json:"ppy"`
}

// NewIntrinsicsFromFOV creates square pixel intrinsics from a resolution and a horizontal field
// of view in radians, with the principal point in the image center.
func NewIntrinsicsFromFOV(width, height int, fov float64) *Intrinsics {
	f := float64(width) / 2 / math.Tan(fov/2)
	return &Intrinsics{
		Width:  width,
		Height: height,
		Fx:     f,
		Fy:     f,
		Ppx:    float64(width) / 2,
		Ppy:    float64(height) / 2,
	}
}

// DefaultIntrinsics returns 512x512 intrinsics with DefaultFOV.
func DefaultIntrinsics() *Intrinsics {
	return NewIntrinsicsFromFOV(DefaultResolution, DefaultResolution, DefaultFOV)
}

// CheckValid checks if the fields for Intrinsics have valid inputs.
func (i *Intrinsics) CheckValid() error {
	if i == nil {
		return errors.New("intrinsics do not exist")
	}
	if i.Width <= 0 || i.Height <= 0 {
		return errors.Errorf("invalid size (%d, %d)", i.Width, i.Height)
	}
	if i.Fx <= 0 || i.Fy <= 0 {
		return errors.Errorf("invalid focus (%f, %f)", i.Fx, i.Fy)
	}
	if i.Ppx < 0 || i.Ppy < 0 {
		return errors.Errorf("invalid principal point (%f, %f)", i.Ppx, i.Ppy)
	}
	return nil
}

// PixelRay returns the direction, in the camera frame, of the ray through pixel (u, v). Cameras
// look down -Z with +Y up, so image rows grow along -Y.
func (i *Intrinsics) PixelRay(u, v float64) r3.Vector {
	return r3.Vector{
		X: (u - i.Ppx) / i.Fx,
		Y: -(v - i.Ppy) / i.Fy,
		Z: -1,
	}
}

// Project maps a point in the camera frame to pixel coordinates. Points behind the camera
// are not projected.
func (i *Intrinsics) Project(p r3.Vector) (u, v float64, ok bool) {
	if p.Z >= 0 {
		return 0, 0, false
	}
	depth := -p.Z
	u = p.X/depth*i.Fx + i.Ppx
	v = -p.Y/depth*i.Fy + i.Ppy
	return u, v, true
}
