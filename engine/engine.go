// Package engine defines the interface synthcam drives a renderer through.
//
// A session against an engine mirrors the renderer's own call sequence: load a scene, label its
// objects, optionally move one of them, add a light, set the camera intrinsics, register camera
// poses, enable output passes and finally render. Render only returns once every frame is
// available, so callers never have to guess when outputs are complete.
package engine

import (
	"context"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/synthcam/scene"
	"go.viam.com/synthcam/spatialmath"
)

// Engine is a renderer that produces annotated frames of a scene.
type Engine interface {
	// LoadScene loads the scene file and returns its objects in load order.
	LoadScene(ctx context.Context, path string) ([]scene.Object, error)
	// SetCategory labels a loaded object.
	SetCategory(ctx context.Context, obj scene.Object, category scene.Category) error
	// SetObjectPose overwrites the location and rotation of a loaded object.
	SetObjectPose(ctx context.Context, obj scene.Object, pose spatialmath.Pose) error
	AddLight(ctx context.Context, light Light) error
	SetIntrinsics(ctx context.Context, intrinsics *Intrinsics) error
	// AddCameraPose registers a camera from its 4x4 camera-to-world matrix. Frames are numbered
	// in registration order.
	AddCameraPose(ctx context.Context, camToWorld *mat.Dense) error
	EnablePass(ctx context.Context, pass Pass) error
	// Render renders every registered camera and returns once all frames are complete.
	Render(ctx context.Context) (*Result, error)
	Close(ctx context.Context) error
}

var (
	// ErrNotLoaded is returned when an engine is used before a scene was loaded.
	ErrNotLoaded = errors.New("no scene loaded")
	// ErrNoCameras is returned when rendering without any registered camera.
	ErrNoCameras = errors.New("no camera poses registered")
	// ErrClosed is returned when an engine is used after Close.
	ErrClosed = errors.New("engine is closed")
	// ErrUnknownEngine is returned when no engine is registered under a name.
	ErrUnknownEngine = errors.New("unknown engine")
)

// LightType is the kind of a light source.
type LightType string

// Light types understood by engines.
const (
	LightPoint LightType = "POINT"
	LightSun   LightType = "SUN"
	LightSpot  LightType = "SPOT"
	LightArea  LightType = "AREA"
)

// Light is a light source added to the scene.
type Light struct {
	Type     LightType `json:"type"`
	Location r3.Vector `json:"location"`
	// Energy is in watts for point, spot and area lights and in W/m² for sun lights.
	Energy float64 `json:"energy"`
}

// DefaultLight is a 1000W point light at (5, -5, 5).
func DefaultLight() Light {
	return Light{Type: LightPoint, Location: r3.Vector{X: 5, Y: -5, Z: 5}, Energy: 1000}
}

// Validate ensures the light can be created.
func (l Light) Validate() error {
	switch l.Type {
	case LightPoint, LightSun, LightSpot, LightArea:
	default:
		return errors.Errorf("unknown light type %q", l.Type)
	}
	if l.Energy < 0 {
		return errors.Errorf("light energy must not be negative, got %f", l.Energy)
	}
	return nil
}
