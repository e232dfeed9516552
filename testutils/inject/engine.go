// Package inject provides engines whose methods can be replaced per test.
package inject

import (
	"context"

	"go.viam.com/utils"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/synthcam/engine"
	"go.viam.com/synthcam/scene"
	"go.viam.com/synthcam/spatialmath"
)

// Engine is an injected engine.
type Engine struct {
	engine.Engine
	LoadSceneFunc     func(ctx context.Context, path string) ([]scene.Object, error)
	SetCategoryFunc   func(ctx context.Context, obj scene.Object, category scene.Category) error
	SetObjectPoseFunc func(ctx context.Context, obj scene.Object, pose spatialmath.Pose) error
	AddLightFunc      func(ctx context.Context, light engine.Light) error
	SetIntrinsicsFunc func(ctx context.Context, intrinsics *engine.Intrinsics) error
	AddCameraPoseFunc func(ctx context.Context, camToWorld *mat.Dense) error
	EnablePassFunc    func(ctx context.Context, pass engine.Pass) error
	RenderFunc        func(ctx context.Context) (*engine.Result, error)
	CloseFunc         func(ctx context.Context) error
}

// LoadScene calls the injected LoadScene or the real version.
func (e *Engine) LoadScene(ctx context.Context, path string) ([]scene.Object, error) {
	if e.LoadSceneFunc == nil {
		return e.Engine.LoadScene(ctx, path)
	}
	return e.LoadSceneFunc(ctx, path)
}

// SetCategory calls the injected SetCategory or the real version.
func (e *Engine) SetCategory(ctx context.Context, obj scene.Object, category scene.Category) error {
	if e.SetCategoryFunc == nil {
		return e.Engine.SetCategory(ctx, obj, category)
	}
	return e.SetCategoryFunc(ctx, obj, category)
}

// SetObjectPose calls the injected SetObjectPose or the real version.
func (e *Engine) SetObjectPose(ctx context.Context, obj scene.Object, pose spatialmath.Pose) error {
	if e.SetObjectPoseFunc == nil {
		return e.Engine.SetObjectPose(ctx, obj, pose)
	}
	return e.SetObjectPoseFunc(ctx, obj, pose)
}

// AddLight calls the injected AddLight or the real version.
func (e *Engine) AddLight(ctx context.Context, light engine.Light) error {
	if e.AddLightFunc == nil {
		return e.Engine.AddLight(ctx, light)
	}
	return e.AddLightFunc(ctx, light)
}

// SetIntrinsics calls the injected SetIntrinsics or the real version.
func (e *Engine) SetIntrinsics(ctx context.Context, intrinsics *engine.Intrinsics) error {
	if e.SetIntrinsicsFunc == nil {
		return e.Engine.SetIntrinsics(ctx, intrinsics)
	}
	return e.SetIntrinsicsFunc(ctx, intrinsics)
}

// AddCameraPose calls the injected AddCameraPose or the real version.
func (e *Engine) AddCameraPose(ctx context.Context, camToWorld *mat.Dense) error {
	if e.AddCameraPoseFunc == nil {
		return e.Engine.AddCameraPose(ctx, camToWorld)
	}
	return e.AddCameraPoseFunc(ctx, camToWorld)
}

// EnablePass calls the injected EnablePass or the real version.
func (e *Engine) EnablePass(ctx context.Context, pass engine.Pass) error {
	if e.EnablePassFunc == nil {
		return e.Engine.EnablePass(ctx, pass)
	}
	return e.EnablePassFunc(ctx, pass)
}

// Render calls the injected Render or the real version.
func (e *Engine) Render(ctx context.Context) (*engine.Result, error) {
	if e.RenderFunc == nil {
		return e.Engine.Render(ctx)
	}
	return e.RenderFunc(ctx)
}

// Close calls the injected Close or the real version.
func (e *Engine) Close(ctx context.Context) error {
	if e.CloseFunc == nil {
		return utils.TryClose(ctx, e.Engine)
	}
	return e.CloseFunc(ctx)
}
