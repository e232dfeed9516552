// Package fake implements a renderer that ray casts a scene of spheres entirely in process.
// It produces every pass a real renderer does, which makes it useful for dry runs and tests.
package fake

import (
	"context"
	"math"
	"sync"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/synthcam/engine"
	"go.viam.com/synthcam/logging"
	"go.viam.com/synthcam/scene"
	"go.viam.com/synthcam/spatialmath"
)

// ModelName is the name the fake engine is registered under.
const ModelName = "fake"

// BackgroundDepth is the depth reported for pixels that hit nothing.
const BackgroundDepth = 1e10

const ambient = 0.15

func init() {
	engine.RegisterNative(ModelName, func(ctx context.Context, cfg *Config, logger logging.Logger) (engine.Engine, error) {
		e, err := NewEngine(cfg, logger)
		if err != nil {
			return nil, err
		}
		return e, nil
	})
}

// Sphere is a single object of the fake scene.
type Sphere struct {
	Name   string    `json:"name"`
	Center []float64 `json:"center"`
	Radius float64   `json:"radius"`
	Color  []uint8   `json:"color,omitempty"`
}

// Config are the attributes of the fake engine.
type Config struct {
	// Spheres replace DefaultSpheres when set.
	Spheres []Sphere `json:"spheres,omitempty"`
	// Workers bounds how many frames render at once, 0 means one per camera.
	Workers int `json:"workers,omitempty"`
}

// DefaultSpheres is the scene loaded when no spheres are configured. It fits in view of a
// ring of radius 1500 at height 200.
var DefaultSpheres = []Sphere{
	{Name: "Suzanne", Center: []float64{0, 0, 0}, Radius: 150, Color: []uint8{200, 120, 60}},
	{Name: "rock_1", Center: []float64{300, 200, -50}, Radius: 100, Color: []uint8{120, 120, 120}},
	{Name: "rock_2", Center: []float64{-250, -300, -50}, Radius: 120, Color: []uint8{110, 110, 110}},
	{Name: "fish_1", Center: []float64{-200, 250, 120}, Radius: 60, Color: []uint8{40, 160, 220}},
}

// Validate ensures the config describes a scene that can be rendered.
func (cfg *Config) Validate(path string) error {
	for i, s := range cfg.Spheres {
		if s.Name == "" {
			return errors.Errorf("%s.spheres.%d: name is required", path, i)
		}
		if len(s.Center) != 3 {
			return errors.Errorf("%s.spheres.%d: center must have 3 coordinates, got %d", path, i, len(s.Center))
		}
		if s.Radius <= 0 {
			return errors.Errorf("%s.spheres.%d: radius must be greater than 0", path, i)
		}
		if len(s.Color) != 0 && len(s.Color) != 3 {
			return errors.Errorf("%s.spheres.%d: color must have 3 channels, got %d", path, i, len(s.Color))
		}
	}
	if cfg.Workers < 0 {
		return errors.Errorf("%s.workers: must not be negative", path)
	}
	return nil
}

type sphere struct {
	obj    scene.Object
	center r3.Vector
	radius float64
	color  [3]float64
}

// Engine is the fake engine.
type Engine struct {
	mu     sync.Mutex
	cfg    Config
	logger logging.Logger

	loaded     bool
	closed     bool
	spheres    []*sphere
	lights     []engine.Light
	intrinsics *engine.Intrinsics
	cameras    []spatialmath.Pose
	passes     []engine.Pass
}

// NewEngine returns a fake engine.
func NewEngine(cfg *Config, logger logging.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if err := cfg.Validate("attributes"); err != nil {
		return nil, err
	}
	return &Engine{cfg: *cfg, logger: logger}, nil
}

// LoadScene loads the configured spheres. The scene file itself is not read.
func (e *Engine) LoadScene(ctx context.Context, path string) ([]scene.Object, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, engine.ErrClosed
	}
	if path == "" {
		return nil, errors.New("scene path is empty")
	}

	spheres := e.cfg.Spheres
	if len(spheres) == 0 {
		spheres = DefaultSpheres
	}
	e.spheres = make([]*sphere, 0, len(spheres))
	objects := make([]scene.Object, 0, len(spheres))
	for i, s := range spheres {
		center := r3.Vector{X: s.Center[0], Y: s.Center[1], Z: s.Center[2]}
		col := [3]float64{200, 200, 200}
		if len(s.Color) == 3 {
			col = [3]float64{float64(s.Color[0]), float64(s.Color[1]), float64(s.Color[2])}
		}
		obj := scene.Object{Index: i, Name: s.Name, Pose: spatialmath.NewPoseFromPoint(center)}
		e.spheres = append(e.spheres, &sphere{obj: obj, center: center, radius: s.Radius, color: col})
		objects = append(objects, obj)
	}
	e.loaded = true
	e.logger.Debugw("loaded fake scene", "path", path, "objects", len(objects))
	return objects, nil
}

func (e *Engine) sphereFor(obj scene.Object) (*sphere, error) {
	if e.closed {
		return nil, engine.ErrClosed
	}
	if !e.loaded {
		return nil, engine.ErrNotLoaded
	}
	if obj.Index < 0 || obj.Index >= len(e.spheres) || e.spheres[obj.Index].obj.Name != obj.Name {
		return nil, errors.Errorf("object %d %q is not part of the loaded scene", obj.Index, obj.Name)
	}
	return e.spheres[obj.Index], nil
}

// SetCategory labels a sphere.
func (e *Engine) SetCategory(ctx context.Context, obj scene.Object, category scene.Category) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, err := e.sphereFor(obj)
	if err != nil {
		return err
	}
	s.obj.Category = category
	return nil
}

// SetObjectPose moves a sphere. Spheres look the same from every side so only the location matters.
func (e *Engine) SetObjectPose(ctx context.Context, obj scene.Object, pose spatialmath.Pose) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, err := e.sphereFor(obj)
	if err != nil {
		return err
	}
	s.center = pose.Point()
	s.obj.Pose = pose
	return nil
}

// AddLight adds a light. Lights shade with a Lambert term; energy only switches a light off at 0.
func (e *Engine) AddLight(ctx context.Context, light engine.Light) error {
	if err := light.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return engine.ErrClosed
	}
	e.lights = append(e.lights, light)
	return nil
}

// SetIntrinsics sets the camera intrinsics shared by every camera.
func (e *Engine) SetIntrinsics(ctx context.Context, intrinsics *engine.Intrinsics) error {
	if err := intrinsics.CheckValid(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return engine.ErrClosed
	}
	cp := *intrinsics
	e.intrinsics = &cp
	return nil
}

// AddCameraPose registers a camera.
func (e *Engine) AddCameraPose(ctx context.Context, camToWorld *mat.Dense) error {
	pose, err := spatialmath.PoseFromMatrix(camToWorld)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return engine.ErrClosed
	}
	e.cameras = append(e.cameras, pose)
	return nil
}

// EnablePass enables an output pass.
func (e *Engine) EnablePass(ctx context.Context, pass engine.Pass) error {
	if err := pass.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return engine.ErrClosed
	}
	e.passes = append(e.passes, pass)
	return nil
}

// Cameras returns the registered camera poses.
func (e *Engine) Cameras() []spatialmath.Pose {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]spatialmath.Pose(nil), e.cameras...)
}

// Objects returns the current state of the loaded objects.
func (e *Engine) Objects() []scene.Object {
	e.mu.Lock()
	defer e.mu.Unlock()
	objects := make([]scene.Object, len(e.spheres))
	for i, s := range e.spheres {
		objects[i] = s.obj
	}
	return objects
}

// Render ray casts every registered camera.
func (e *Engine) Render(ctx context.Context) (*engine.Result, error) {
	ctx, span := trace.StartSpan(ctx, "engine::fake::Render")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, engine.ErrClosed
	}
	if !e.loaded {
		return nil, engine.ErrNotLoaded
	}
	if len(e.cameras) == 0 {
		return nil, engine.ErrNoCameras
	}
	intrinsics := e.intrinsics
	if intrinsics == nil {
		intrinsics = engine.DefaultIntrinsics()
	}

	outputs := e.outputs()
	frames := make([]*frame, len(e.cameras))
	g, ctx := errgroup.WithContext(ctx)
	if e.cfg.Workers > 0 {
		g.SetLimit(e.cfg.Workers)
	}
	for i, cam := range e.cameras {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			frames[i] = e.renderFrame(cam, intrinsics, outputs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := engine.NewResult()
	for _, f := range frames {
		res.Add(engine.KeyColors, f.colors)
		for _, key := range outputs.keys() {
			res.Add(key, f.maps[key])
		}
		if outputs.instances {
			res.InstanceAttributeMaps = append(res.InstanceAttributeMaps, f.attributes)
		}
	}
	e.logger.Debugw("rendered fake frames", "frames", len(frames), "width", intrinsics.Width, "height", intrinsics.Height)
	return res, nil
}

// Close releases the engine.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

type outputs struct {
	normals, depth, instances, categories, names bool
}

func (e *Engine) outputs() outputs {
	var out outputs
	for _, p := range e.passes {
		switch p.Kind {
		case engine.PassNormals:
			out.normals = true
		case engine.PassDepth:
			out.depth = true
		case engine.PassSegmentation:
			out.instances = out.instances || p.MapsBy(engine.MapByInstance)
			out.categories = out.categories || p.MapsBy(engine.MapByCategoryID)
			out.names = out.names || p.MapsBy(engine.MapByName)
		}
	}
	return out
}

func (o outputs) keys() []string {
	var keys []string
	if o.normals {
		keys = append(keys, engine.KeyNormals)
	}
	if o.depth {
		keys = append(keys, engine.KeyDepth)
	}
	if o.instances {
		keys = append(keys, engine.KeyInstanceSegmaps)
	}
	if o.categories {
		keys = append(keys, engine.KeyCategoryIDSegmaps)
	}
	return keys
}

// intersect returns the distance along a unit ray to the closest hit with the sphere.
func (s *sphere) intersect(origin, dir r3.Vector) (float64, bool) {
	oc := origin.Sub(s.center)
	b := oc.Dot(dir)
	c := oc.Norm2() - s.radius*s.radius
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	sq := math.Sqrt(disc)
	if t := -b - sq; t > 0 {
		return t, true
	}
	if t := -b + sq; t > 0 {
		return t, true
	}
	return 0, false
}
