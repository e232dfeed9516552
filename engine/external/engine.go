// Package external drives a renderer running in another process, typically a BlenderProc
// script, through a small command line protocol:
//
//	<command> list <scene>        prints the objects of the scene as [{"name": "..."}, ...] on one line
//	<command> render <job.json>   renders the job and writes <output_dir>/<frame>.bson
//
// Frames are written in the container format. The render command exiting successfully is what
// marks the outputs as complete.
package external

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.opencensus.io/trace"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/synthcam/engine"
	"go.viam.com/synthcam/engine/external/bridge"
	"go.viam.com/synthcam/logging"
	"go.viam.com/synthcam/rexec"
	"go.viam.com/synthcam/scene"
	"go.viam.com/synthcam/spatialmath"
	"go.viam.com/synthcam/writer/container"
)

// ModelName is the name the external engine is registered under.
const ModelName = "external"

// JobFile is the name of the job written before rendering.
const JobFile = "job.json"

// DefaultCommand runs the bundled BlenderProc bridge, installed into the job directory.
const DefaultCommand = "blenderproc run " + bridge.Placeholder

func init() {
	engine.RegisterNative(ModelName, func(ctx context.Context, cfg *Config, logger logging.Logger) (engine.Engine, error) {
		e, err := NewEngine(cfg, logger)
		if err != nil {
			return nil, err
		}
		return e, nil
	})
}

// Config are the attributes of the external engine.
type Config struct {
	// Command is the bridge command line, e.g. "blenderproc run my_bridge.py". The argument
	// {bridge} is replaced with the path of the bundled bridge script.
	Command string   `json:"command"`
	WorkDir string   `json:"work_dir,omitempty"`
	Env     []string `json:"env,omitempty"`
	// JobDir receives job.json and the rendered frames. A temporary directory, removed on
	// Close, is used when empty.
	JobDir string `json:"job_dir,omitempty"`
}

// Validate ensures the config can be used.
func (cfg *Config) Validate(path string) error {
	if _, err := rexec.NewProcessConfigFromCommand(cfg.Command); err != nil {
		return errors.Wrapf(err, "%s.command", path)
	}
	return nil
}

type listedObject struct {
	Name string `json:"name"`
}

// Engine is the external engine.
type Engine struct {
	mu     sync.Mutex
	cfg    Config
	logger logging.Logger

	jobDir     string
	ownsJobDir bool
	bridgePath string
	job        Job
	objects    []scene.Object
	closed     bool
}

// NewEngine returns an external engine.
func NewEngine(cfg *Config, logger logging.Logger) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("external engine needs a command")
	}
	if err := cfg.Validate("attributes"); err != nil {
		return nil, err
	}
	return &Engine{cfg: *cfg, logger: logger}, nil
}

func (e *Engine) process(args ...string) (rexec.ProcessConfig, error) {
	config, err := rexec.NewProcessConfigFromCommand(e.cfg.Command, args...)
	if err != nil {
		return rexec.ProcessConfig{}, err
	}
	config.CWD = e.cfg.WorkDir
	config.Env = e.cfg.Env
	if !strings.Contains(config.Name, bridge.Placeholder) && !lo.SomeBy(config.Args, usesBridge) {
		return config, nil
	}
	if e.bridgePath == "" {
		dir, err := e.ensureJobDir()
		if err != nil {
			return rexec.ProcessConfig{}, err
		}
		if e.bridgePath, err = bridge.Install(dir); err != nil {
			return rexec.ProcessConfig{}, err
		}
	}
	config.Name = strings.ReplaceAll(config.Name, bridge.Placeholder, e.bridgePath)
	for i, arg := range config.Args {
		config.Args[i] = strings.ReplaceAll(arg, bridge.Placeholder, e.bridgePath)
	}
	return config, nil
}

func usesBridge(arg string) bool {
	return strings.Contains(arg, bridge.Placeholder)
}

// listing returns the last line of out that holds a JSON array. Renderers such as Blender print
// their own messages around the listing.
func listing(out []byte) []byte {
	lines := bytes.Split(out, []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		if line := bytes.TrimSpace(lines[i]); bytes.HasPrefix(line, []byte("[")) {
			return line
		}
	}
	return out
}

// LoadScene lists the objects of the scene.
func (e *Engine) LoadScene(ctx context.Context, path string) ([]scene.Object, error) {
	ctx, span := trace.StartSpan(ctx, "engine::external::LoadScene")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, engine.ErrClosed
	}
	config, err := e.process("list", path)
	if err != nil {
		return nil, err
	}
	out, err := rexec.Run(ctx, config, e.logger)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot load scene %q", path)
	}
	var listed []listedObject
	if err := json.Unmarshal(listing(out), &listed); err != nil {
		return nil, errors.Wrapf(err, "cannot decode objects of scene %q", path)
	}

	e.objects = make([]scene.Object, 0, len(listed))
	for i, obj := range listed {
		e.objects = append(e.objects, scene.Object{Index: i, Name: obj.Name, Pose: spatialmath.NewZeroPose()})
	}
	e.job = Job{Scene: path}
	e.logger.Debugw("loaded scene", "path", path, "objects", len(e.objects))
	return append([]scene.Object(nil), e.objects...), nil
}

func (e *Engine) checkObject(obj scene.Object) error {
	if e.closed {
		return engine.ErrClosed
	}
	if e.job.Scene == "" {
		return engine.ErrNotLoaded
	}
	if obj.Index < 0 || obj.Index >= len(e.objects) || e.objects[obj.Index].Name != obj.Name {
		return errors.Errorf("object %d %q is not part of the loaded scene", obj.Index, obj.Name)
	}
	return nil
}

// SetCategory labels an object.
func (e *Engine) SetCategory(ctx context.Context, obj scene.Object, category scene.Category) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkObject(obj); err != nil {
		return err
	}
	e.job.Categories = append(e.job.Categories, JobCategory{
		Object:       obj.Name,
		Index:        obj.Index,
		CategoryID:   category.ID,
		CategoryName: category.Name,
	})
	return nil
}

// SetObjectPose moves an object.
func (e *Engine) SetObjectPose(ctx context.Context, obj scene.Object, pose spatialmath.Pose) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkObject(obj); err != nil {
		return err
	}
	o := pose.Orientation()
	e.job.ObjectPoses = append(e.job.ObjectPoses, JobObjectPose{
		Object:   obj.Name,
		Index:    obj.Index,
		Location: vec(pose.Point()),
		Rotation: [3]float64{o.Roll, o.Pitch, o.Yaw},
	})
	return nil
}

// AddLight adds a light.
func (e *Engine) AddLight(ctx context.Context, light engine.Light) error {
	if err := light.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return engine.ErrClosed
	}
	e.job.Lights = append(e.job.Lights, NewJobLight(light))
	return nil
}

// SetIntrinsics sets the camera intrinsics.
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
	e.job.Intrinsics = &cp
	return nil
}

// AddCameraPose registers a camera.
func (e *Engine) AddCameraPose(ctx context.Context, camToWorld *mat.Dense) error {
	rows, err := MatrixArray(camToWorld)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return engine.ErrClosed
	}
	e.job.Cameras = append(e.job.Cameras, rows)
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
	e.job.Passes = append(e.job.Passes, pass)
	return nil
}

// Render writes the job, runs the bridge and reads back the frames it wrote.
func (e *Engine) Render(ctx context.Context) (*engine.Result, error) {
	ctx, span := trace.StartSpan(ctx, "engine::external::Render")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, engine.ErrClosed
	}
	if e.job.Scene == "" {
		return nil, engine.ErrNotLoaded
	}
	if len(e.job.Cameras) == 0 {
		return nil, engine.ErrNoCameras
	}

	dir, err := e.ensureJobDir()
	if err != nil {
		return nil, err
	}
	e.job.OutputDir = filepath.Join(dir, "frames")
	if err := os.RemoveAll(e.job.OutputDir); err != nil {
		return nil, errors.Wrap(err, "cannot clear previous frames")
	}
	jobPath := filepath.Join(dir, JobFile)
	if err := writeJob(jobPath, &e.job); err != nil {
		return nil, err
	}

	config, err := e.process("render", jobPath)
	if err != nil {
		return nil, err
	}
	config.Log = true
	if _, err := rexec.Run(ctx, config, e.logger); err != nil {
		return nil, errors.Wrap(err, "render failed")
	}

	res, err := container.ReadDir(e.job.OutputDir)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read rendered frames")
	}
	if res.Frames() != len(e.job.Cameras) {
		return nil, errors.Errorf("renderer wrote %d frames for %d cameras", res.Frames(), len(e.job.Cameras))
	}
	return res, nil
}

func (e *Engine) ensureJobDir() (string, error) {
	if e.jobDir != "" {
		return e.jobDir, nil
	}
	if e.cfg.JobDir != "" {
		// the bridge may run in another working directory
		dir, err := filepath.Abs(e.cfg.JobDir)
		if err != nil {
			return "", errors.Wrapf(err, "cannot resolve job directory %q", e.cfg.JobDir)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", errors.Wrapf(err, "cannot create job directory %q", dir)
		}
		e.jobDir = dir
		return e.jobDir, nil
	}
	dir, err := os.MkdirTemp("", "synthcam-job-")
	if err != nil {
		return "", errors.Wrap(err, "cannot create job directory")
	}
	e.jobDir, e.ownsJobDir = dir, true
	return dir, nil
}

// Close removes the temporary job directory.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	if e.ownsJobDir {
		e.ownsJobDir = false
		e.bridgePath = ""
		return os.RemoveAll(e.jobDir)
	}
	return nil
}
