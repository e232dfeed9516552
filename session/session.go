// Package session drives a renderer through one complete dataset generation: plan or read the
// camera poses, set up the scene, render and write the results.
package session

import (
	"context"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"go.uber.org/multierr"

	"go.viam.com/synthcam/camring"
	"go.viam.com/synthcam/engine"
	"go.viam.com/synthcam/logging"
	"go.viam.com/synthcam/preview"
	"go.viam.com/synthcam/scene"
	"go.viam.com/synthcam/spatialmath"
	"go.viam.com/synthcam/viewer"
	"go.viam.com/synthcam/writer/coco"
	"go.viam.com/synthcam/writer/container"
)

// Summary describes a finished session.
type Summary struct {
	RunID    string
	Frames   int
	Objects  int
	PoseFile string
	// DataDir is where the dataset was written, <output>/coco_data for COCO output.
	DataDir     string
	Files       []string
	Annotations string
	Preview     string
}

// Run creates the configured engine and runs the session with it. The engine is closed before
// returning.
func Run(ctx context.Context, cfg *Config, logger logging.Logger) (_ *Summary, err error) {
	if err := cfg.Validate("session"); err != nil {
		return nil, err
	}
	eng, err := engine.New(ctx, cfg.Engine, cfg.EngineAttributes, logger.Sublogger("engine"))
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Combine(err, eng.Close(ctx))
	}()
	return RunWithEngine(ctx, cfg, eng, logger)
}

// RunWithEngine runs the session against an existing engine. Every error is terminal; nothing
// is retried.
func RunWithEngine(ctx context.Context, cfg *Config, eng engine.Engine, logger logging.Logger) (*Summary, error) {
	if err := cfg.Validate("session"); err != nil {
		return nil, err
	}
	ctx, span := trace.StartSpan(ctx, "session::Run")
	defer span.End()

	summary := &Summary{RunID: uuid.NewString(), PoseFile: cfg.PoseFilePath}
	logger = logger.Sublogger("session")
	logger.Infow("starting session", "run_id", summary.RunID, "scene", cfg.ScenePath, "mode", cfg.Mode)

	if cfg.Ring != nil {
		if err := step(ctx, "plan", func(context.Context) error {
			ring, err := camring.PlanToFile(*cfg.Ring, cfg.PoseFilePath)
			if err != nil {
				return err
			}
			logger.Infow("planned camera ring", "poses", len(ring), "path", cfg.PoseFilePath)
			return nil
		}); err != nil {
			return nil, err
		}
	}

	var objects []scene.Object
	if err := step(ctx, "load", func(ctx context.Context) error {
		var err error
		objects, err = eng.LoadScene(ctx, cfg.ScenePath)
		return errors.Wrapf(err, "cannot load scene %q", cfg.ScenePath)
	}); err != nil {
		return nil, err
	}
	summary.Objects = len(objects)

	if err := step(ctx, "tag", func(ctx context.Context) error {
		tagger, err := scene.TaggerByName(cfg.Categories)
		if err != nil {
			return err
		}
		objects = scene.Tag(objects, tagger)
		for _, obj := range objects {
			if err := eng.SetCategory(ctx, obj, obj.Category); err != nil {
				return errors.Wrapf(err, "cannot label %q", obj.Name)
			}
			logger.Debugw("labeled object", "object", obj.Name, "category", obj.Category.String())
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if cfg.Relocation != nil {
		if err := step(ctx, "relocate", func(ctx context.Context) error {
			obj, err := scene.FindUnique(objects, cfg.Relocation.ObjectName)
			if err != nil {
				return err
			}
			logger.Infow("relocating object", "object", obj.Name, "position", cfg.Relocation.Position)
			return eng.SetObjectPose(ctx, obj, cfg.Relocation.Pose())
		}); err != nil {
			return nil, err
		}
	}

	if err := step(ctx, "setup", func(ctx context.Context) error {
		light := engine.DefaultLight()
		if cfg.Light != nil {
			light = *cfg.Light
		}
		if err := eng.AddLight(ctx, light); err != nil {
			return err
		}
		intrinsics := cfg.Intrinsics
		if intrinsics == nil {
			intrinsics = engine.DefaultIntrinsics()
		}
		return eng.SetIntrinsics(ctx, intrinsics)
	}); err != nil {
		return nil, err
	}

	if err := step(ctx, "cameras", func(ctx context.Context) error {
		ring, err := camring.ReadPoseFile(cfg.PoseFilePath)
		if err != nil {
			return err
		}
		for i := range ring {
			if err := eng.AddCameraPose(ctx, spatialmath.PoseToMatrix(ring.Pose(i))); err != nil {
				return errors.Wrapf(err, "cannot register camera %d", i)
			}
		}
		logger.Infow("registered cameras", "count", len(ring), "path", cfg.PoseFilePath)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := step(ctx, "passes", func(ctx context.Context) error {
		for _, pass := range cfg.passes() {
			if err := eng.EnablePass(ctx, pass); err != nil {
				return errors.Wrapf(err, "cannot enable %s pass", pass.Kind)
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	var res *engine.Result
	if err := step(ctx, "render", func(ctx context.Context) error {
		var err error
		res, err = eng.Render(ctx)
		if err != nil {
			return errors.Wrap(err, "render failed")
		}
		return res.Validate()
	}); err != nil {
		return nil, err
	}
	summary.Frames = res.Frames()
	logger.Infow("rendered", "frames", summary.Frames, "outputs", res.Keys())

	if err := step(ctx, "write", func(context.Context) error {
		return write(cfg, res, summary, objects)
	}); err != nil {
		return nil, err
	}
	logger.Infow("wrote dataset", "dir", summary.DataDir, "files", len(summary.Files))

	if cfg.Preview != nil {
		if err := step(ctx, "preview", func(ctx context.Context) error {
			return preview.Write(ctx, cfg.Preview, res, logger)
		}); err != nil {
			return nil, err
		}
		summary.Preview = cfg.Preview.Path
	}

	if cfg.Viewer != nil {
		if err := step(ctx, "viewer", func(ctx context.Context) error {
			return viewer.Run(ctx, cfg.Viewer, viewer.Paths{
				Images:      summary.DataDir,
				Annotations: summary.Annotations,
				Output:      cfg.OutputDir,
			}, logger)
		}); err != nil {
			logger.Errorw("viewer failed", "error", err)
			return summary, err
		}
	}
	return summary, nil
}

func write(cfg *Config, res *engine.Result, summary *Summary, objects []scene.Object) error {
	switch cfg.Mode {
	case ModeContainer:
		summary.DataDir = cfg.OutputDir
		paths, err := container.Write(cfg.OutputDir, res, summary.RunID)
		if err != nil {
			return err
		}
		summary.Files = paths
		return nil
	case ModeCOCO:
		summary.DataDir = filepath.Join(cfg.OutputDir, COCODir)
		opts := cfg.COCO
		if len(opts.Categories) == 0 {
			for _, obj := range objects {
				opts.Categories = append(opts.Categories, obj.Category)
			}
		}
		ds, err := coco.Write(summary.DataDir, res, opts)
		if err != nil {
			return err
		}
		for _, img := range ds.Images {
			summary.Files = append(summary.Files, filepath.Join(summary.DataDir, filepath.FromSlash(img.FileName)))
		}
		summary.Annotations = filepath.Join(summary.DataDir, coco.AnnotationsFile)
		summary.Files = append(summary.Files, summary.Annotations)
		return nil
	default:
		return errors.Errorf("unknown output mode %q", cfg.Mode)
	}
}

// step runs one stage of the session in its own trace span.
func step(ctx context.Context, name string, f func(ctx context.Context) error) error {
	ctx, span := trace.StartSpan(ctx, "session::"+name)
	defer span.End()
	if err := f(ctx); err != nil {
		span.SetStatus(trace.Status{Code: trace.StatusCodeUnknown, Message: err.Error()})
		return errors.Wrap(err, name)
	}
	return nil
}
