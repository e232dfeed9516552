package session

import (
	"github.com/pkg/errors"

	"go.viam.com/synthcam/camring"
	"go.viam.com/synthcam/engine"
	"go.viam.com/synthcam/preview"
	"go.viam.com/synthcam/scene"
	"go.viam.com/synthcam/viewer"
	"go.viam.com/synthcam/writer/coco"
)

// OutputMode selects how rendered frames are written.
type OutputMode string

// Output modes.
const (
	// ModeCOCO writes color images and COCO instance annotations under <output>/coco_data.
	ModeCOCO OutputMode = "coco"
	// ModeContainer writes every pass of every frame as <output>/<frame>.bson.
	ModeContainer OutputMode = "container"
)

// COCODir is the directory inside the output directory COCO datasets are written to.
const COCODir = "coco_data"

// Config describes a render session.
type Config struct {
	ScenePath    string
	PoseFilePath string
	OutputDir    string

	// Ring, when set, is planned and written to PoseFilePath before rendering.
	Ring *camring.Params
	// Relocation, when set, moves one object before any camera is registered.
	Relocation *scene.Relocation

	Mode OutputMode
	// Categories names the tagger labeling loaded objects, see scene.TaggerByName.
	Categories string
	// Light defaults to engine.DefaultLight.
	Light *engine.Light
	// Intrinsics default to engine.DefaultIntrinsics.
	Intrinsics *engine.Intrinsics
	// Passes default to DefaultPasses of the mode.
	Passes []engine.Pass

	Engine           string
	EngineAttributes engine.Attributes

	COCO    coco.Options
	Viewer  *viewer.Config
	Preview *preview.Config
}

// DefaultPasses are the passes a mode enables when none are configured.
func DefaultPasses(mode OutputMode) []engine.Pass {
	segmentation := engine.SegmentationPass(engine.MapByCategoryID, engine.MapByInstance, engine.MapByName)
	if mode == ModeContainer {
		return []engine.Pass{engine.DepthPass(false), segmentation}
	}
	return []engine.Pass{engine.NormalsPass(), segmentation}
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg.ScenePath == "" {
		return errors.Errorf("%s.scene: a scene file is required", path)
	}
	if cfg.PoseFilePath == "" {
		return errors.Errorf("%s.camera: a pose file is required", path)
	}
	if cfg.OutputDir == "" {
		return errors.Errorf("%s.output_dir: an output directory is required", path)
	}
	if cfg.Engine == "" {
		return errors.Errorf("%s.engine: an engine is required", path)
	}
	if cfg.Ring != nil {
		if err := cfg.Ring.Validate(); err != nil {
			return errors.Wrapf(err, "%s.ring", path)
		}
	}
	if cfg.Relocation != nil && cfg.Relocation.ObjectName == "" {
		return errors.Errorf("%s.relocation.object: an object name is required", path)
	}
	switch cfg.Mode {
	case ModeCOCO, ModeContainer:
	default:
		return errors.Errorf("%s.mode: unknown output mode %q, expected %q or %q", path, cfg.Mode, ModeCOCO, ModeContainer)
	}
	if _, err := scene.TaggerByName(cfg.Categories); err != nil {
		return errors.Wrapf(err, "%s.categories", path)
	}
	if cfg.Light != nil {
		if err := cfg.Light.Validate(); err != nil {
			return errors.Wrapf(err, "%s.light", path)
		}
	}
	if cfg.Intrinsics != nil {
		if err := cfg.Intrinsics.CheckValid(); err != nil {
			return errors.Wrapf(err, "%s.intrinsics", path)
		}
	}
	for i, pass := range cfg.Passes {
		if err := pass.Validate(); err != nil {
			return errors.Wrapf(err, "%s.passes.%d", path, i)
		}
	}
	if cfg.Mode == ModeCOCO {
		if err := cfg.COCO.Validate(path + ".coco"); err != nil {
			return err
		}
		if !producesInstances(cfg.passes()) {
			return errors.Errorf("%s.passes: coco output needs a segmentation pass mapping by %q", path, engine.MapByInstance)
		}
	}
	if cfg.Viewer != nil {
		if err := cfg.Viewer.Validate(path + ".viewer"); err != nil {
			return err
		}
	}
	if cfg.Preview != nil {
		if err := cfg.Preview.Validate(path + ".preview"); err != nil {
			return err
		}
	}
	return nil
}

func (cfg *Config) passes() []engine.Pass {
	if len(cfg.Passes) == 0 {
		return DefaultPasses(cfg.Mode)
	}
	return cfg.Passes
}

func producesInstances(passes []engine.Pass) bool {
	for _, p := range passes {
		if p.Kind == engine.PassSegmentation && p.MapsBy(engine.MapByInstance) {
			return true
		}
	}
	return false
}
