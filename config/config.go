// Package config defines the file a synthcam session is configured from.
package config

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"

	"go.viam.com/synthcam/camring"
	"go.viam.com/synthcam/engine"
	"go.viam.com/synthcam/engine/external"
	"go.viam.com/synthcam/preview"
	"go.viam.com/synthcam/scene"
	"go.viam.com/synthcam/session"
	"go.viam.com/synthcam/spatialmath"
	"go.viam.com/synthcam/viewer"
	"go.viam.com/synthcam/writer/coco"
)

// Paths of the BlenderProc semantic segmentation example.
const (
	DefaultScenePath    = "examples/basics/semantic_segmentation/scene.blend"
	DefaultPoseFilePath = "examples/resources/camera_positions"
	DefaultOutputDir    = "examples/basics/semantic_segmentation/output"
)

// DefaultRing is the ring planned when a config does not set one.
var DefaultRing = camring.Params{Radius: 1500, Height: 200, Samples: 4}

// A Config describes a render session as written in a config file.
type Config struct {
	ScenePath    string             `json:"scene"`
	PoseFilePath string             `json:"camera"`
	OutputDir    string             `json:"output_dir"`
	Mode         session.OutputMode `json:"mode"`
	Categories   string             `json:"categories,omitempty"`

	// Ring is planned into the pose file before rendering. Setting it to null renders the
	// poses already in the file.
	Ring       *camring.Params `json:"ring"`
	Relocation *Relocation     `json:"relocation,omitempty"`
	Light      *Light          `json:"light,omitempty"`

	// Resolution and FOV describe the camera unless Intrinsics are given.
	Resolution Resolution         `json:"resolution"`
	FOV        float64            `json:"fov,omitempty"`
	Intrinsics *engine.Intrinsics `json:"intrinsics,omitempty"`
	Passes     []engine.Pass      `json:"passes,omitempty"`

	Engine  Engine          `json:"engine"`
	COCO    coco.Options    `json:"coco"`
	Viewer  *viewer.Config  `json:"viewer,omitempty"`
	Preview *preview.Config `json:"preview,omitempty"`

	ConfigFilePath string `json:"-"`
}

// Relocation moves one object of the scene, angles are in radians.
type Relocation struct {
	Object   string     `json:"object"`
	Position [3]float64 `json:"position"`
	Rotation [3]float64 `json:"rotation"`
}

// Light is the light added to the scene.
type Light struct {
	Type     engine.LightType `json:"type"`
	Location [3]float64       `json:"location"`
	Energy   float64          `json:"energy"`
}

// Resolution is the size of rendered frames in pixels.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Engine selects the engine and its attributes.
type Engine struct {
	Name       string            `json:"name"`
	Attributes engine.Attributes `json:"attributes,omitempty"`
}

// Default returns the config of the BlenderProc semantic segmentation example: a 4 camera ring,
// 512x512 frames and COCO output.
func Default() *Config {
	ring := DefaultRing
	light := engine.DefaultLight()
	return &Config{
		ScenePath:    DefaultScenePath,
		PoseFilePath: DefaultPoseFilePath,
		OutputDir:    DefaultOutputDir,
		Mode:         session.ModeCOCO,
		Categories:   scene.TaggerIndex,
		Ring:         &ring,
		Light: &Light{
			Type:     light.Type,
			Location: [3]float64{light.Location.X, light.Location.Y, light.Location.Z},
			Energy:   light.Energy,
		},
		Resolution: Resolution{Width: engine.DefaultResolution, Height: engine.DefaultResolution},
		FOV:        engine.DefaultFOV,
		Engine:     Engine{Name: external.ModelName},
	}
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate(path string) error {
	if c.Intrinsics == nil {
		if c.Resolution.Width <= 0 || c.Resolution.Height <= 0 {
			return errors.Errorf("%s.resolution: invalid size (%d, %d)", path, c.Resolution.Width, c.Resolution.Height)
		}
		if c.FOV <= 0 || c.FOV >= math.Pi {
			return errors.Errorf("%s.fov: must be between 0 and pi radians", path)
		}
	}
	if c.Relocation != nil && c.Relocation.Object == "" {
		return errors.Errorf("%s.relocation.object: an object name is required", path)
	}
	if c.Engine.Name == "" {
		return errors.Errorf("%s.engine.name: an engine is required", path)
	}
	return c.Session().Validate(path)
}

// Session converts the config into the config of a render session, filling in defaults that
// depend on other fields.
func (c *Config) Session() *session.Config {
	cfg := &session.Config{
		ScenePath:    c.ScenePath,
		PoseFilePath: c.PoseFilePath,
		OutputDir:    c.OutputDir,
		Mode:         c.Mode,
		Categories:   c.Categories,
		Intrinsics:   c.Intrinsics,
		Passes:       c.Passes,
		Engine:       c.Engine.Name,
		COCO:         c.COCO,
	}
	if c.Ring != nil {
		ring := *c.Ring
		cfg.Ring = &ring
	}
	if c.Relocation != nil {
		cfg.Relocation = &scene.Relocation{
			ObjectName: c.Relocation.Object,
			Position:   vector(c.Relocation.Position),
			Rotation: spatialmath.EulerAngles{
				Roll:  c.Relocation.Rotation[0],
				Pitch: c.Relocation.Rotation[1],
				Yaw:   c.Relocation.Rotation[2],
			},
		}
	}
	if c.Light != nil {
		cfg.Light = &engine.Light{Type: c.Light.Type, Location: vector(c.Light.Location), Energy: c.Light.Energy}
	}
	if cfg.Intrinsics == nil && c.Resolution.Width > 0 && c.Resolution.Height > 0 && c.FOV > 0 {
		cfg.Intrinsics = engine.NewIntrinsicsFromFOV(c.Resolution.Width, c.Resolution.Height, c.FOV)
	}

	cfg.EngineAttributes = engine.Attributes{}
	for k, v := range c.Engine.Attributes {
		cfg.EngineAttributes[k] = v
	}
	if c.Engine.Name == external.ModelName {
		if _, ok := cfg.EngineAttributes["command"]; !ok {
			cfg.EngineAttributes["command"] = external.DefaultCommand
		}
	}

	if c.Viewer != nil {
		v := *c.Viewer
		if v.Command == "" {
			v.Command = viewer.DefaultCommand
		}
		cfg.Viewer = &v
	}
	if c.Preview != nil {
		p := *c.Preview
		cfg.Preview = &p
	}
	return cfg
}

// Schema returns the JSON schema of config files. Engine attributes are described per engine by
// engine.AttributeSchema.
func Schema() *jsonschema.Schema {
	return jsonschema.Reflect(&Config{})
}

func vector(v [3]float64) r3.Vector {
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}
}
