package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/synthcam/camring"
	"go.viam.com/synthcam/engine"
	"go.viam.com/synthcam/engine/external"
	"go.viam.com/synthcam/engine/fake"
	"go.viam.com/synthcam/logging"
	"go.viam.com/synthcam/session"
	"go.viam.com/synthcam/viewer"
)

func TestFromReaderDefaults(t *testing.T) {
	logger := logging.NewTestLogger(t)
	cfg, err := FromReader(context.Background(), "somepath", strings.NewReader(`{}`), logger)
	test.That(t, err, test.ShouldBeNil)
	expected := Default()
	expected.ConfigFilePath = "somepath"
	test.That(t, cfg, test.ShouldResemble, expected)

	sess := cfg.Session()
	test.That(t, sess.ScenePath, test.ShouldEqual, DefaultScenePath)
	test.That(t, sess.PoseFilePath, test.ShouldEqual, DefaultPoseFilePath)
	test.That(t, sess.OutputDir, test.ShouldEqual, DefaultOutputDir)
	test.That(t, sess.Mode, test.ShouldEqual, session.ModeCOCO)
	test.That(t, *sess.Ring, test.ShouldResemble, camring.Params{Radius: 1500, Height: 200, Samples: 4})
	test.That(t, *sess.Light, test.ShouldResemble, engine.DefaultLight())
	test.That(t, sess.Intrinsics, test.ShouldResemble, engine.DefaultIntrinsics())
	test.That(t, sess.Engine, test.ShouldEqual, external.ModelName)
	test.That(t, sess.EngineAttributes["command"], test.ShouldEqual, external.DefaultCommand)
	test.That(t, sess.Viewer, test.ShouldBeNil)
	test.That(t, sess.Preview, test.ShouldBeNil)
}

func TestFromReaderOverrides(t *testing.T) {
	logger := logging.NewTestLogger(t)
	cfg, err := FromReader(context.Background(), "somepath", strings.NewReader(`{
		"scene": "scene.blend",
		"camera": "poses.txt",
		"output_dir": "out",
		"mode": "container",
		"categories": "name_prefix",
		"ring": {"samples": 8},
		"relocation": {"object": "Suzanne", "position": [0, 0, 200], "rotation": [0, 0, 1.5]},
		"light": {"type": "SUN", "location": [0, 0, 1], "energy": 3},
		"resolution": {"width": 64, "height": 48},
		"engine": {"name": "fake", "attributes": {"workers": 2}},
		"viewer": {},
		"preview": {"path": "out/preview.mp4"}
	}`), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, *cfg.Ring, test.ShouldResemble, camring.Params{Radius: 1500, Height: 200, Samples: 8})

	sess := cfg.Session()
	test.That(t, sess.Mode, test.ShouldEqual, session.ModeContainer)
	test.That(t, sess.Categories, test.ShouldEqual, "name_prefix")
	test.That(t, sess.Relocation.ObjectName, test.ShouldEqual, "Suzanne")
	test.That(t, sess.Relocation.Position, test.ShouldResemble, r3.Vector{Z: 200})
	test.That(t, sess.Relocation.Rotation.Yaw, test.ShouldEqual, 1.5)
	test.That(t, sess.Light.Type, test.ShouldEqual, engine.LightSun)
	test.That(t, sess.Intrinsics.Width, test.ShouldEqual, 64)
	test.That(t, sess.Intrinsics.Height, test.ShouldEqual, 48)
	test.That(t, sess.Engine, test.ShouldEqual, fake.ModelName)
	test.That(t, sess.EngineAttributes, test.ShouldResemble, engine.Attributes{"workers": 2.})
	test.That(t, sess.Viewer.Command, test.ShouldEqual, viewer.DefaultCommand)
	test.That(t, sess.Preview.Path, test.ShouldEqual, "out/preview.mp4")
	test.That(t, sess.Validate("config"), test.ShouldBeNil)
}

func TestFromReaderNullRing(t *testing.T) {
	cfg, err := FromReader(context.Background(), "", strings.NewReader(`{"ring": null}`), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Ring, test.ShouldBeNil)
	test.That(t, cfg.Session().Ring, test.ShouldBeNil)
}

func TestFromReaderJSON5(t *testing.T) {
	cfg, err := FromReader(context.Background(), "", strings.NewReader(`{
		// hand written configs may carry comments
		scene: "scene.blend",
		ring: {radius: 1000, height: 300, samples: 8,},
		/* and trailing commas */
		engine: {name: "fake",},
	}`), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.ScenePath, test.ShouldEqual, "scene.blend")
	test.That(t, *cfg.Ring, test.ShouldResemble, camring.Params{Radius: 1000, Height: 300, Samples: 8})
	test.That(t, cfg.Engine.Name, test.ShouldEqual, fake.ModelName)

	_, err = FromReader(context.Background(), "", strings.NewReader(`{scenes: "typo",}`), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `unknown field "scenes"`)
}

func TestFromReaderIntrinsics(t *testing.T) {
	cfg, err := FromReader(context.Background(), "", strings.NewReader(`{
		"resolution": {"width": 0, "height": 0},
		"intrinsics": {"width_px": 10, "height_px": 20, "fx": 5, "fy": 5, "ppx": 5, "ppy": 10}
	}`), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Session().Intrinsics, test.ShouldResemble,
		&engine.Intrinsics{Width: 10, Height: 20, Fx: 5, Fy: 5, Ppx: 5, Ppy: 10})
}

func TestFromReaderValidate(t *testing.T) {
	logger := logging.NewTestLogger(t)
	read := func(s string) error {
		_, err := FromReader(context.Background(), "somepath", strings.NewReader(s), logger)
		return err
	}

	err := read("")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "failed to decode Config")

	err = read(`{"ring": {"radius": 1, /* unterminated`)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "failed to decode Config")

	err = read(`{"cloud": {}}`)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `unknown field "cloud"`)

	err = read(`{"ring": 1}`)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unmarshal")

	err = read(`{"mode": "hdf5"}`)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "config.mode")

	err = read(`{"ring": {"height": 0}}`)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "config.ring")
	var cfgErr *camring.ConfigurationError
	test.That(t, errors.As(err, &cfgErr), test.ShouldBeTrue)
	test.That(t, cfgErr.Field, test.ShouldEqual, "height")

	err = read(`{"relocation": {"position": [1, 2, 3]}}`)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "config.relocation.object")

	err = read(`{"resolution": {"width": -1, "height": 5}}`)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "config.resolution")

	err = read(`{"fov": 4}`)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "config.fov")

	err = read(`{"engine": {"name": ""}}`)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "config.engine.name")

	err = read(`{"light": {"type": "LASER"}}`)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "config.light")

	err = read(`{"mode": "coco", "passes": [{"kind": "depth"}]}`)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "segmentation pass")
}

func TestReadExpandsEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SYNTHCAM_TEST_SCENE", "fish.blend")
	t.Setenv("SYNTHCAM_TEST_SAMPLES", "12")
	path := filepath.Join(dir, "synthcam.json")
	test.That(t, os.WriteFile(path, []byte(`{
		"scene": "${SYNTHCAM_TEST_SCENE}",
		"output_dir": "${SYNTHCAM_TEST_OUT:-renders}",
		"ring": {"samples": ${SYNTHCAM_TEST_SAMPLES}}
	}`), 0o600), test.ShouldBeNil)

	logger, logs := logging.NewObservedTestLogger(t)
	cfg, err := Read(context.Background(), path, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.ConfigFilePath, test.ShouldEqual, path)
	test.That(t, cfg.ScenePath, test.ShouldEqual, "fish.blend")
	test.That(t, cfg.OutputDir, test.ShouldEqual, "renders")
	test.That(t, cfg.Ring.Samples, test.ShouldEqual, 12)
	test.That(t, logging.MessagesContaining(logs, "read config"), test.ShouldEqual, 1)

	_, err = Read(context.Background(), filepath.Join(dir, "missing.json"), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, os.ErrNotExist), test.ShouldBeTrue)
}

func TestSchema(t *testing.T) {
	md, err := json.Marshal(Schema())
	test.That(t, err, test.ShouldBeNil)
	for _, field := range []string{"scene", "camera", "output_dir", "ring", "relocation", "engine", "color_file_format"} {
		test.That(t, string(md), test.ShouldContainSubstring, fmt.Sprintf("%q", field))
	}
	test.That(t, string(md), test.ShouldNotContainSubstring, "ConfigFilePath")
}
