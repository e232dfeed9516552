package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/synthcam/camring"
	"go.viam.com/synthcam/engine"
	"go.viam.com/synthcam/engine/fake"
	"go.viam.com/synthcam/session"
	"go.viam.com/synthcam/writer/coco"
	"go.viam.com/synthcam/writer/container"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := NewApp(&out, &errOut).Run(append([]string{"synthcam"}, args...))
	return out.String(), err
}

func TestPlan(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "camera_positions")
	plotPath := filepath.Join(dir, "ring.png")

	out, err := runApp(t, "plan", "--radius", "1500", "--height", "200", "--samples", "4", "--out", path, "--plot", plotPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "wrote 4 poses to "+path)
	test.That(t, out, test.ShouldContainSubstring, "RZ")

	expected, err := camring.Plan(camring.Params{Radius: 1500, Height: 200, Samples: 4})
	test.That(t, err, test.ShouldBeNil)
	data, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	test.That(t, lines, test.ShouldHaveLength, 4)
	for i, line := range lines {
		test.That(t, line, test.ShouldEqual, camring.FormatPose(expected[i]))
	}
	_, err = os.Stat(plotPath)
	test.That(t, err, test.ShouldBeNil)

	out, err = runApp(t, "poses", path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "1500")
}

func TestPlanInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camera_positions")
	_, err := runApp(t, "plan", "--height", "0", "--out", path)
	test.That(t, err, test.ShouldNotBeNil)
	var cfgErr *camring.ConfigurationError
	test.That(t, errors.As(err, &cfgErr), test.ShouldBeTrue)
	_, err = os.Stat(path)
	test.That(t, os.IsNotExist(err), test.ShouldBeTrue)

	out, err := runApp(t, "plan", "--samples", "2", "--out", "")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldNotContainSubstring, "wrote")
}

func TestPosesErrors(t *testing.T) {
	_, err := runApp(t, "poses")
	test.That(t, err, test.ShouldNotBeNil)

	path := filepath.Join(t.TempDir(), "poses")
	test.That(t, os.WriteFile(path, []byte("1 2 3 4 5 6\n1 2 three 4 5 6\n"), 0o600), test.ShouldBeNil)
	_, err = runApp(t, "poses", path)
	var parseErr *camring.ParseError
	test.That(t, errors.As(err, &parseErr), test.ShouldBeTrue)
	test.That(t, parseErr.Line, test.ShouldEqual, 2)
}

func TestRender(t *testing.T) {
	dir := t.TempDir()
	poses := filepath.Join(dir, "camera_positions")
	_, err := runApp(t, "plan", "--samples", "3", "--out", poses)
	test.That(t, err, test.ShouldBeNil)

	output := filepath.Join(dir, "output")
	out, err := runApp(t, "render",
		"--engine", fake.ModelName,
		"--mode", string(session.ModeContainer),
		"--width", "16", "--height", "16",
		"--object", "fish_1", "--position", "0,0,400", "--rotation", "0,0,1",
		poses, "scene.blend", output)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "rendered 3 frames of 4 objects")

	res, err := container.ReadDir(output)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Frames(), test.ShouldEqual, 3)

	// render never plans, the pose file is left alone
	ring, err := camring.ReadPoseFile(poses)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ring, test.ShouldHaveLength, 3)
}

func TestRenderFlagErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := runApp(t, "render", "--engine", fake.ModelName, "--position", "1,2,3", "a", "b", dir)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "--object")

	_, err = runApp(t, "render", "--engine", fake.ModelName, "--object", "fish_1", "--position", "1,2", "a", "b", dir)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "3 comma separated values")

	_, err = runApp(t, "render", "--mode", "hdf5", "a", "b", dir)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "flags.mode")

	_, err = runApp(t, "render", "a", "b", "c", "d")
	test.That(t, err, test.ShouldNotBeNil)

	_, err = runApp(t, "render", "--engine", fake.ModelName, "--width", "8", "--height", "8",
		filepath.Join(dir, "missing"), "scene.blend", dir)
	test.That(t, errors.Is(err, os.ErrNotExist), test.ShouldBeTrue)
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "synthcam.json")
	cfg := fmt.Sprintf(`{
		"scene": "scene.blend",
		"camera": %q,
		"output_dir": %q,
		"ring": {"radius": 1500, "height": 200, "samples": 2},
		"resolution": {"width": 24, "height": 24},
		"engine": {"name": %q}
	}`, filepath.Join(dir, "camera_positions"), filepath.Join(dir, "${SYNTHCAM_TEST_OUTPUT}"), fake.ModelName)
	test.That(t, os.WriteFile(cfgPath, []byte(cfg), 0o600), test.ShouldBeNil)
	t.Setenv("SYNTHCAM_TEST_OUTPUT", "out")

	out, err := runApp(t, "run", "--config", cfgPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "rendered 2 frames")

	data, err := os.ReadFile(filepath.Join(dir, "out", session.COCODir, coco.AnnotationsFile))
	test.That(t, err, test.ShouldBeNil)
	var dataset coco.Dataset
	test.That(t, json.Unmarshal(data, &dataset), test.ShouldBeNil)
	test.That(t, dataset.Images, test.ShouldHaveLength, 2)
	test.That(t, dataset.Annotations, test.ShouldNotBeEmpty)

	ring, err := camring.ReadPoseFile(filepath.Join(dir, "camera_positions"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ring, test.ShouldHaveLength, 2)

	_, err = runApp(t, "run")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSchema(t *testing.T) {
	out, err := runApp(t, "schema")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, `"output_dir"`)

	out, err = runApp(t, "schema", fake.ModelName)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, `"spheres"`)

	_, err = runApp(t, "schema", "nope")
	test.That(t, errors.Is(err, engine.ErrUnknownEngine), test.ShouldBeTrue)
}
