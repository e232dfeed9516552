package viewer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"

	"go.viam.com/synthcam/logging"
)

func TestProcessConfig(t *testing.T) {
	cfg := &Config{Command: DefaultCommand}
	test.That(t, cfg.Validate("viewer"), test.ShouldBeNil)

	config, err := cfg.ProcessConfig(Paths{Images: "out dir/coco_data", Annotations: "out dir/coco_data/coco_annotations.json"})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, config.Name, test.ShouldEqual, "python")
	test.That(t, config.Args, test.ShouldResemble, []string{
		"cocoviewer.py", "-i", "out dir/coco_data", "-a", "out dir/coco_data/coco_annotations.json",
	})

	test.That(t, (&Config{}).Validate("viewer"), test.ShouldNotBeNil)
}

func TestRun(t *testing.T) {
	logger := logging.NewTestLogger(t)
	dir := t.TempDir()
	marker := filepath.Join(dir, "seen")

	cfg := &Config{Command: `sh -c 'cat "$0" > "$1"' {annotations} ` + marker}
	annotations := filepath.Join(dir, "coco_annotations.json")
	test.That(t, os.WriteFile(annotations, []byte(`{"images":[]}`), 0o600), test.ShouldBeNil)

	err := Run(context.Background(), cfg, Paths{Annotations: annotations, Output: dir}, logger)
	test.That(t, err, test.ShouldBeNil)
	data, err := os.ReadFile(marker)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(data), test.ShouldEqual, `{"images":[]}`)

	err = Run(context.Background(), &Config{Command: "sh -c 'exit 4'"}, Paths{}, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "viewer failed")
}
