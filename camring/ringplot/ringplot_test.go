package ringplot

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"

	"go.viam.com/synthcam/camring"
)

func TestSave(t *testing.T) {
	ring, err := camring.Plan(camring.Params{Radius: 1500, Height: 200, Samples: 6})
	test.That(t, err, test.ShouldBeNil)

	path := filepath.Join(t.TempDir(), "ring.png")
	test.That(t, Save(ring, path), test.ShouldBeNil)

	info, err := os.Stat(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.Size(), test.ShouldBeGreaterThan, 0)
}

func TestNewEmpty(t *testing.T) {
	_, err := New(nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNewElements(t *testing.T) {
	ring, err := camring.Plan(camring.Params{Radius: 10, Height: 5, Samples: 3})
	test.That(t, err, test.ShouldBeNil)
	p, err := New(ring)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Title.Text, test.ShouldEqual, "camera ring (3 cameras)")
}
