package container

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
	"gorgonia.org/tensor"

	"go.viam.com/synthcam/engine"
)

func testResult(frames int) *engine.Result {
	res := engine.NewResult()
	for i := 0; i < frames; i++ {
		colors := engine.NewColors(3, 2)
		colors.Data().([]uint8)[0] = uint8(10 + i)
		depth := engine.NewFloat32Map(3, 2)
		depth.Data().([]float32)[5] = 1.5
		segmap := engine.NewInt32Map(3, 2)
		segmap.Data().([]int32)[4] = 2
		res.Add(engine.KeyColors, colors)
		res.Add(engine.KeyDepth, depth)
		res.Add(engine.KeyInstanceSegmaps, segmap)
		res.InstanceAttributeMaps = append(res.InstanceAttributeMaps, []engine.InstanceAttributes{
			{Idx: 2, CategoryID: 7, Name: "rock_1"},
		})
	}
	return res
}

func TestWriteReadDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")
	res := testResult(3)

	paths, err := Write(dir, res, "run")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, paths, test.ShouldResemble, []string{
		filepath.Join(dir, "0.bson"), filepath.Join(dir, "1.bson"), filepath.Join(dir, "2.bson"),
	})

	frame, err := ReadFile(paths[1])
	test.That(t, err, test.ShouldBeNil)
	test.That(t, frame.Frame, test.ShouldEqual, 1)
	test.That(t, frame.RunID, test.ShouldEqual, "run")
	test.That(t, frame.Passes[engine.KeyColors].DType, test.ShouldEqual, DTypeUint8)
	test.That(t, frame.Passes[engine.KeyColors].Shape, test.ShouldResemble, []int{2, 3, 3})

	back, err := ReadDir(dir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, back.Frames(), test.ShouldEqual, 3)
	test.That(t, back.Keys(), test.ShouldResemble, res.Keys())
	test.That(t, back.InstanceAttributeMaps, test.ShouldResemble, res.InstanceAttributeMaps)
	for _, key := range res.Keys() {
		for i := 0; i < 3; i++ {
			want, err := res.Frame(key, i)
			test.That(t, err, test.ShouldBeNil)
			got, err := back.Frame(key, i)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, got.Shape(), test.ShouldResemble, want.Shape())
			test.That(t, got.Data(), test.ShouldResemble, want.Data())
		}
	}
}

func TestReadDirGaps(t *testing.T) {
	dir := t.TempDir()
	_, err := ReadDir(dir)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = Write(dir, testResult(3), "")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, os.Remove(FramePath(dir, 1)), test.ShouldBeNil)
	test.That(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600), test.ShouldBeNil)

	_, err = ReadDir(dir)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "frame 1 is missing")
}

func TestWriteInvalidResult(t *testing.T) {
	_, err := Write(t.TempDir(), engine.NewResult(), "")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestArrayCodec(t *testing.T) {
	f64 := tensor.New(tensor.WithShape(2), tensor.WithBacking([]float64{1.25, -3}))
	arr, err := EncodeArray(f64)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, arr.DType, test.ShouldEqual, DTypeFloat64)
	test.That(t, arr.Data.Data, test.ShouldHaveLength, 16)
	back, err := arr.Decode()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, back.Data(), test.ShouldResemble, []float64{1.25, -3})

	_, err = EncodeArray(tensor.New(tensor.WithShape(1), tensor.WithBacking([]int64{1})))
	test.That(t, err, test.ShouldNotBeNil)
	_, err = EncodeArray(nil)
	test.That(t, err, test.ShouldNotBeNil)

	arr.Data.Data = arr.Data.Data[:8]
	_, err = arr.Decode()
	test.That(t, err, test.ShouldNotBeNil)
	_, err = Array{DType: "complex128", Shape: []int{1}}.Decode()
	test.That(t, err, test.ShouldNotBeNil)
	_, err = Array{DType: DTypeUint8}.Decode()
	test.That(t, err, test.ShouldNotBeNil)
}
