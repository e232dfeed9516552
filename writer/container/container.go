// Package container stores render results as one BSON document per frame.
//
// A frame document looks like
//
//	{
//	  "frame": 0,
//	  "run_id": "…",
//	  "passes": {"colors": {"dtype": "uint8", "shape": [512, 512, 3], "data": <binary>}, …},
//	  "instance_attribute_maps": [{"idx": 1, "category_id": 1, "name": "Suzanne"}, …]
//	}
//
// Array data is the row-major little endian encoding of the elements.
package container

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gorgonia.org/tensor"

	"go.viam.com/synthcam/engine"
)

// Ext is the extension of frame files.
const Ext = ".bson"

// Supported array element types.
const (
	DTypeUint8   = "uint8"
	DTypeInt32   = "int32"
	DTypeFloat32 = "float32"
	DTypeFloat64 = "float64"
)

// Array is a single encoded array.
type Array struct {
	DType string           `bson:"dtype"`
	Shape []int            `bson:"shape"`
	Data  primitive.Binary `bson:"data"`
}

// Frame is the document stored for one frame.
type Frame struct {
	Frame  int              `bson:"frame"`
	RunID  string           `bson:"run_id,omitempty"`
	Passes map[string]Array `bson:"passes"`
	// InstanceAttributes is set when the frame holds an instance segmentation map.
	InstanceAttributes []engine.InstanceAttributes `bson:"instance_attribute_maps,omitempty"`
}

// FramePath returns the path of frame i inside dir.
func FramePath(dir string, i int) string {
	return filepath.Join(dir, strconv.Itoa(i)+Ext)
}

// EncodeArray encodes a tensor.
func EncodeArray(t *tensor.Dense) (Array, error) {
	if t == nil {
		return Array{}, errors.New("cannot encode a nil array")
	}
	var dtype string
	switch t.Data().(type) {
	case []uint8:
		dtype = DTypeUint8
	case []int32:
		dtype = DTypeInt32
	case []float32:
		dtype = DTypeFloat32
	case []float64:
		dtype = DTypeFloat64
	default:
		return Array{}, errors.Errorf("unsupported array type %v", t.Dtype())
	}
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, t.Data()); err != nil {
		return Array{}, errors.Wrap(err, "cannot encode array data")
	}
	return Array{
		DType: dtype,
		Shape: append([]int(nil), t.Shape()...),
		Data:  primitive.Binary{Subtype: bson.TypeBinaryGeneric, Data: buf.Bytes()},
	}, nil
}

// Decode turns the array back into a tensor.
func (a Array) Decode() (*tensor.Dense, error) {
	if len(a.Shape) == 0 {
		return nil, errors.New("array has no shape")
	}
	n := 1
	for _, d := range a.Shape {
		if d <= 0 {
			return nil, errors.Errorf("invalid array shape %v", a.Shape)
		}
		n *= d
	}
	var backing interface{}
	switch a.DType {
	case DTypeUint8:
		backing = make([]uint8, n)
	case DTypeInt32:
		backing = make([]int32, n)
	case DTypeFloat32:
		backing = make([]float32, n)
	case DTypeFloat64:
		backing = make([]float64, n)
	default:
		return nil, errors.Errorf("unsupported dtype %q", a.DType)
	}
	if size := binary.Size(backing); len(a.Data.Data) != size {
		return nil, errors.Errorf("%s array of shape %v needs %d bytes, got %d", a.DType, a.Shape, size, len(a.Data.Data))
	}
	if err := binary.Read(bytes.NewReader(a.Data.Data), binary.LittleEndian, backing); err != nil {
		return nil, errors.Wrap(err, "cannot decode array data")
	}
	return tensor.New(tensor.WithShape(a.Shape...), tensor.WithBacking(backing)), nil
}

// NewFrame builds the document for frame i of a result.
func NewFrame(res *engine.Result, i int, runID string) (*Frame, error) {
	f := &Frame{Frame: i, RunID: runID, Passes: map[string]Array{}}
	for _, key := range res.Keys() {
		t, err := res.Frame(key, i)
		if err != nil {
			return nil, err
		}
		arr, err := EncodeArray(t)
		if err != nil {
			return nil, errors.Wrapf(err, "frame %d %q", i, key)
		}
		f.Passes[key] = arr
	}
	if res.Has(engine.KeyInstanceSegmaps) && i < len(res.InstanceAttributeMaps) {
		f.InstanceAttributes = res.InstanceAttributeMaps[i]
	}
	return f, nil
}

// WriteFrame writes a single frame document.
func WriteFrame(path string, f *Frame) error {
	data, err := bson.Marshal(f)
	if err != nil {
		return errors.Wrapf(err, "cannot encode frame %d", f.Frame)
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "cannot write frame %d", f.Frame)
}

// Write writes every frame of the result into dir, creating it if needed, and returns the
// written paths in frame order.
func Write(dir string, res *engine.Result, runID string) ([]string, error) {
	if err := res.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "cannot create %q", dir)
	}
	paths := make([]string, 0, res.Frames())
	for i := 0; i < res.Frames(); i++ {
		f, err := NewFrame(res, i, runID)
		if err != nil {
			return nil, err
		}
		path := FramePath(dir, i)
		if err := WriteFrame(path, f); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// ReadFile reads a single frame document.
func ReadFile(path string) (*Frame, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read frame file %q", path)
	}
	var f Frame
	if err := bson.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrapf(err, "cannot decode frame file %q", path)
	}
	return &f, nil
}

// ReadDir reads the frames 0.bson, 1.bson, … of dir into a result. Frame numbers must have
// no gaps.
func ReadDir(dir string) (*engine.Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot list frames in %q", dir)
	}
	var indices []int
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, Ext) {
			continue
		}
		i, err := strconv.Atoi(strings.TrimSuffix(name, Ext))
		if err != nil {
			continue
		}
		indices = append(indices, i)
	}
	if len(indices) == 0 {
		return nil, errors.Errorf("no frames found in %q", dir)
	}
	slices.Sort(indices)

	res := engine.NewResult()
	for want, i := range indices {
		if i != want {
			return nil, errors.Errorf("frame %d is missing in %q", want, dir)
		}
		f, err := ReadFile(FramePath(dir, i))
		if err != nil {
			return nil, err
		}
		if err := addFrame(res, f); err != nil {
			return nil, errors.Wrapf(err, "frame %d", i)
		}
	}
	if err := res.Validate(); err != nil {
		return nil, err
	}
	return res, nil
}

func addFrame(res *engine.Result, f *Frame) error {
	keys := maps.Keys(f.Passes)
	slices.Sort(keys)
	for _, key := range keys {
		t, err := f.Passes[key].Decode()
		if err != nil {
			return errors.Wrap(err, key)
		}
		res.Add(key, t)
	}
	if _, ok := f.Passes[engine.KeyInstanceSegmaps]; ok {
		res.InstanceAttributeMaps = append(res.InstanceAttributeMaps, f.InstanceAttributes)
	}
	return nil
}
