package engine

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gorgonia.org/tensor"
)

// InstanceAttributes describes one instance of a segmentation map.
type InstanceAttributes struct {
	// Idx is the value the instance has in the instance segmentation map.
	Idx        int    `json:"idx" bson:"idx"`
	CategoryID int    `json:"category_id" bson:"category_id"`
	Name       string `json:"name,omitempty" bson:"name,omitempty"`
}

// Result holds everything a render produced. Passes maps a key such as "colors" or
// "instance_segmaps" to one array per frame, in camera registration order.
//
// Shapes and element types by key:
//
//	colors               H x W x 3  uint8
//	normals              H x W x 3  float32
//	depth                H x W      float32
//	instance_segmaps     H x W      int32
//	category_id_segmaps  H x W      int32
type Result struct {
	Passes                map[string][]*tensor.Dense
	InstanceAttributeMaps [][]InstanceAttributes
}

// NewResult returns an empty result.
func NewResult() *Result {
	return &Result{Passes: map[string][]*tensor.Dense{}}
}

// Add appends the next frame of a pass.
func (r *Result) Add(key string, t *tensor.Dense) {
	r.Passes[key] = append(r.Passes[key], t)
}

// Keys returns the keys of every pass in the result, sorted.
func (r *Result) Keys() []string {
	keys := maps.Keys(r.Passes)
	slices.Sort(keys)
	return keys
}

// Has reports whether the result holds the pass.
func (r *Result) Has(key string) bool {
	return len(r.Passes[key]) > 0
}

// Frames is the number of rendered frames.
func (r *Result) Frames() int {
	frames := 0
	for _, ts := range r.Passes {
		frames = max(frames, len(ts))
	}
	return frames
}

// Frame returns a single frame of a pass.
func (r *Result) Frame(key string, frame int) (*tensor.Dense, error) {
	ts, ok := r.Passes[key]
	if !ok {
		return nil, errors.Errorf("render result has no %q output", key)
	}
	if frame < 0 || frame >= len(ts) {
		return nil, errors.Errorf("frame %d out of range, %q has %d frames", frame, key, len(ts))
	}
	return ts[frame], nil
}

// Validate checks that every pass has one array per frame and that all frames share a resolution.
func (r *Result) Validate() error {
	frames := r.Frames()
	if frames == 0 {
		return errors.New("render result is empty")
	}
	width, height := -1, -1
	for _, key := range r.Keys() {
		ts := r.Passes[key]
		if len(ts) != frames {
			return errors.Errorf("%q has %d frames, expected %d", key, len(ts), frames)
		}
		for i, t := range ts {
			if t == nil {
				return errors.Errorf("%q frame %d is missing", key, i)
			}
			shape := t.Shape()
			if len(shape) < 2 {
				return errors.Errorf("%q frame %d has shape %v, expected at least 2 dimensions", key, i, shape)
			}
			if width < 0 {
				height, width = shape[0], shape[1]
			}
			if shape[0] != height || shape[1] != width {
				return errors.Errorf("%q frame %d is %dx%d, expected %dx%d", key, i, shape[1], shape[0], width, height)
			}
		}
	}
	if r.Has(KeyInstanceSegmaps) && len(r.InstanceAttributeMaps) != frames {
		return errors.Errorf("got %d instance attribute maps for %d frames", len(r.InstanceAttributeMaps), frames)
	}
	return nil
}

// NewInt32Map creates an H x W int32 array.
func NewInt32Map(width, height int) *tensor.Dense {
	return tensor.New(tensor.WithShape(height, width), tensor.WithBacking(make([]int32, width*height)))
}

// NewFloat32Map creates an H x W float32 array.
func NewFloat32Map(width, height int) *tensor.Dense {
	return tensor.New(tensor.WithShape(height, width), tensor.WithBacking(make([]float32, width*height)))
}

// NewFloat32Vectors creates an H x W x 3 float32 array.
func NewFloat32Vectors(width, height int) *tensor.Dense {
	return tensor.New(tensor.WithShape(height, width, 3), tensor.WithBacking(make([]float32, width*height*3)))
}

// NewColors creates an H x W x 3 uint8 array.
func NewColors(width, height int) *tensor.Dense {
	return tensor.New(tensor.WithShape(height, width, 3), tensor.WithBacking(make([]uint8, width*height*3)))
}

// Int32Data returns the row-major backing data of an H x W int32 array and its size.
func Int32Data(t *tensor.Dense) (data []int32, width, height int, err error) {
	width, height, err = planeSize(t, 2)
	if err != nil {
		return nil, 0, 0, err
	}
	data, ok := t.Data().([]int32)
	if !ok {
		return nil, 0, 0, errors.Errorf("expected int32 data but got %v", t.Dtype())
	}
	return data, width, height, nil
}

// Float32Data returns the row-major backing data of a float32 array and its size.
func Float32Data(t *tensor.Dense) (data []float32, width, height int, err error) {
	width, height, err = planeSize(t, 0)
	if err != nil {
		return nil, 0, 0, err
	}
	data, ok := t.Data().([]float32)
	if !ok {
		return nil, 0, 0, errors.Errorf("expected float32 data but got %v", t.Dtype())
	}
	return data, width, height, nil
}

// ColorImage converts an H x W x 3 uint8 array into an image.
func ColorImage(t *tensor.Dense) (*image.NRGBA, error) {
	width, height, err := planeSize(t, 3)
	if err != nil {
		return nil, err
	}
	data, ok := t.Data().([]uint8)
	if !ok {
		return nil, errors.Errorf("expected uint8 color data but got %v", t.Dtype())
	}
	if shape := t.Shape(); shape[2] != 3 {
		return nil, errors.Errorf("expected 3 color channels but got %d", shape[2])
	}
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			k := (y*width + x) * 3
			img.SetNRGBA(x, y, color.NRGBA{R: data[k], G: data[k+1], B: data[k+2], A: 255})
		}
	}
	return img, nil
}

// ColorsFromImage converts an image into an H x W x 3 uint8 array, dropping alpha.
func ColorsFromImage(img image.Image) *tensor.Dense {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	data := make([]uint8, width*height*3)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			k := (y*width + x) * 3
			data[k], data[k+1], data[k+2] = c.R, c.G, c.B
		}
	}
	return tensor.New(tensor.WithShape(height, width, 3), tensor.WithBacking(data))
}

// planeSize returns the width and height of an array. dims of zero accepts 2 or 3 dimensions.
func planeSize(t *tensor.Dense, dims int) (width, height int, err error) {
	if t == nil {
		return 0, 0, errors.New("array is nil")
	}
	shape := t.Shape()
	if dims == 0 && (len(shape) == 2 || len(shape) == 3) {
		return shape[1], shape[0], nil
	}
	if len(shape) != dims {
		return 0, 0, errors.Errorf("expected %d dimensions but got shape %v", dims, shape)
	}
	return shape[1], shape[0], nil
}
