// Package coco writes rendered frames as a COCO instance segmentation dataset: an images
// directory next to a coco_annotations.json file.
package coco

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/synthcam/engine"
	"go.viam.com/synthcam/scene"
)

const (
	// AnnotationsFile is the name of the annotation file inside the output directory.
	AnnotationsFile = "coco_annotations.json"
	// ImagesDir is the directory, relative to the output directory, images are written to.
	ImagesDir = "images"
	// Supercategory is the supercategory of every category.
	Supercategory = "coco_annotations"
)

// Color file formats.
const (
	FormatJPEG = "JPEG"
	FormatPNG  = "PNG"
)

// Options control how a dataset is written.
type Options struct {
	// ColorFormat is JPEG or PNG, JPEG when empty.
	ColorFormat string `json:"color_file_format,omitempty"`
	// JPEGQuality defaults to 95.
	JPEGQuality int `json:"jpg_quality,omitempty"`
	// Categories name the category ids found in the result. Unnamed ids are named by their number.
	Categories []scene.Category `json:"-"`
}

// Validate ensures the options can be used.
func (o *Options) Validate(path string) error {
	switch strings.ToUpper(o.ColorFormat) {
	case "", FormatJPEG, "JPG", FormatPNG:
	default:
		return errors.Errorf("%s.color_file_format: unsupported format %q", path, o.ColorFormat)
	}
	if o.JPEGQuality < 0 || o.JPEGQuality > 100 {
		return errors.Errorf("%s.jpg_quality: must be between 1 and 100", path)
	}
	return nil
}

func (o Options) ext() string {
	if strings.ToUpper(o.ColorFormat) == FormatPNG {
		return ".png"
	}
	return ".jpg"
}

// Dataset is the content of coco_annotations.json.
type Dataset struct {
	Info        Info         `json:"info"`
	Licenses    []License    `json:"licenses"`
	Categories  []Category   `json:"categories"`
	Images      []Image      `json:"images"`
	Annotations []Annotation `json:"annotations"`
}

// Info describes the dataset.
type Info struct {
	Description string `json:"description"`
	URL         string `json:"url"`
	Version     string `json:"version"`
	Year        int    `json:"year"`
	Contributor string `json:"contributor"`
	DateCreated string `json:"date_created"`
}

// License of the images.
type License struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Category of the annotations.
type Category struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Supercategory string `json:"supercategory"`
}

// Image is one rendered frame.
type Image struct {
	ID           int    `json:"id"`
	FileName     string `json:"file_name"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	DateCaptured string `json:"date_captured"`
	License      int    `json:"license"`
	CocoURL      string `json:"coco_url"`
	FlickrURL    string `json:"flickr_url"`
}

// RLE is an uncompressed run length encoded mask. Counts alternate between background and
// foreground runs over the mask in column-major order, starting with background.
type RLE struct {
	Counts []int `json:"counts"`
	Size   [2]int `json:"size"`
}

// Annotation is one object instance visible in an image.
type Annotation struct {
	ID           int        `json:"id"`
	ImageID      int        `json:"image_id"`
	CategoryID   int        `json:"category_id"`
	IsCrowd      int        `json:"iscrowd"`
	Area         int        `json:"area"`
	BBox         [4]float64 `json:"bbox"`
	Segmentation RLE        `json:"segmentation"`
	Width        int        `json:"width"`
	Height       int        `json:"height"`
}

// Write writes the color frames of res to dir/images and their annotations to
// dir/coco_annotations.json. The result needs colors, instance maps and instance attributes.
func Write(dir string, res *engine.Result, opts Options) (*Dataset, error) {
	if err := opts.Validate("coco"); err != nil {
		return nil, err
	}
	if err := res.Validate(); err != nil {
		return nil, err
	}
	for _, key := range []string{engine.KeyColors, engine.KeyInstanceSegmaps} {
		if !res.Has(key) {
			return nil, errors.Errorf("cannot write coco annotations without %q", key)
		}
	}
	if err := os.MkdirAll(filepath.Join(dir, ImagesDir), 0o755); err != nil {
		return nil, errors.Wrapf(err, "cannot create %q", dir)
	}

	now := time.Now()
	ds := &Dataset{
		Info: Info{
			Description: Supercategory,
			URL:         "https://github.com/waspinator/pycococreator",
			Version:     "0.1.0",
			Year:        now.Year(),
			Contributor: "Unknown",
			DateCreated: now.Format(time.RFC3339),
		},
		Licenses: []License{{
			ID:   1,
			Name: "Attribution-NonCommercial-ShareAlike License",
			URL:  "http://creativecommons.org/licenses/by-nc-sa/2.0/",
		}},
		Images:      []Image{},
		Annotations: []Annotation{},
	}

	names := lo.SliceToMap(opts.Categories, func(c scene.Category) (int, string) { return c.ID, c.Name })
	categories := map[int]Category{}
	for i := 0; i < res.Frames(); i++ {
		img, err := writeImage(dir, res, i, opts)
		if err != nil {
			return nil, err
		}
		ds.Images = append(ds.Images, img)

		segmap, width, height, err := engine.Int32Data(res.Passes[engine.KeyInstanceSegmaps][i])
		if err != nil {
			return nil, errors.Wrapf(err, "frame %d", i)
		}
		for _, inst := range res.InstanceAttributeMaps[i] {
			if inst.Idx == 0 || inst.CategoryID == 0 {
				continue
			}
			ann, ok := annotate(segmap, width, height, int32(inst.Idx))
			if !ok {
				continue
			}
			ann.ID = len(ds.Annotations) + 1
			ann.ImageID = img.ID
			ann.CategoryID = inst.CategoryID
			ds.Annotations = append(ds.Annotations, ann)

			if _, ok := categories[inst.CategoryID]; !ok {
				name, ok := names[inst.CategoryID]
				if !ok || name == "" {
					name = strconv.Itoa(inst.CategoryID)
				}
				categories[inst.CategoryID] = Category{ID: inst.CategoryID, Name: name, Supercategory: Supercategory}
			}
		}
	}
	ds.Categories = lo.Values(categories)
	sort.Slice(ds.Categories, func(i, j int) bool { return ds.Categories[i].ID < ds.Categories[j].ID })

	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "cannot encode coco annotations")
	}
	if err := os.WriteFile(filepath.Join(dir, AnnotationsFile), data, 0o644); err != nil {
		return nil, errors.Wrap(err, "cannot write coco annotations")
	}
	return ds, nil
}

func writeImage(dir string, res *engine.Result, i int, opts Options) (Image, error) {
	img, err := engine.ColorImage(res.Passes[engine.KeyColors][i])
	if err != nil {
		return Image{}, errors.Wrapf(err, "frame %d", i)
	}
	fileName := filepath.ToSlash(filepath.Join(ImagesDir, fmt.Sprintf("%06d%s", i, opts.ext())))
	quality := opts.JPEGQuality
	if quality == 0 {
		quality = 95
	}
	if err := imaging.Save(img, filepath.Join(dir, fileName), imaging.JPEGQuality(quality)); err != nil {
		return Image{}, errors.Wrapf(err, "cannot write image %q", fileName)
	}
	bounds := img.Bounds()
	return Image{
		ID:           i,
		FileName:     fileName,
		Width:        bounds.Dx(),
		Height:       bounds.Dy(),
		DateCaptured: time.Now().Format(time.RFC3339),
		License:      1,
	}, nil
}

// annotate computes the area, bounding box and mask of one instance. It reports false when the
// instance covers no pixel.
func annotate(segmap []int32, width, height int, idx int32) (Annotation, bool) {
	area := 0
	minX, minY, maxX, maxY := width, height, -1, -1
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if segmap[y*width+x] != idx {
				continue
			}
			area++
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)
		}
	}
	if area == 0 {
		return Annotation{}, false
	}
	return Annotation{
		Area:         area,
		BBox:         [4]float64{float64(minX), float64(minY), float64(maxX - minX + 1), float64(maxY - minY + 1)},
		Segmentation: EncodeRLE(segmap, width, height, idx),
		Width:        width,
		Height:       height,
	}, true
}

// EncodeRLE run length encodes the pixels of a row-major segmentation map equal to idx.
func EncodeRLE(segmap []int32, width, height int, idx int32) RLE {
	rle := RLE{Counts: []int{}, Size: [2]int{height, width}}
	current, run := false, 0
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			on := segmap[y*width+x] == idx
			if on != current {
				rle.Counts = append(rle.Counts, run)
				current, run = on, 0
			}
			run++
		}
	}
	rle.Counts = append(rle.Counts, run)
	return rle
}
