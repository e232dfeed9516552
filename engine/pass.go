package engine

import (
	"github.com/pkg/errors"
)

// PassKind is a kind of render output besides the color image.
type PassKind string

// Pass kinds.
const (
	PassNormals      PassKind = "normals"
	PassDepth        PassKind = "depth"
	PassSegmentation PassKind = "segmentation"
)

// Keys under which a Result stores its per frame arrays.
const (
	KeyColors             = "colors"
	KeyNormals            = "normals"
	KeyDepth              = "depth"
	KeyInstanceSegmaps    = "instance_segmaps"
	KeyCategoryIDSegmaps  = "category_id_segmaps"
	KeyInstanceAttributes = "instance_attribute_maps"
)

// Attributes a segmentation pass can map objects by.
const (
	MapByCategoryID = "category_id"
	MapByInstance   = "instance"
	MapByName       = "name"
)

// Pass is an output pass enabled before rendering.
type Pass struct {
	Kind PassKind `json:"kind"`
	// Antialiasing applies to depth; without it every pixel holds the depth of a single surface.
	Antialiasing bool `json:"antialiasing,omitempty"`
	// MapBy lists what a segmentation pass encodes. "category_id" and "instance" produce per
	// pixel maps, other attributes such as "name" are reported per instance.
	MapBy []string `json:"map_by,omitempty"`
}

// NormalsPass enables world space normals.
func NormalsPass() Pass {
	return Pass{Kind: PassNormals}
}

// DepthPass enables z-depth.
func DepthPass(antialiasing bool) Pass {
	return Pass{Kind: PassDepth, Antialiasing: antialiasing}
}

// SegmentationPass enables segmentation mapped by the given attributes.
func SegmentationPass(mapBy ...string) Pass {
	return Pass{Kind: PassSegmentation, MapBy: mapBy}
}

// Validate ensures the pass is one an engine can enable.
func (p Pass) Validate() error {
	switch p.Kind {
	case PassNormals, PassDepth:
		if len(p.MapBy) != 0 {
			return errors.Errorf("%s pass does not take map_by", p.Kind)
		}
		return nil
	case PassSegmentation:
		if len(p.MapBy) == 0 {
			return errors.New("segmentation pass needs at least one map_by attribute")
		}
		perPixel := false
		for _, attr := range p.MapBy {
			switch attr {
			case MapByCategoryID, MapByInstance:
				perPixel = true
			case "":
				return errors.New("segmentation map_by attribute must not be empty")
			}
		}
		if !perPixel {
			return errors.Errorf("segmentation must map by %q or %q", MapByCategoryID, MapByInstance)
		}
		return nil
	default:
		return errors.Errorf("unknown pass %q", p.Kind)
	}
}

// MapsBy returns whether a segmentation pass maps by attr.
func (p Pass) MapsBy(attr string) bool {
	for _, a := range p.MapBy {
		if a == attr {
			return true
		}
	}
	return false
}

// Keys returns the Result keys the pass produces.
func (p Pass) Keys() []string {
	switch p.Kind {
	case PassNormals:
		return []string{KeyNormals}
	case PassDepth:
		return []string{KeyDepth}
	case PassSegmentation:
		var keys []string
		if p.MapsBy(MapByCategoryID) {
			keys = append(keys, KeyCategoryIDSegmaps)
		}
		if p.MapsBy(MapByInstance) {
			keys = append(keys, KeyInstanceSegmaps, KeyInstanceAttributes)
		}
		return keys
	default:
		return nil
	}
}
