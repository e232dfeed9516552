package fake

import (
	"math"
	"sort"

	"github.com/golang/geo/r3"
	"gorgonia.org/tensor"

	"go.viam.com/synthcam/engine"
	"go.viam.com/synthcam/spatialmath"
)

type frame struct {
	colors     *tensor.Dense
	maps       map[string]*tensor.Dense
	attributes []engine.InstanceAttributes
}

// renderFrame casts one ray through the center of every pixel. Instance ids are the object
// index plus one so 0 stays background.
func (e *Engine) renderFrame(cam spatialmath.Pose, intrinsics *engine.Intrinsics, out outputs) *frame {
	width, height := intrinsics.Width, intrinsics.Height
	colors := engine.NewColors(width, height)
	normals := engine.NewFloat32Vectors(width, height)
	depth := engine.NewFloat32Map(width, height)
	instances := engine.NewInt32Map(width, height)
	categories := engine.NewInt32Map(width, height)

	colorData := colors.Data().([]uint8)
	normalData := normals.Data().([]float32)
	depthData := depth.Data().([]float32)
	instanceData := instances.Data().([]int32)
	categoryData := categories.Data().([]int32)

	origin := cam.Point()
	ax, ay, az := cam.Orientation().Axes()
	forward := az.Mul(-1)
	visible := map[int]*sphere{}

	for v := 0; v < height; v++ {
		for u := 0; u < width; u++ {
			k := v*width + u
			ray := intrinsics.PixelRay(float64(u)+0.5, float64(v)+0.5)
			dir := ax.Mul(ray.X).Add(ay.Mul(ray.Y)).Add(az.Mul(ray.Z)).Normalize()

			var hit *sphere
			dist := math.Inf(1)
			for _, s := range e.spheres {
				if t, ok := s.intersect(origin, dir); ok && t < dist {
					hit, dist = s, t
				}
			}
			if hit == nil {
				depthData[k] = BackgroundDepth
				continue
			}

			p := origin.Add(dir.Mul(dist))
			n := p.Sub(hit.center).Normalize()
			shade := e.shade(p, n)
			for c := 0; c < 3; c++ {
				colorData[3*k+c] = uint8(math.Min(255, hit.color[c]*shade))
			}
			normalData[3*k], normalData[3*k+1], normalData[3*k+2] = float32(n.X), float32(n.Y), float32(n.Z)
			depthData[k] = float32(p.Sub(origin).Dot(forward))
			instanceData[k] = int32(hit.obj.Index + 1)
			categoryData[k] = int32(hit.obj.Category.ID)
			visible[hit.obj.Index] = hit
		}
	}

	f := &frame{colors: colors, maps: map[string]*tensor.Dense{
		engine.KeyNormals:           normals,
		engine.KeyDepth:             depth,
		engine.KeyInstanceSegmaps:   instances,
		engine.KeyCategoryIDSegmaps: categories,
	}}
	if out.instances {
		f.attributes = make([]engine.InstanceAttributes, 0, len(visible))
		for _, s := range visible {
			attr := engine.InstanceAttributes{Idx: s.obj.Index + 1, CategoryID: s.obj.Category.ID}
			if out.names {
				attr.Name = s.obj.Name
			}
			f.attributes = append(f.attributes, attr)
		}
		sort.Slice(f.attributes, func(i, j int) bool { return f.attributes[i].Idx < f.attributes[j].Idx })
	}
	return f
}

// shade returns the brightness of a surface point under the scene lights.
func (e *Engine) shade(p, n r3.Vector) float64 {
	brightness := ambient
	for _, l := range e.lights {
		if l.Energy == 0 {
			continue
		}
		var toLight r3.Vector
		if l.Type == engine.LightSun {
			toLight = l.Location.Normalize()
		} else {
			toLight = l.Location.Sub(p).Normalize()
		}
		brightness += math.Max(0, n.Dot(toLight))
	}
	return math.Min(1, brightness)
}
