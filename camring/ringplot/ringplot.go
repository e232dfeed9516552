// Package ringplot draws a top-down picture of a camera ring.
package ringplot

import (
	"fmt"
	"image/color"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"go.viam.com/synthcam/camring"
	"go.viam.com/synthcam/spatialmath"
)

// DefaultSize is the width and height of the saved picture.
const DefaultSize = 6 * vg.Inch

var (
	cameraColor = color.RGBA{R: 200, G: 40, B: 40, A: 255}
	lookColor   = color.RGBA{R: 40, G: 40, B: 200, A: 255}
)

// New builds a plot of the ring seen from above: each camera is a labeled point with a line
// showing where it looks. The look lines are a fifth of the ring radius long.
func New(ring camring.Ring) (*plot.Plot, error) {
	if len(ring) == 0 {
		return nil, errors.New("cannot plot an empty ring")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("camera ring (%d cameras)", len(ring))
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"

	cameras := make(plotter.XYs, len(ring))
	labels := make([]string, len(ring))
	radius := 0.
	for i, pose := range ring {
		cameras[i].X = pose.Position.X
		cameras[i].Y = pose.Position.Y
		labels[i] = fmt.Sprintf("%d", i)
		radius = max(radius, pose.Position.Norm())
	}

	scatter, err := plotter.NewScatter(cameras)
	if err != nil {
		return nil, err
	}
	scatter.GlyphStyle.Color = cameraColor
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(scatter)

	lookLength := radius / 5
	for i := range ring {
		forward := spatialmath.CameraForward(ring.Pose(i))
		start := ring[i].Position
		end := start.Add(forward.Mul(lookLength))
		line, err := plotter.NewLine(plotter.XYs{{X: start.X, Y: start.Y}, {X: end.X, Y: end.Y}})
		if err != nil {
			return nil, err
		}
		line.Color = lookColor
		p.Add(line)
	}

	labelPlot, err := plotter.NewLabels(plotter.XYLabels{XYs: cameras, Labels: labels})
	if err != nil {
		return nil, err
	}
	p.Add(labelPlot)
	p.Add(plotter.NewGrid())
	return p, nil
}

// Save writes the ring plot to path, the format is picked from the file extension.
func Save(ring camring.Ring, path string) error {
	p, err := New(ring)
	if err != nil {
		return err
	}
	if err := p.Save(DefaultSize, DefaultSize, path); err != nil {
		return errors.Wrapf(err, "cannot save ring plot to %q", path)
	}
	return nil
}
