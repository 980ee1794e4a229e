// Package plotting renders the scan window as a chart in sensor units, as an
// alternative to the raw surface.
package plotting

import (
	"errors"
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/scanview/internal/scan"
)

// ErrNoPoints is returned when there is nothing to plot.
var ErrNoPoints = errors.New("no points to plot")

// Options controls TrailPlot.
type Options struct {
	Title string
	// OriginX and OriginY are the surface coordinates of the sensor; points
	// are plotted relative to them with Y pointing up.
	OriginX, OriginY int
	// Range fixes both axes to [-Range, Range] horizontally and [0, Range]
	// vertically. Zero fits the axes to the data.
	Range float64
}

// XY converts projected points to plot coordinates relative to the origin.
func XY(points []scan.ProjectedPoint, originX, originY int) plotter.XYs {
	xys := make(plotter.XYs, len(points))
	for i, p := range points {
		xys[i] = plotter.XY{X: float64(p.X - originX), Y: float64(originY - p.Y)}
	}
	return xys
}

// TrailPlot builds a plot of the window: a line through the points in
// insertion order with the newest point marked.
func TrailPlot(points []scan.ProjectedPoint, opts Options) (*plot.Plot, error) {
	if len(points) == 0 {
		return nil, ErrNoPoints
	}

	p := plot.New()
	p.Title.Text = opts.Title
	if p.Title.Text == "" {
		p.Title.Text = fmt.Sprintf("Scan trail (%d points)", len(points))
	}
	p.X.Label.Text = "Horizontal offset"
	p.Y.Label.Text = "Vertical offset"
	p.Add(plotter.NewGrid())

	xys := XY(points, opts.OriginX, opts.OriginY)

	if len(xys) > 1 {
		line, err := plotter.NewLine(xys)
		if err != nil {
			return nil, fmt.Errorf("trail line: %w", err)
		}
		line.Color = color.RGBA{R: 0x2e, G: 0x8b, B: 0x57, A: 0xff}
		line.Width = vg.Points(1)
		p.Add(line)
	}

	pts, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, fmt.Errorf("trail points: %w", err)
	}
	pts.GlyphStyle.Radius = vg.Points(1.5)
	pts.GlyphStyle.Color = color.RGBA{G: 0x80, A: 0xff}
	p.Add(pts)

	newest, err := plotter.NewScatter(xys[len(xys)-1:])
	if err != nil {
		return nil, fmt.Errorf("newest point: %w", err)
	}
	newest.GlyphStyle.Shape = draw.CrossGlyph{}
	newest.GlyphStyle.Radius = vg.Points(4)
	newest.GlyphStyle.Color = color.RGBA{R: 0xff, A: 0xff}
	p.Add(newest)

	origin, err := plotter.NewScatter(plotter.XYs{{X: 0, Y: 0}})
	if err != nil {
		return nil, fmt.Errorf("origin: %w", err)
	}
	origin.GlyphStyle.Shape = draw.TriangleGlyph{}
	origin.GlyphStyle.Radius = vg.Points(3)
	p.Add(origin)

	if opts.Range > 0 {
		p.X.Min, p.X.Max = -opts.Range, opts.Range
		p.Y.Min, p.Y.Max = 0, opts.Range
	}
	return p, nil
}

// WritePNG renders TrailPlot as a PNG of the given size.
func WritePNG(w io.Writer, points []scan.ProjectedPoint, opts Options, width, height vg.Length) error {
	p, err := TrailPlot(points, opts)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("render plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write plot: %w", err)
	}
	return nil
}
