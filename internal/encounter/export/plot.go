package export

import (
	"fmt"
	"image/color"
	"io"

	"github.com/paulmach/orb"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/encounter.report/internal/encounter/l1fixes"
	"github.com/banshee-data/encounter.report/internal/encounter/l2ppa"
	"github.com/banshee-data/encounter.report/internal/encounter/pipeline"
)

var (
	entityColors = [2]color.Color{
		color.RGBA{R: 31, G: 119, B: 180, A: 255},
		color.RGBA{R: 255, G: 127, B: 14, A: 255},
	}
	interactionColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	trackColor       = color.Gray{Y: 128}
)

// PlotOptions controls the PPA map.
type PlotOptions struct {
	// OnlyIntersecting draws just the PPAs that take part in a pair, plus
	// both tracks.
	OnlyIntersecting bool
	Width, Height    vg.Length
}

// DefaultPlotOptions returns a square 8 inch map of every PPA.
func DefaultPlotOptions() PlotOptions {
	return PlotOptions{Width: 8 * vg.Inch, Height: 8 * vg.Inch}
}

// ringXYs maps an analysis ring onto the map axes: longitude (Y) across,
// latitude (X) up.
func ringXYs(r orb.Ring) plotter.XYs {
	pts := make(plotter.XYs, len(r))
	for i, p := range r {
		pts[i] = plotter.XY{X: p[1], Y: p[0]}
	}
	return pts
}

func fixXYs(fixes []l1fixes.Point) plotter.XYs {
	pts := make(plotter.XYs, len(fixes))
	for i, p := range fixes {
		pts[i] = plotter.XY{X: p.Y, Y: p.X}
	}
	return pts
}

// Plot draws both tracks and their PPAs. PPAs that intersect the other
// entity's PPAs are drawn in a highlight colour.
func Plot(res *pipeline.Result, po PlotOptions) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s / %s: %d episodes", res.Entity1, res.Entity2, len(res.Events))
	p.X.Label.Text = "Longitude"
	p.Y.Label.Text = "Latitude"
	p.Add(plotter.NewGrid())

	hits := intersecting(res)
	for i, ppas := range [][]l2ppa.PPA{res.PPAs1, res.PPAs2} {
		var legendLine *plotter.Line
		for _, ppa := range ppas {
			hit := hits[ppa.Key()]
			if po.OnlyIntersecting && !hit {
				continue
			}
			line, err := plotter.NewLine(ringXYs(ppa.Boundary))
			if err != nil {
				return nil, err
			}
			line.Width = vg.Points(1)
			line.Color = entityColors[i]
			if hit {
				line.Color = interactionColor
			}
			p.Add(line)
			if !hit && legendLine == nil {
				legendLine = line
			}
		}
		if legendLine != nil {
			p.Legend.Add(entityName(res, i), legendLine)
		}
	}

	for _, fixes := range [][]l1fixes.Point{res.Fixes1, res.Fixes2} {
		if len(fixes) == 0 {
			continue
		}
		track, points, err := plotter.NewLinePoints(fixXYs(fixes))
		if err != nil {
			return nil, err
		}
		track.Color = trackColor
		track.Width = vg.Points(0.5)
		points.Color = trackColor
		points.Radius = vg.Points(1.5)
		p.Add(track, points)
	}

	if len(res.Pairs) > 0 {
		swatch, err := plotter.NewLine(plotter.XYs{})
		if err != nil {
			return nil, err
		}
		swatch.Color = interactionColor
		p.Legend.Add("intersecting", swatch)
	}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

func entityName(res *pipeline.Result, i int) string {
	if i == 0 {
		return res.Entity1
	}
	return res.Entity2
}

// SavePlot renders Plot(res) to path; the format follows the extension
// (png, svg, pdf).
func SavePlot(res *pipeline.Result, po PlotOptions, path string) error {
	p, err := Plot(res, po)
	if err != nil {
		return err
	}
	return p.Save(po.Width, po.Height, path)
}

// WritePlotPNG renders Plot(res) as PNG to w.
func WritePlotPNG(w io.Writer, res *pipeline.Result, po PlotOptions) error {
	p, err := Plot(res, po)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(po.Width, po.Height, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}
