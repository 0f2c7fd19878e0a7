package chart

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"time"

	xdraw "golang.org/x/image/draw"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

const (
	// screenDPI maps output pixels to plot points
	screenDPI = 96
	// supersample is the factor the plot is drawn at before downscaling
	supersample = 2
)

var (
	ColorActual    = color.RGBA{31, 119, 180, 255}
	ColorPredicted = color.RGBA{255, 127, 14, 255}
	ColorForecast  = color.RGBA{214, 39, 40, 255}
)

// Series is one named line, or set of markers, over dates
type Series struct {
	Label  string
	Dates  []time.Time
	Values []float64
	Color  color.RGBA
	Points bool
}

// Panel is one plot area with its own axes
type Panel struct {
	Title  string
	XLabel string
	YLabel string
	Series []Series
	Note   string
}

// Render draws the panels side by side and returns the PNG bytes
func Render(panels []Panel, width, height int) ([]byte, error) {
	if len(panels) == 0 {
		return nil, fmt.Errorf("no panels to render")
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid chart size %dx%d", width, height)
	}

	plots := make([]*plot.Plot, len(panels))
	for i, p := range panels {
		pl, err := newPlot(p)
		if err != nil {
			return nil, fmt.Errorf("failed to build panel %q: %w", p.Title, err)
		}
		plots[i] = pl
	}

	canvas := vgimg.NewWith(
		vgimg.UseWH(pixels(width), pixels(height)),
		vgimg.UseDPI(screenDPI*supersample),
	)
	tiles := draw.Tiles{
		Rows:      1,
		Cols:      len(plots),
		PadX:      vg.Millimeter * 4,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 4,
	}
	cells := plot.Align([][]*plot.Plot{plots}, tiles, draw.New(canvas))
	for i, pl := range plots {
		pl.Draw(cells[0][i])
	}

	hi := canvas.Image()
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(out, out.Bounds(), hi, hi.Bounds(), xdraw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode chart: %w", err)
	}
	return buf.Bytes(), nil
}

func pixels(n int) vg.Length {
	return vg.Length(n) * vg.Inch / screenDPI
}

func newPlot(p Panel) (*plot.Plot, error) {
	pl := plot.New()
	pl.Title.Text = p.Title
	pl.X.Label.Text = p.XLabel
	pl.Y.Label.Text = p.YLabel
	pl.Legend.Top = true
	pl.Legend.Left = true
	pl.Add(plotter.NewGrid())

	empty := true
	for _, s := range p.Series {
		xys := points(s)
		if len(xys) == 0 {
			continue
		}
		empty = false

		if s.Points {
			sc, err := plotter.NewScatter(xys)
			if err != nil {
				return nil, err
			}
			sc.GlyphStyle.Color = s.Color
			sc.GlyphStyle.Radius = vg.Points(4)
			sc.GlyphStyle.Shape = draw.BoxGlyph{}
			pl.Add(sc)
			if s.Label != "" {
				pl.Legend.Add(s.Label, sc)
			}
			continue
		}

		line, err := plotter.NewLine(xys)
		if err != nil {
			return nil, err
		}
		line.LineStyle.Color = s.Color
		line.LineStyle.Width = vg.Points(2)
		pl.Add(line)
		if s.Label != "" {
			pl.Legend.Add(s.Label, line)
		}
	}

	if empty {
		pl.X.Min, pl.X.Max = 0, 1
		pl.Y.Min, pl.Y.Max = 0, 1
		pl.HideX()
		pl.HideY()
		return pl, addText(pl, 0.5, 0.5, "sem dados", text.XCenter, text.YCenter, vg.Point{})
	}

	pl.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	if pl.X.Max == pl.X.Min {
		pl.X.Min -= 86400
		pl.X.Max += 86400
	}
	if pl.Y.Max == pl.Y.Min {
		pl.Y.Min--
		pl.Y.Max++
	}
	pad := (pl.Y.Max - pl.Y.Min) * 0.05
	pl.Y.Min -= pad
	pl.Y.Max += pad

	if p.Note != "" {
		return pl, addText(pl, pl.X.Max, pl.Y.Min, p.Note, text.XRight, text.YBottom, vg.Point{X: -vg.Points(6), Y: vg.Points(6)})
	}
	return pl, nil
}

// points keeps the finite values of a series, keyed by unix seconds
func points(s Series) plotter.XYs {
	xys := make(plotter.XYs, 0, len(s.Values))
	for i, v := range s.Values {
		if i >= len(s.Dates) || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		xys = append(xys, plotter.XY{X: float64(s.Dates[i].Unix()), Y: v})
	}
	return xys
}

// addText places a text block anchored at a data coordinate
func addText(pl *plot.Plot, x, y float64, msg string, xAlign text.XAlignment, yAlign text.YAlignment, offset vg.Point) error {
	labels, err := plotter.NewLabels(plotter.XYLabels{
		XYs:    plotter.XYs{{X: x, Y: y}},
		Labels: []string{msg},
	})
	if err != nil {
		return err
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].XAlign = xAlign
		labels.TextStyle[i].YAlign = yAlign
	}
	labels.Offset = offset
	pl.Add(labels)
	return nil
}
