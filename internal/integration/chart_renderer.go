package integration

import (
	"bytes"
	"fmt"
	"image/color"
	"sort"
	"strconv"

	"github.com/abelzeko/population-bot/internal/entities"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ChartRenderer draws dashboard charts as PNG images
type ChartRenderer struct {
	Width  vg.Length
	Height vg.Length
}

// NewChartRenderer returns a renderer with the default chart size
func NewChartRenderer() *ChartRenderer {
	return &ChartRenderer{Width: 8 * vg.Inch, Height: 4 * vg.Inch}
}

// RenderGrowthSeries draws the historical population as a line chart with years ascending on the X axis
func (cr *ChartRenderer) RenderGrowthSeries(country string, series []entities.GrowthPoint) ([]byte, error) {
	points := make(plotter.XYs, 0, len(series))
	for _, point := range series {
		if point.Missing {
			continue
		}
		points = append(points, plotter.XY{X: float64(point.Year), Y: float64(point.Population) / 1000000})
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("no population history to chart for %s", country)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].X < points[j].X })

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Population growth of %s", country)
	p.X.Label.Text = "Year"
	p.Y.Label.Text = "Population (millions)"

	line, err := plotter.NewLine(points)
	if err != nil {
		return nil, fmt.Errorf("failed to build growth line: %w", err)
	}
	line.Color = color.RGBA{R: 0, G: 100, B: 0, A: 255}
	line.Width = vg.Points(2)

	scatter, err := plotter.NewScatter(points)
	if err != nil {
		return nil, fmt.Errorf("failed to build growth markers: %w", err)
	}
	scatter.GlyphStyle.Color = color.RGBA{R: 0, G: 100, B: 0, A: 255}
	scatter.GlyphStyle.Radius = vg.Points(3)

	p.Add(line, scatter)
	p.Add(plotter.NewGrid())

	ticks := make([]plot.Tick, len(points))
	for i, point := range points {
		ticks[i] = plot.Tick{Value: point.X, Label: strconv.Itoa(int(point.X))}
	}
	p.X.Tick.Marker = plot.ConstantTicks(ticks)

	return cr.encode(p)
}

// RenderProjection draws current vs projected population as two bars
func (cr *ChartRenderer) RenderProjection(projection entities.Projection) ([]byte, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Expected growth of %s until %d (%+.1f%%)",
		projection.Country, projection.TargetYear, projection.RelativeDelta*100)
	p.Y.Label.Text = "Population (millions)"

	values := plotter.Values{
		float64(projection.CurrentPopulation) / 1000000,
		projection.ProjectedPopulation / 1000000,
	}
	bars, err := plotter.NewBarChart(values, vg.Points(60))
	if err != nil {
		return nil, fmt.Errorf("failed to build projection bars: %w", err)
	}
	bars.Color = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	bars.LineStyle.Width = vg.Length(0)

	p.Add(bars)
	p.Add(plotter.NewGrid())
	p.NominalX(strconv.Itoa(projection.CurrentYear), strconv.Itoa(projection.TargetYear))
	p.Y.Min = 0

	return cr.encode(p)
}

func (cr *ChartRenderer) encode(p *plot.Plot) ([]byte, error) {
	writer, err := p.WriterTo(cr.Width, cr.Height, "png")
	if err != nil {
		return nil, fmt.Errorf("failed to create PNG writer: %w", err)
	}

	var buf bytes.Buffer
	if _, err := writer.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode chart: %w", err)
	}
	return buf.Bytes(), nil
}
