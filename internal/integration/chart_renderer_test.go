package integration

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/abelzeko/population-bot/internal/entities"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func TestRenderGrowthSeries(t *testing.T) {
	series := []entities.GrowthPoint{
		{Year: 2022, Population: 2500000},
		{Year: 2020, Population: 2400000},
		{Year: 1970, Population: 1400000},
	}

	img, err := NewChartRenderer().RenderGrowthSeries("Sampleland", series)
	if err != nil {
		t.Fatalf("Failed to render growth chart: %v", err)
	}
	if !bytes.HasPrefix(img, pngSignature) {
		t.Fatal("Expected PNG output")
	}
	if _, err := png.Decode(bytes.NewReader(img)); err != nil {
		t.Errorf("Failed to decode rendered chart: %v", err)
	}
	if series[0].Year != 2022 {
		t.Error("Rendering must not reorder the caller's series")
	}
}

func TestRenderGrowthSeriesEmpty(t *testing.T) {
	if _, err := NewChartRenderer().RenderGrowthSeries("Testland", nil); err == nil {
		t.Error("Expected an error for an empty series")
	}

	missing := []entities.GrowthPoint{{Year: 2022, Missing: true}, {Year: 1970, Missing: true}}
	if _, err := NewChartRenderer().RenderGrowthSeries("Testland", missing); err == nil {
		t.Error("Expected an error when every point is missing")
	}
}

func TestRenderGrowthSeriesSkipsMissingPoints(t *testing.T) {
	series := []entities.GrowthPoint{
		{Year: 2022, Population: 5000},
		{Year: 2020, Population: 4900},
		{Year: 1970, Missing: true},
	}

	img, err := NewChartRenderer().RenderGrowthSeries("Newland", series)
	if err != nil {
		t.Fatalf("Failed to render growth chart: %v", err)
	}
	if !bytes.HasPrefix(img, pngSignature) {
		t.Error("Expected PNG output")
	}
}

func TestRenderProjection(t *testing.T) {
	projection := entities.Projection{
		Country:             "Testland",
		CurrentYear:         2022,
		CurrentPopulation:   1000,
		TargetYear:          2050,
		ProjectedPopulation: 1741,
		Delta:               741,
		RelativeDelta:       0.741,
	}

	img, err := NewChartRenderer().RenderProjection(projection)
	if err != nil {
		t.Fatalf("Failed to render projection chart: %v", err)
	}
	if !bytes.HasPrefix(img, pngSignature) {
		t.Error("Expected PNG output")
	}
}
