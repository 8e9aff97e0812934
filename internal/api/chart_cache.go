package api

import (
	"log"
	"sync"

	"github.com/abelzeko/population-bot/internal/integration"
	"github.com/abelzeko/population-bot/internal/usecases"
)

// Chart kinds served by the bot and the dashboard
const (
	ChartGrowth     = "growth"
	ChartProjection = "projection"
)

// ChartCache keeps rendered PNG charts per country and chart kind
type ChartCache struct {
	useCase  *usecases.PopulationUseCase
	renderer *integration.ChartRenderer
	charts   map[string][]byte
	mutex    sync.RWMutex
}

// NewChartCache creates an empty chart cache
func NewChartCache(useCase *usecases.PopulationUseCase, renderer *integration.ChartRenderer) *ChartCache {
	return &ChartCache{
		useCase:  useCase,
		renderer: renderer,
		charts:   make(map[string][]byte),
	}
}

// GrowthChart returns the historical population chart of a country
func (c *ChartCache) GrowthChart(country string) ([]byte, error) {
	return c.get(ChartGrowth, country, func() ([]byte, error) {
		series, err := c.useCase.GetGrowthSeries(country)
		if err != nil {
			return nil, err
		}
		return c.renderer.RenderGrowthSeries(country, series)
	})
}

// ProjectionChart returns the current vs projected population chart of a country
func (c *ChartCache) ProjectionChart(country string) ([]byte, error) {
	return c.get(ChartProjection, country, func() ([]byte, error) {
		projection, err := c.useCase.GetGrowthProjection(country)
		if err != nil {
			return nil, err
		}
		return c.renderer.RenderProjection(projection)
	})
}

// Chart dispatches on the chart kind; unknown kinds return ok=false
func (c *ChartCache) Chart(kind, country string) (img []byte, ok bool, err error) {
	switch kind {
	case ChartGrowth:
		img, err = c.GrowthChart(country)
	case ChartProjection:
		img, err = c.ProjectionChart(country)
	default:
		return nil, false, nil
	}
	return img, true, err
}

// Len returns the number of cached charts
func (c *ChartCache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.charts)
}

// get returns the cached chart or renders and stores it; failures are not cached
func (c *ChartCache) get(kind, country string, render func() ([]byte, error)) ([]byte, error) {
	key := kind + "/" + country

	c.mutex.RLock()
	img, found := c.charts[key]
	c.mutex.RUnlock()
	if found {
		return img, nil
	}

	log.Printf("Rendering %s chart for %s", kind, country)
	img, err := render()
	if err != nil {
		return nil, err
	}

	c.mutex.Lock()
	c.charts[key] = img
	c.mutex.Unlock()
	return img, nil
}
