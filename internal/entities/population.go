// Package entities contains the core domain objects for the population-bot application
package entities

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"strconv"
	"strings"
)

// populationLabelSuffix is appended to a year to form its column label, e.g. "2022 Population"
const populationLabelSuffix = " Population"

// PopulationRecord represents one country row of the dataset.
// Measures whose source cell is empty or unreadable are NaN; such years are absent from Populations.
type PopulationRecord struct {
	Country                   string        // Country name, the lookup key
	Capital                   string        // Capital city
	Code                      string        // ISO alpha-3 code, empty when the source has none
	Continent                 string        // Continent, empty when the source has none
	Rank                      int           // Population rank, 0 when the source has none
	Density                   float64       // Inhabitants per km²
	Area                      float64       // Area in km²
	WorldPopulationPercentage float64       // Share of the world population in percent
	GrowthRate                string        // Raw growth rate text, e.g. "1.52%"
	Populations               map[int]int64 // Historical population counts keyed by year
}

// Clone returns a copy that shares no mutable state with r
func (r PopulationRecord) Clone() PopulationRecord {
	r.Populations = maps.Clone(r.Populations)
	return r
}

// Population returns the count for year and whether the source had one
func (r PopulationRecord) Population(year int) (int64, bool) {
	population, ok := r.Populations[year]
	return population, ok
}

// Dataset is the immutable in-memory table loaded at startup
type Dataset struct {
	Records []PopulationRecord
	Years   []int // Year list in column declaration order, most recent first in the reference data
}

// Len returns the number of records
func (d Dataset) Len() int {
	return len(d.Records)
}

// CountryInfo is the descriptive attribute set shown for a selected country
type CountryInfo struct {
	Country                   string  `json:"country"`
	Capital                   string  `json:"capital"`
	Density                   float64 `json:"density"`
	Area                      float64 `json:"area"`
	WorldPopulationPercentage float64 `json:"world_population_percentage"`
}

// MarshalJSON writes missing measures as null
func (i CountryInfo) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Country                   string   `json:"country"`
		Capital                   string   `json:"capital"`
		Density                   *float64 `json:"density"`
		Area                      *float64 `json:"area"`
		WorldPopulationPercentage *float64 `json:"world_population_percentage"`
	}{
		Country:                   i.Country,
		Capital:                   i.Capital,
		Density:                   measure(i.Density),
		Area:                      measure(i.Area),
		WorldPopulationPercentage: measure(i.WorldPopulationPercentage),
	})
}

// UnmarshalJSON reads null measures back as NaN
func (i *CountryInfo) UnmarshalJSON(data []byte) error {
	var raw struct {
		Country                   string   `json:"country"`
		Capital                   string   `json:"capital"`
		Density                   *float64 `json:"density"`
		Area                      *float64 `json:"area"`
		WorldPopulationPercentage *float64 `json:"world_population_percentage"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*i = CountryInfo{
		Country:                   raw.Country,
		Capital:                   raw.Capital,
		Density:                   valueOrNaN(raw.Density),
		Area:                      valueOrNaN(raw.Area),
		WorldPopulationPercentage: valueOrNaN(raw.WorldPopulationPercentage),
	}
	return nil
}

func measure(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func valueOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// GrowthPoint is a single (year, population) pair of the historical series
type GrowthPoint struct {
	Year       int   `json:"year"`
	Population int64 `json:"population"`
	Missing    bool  `json:"missing,omitempty"` // No readable value in the source for this year
}

// Projection is the compound growth estimate of a country's population at a target year
type Projection struct {
	Country             string  `json:"country"`
	GrowthRate          float64 `json:"growth_rate"` // Fractional rate, 0.02 for "2.00%"
	CurrentYear         int     `json:"current_year"`
	CurrentPopulation   int64   `json:"current_population"`
	TargetYear          int     `json:"target_year"`
	HorizonYears        int     `json:"horizon_years"`
	ProjectedPopulation float64 `json:"projected_population"`
	Delta               float64 `json:"delta"`          // ProjectedPopulation - CurrentPopulation
	RelativeDelta       float64 `json:"relative_delta"` // Delta / CurrentPopulation, 0 when there is no current population
}

// DashboardView bundles the three views of a selection; each view fails independently
type DashboardView struct {
	Country       string
	Info          CountryInfo
	InfoErr       error
	Series        []GrowthPoint
	SeriesErr     error
	Projection    Projection
	ProjectionErr error
}

// YearLabel returns the dataset column label for a year
func YearLabel(year int) string {
	return strconv.Itoa(year) + populationLabelSuffix
}

// IsPopulationLabel reports whether a column label names a historical population column
func IsPopulationLabel(label string) bool {
	return strings.HasSuffix(strings.TrimSpace(label), populationLabelSuffix)
}

// ParseYearLabel extracts the year from a label of the form "<year> Population"
func ParseYearLabel(label string) (int, error) {
	label = strings.TrimSpace(label)
	if !strings.HasSuffix(label, populationLabelSuffix) {
		return 0, fmt.Errorf("label %q does not end with %q", label, populationLabelSuffix)
	}
	year, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(label, populationLabelSuffix)))
	if err != nil {
		return 0, fmt.Errorf("label %q has no integer year: %w", label, err)
	}
	return year, nil
}
