package usecases

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/abelzeko/population-bot/internal/entities"
)

// DefaultTargetYear is the year projections run to unless configured otherwise
const DefaultTargetYear = 2050

// HorizonBase selects the year the projection horizon is measured from
type HorizonBase string

const (
	// HorizonFromLatest measures from the most recent year of the year list
	HorizonFromLatest HorizonBase = "latest"
	// HorizonFromEarliest measures from the oldest year of the year list
	HorizonFromEarliest HorizonBase = "earliest"
)

// ProjectionOptions configures the growth projection estimator
type ProjectionOptions struct {
	TargetYear  int
	HorizonBase HorizonBase
}

// withDefaults fills unset fields
func (o ProjectionOptions) withDefaults() ProjectionOptions {
	if o.TargetYear == 0 {
		o.TargetYear = DefaultTargetYear
	}
	if o.HorizonBase == "" {
		o.HorizonBase = HorizonFromLatest
	}
	return o
}

// ParseHorizonBase validates a configured horizon base
func ParseHorizonBase(s string) (HorizonBase, error) {
	switch base := HorizonBase(strings.ToLower(strings.TrimSpace(s))); base {
	case "", HorizonFromLatest:
		return HorizonFromLatest, nil
	case HorizonFromEarliest:
		return base, nil
	default:
		return "", fmt.Errorf("unknown horizon base %q, expected %q or %q", s, HorizonFromLatest, HorizonFromEarliest)
	}
}

// ParseGrowthRate converts a percentage such as "1.52%" into a fraction (0.0152)
func ParseGrowthRate(raw string) (float64, error) {
	value := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "%"))
	if value == "" {
		return 0, errors.New("empty growth rate")
	}
	rate, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return 0, fmt.Errorf("growth rate %v is not a finite number", rate)
	}
	return rate / 100, nil
}

// ProjectGrowth compounds the record's single growth rate from the current population to the target year
func ProjectGrowth(record entities.PopulationRecord, years []int, opts ProjectionOptions) (entities.Projection, error) {
	opts = opts.withDefaults()

	rate, err := ParseGrowthRate(record.GrowthRate)
	if err != nil {
		return entities.Projection{}, &entities.ParseError{
			Country: record.Country,
			Field:   "growth rate",
			Value:   record.GrowthRate,
			Err:     err,
		}
	}
	if len(years) == 0 {
		return entities.Projection{}, fmt.Errorf("cannot project %s without population years", record.Country)
	}

	currentYear := years[0]
	baseYear := currentYear
	if opts.HorizonBase == HorizonFromEarliest {
		baseYear = years[len(years)-1]
	}
	current, ok := record.Population(currentYear)
	if !ok {
		return entities.Projection{}, &entities.ParseError{
			Country: record.Country,
			Field:   entities.YearLabel(currentYear),
			Err:     errors.New("no value in the dataset"),
		}
	}
	horizon := opts.TargetYear - baseYear

	projected := float64(current) * math.Pow(1+rate, float64(horizon))
	delta := projected - float64(current)

	var relative float64
	if current != 0 {
		relative = delta / float64(current)
	}

	return entities.Projection{
		Country:             record.Country,
		GrowthRate:          rate,
		CurrentYear:         currentYear,
		CurrentPopulation:   current,
		TargetYear:          opts.TargetYear,
		HorizonYears:        horizon,
		ProjectedPopulation: projected,
		Delta:               delta,
		RelativeDelta:       relative,
	}, nil
}
