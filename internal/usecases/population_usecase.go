// Package usecases contains the application's business logic
package usecases

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/abelzeko/population-bot/internal/entities"
	"github.com/abelzeko/population-bot/internal/integration/openai"
	"github.com/abelzeko/population-bot/internal/repository"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PopulationUseCase handles the selection-driven views over the population dataset
type PopulationUseCase struct {
	repo        repository.PopulationRepository
	interpreter openai.CountryInterpreter
	projection  ProjectionOptions
	printer     *message.Printer
}

// NewPopulationUseCase creates a new population use case; interpreter may be nil
func NewPopulationUseCase(repo repository.PopulationRepository, interpreter openai.CountryInterpreter, projection ProjectionOptions) *PopulationUseCase {
	return &PopulationUseCase{
		repo:        repo,
		interpreter: interpreter,
		projection:  projection.withDefaults(),
		printer:     message.NewPrinter(language.English),
	}
}

// TargetYear returns the configured projection target year
func (uc *PopulationUseCase) TargetYear() int {
	return uc.projection.TargetYear
}

// GetAvailableCountries returns the country directory in first-seen order
func (uc *PopulationUseCase) GetAvailableCountries() ([]string, error) {
	log.Println("Retrieving list of available countries")
	return uc.repo.GetCountries()
}

// DefaultCountry returns the initial selection, or "" for an empty dataset
func (uc *PopulationUseCase) DefaultCountry() (string, error) {
	countries, err := uc.repo.GetCountries()
	if err != nil {
		return "", fmt.Errorf("failed to get countries: %w", err)
	}
	if len(countries) == 0 {
		return "", nil
	}
	return countries[0], nil
}

// GetYears returns the year list
func (uc *PopulationUseCase) GetYears() ([]int, error) {
	return uc.repo.GetYears()
}

// GetCountryInfo projects the descriptive attributes of a country
func (uc *PopulationUseCase) GetCountryInfo(country string) (entities.CountryInfo, error) {
	log.Printf("Retrieving info for country: %s", country)
	record, err := uc.repo.GetRecordByCountry(country)
	if err != nil {
		return entities.CountryInfo{}, err
	}

	return entities.CountryInfo{
		Country:                   record.Country,
		Capital:                   record.Capital,
		Density:                   record.Density,
		Area:                      record.Area,
		WorldPopulationPercentage: record.WorldPopulationPercentage,
	}, nil
}

// GetGrowthSeries returns one point per year of the year list, in year list order
func (uc *PopulationUseCase) GetGrowthSeries(country string) ([]entities.GrowthPoint, error) {
	log.Printf("Retrieving growth series for country: %s", country)
	record, err := uc.repo.GetRecordByCountry(country)
	if err != nil {
		return nil, err
	}
	years, err := uc.repo.GetYears()
	if err != nil {
		return nil, fmt.Errorf("failed to get years: %w", err)
	}

	series := make([]entities.GrowthPoint, 0, len(years))
	for _, year := range years {
		population, ok := record.Population(year)
		series = append(series, entities.GrowthPoint{Year: year, Population: population, Missing: !ok})
	}
	return series, nil
}

// GetGrowthProjection estimates the country's population at the configured target year
func (uc *PopulationUseCase) GetGrowthProjection(country string) (entities.Projection, error) {
	log.Printf("Estimating growth projection for country: %s", country)
	record, err := uc.repo.GetRecordByCountry(country)
	if err != nil {
		return entities.Projection{}, err
	}
	years, err := uc.repo.GetYears()
	if err != nil {
		return entities.Projection{}, fmt.Errorf("failed to get years: %w", err)
	}
	return ProjectGrowth(record, years, uc.projection)
}

// RefreshDashboard recomputes all three views for a selection; each view keeps its own error
func (uc *PopulationUseCase) RefreshDashboard(country string) entities.DashboardView {
	view := entities.DashboardView{Country: country}
	view.Info, view.InfoErr = uc.GetCountryInfo(country)
	view.Series, view.SeriesErr = uc.GetGrowthSeries(country)
	view.Projection, view.ProjectionErr = uc.GetGrowthProjection(country)
	return view
}

// ResolveCountryName maps user input onto a directory entry, exact match first, then case-insensitive
func (uc *PopulationUseCase) ResolveCountryName(input string) (string, error) {
	name := strings.TrimSpace(input)
	if name == "" {
		return "", &entities.NotFoundError{Country: input}
	}

	countries, err := uc.repo.GetCountries()
	if err != nil {
		return "", fmt.Errorf("failed to get countries: %w", err)
	}

	for _, country := range countries {
		if country == name {
			return country, nil
		}
	}
	for _, country := range countries {
		if strings.EqualFold(country, name) {
			return country, nil
		}
	}
	return "", &entities.NotFoundError{Country: name}
}

// HandleNaturalLanguageQuery interprets a user's free-text query and returns an appropriate response string.
// Without an interpreter the text is treated as a country name.
func (uc *PopulationUseCase) HandleNaturalLanguageQuery(ctx context.Context, query string) (string, error) {
	log.Printf("Interpreting natural language query: %s", query)

	if uc.interpreter == nil {
		country, err := uc.ResolveCountryName(query)
		if err != nil {
			var notFound *entities.NotFoundError
			if errors.As(err, &notFound) {
				return "I don't understand. Use /countries to see the available countries or /help for commands.", nil
			}
			return "", err
		}
		return uc.FormatDashboard(uc.RefreshDashboard(country)), nil
	}

	countries, err := uc.GetAvailableCountries()
	if err != nil {
		log.Printf("Error fetching available countries: %v", err)
		return "Sorry, I couldn't fetch the list of countries right now.", nil
	}

	agentResp, err := uc.interpreter.InterpretUserQuery(ctx, query, countries)
	if err != nil {
		log.Printf("Error interpreting user query via OpenAI: %v", err)
		return "Sorry, I'm having trouble understanding right now. Please try again later or use /help.", nil
	}

	log.Printf("Agent response: Command='%s', Country='%s', Message='%s'",
		agentResp.CommandName, agentResp.CountryName, agentResp.UserMessage)

	var render func(country string) string
	switch agentResp.CommandName {
	case openai.CommandCountryInfo:
		render = func(country string) string {
			info, err := uc.GetCountryInfo(country)
			return uc.formatOrError(uc.FormatCountryInfo(info), err)
		}
	case openai.CommandGrowth:
		render = func(country string) string {
			series, err := uc.GetGrowthSeries(country)
			return uc.formatOrError(uc.FormatGrowthSeries(country, series), err)
		}
	case openai.CommandProjection:
		render = func(country string) string {
			projection, err := uc.GetGrowthProjection(country)
			return uc.formatOrError(uc.FormatProjection(projection), err)
		}
	case openai.CommandGeneral:
		log.Printf("Agent identified general query.")
		return agentResp.UserMessage, nil
	default:
		log.Printf("Agent returned unexpected command: %s", agentResp.CommandName)
		return "I'm not sure how to respond to that. You can use /help for commands.", nil
	}

	msg := agentResp.UserMessage
	if msg != "" {
		msg += "\n\n"
	}

	if agentResp.CountryName == "" {
		log.Printf("Agent identified intent %s but no specific country.", agentResp.CommandName)
		return msg + "Which country? Use /countries to see the available ones.", nil
	}

	country, err := uc.ResolveCountryName(agentResp.CountryName)
	if err != nil {
		return msg + fmt.Sprintf("However, I couldn't find any information for country '%s'. Use /countries to see available ones.", agentResp.CountryName), nil
	}
	return msg + render(country), nil
}

// formatOrError returns formatted when err is nil, otherwise a user-facing description of err
func (uc *PopulationUseCase) formatOrError(formatted string, err error) string {
	if err == nil {
		return formatted
	}
	return DescribeError(err)
}

// DescribeError turns a view error into a message suitable for end users
func DescribeError(err error) string {
	var (
		notFound *entities.NotFoundError
		parseErr *entities.ParseError
	)
	switch {
	case errors.As(err, &notFound):
		return fmt.Sprintf("No information found for country '%s'. Use /countries to see the available countries.", notFound.Country)
	case errors.As(err, &parseErr) && parseErr.Value == "":
		return fmt.Sprintf("The %s of %s is missing, so no projection is available.", parseErr.Field, parseErr.Country)
	case errors.As(err, &parseErr):
		return fmt.Sprintf("The %s of %s (%q) is not a valid percentage, so no projection is available.", parseErr.Field, parseErr.Country, parseErr.Value)
	default:
		return "Error fetching population data. Please try again later."
	}
}

// FormatCountryInfo formats the info view for display
func (uc *PopulationUseCase) FormatCountryInfo(info entities.CountryInfo) string {
	var result strings.Builder
	result.WriteString(fmt.Sprintf("Information for %s:\n\n", info.Country))
	result.WriteString(fmt.Sprintf("🏛 Capital: %s\n", info.Capital))
	result.WriteString(fmt.Sprintf("👥 Density: %s per km²\n", uc.FormatMeasure("%.1f", info.Density)))
	result.WriteString(fmt.Sprintf("🗺 Area: %s km²\n", uc.FormatMeasure("%.0f", info.Area)))
	result.WriteString(fmt.Sprintf("🌍 World population: %s%%", uc.FormatMeasure("%.2f", info.WorldPopulationPercentage)))
	return result.String()
}

// FormatGrowthSeries formats the historical series, most recent year first
func (uc *PopulationUseCase) FormatGrowthSeries(country string, series []entities.GrowthPoint) string {
	if len(series) == 0 {
		return fmt.Sprintf("No population history available for %s.", country)
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Population of %s:\n\n", country))
	for _, point := range series {
		if point.Missing {
			result.WriteString(fmt.Sprintf("📅 %d: %s\n", point.Year, notAvailable))
			continue
		}
		result.WriteString(fmt.Sprintf("📅 %d: %s\n", point.Year, uc.printer.Sprintf("%d", point.Population)))
	}
	return strings.TrimRight(result.String(), "\n")
}

// FormatProjection formats the current vs projected indicator with its relative delta
func (uc *PopulationUseCase) FormatProjection(p entities.Projection) string {
	var result strings.Builder
	result.WriteString(fmt.Sprintf("Expected growth of %s until %d:\n\n", p.Country, p.TargetYear))
	result.WriteString(fmt.Sprintf("👥 %s people in %d\n", uc.printer.Sprintf("%d", p.CurrentPopulation), p.CurrentYear))
	result.WriteString(fmt.Sprintf("📈 %s people expected in %d\n", uc.FormatNumber(p.ProjectedPopulation), p.TargetYear))
	result.WriteString(fmt.Sprintf("Δ %s (%+.1f%%) at %.2f%% a year over %d years",
		uc.printer.Sprintf("%+.0f", p.Delta), p.RelativeDelta*100, p.GrowthRate*100, p.HorizonYears))
	return result.String()
}

// FormatDashboard formats every view of a dashboard refresh, describing failed views in place
func (uc *PopulationUseCase) FormatDashboard(view entities.DashboardView) string {
	var notFound *entities.NotFoundError
	if errors.As(view.InfoErr, &notFound) {
		return DescribeError(view.InfoErr)
	}

	sections := []string{
		uc.formatOrError(uc.FormatCountryInfo(view.Info), view.InfoErr),
		uc.formatOrError(uc.FormatGrowthSeries(view.Country, view.Series), view.SeriesErr),
		uc.formatOrError(uc.FormatProjection(view.Projection), view.ProjectionErr),
	}
	return strings.Join(sections, "\n\n")
}

// FormatNumber groups digits the way the bot and dashboard display them
func (uc *PopulationUseCase) FormatNumber(value float64) string {
	return uc.FormatMeasure("%.0f", value)
}

// notAvailable stands in for values the dataset does not have
const notAvailable = "n/a"

// FormatMeasure formats value with format, or "n/a" when the dataset has no value
func (uc *PopulationUseCase) FormatMeasure(format string, value float64) string {
	if math.IsNaN(value) {
		return notAvailable
	}
	return uc.printer.Sprintf(format, value)
}
