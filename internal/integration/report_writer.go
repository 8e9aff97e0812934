package integration

import (
	"fmt"
	"log"
	"math"

	"github.com/abelzeko/population-bot/internal/entities"
	"github.com/xuri/excelize/v2"
)

// Report sheet names
const (
	SheetCountries  = "Countries"
	SheetGrowth     = "Growth"
	SheetProjection = "Projection"
)

// ReportWriter exports dashboard views into an XLSX workbook
type ReportWriter struct{}

// NewReportWriter creates a report writer
func NewReportWriter() *ReportWriter {
	return &ReportWriter{}
}

// WriteReport writes one row per view to each sheet and saves the workbook at path
func (rw *ReportWriter) WriteReport(path string, years []int, targetYear int, views []entities.DashboardView) error {
	f, err := rw.Build(years, targetYear, views)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save report %s: %w", path, err)
	}
	log.Printf("Report saved: %s (%d countries)", path, len(views))
	return nil
}

// Build assembles the workbook in memory
func (rw *ReportWriter) Build(years []int, targetYear int, views []entities.DashboardView) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", SheetCountries); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, sheet := range []string{SheetGrowth, SheetProjection} {
		if _, err := f.NewSheet(sheet); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create sheet %s: %w", sheet, err)
		}
	}

	countryHeaders := []interface{}{"Country", "Capital", "Density (per km²)", "Area (km²)", "World Population Percentage", "Error"}
	growthHeaders := []interface{}{"Country"}
	for _, year := range years {
		growthHeaders = append(growthHeaders, entities.YearLabel(year))
	}
	growthHeaders = append(growthHeaders, "Error")
	projectionHeaders := []interface{}{"Country", "Growth Rate (%)", "Current Year", "Current Population",
		fmt.Sprintf("Projected %d", targetYear), "Delta", "Relative Delta (%)", "Horizon (years)", "Error"}

	rows := map[string][][]interface{}{
		SheetCountries:  {countryHeaders},
		SheetGrowth:     {growthHeaders},
		SheetProjection: {projectionHeaders},
	}

	for _, view := range views {
		if view.InfoErr != nil {
			rows[SheetCountries] = append(rows[SheetCountries], []interface{}{view.Country, "", "", "", "", view.InfoErr.Error()})
		} else {
			rows[SheetCountries] = append(rows[SheetCountries], []interface{}{view.Country, view.Info.Capital,
				measureCell(view.Info.Density), measureCell(view.Info.Area), measureCell(view.Info.WorldPopulationPercentage), ""})
		}

		growthRow := []interface{}{view.Country}
		if view.SeriesErr != nil {
			for range years {
				growthRow = append(growthRow, "")
			}
			growthRow = append(growthRow, view.SeriesErr.Error())
		} else {
			populations := make(map[int]int64, len(view.Series))
			for _, point := range view.Series {
				if !point.Missing {
					populations[point.Year] = point.Population
				}
			}
			for _, year := range years {
				if population, ok := populations[year]; ok {
					growthRow = append(growthRow, population)
				} else {
					growthRow = append(growthRow, "")
				}
			}
			growthRow = append(growthRow, "")
		}
		rows[SheetGrowth] = append(rows[SheetGrowth], growthRow)

		if view.ProjectionErr != nil {
			rows[SheetProjection] = append(rows[SheetProjection], []interface{}{view.Country, "", "", "", "", "", "", "", view.ProjectionErr.Error()})
		} else {
			p := view.Projection
			rows[SheetProjection] = append(rows[SheetProjection], []interface{}{view.Country, p.GrowthRate * 100,
				p.CurrentYear, p.CurrentPopulation, p.ProjectedPopulation, p.Delta, p.RelativeDelta * 100, p.HorizonYears, ""})
		}
	}

	for sheet, sheetRows := range rows {
		for i, row := range sheetRows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to address %s row %d: %w", sheet, i+1, err)
			}
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
			}
		}
		lastCol, err := excelize.ColumnNumberToName(len(sheetRows[0]))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to name last column of %s: %w", sheet, err)
		}
		if err := f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width of %s: %w", sheet, err)
		}
	}

	return f, nil
}

// measureCell leaves missing measures blank
func measureCell(value float64) interface{} {
	if math.IsNaN(value) {
		return ""
	}
	return value
}
