package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/abelzeko/population-bot/internal/app"
	"github.com/abelzeko/population-bot/internal/config"
	"github.com/abelzeko/population-bot/internal/entities"
	"github.com/abelzeko/population-bot/internal/integration"
	"github.com/abelzeko/population-bot/internal/usecases"
	"github.com/robfig/cron/v3"
)

func main() {
	app.ConfigureLogging()
	log.Println("Starting Population Exporter...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	application, err := app.New(cfg, false)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer application.Close()

	exporter := &exporter{
		useCase:  application.UseCase,
		writer:   integration.NewReportWriter(),
		renderer: integration.NewChartRenderer(),
		dir:      cfg.ExportDir,
		charts:   cfg.ExportCharts,
	}

	// Run the export immediately on startup
	if _, err := exporter.run(time.Now()); err != nil {
		log.Printf("Initial export failed: %v", err)
	}

	if cfg.ExportSchedule == "" {
		log.Println("EXPORT_SCHEDULE is not set, exiting after a single export")
		return
	}

	c := cron.New()
	_, err = c.AddFunc(cfg.ExportSchedule, func() {
		if _, err := exporter.run(time.Now()); err != nil {
			log.Printf("Scheduled export failed: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("Failed to set up cron job: %v", err)
	}

	log.Printf("Exporter has been scheduled with '%s'", cfg.ExportSchedule)
	c.Start()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Println("Waiting for running exports to finish...")
	<-c.Stop().Done()
}

// exporter writes the workbook of every country plus optional chart images
type exporter struct {
	useCase  *usecases.PopulationUseCase
	writer   *integration.ReportWriter
	renderer *integration.ChartRenderer
	dir      string
	charts   []string
}

// run performs one export and returns the path of the written workbook
func (e *exporter) run(now time.Time) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	countries, err := e.useCase.GetAvailableCountries()
	if err != nil {
		return "", fmt.Errorf("failed to get countries: %w", err)
	}
	years, err := e.useCase.GetYears()
	if err != nil {
		return "", fmt.Errorf("failed to get years: %w", err)
	}

	views := make([]entities.DashboardView, 0, len(countries))
	for _, country := range countries {
		views = append(views, e.useCase.RefreshDashboard(country))
	}

	stamp := now.Format("20060102-150405")
	path := filepath.Join(e.dir, fmt.Sprintf("population-%s.xlsx", stamp))
	if err := e.writer.WriteReport(path, years, e.useCase.TargetYear(), views); err != nil {
		return "", err
	}

	for _, name := range e.charts {
		if err := e.writeCharts(strings.TrimSpace(name), stamp); err != nil {
			log.Printf("Skipping charts for %s: %v", name, err)
		}
	}
	return path, nil
}

func (e *exporter) writeCharts(name, stamp string) error {
	country, err := e.useCase.ResolveCountryName(name)
	if err != nil {
		return err
	}
	view := e.useCase.RefreshDashboard(country)
	slug := strings.ReplaceAll(strings.ToLower(country), " ", "-")

	if view.SeriesErr == nil {
		img, err := e.renderer.RenderGrowthSeries(country, view.Series)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(e.dir, fmt.Sprintf("%s-growth-%s.png", slug, stamp)), img, 0o644); err != nil {
			return fmt.Errorf("failed to write growth chart: %w", err)
		}
	}
	if view.ProjectionErr == nil {
		img, err := e.renderer.RenderProjection(view.Projection)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(e.dir, fmt.Sprintf("%s-projection-%s.png", slug, stamp)), img, 0o644); err != nil {
			return fmt.Errorf("failed to write projection chart: %w", err)
		}
	}
	return nil
}
