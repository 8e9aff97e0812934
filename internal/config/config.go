// Package config loads application settings from the environment
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"unicode/utf8"

	"github.com/abelzeko/population-bot/internal/repository"
	"github.com/abelzeko/population-bot/internal/usecases"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every setting shared by the commands
type Config struct {
	DatasetSource     string   `env:"POPULATION_DATASET" envDefault:"population.csv"`
	CSVDelimiter      string   `env:"DATASET_CSV_DELIMITER" envDefault:","`
	TargetYear        int      `env:"PROJECTION_TARGET_YEAR" envDefault:"2050"`
	HorizonBase       string   `env:"PROJECTION_HORIZON_BASE" envDefault:"latest"`
	RepositoryBackend string   `env:"REPOSITORY_BACKEND" envDefault:"memory"`
	TelegramBotToken  string   `env:"TELEGRAM_BOT_TOKEN"`
	OpenAIAPIKey      string   `env:"OPENAI_API_KEY"`
	HTTPAddr          string   `env:"DASHBOARD_HTTP_ADDR" envDefault:"localhost:8050"`
	ExportDir         string   `env:"EXPORT_DIR" envDefault:"reports"`
	ExportSchedule    string   `env:"EXPORT_SCHEDULE"`
	ExportCharts      []string `env:"EXPORT_CHARTS" envSeparator:","`
}

// Load reads an optional .env file and parses the environment
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load env file: %w", err)
	} else if err == nil {
		log.Println("Loaded environment from env file")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values env tags cannot express
func (c Config) Validate() error {
	if c.DatasetSource == "" {
		return errors.New("POPULATION_DATASET must not be empty")
	}
	if utf8.RuneCountInString(c.CSVDelimiter) != 1 {
		return fmt.Errorf("DATASET_CSV_DELIMITER must be a single character, got %q", c.CSVDelimiter)
	}
	if c.TargetYear <= 0 {
		return fmt.Errorf("PROJECTION_TARGET_YEAR must be positive, got %d", c.TargetYear)
	}
	if _, err := usecases.ParseHorizonBase(c.HorizonBase); err != nil {
		return fmt.Errorf("PROJECTION_HORIZON_BASE: %w", err)
	}
	switch c.RepositoryBackend {
	case repository.BackendMemory, repository.BackendSQLite:
	default:
		return fmt.Errorf("REPOSITORY_BACKEND must be %q or %q, got %q", repository.BackendMemory, repository.BackendSQLite, c.RepositoryBackend)
	}
	return nil
}

// Delimiter returns the CSV delimiter as a rune
func (c Config) Delimiter() rune {
	r, _ := utf8.DecodeRuneInString(c.CSVDelimiter)
	return r
}

// ProjectionOptions converts the projection settings for the use case
func (c Config) ProjectionOptions() usecases.ProjectionOptions {
	base, _ := usecases.ParseHorizonBase(c.HorizonBase)
	return usecases.ProjectionOptions{TargetYear: c.TargetYear, HorizonBase: base}
}
