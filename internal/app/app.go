// Package app wires the dataset, repository and use case shared by the commands
package app

import (
	"fmt"
	"log"
	"os"

	"github.com/abelzeko/population-bot/internal/config"
	"github.com/abelzeko/population-bot/internal/integration"
	"github.com/abelzeko/population-bot/internal/integration/openai"
	"github.com/abelzeko/population-bot/internal/repository"
	"github.com/abelzeko/population-bot/internal/usecases"
)

// App holds the components built from the configuration
type App struct {
	Config  config.Config
	Repo    repository.PopulationRepository
	UseCase *usecases.PopulationUseCase
}

// ConfigureLogging sets the log format used by every command
func ConfigureLogging() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
}

// New loads the dataset once and builds the repository and use case.
// The OpenAI interpreter is enabled only when withInterpreter is set and an API key is configured.
func New(cfg config.Config, withInterpreter bool) (*App, error) {
	loader := integration.NewDatasetLoader(cfg.Delimiter())
	ds, err := loader.Load(cfg.DatasetSource)
	if err != nil {
		return nil, err
	}
	log.Printf("Loaded %d countries and %d years from %s", ds.Len(), len(ds.Years), cfg.DatasetSource)

	repo, err := repository.New(cfg.RepositoryBackend, ds)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize repository: %w", err)
	}

	var interpreter openai.CountryInterpreter
	if withInterpreter {
		if cfg.OpenAIAPIKey == "" {
			log.Println("OPENAI_API_KEY is not set, free text is matched against country names only")
		} else {
			interpreter, err = openai.NewOpenAIService(cfg.OpenAIAPIKey)
			if err != nil {
				repo.Close()
				return nil, fmt.Errorf("failed to initialize OpenAI service: %w", err)
			}
		}
	}

	return &App{
		Config:  cfg,
		Repo:    repo,
		UseCase: usecases.NewPopulationUseCase(repo, interpreter, cfg.ProjectionOptions()),
	}, nil
}

// Close releases the repository
func (a *App) Close() error {
	return a.Repo.Close()
}
