package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abelzeko/population-bot/internal/api"
	"github.com/abelzeko/population-bot/internal/app"
	"github.com/abelzeko/population-bot/internal/config"
	"github.com/abelzeko/population-bot/internal/integration"
)

func main() {
	app.ConfigureLogging()
	log.Println("Starting Population Dashboard...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	application, err := app.New(cfg, false)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer application.Close()

	charts := api.NewChartCache(application.UseCase, integration.NewChartRenderer())
	server := api.NewWebDashboard(application.UseCase, charts).NewServer(cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Dashboard listening on http://%s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Dashboard server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down dashboard...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down dashboard: %v", err)
	}
}
