package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/abelzeko/population-bot/internal/api"
	"github.com/abelzeko/population-bot/internal/app"
	"github.com/abelzeko/population-bot/internal/config"
	"github.com/abelzeko/population-bot/internal/integration"
)

func main() {
	app.ConfigureLogging()
	log.Println("Starting Population Bot...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.TelegramBotToken == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN environment variable is not set")
	}

	application, err := app.New(cfg, true)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer application.Close()

	charts := api.NewChartCache(application.UseCase, integration.NewChartRenderer())

	telegramBot, err := api.NewTelegramBot(cfg.TelegramBotToken, application.UseCase, charts)
	if err != nil {
		log.Fatalf("Failed to initialize Telegram bot: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telegramBot.Start(ctx)
}
