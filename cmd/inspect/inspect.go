// Command inspect dumps the dashboard views of one country for debugging
package main

import (
	"log"
	"os"
	"strings"

	"github.com/abelzeko/population-bot/internal/app"
	"github.com/abelzeko/population-bot/internal/config"
	"github.com/davecgh/go-spew/spew"
)

func main() {
	app.ConfigureLogging()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	application, err := app.New(cfg, false)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer application.Close()

	country := strings.Join(os.Args[1:], " ")
	if country == "" {
		country, err = application.UseCase.DefaultCountry()
		if err != nil {
			log.Fatalf("Failed to get default country: %v", err)
		}
		if country == "" {
			log.Println("The dataset is empty")
			return
		}
	} else if resolved, err := application.UseCase.ResolveCountryName(country); err == nil {
		country = resolved
	}

	view := application.UseCase.RefreshDashboard(country)
	spew.Config.Indent = "  "
	spew.Config.SortKeys = true
	spew.Dump(view)
}
