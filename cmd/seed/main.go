package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Baaaki/travel-log/internal/config"
	"github.com/Baaaki/travel-log/internal/database"
	"github.com/Baaaki/travel-log/internal/external"
	"github.com/Baaaki/travel-log/internal/metrics"
	"github.com/Baaaki/travel-log/internal/repository"
	"github.com/Baaaki/travel-log/internal/service"
	"github.com/Baaaki/travel-log/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
)

// seed upserts the external country catalogue into the database
func main() {
	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Fatal("Missing environment variable: DATABASE_URL")
	}

	if err := logger.Init(!cfg.IsProduction()); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	source := external.NewHTTPCountrySource(cfg.CountrySourceURL, cfg.CountrySourceTimeout)
	countryService := service.NewCountryService(
		repository.NewCountryRepository(db),
		source,
		service.Hooks{Metrics: metrics.New(prometheus.NewRegistry())},
	)

	result, err := countryService.SyncFromSource(ctx)
	if err != nil {
		log.Fatalf("Country sync failed: %v", err)
	}

	fmt.Printf("Countries fetched: %d, upserted: %d, skipped: %d\n",
		result.Fetched, result.Upserted, result.Skipped)
}
