package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/Baaaki/travel-log/internal/broker"
	"github.com/Baaaki/travel-log/internal/config"
	"github.com/Baaaki/travel-log/internal/database"
	"github.com/Baaaki/travel-log/internal/external"
	"github.com/Baaaki/travel-log/internal/handler"
	"github.com/Baaaki/travel-log/internal/journal"
	"github.com/Baaaki/travel-log/internal/metrics"
	"github.com/Baaaki/travel-log/internal/middleware"
	"github.com/Baaaki/travel-log/internal/repository"
	"github.com/Baaaki/travel-log/internal/server"
	"github.com/Baaaki/travel-log/internal/service"
	"github.com/Baaaki/travel-log/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const journalPruneInterval = 24 * time.Hour

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := logger.InitWithFile(!cfg.IsProduction(), logger.FileOptions{
		Path:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Log.Error("Server stopped with error", zap.Error(err))
		logger.Sync()
		log.Fatal(err)
	}
	logger.Log.Info("Server stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		return err
	}

	// Initialize deletion journal
	deletions, err := journal.Open(cfg.JournalPath)
	if err != nil {
		return err
	}
	defer deletions.Close()

	// Redis is optional: without it the event feed is off and rate limiting stays in-process
	var (
		eventBroker *broker.RedisEventBroker
		redisClient *redis.Client
		limiter     middleware.Limiter
		publisher   service.EventPublisher
	)
	limiterCfg := middleware.RateLimiterConfig{
		MaxRequests: cfg.RateLimitMaxRequests,
		Window:      cfg.RateLimitWindow,
		BlockTime:   cfg.RateLimitBlockTime,
	}
	if cfg.RedisURL != "" {
		eventBroker, err = broker.NewRedisEventBroker(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer eventBroker.Close()

		redisClient = eventBroker.Client()
		publisher = eventBroker
		limiter = middleware.NewRedisLimiter(redisClient, limiterCfg)
		logger.Log.Info("Redis connected, event feed enabled")
	} else {
		limiter = middleware.NewLocalLimiter(limiterCfg)
		logger.Log.Warn("REDIS_URL not set, event feed disabled and rate limiting is per process")
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	credentials, err := service.NewCredentialService(service.CredentialConfig{
		JWTSecret:     cfg.JWTSecret,
		TokenTTL:      cfg.JWTExpiry,
		HashAlgorithm: cfg.HashAlgorithm,
		BcryptCost:    cfg.BcryptCost,
	})
	if err != nil {
		return err
	}

	// Initialize repositories
	countryRepo := repository.NewCountryRepository(db)
	touristRepo := repository.NewTouristRepository(db)
	visitRepo := repository.NewVisitRepository(db)

	// Initialize services
	hooks := service.Hooks{Publisher: publisher, Journal: deletions, Metrics: m}
	source := external.NewHTTPCountrySource(cfg.CountrySourceURL, cfg.CountrySourceTimeout)
	countryService := service.NewCountryService(countryRepo, source, hooks)
	touristService := service.NewTouristService(touristRepo, credentials, hooks)
	visitService := service.NewVisitService(visitRepo, countryRepo, touristRepo, hooks)

	// Initialize handlers
	handlers := server.Handlers{
		Countries: handler.NewCountryHandler(countryService),
		Tourists:  handler.NewTouristHandler(touristService),
		Visits:    handler.NewVisitHandler(visitService),
		Health:    handler.NewHealthHandler(db, redisClient),
	}
	if eventBroker != nil {
		handlers.Events = handler.NewEventsHandler(eventBroker, cfg.CORSAllowedOrigins)
	}

	srv := server.New(server.Deps{
		Config:   cfg,
		Handlers: handlers,
		Verifier: credentials,
		Limiter:  limiter,
		Metrics:  m,
		Gatherer: prometheus.DefaultGatherer,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		pruneJournal(gctx, deletions, cfg.JournalRetention)
		return nil
	})

	return g.Wait()
}

// pruneJournal drops entries older than retention at startup and once a day
func pruneJournal(ctx context.Context, deletions *journal.Journal, retention time.Duration) {
	if retention <= 0 {
		return
	}

	prune := func() {
		removed, err := deletions.Prune(time.Now().Add(-retention))
		if err != nil {
			logger.Log.Error("Failed to prune deletion journal", zap.Error(err))
			return
		}
		if removed > 0 {
			logger.Log.Info("Deletion journal pruned", zap.Int("removed", removed))
		}
	}

	prune()
	ticker := time.NewTicker(journalPruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune()
		}
	}
}
