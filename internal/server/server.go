// Package server assembles the gin router and owns the http.Server lifecycle.
package server

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/Baaaki/travel-log/internal/config"
	"github.com/Baaaki/travel-log/internal/handler"
	"github.com/Baaaki/travel-log/internal/middleware"
	"github.com/Baaaki/travel-log/internal/metrics"
	"github.com/Baaaki/travel-log/pkg/logger"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	readTimeout     = 15 * time.Second
	writeTimeout    = 15 * time.Second
	idleTimeout     = 60 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Handlers groups everything the route table dispatches to.
// Events is nil when no broker is configured; the feed route is then absent.
type Handlers struct {
	Countries *handler.CountryHandler
	Tourists  *handler.TouristHandler
	Visits    *handler.VisitHandler
	Events    *handler.EventsHandler
	Health    *handler.HealthHandler
}

type Deps struct {
	Config   *config.Config
	Handlers Handlers
	Verifier middleware.TokenVerifier
	Limiter  middleware.Limiter
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

type Server struct {
	router     *gin.Engine
	httpServer *http.Server
}

func New(deps Deps) *Server {
	if deps.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := NewRouter(deps)

	return &Server{
		router: router,
		httpServer: &http.Server{
			Addr:         deps.Config.ServerPort,
			Handler:      router,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			IdleTimeout:  idleTimeout,
		},
	}
}

// NewRouter builds the static route table behind the shared middleware chain
func NewRouter(deps Deps) *gin.Engine {
	router := gin.New()

	router.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.RequestLogger(),
		middleware.SecurityHeadersMiddleware(),
		middleware.HSTSMiddleware(deps.Config.IsProduction()),
		cors.New(corsConfig(deps.Config.CORSAllowedOrigins)),
	)

	h := deps.Handlers

	router.GET("/health", h.Health.Check)
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api")
	if deps.Limiter != nil {
		api.Use(middleware.RateLimit(deps.Limiter))
	}

	countries := api.Group("/countries")
	{
		countries.GET("", h.Countries.List)
		countries.POST("", h.Countries.Create)
		countries.GET("/:id", h.Countries.Get)
		countries.PUT("/:id", h.Countries.Update)
		countries.DELETE("/:id", h.Countries.Delete)
	}

	auth := api.Group("/tourists/auth")
	{
		auth.POST("/register", h.Tourists.Register)
		auth.POST("/login", h.Tourists.Login)
	}

	// Protected routes (require JWT)
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(deps.Verifier, deps.Metrics))
	{
		// Sync makes an outbound fetch, so it is not public like the rest of /countries
		protected.POST("/countries/sync", h.Countries.Sync)

		protected.GET("/tourists", h.Tourists.List)
		protected.GET("/tourists/me", h.Tourists.Me)
		protected.PUT("/tourists/me", h.Tourists.UpdateMe)
		protected.DELETE("/tourists/me", h.Tourists.DeleteMe)
		protected.GET("/tourists/:id", h.Tourists.Get)

		protected.GET("/visits", h.Visits.List)
		protected.POST("/visits", h.Visits.Create)
		protected.GET("/visits/:id", h.Visits.Get)
		protected.PUT("/visits/:id", h.Visits.Update)
		protected.DELETE("/visits/:id", h.Visits.Delete)

		if h.Events != nil {
			protected.GET("/events/ws", h.Events.Stream)
		}
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader, "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then drains in-flight requests
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("Server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Log.Info("Server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
