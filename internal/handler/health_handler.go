package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/Baaaki/travel-log/internal/database"
	"github.com/Baaaki/travel-log/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db    *gorm.DB
	redis *redis.Client // nil when Redis is not configured
}

func NewHealthHandler(db *gorm.DB, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{
		db:    db,
		redis: redisClient,
	}
}

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

// Check handles GET /health. Redis is reported but only the database decides the status.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx := c.Request.Context()
	resp := HealthResponse{Status: "ok", Database: "up", Redis: "disabled"}
	status := http.StatusOK

	if err := database.HealthCheck(ctx, h.db); err != nil {
		logger.Log.Error("Database health check failed", zap.Error(err))
		resp.Status = "degraded"
		resp.Database = "down"
		status = http.StatusServiceUnavailable
	}

	if h.redis != nil {
		resp.Redis = "up"
		if err := pingRedis(ctx, h.redis); err != nil {
			logger.Log.Warn("Redis health check failed", zap.Error(err))
			resp.Redis = "down"
		}
	}

	c.JSON(status, resp)
}

func pingRedis(ctx context.Context, client *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err()
}
