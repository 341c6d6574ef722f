package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Baaaki/travel-log/internal/apperror"
	"github.com/Baaaki/travel-log/internal/middleware"
	"github.com/Baaaki/travel-log/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// respondError maps a classified error to its status and stable code.
// Unclassified errors are logged in full and answered with an opaque 500.
func respondError(c *gin.Context, err error) {
	var appErr *apperror.Error
	status := http.StatusInternalServerError
	body := ErrorResponse{Error: apperror.CodeInternal, Message: "internal server error"}

	if ae, ok := asAppError(err); ok && ae.Kind != apperror.KindInternal {
		appErr = ae
		status = statusFor(ae.Kind)
		body = ErrorResponse{Error: ae.Code, Message: ae.Message}
	}

	fields := []zap.Field{
		zap.String("request_id", middleware.RequestIDFrom(c)),
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", status),
		zap.Error(err),
	}
	if appErr == nil || status >= http.StatusInternalServerError {
		logger.Log.Error("Request failed", fields...)
	} else {
		logger.Log.Warn("Request rejected", fields...)
	}

	c.AbortWithStatusJSON(status, body)
}

func asAppError(err error) (*apperror.Error, bool) {
	var ae *apperror.Error
	if !errors.As(err, &ae) {
		return nil, false
	}
	return ae, true
}

func statusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindUnauthorized:
		return http.StatusUnauthorized
	case apperror.KindAlreadyExists:
		return http.StatusConflict
	case apperror.KindValidation:
		return http.StatusUnprocessableEntity
	case apperror.KindExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondBindError answers malformed request bodies and query values with 422
func respondBindError(c *gin.Context, err error) {
	logger.Log.Warn("Request parsing failed",
		zap.String("path", c.FullPath()),
		zap.String("ip", c.ClientIP()),
		zap.Error(err),
	)
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, ErrorResponse{
		Error:   apperror.CodeValidation,
		Message: "invalid request: " + err.Error(),
	})
}

// parseID reads a positive integer path parameter
func parseID(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		respondError(c, apperror.Validation(name+" must be a positive integer"))
		return 0, false
	}
	return uint(id), true
}

// parseHard reads the optional ?hard= flag; absent means soft delete
func parseHard(c *gin.Context) (bool, bool) {
	raw, present := c.GetQuery("hard")
	if !present || raw == "" {
		return false, true
	}
	hard, err := strconv.ParseBool(raw)
	if err != nil {
		respondError(c, apperror.Validation("hard must be true or false"))
		return false, false
	}
	return hard, true
}

// principal reads the authenticated tourist; the auth middleware guarantees it
func principal(c *gin.Context) (uint, bool) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		respondError(c, apperror.Unauthorized(apperror.CodeNeedSession, "authentication required"))
		return 0, false
	}
	return p.ID, true
}
