package middleware

import (
	"net/http"
	"strings"

	"github.com/Baaaki/travel-log/internal/apperror"
	"github.com/Baaaki/travel-log/internal/metrics"
	"github.com/Baaaki/travel-log/internal/utils"
	"github.com/Baaaki/travel-log/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const principalKey = "principal"

type TokenVerifier interface {
	VerifyToken(token string) (utils.Principal, error)
}

// AuthMiddleware gates a route on a valid bearer token and stores the
// principal in the context. Identity never comes from route parameters.
func AuthMiddleware(verifier TokenVerifier, m *metrics.Metrics) gin.HandlerFunc {
	reject := func(c *gin.Context, code, message string) {
		m.IncrementAuthFailure(code)
		abortWithError(c, http.StatusUnauthorized, code, message)
	}

	return func(c *gin.Context) {
		// 1. Get Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			reject(c, apperror.CodeNeedSession, "authorization header required")
			return
		}

		// 2. Extract token from "Bearer <token>"
		tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
		tokenString = strings.TrimSpace(tokenString)
		if !found || tokenString == "" {
			reject(c, apperror.CodeNoToken, "bearer token required")
			return
		}

		// 3. Validate token
		principal, err := verifier.VerifyToken(tokenString)
		if err != nil {
			logger.Log.Debug("Token rejected",
				zap.String("client_ip", c.ClientIP()),
				zap.Error(err),
			)
			reject(c, apperror.CodeErrorToken, "invalid or expired token")
			return
		}

		// 4. Add principal to context (handlers read it with PrincipalFrom)
		c.Set(principalKey, principal)

		c.Next()
	}
}

// PrincipalFrom returns the principal stored by AuthMiddleware
func PrincipalFrom(c *gin.Context) (utils.Principal, bool) {
	value, exists := c.Get(principalKey)
	if !exists {
		return utils.Principal{}, false
	}
	principal, ok := value.(utils.Principal)
	return principal, ok
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":   code,
		"message": message,
	})
}
