package middleware

import (
	"errors"
	"net/http"

	"testimonials/internal/config"

	"github.com/gin-gonic/gin"
)

// RequireConfig aborts with status when cfg lacks a required secret. The
// webhook route passes 200 so Shopify does not retry.
func RequireConfig(cfg *config.Config, status int) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := cfg.Validate()
		if err == nil {
			c.Next()
			return
		}

		body := gin.H{
			"error":    "Missing environment variables",
			"required": config.RequiredSecrets,
		}
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			body["missing"] = missing.Missing
		}
		c.AbortWithStatusJSON(status, body)
	}
}

// Preflight answers every OPTIONS request with 204. It is registered
// globally so it also runs for paths that have no OPTIONS route.
func Preflight() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
