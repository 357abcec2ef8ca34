package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fintrack/internal/log"
)

const healthCheckTimeout = 2 * time.Second

func handleLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// handleHealth reports store reachability and cache state. The cache never
// fails the check because the service runs without it.
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	body := gin.H{"ok": true, "store": "up"}
	status := http.StatusOK

	if s.cache != nil {
		body["cacheStore"] = "up"
		if err := s.cache.Ping(ctx); err != nil {
			log.FromContext(ctx).WarnContext(ctx, "Cache ping failed",
				log.NewFields().
					WithErrorType(log.ErrorTypeCache).
					WithError(err).
					ToSlice()...)
			body["cacheStore"] = "down"
		}
	}
	// after the ping, which may have closed the circuit
	body["cache"] = s.cache.Stats()

	if s.store != nil {
		if err := s.store.Ping(ctx); err != nil {
			log.FromContext(ctx).WarnContext(ctx, "Health check failed",
				log.NewFields().
					WithErrorType(log.ErrorTypeDatabase).
					WithError(err).
					ToSlice()...)
			body["ok"] = false
			body["store"] = "down"
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, body)
}
