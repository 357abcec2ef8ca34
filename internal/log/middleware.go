package log

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"

	// RequestIDHeader carries the request id in and out
	RequestIDHeader = "X-Request-Id"
)

var fallback = New(DefaultConfig())

// NewContext returns a copy of ctx carrying logger
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext extracts a logger from the context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return fallback
}

// Middleware attaches a request-scoped logger and logs request start and completion.
// The level of the completion line follows the status code.
func Middleware(logger *Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)

		reqLogger := logger.WithComponent(ComponentHTTP).With(FieldRequestID, requestID)
		c.Request = c.Request.WithContext(NewContext(c.Request.Context(), reqLogger))

		r := c.Request
		reqLogger.DebugContext(r.Context(), "HTTP request started",
			NewFields().
				WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent()).
				WithClientIP(c.ClientIP()).
				ToSlice()...)

		c.Next()

		status := c.Writer.Status()
		level := logrus.InfoLevel
		if status >= 400 && status < 500 {
			level = logrus.WarnLevel
		} else if status >= 500 {
			level = logrus.ErrorLevel
		}

		fields := NewFields().
			WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "").
			WithHTTPResponse(status, time.Since(start).Milliseconds(), status < 400).
			WithClientIP(c.ClientIP())
		if len(c.Errors) > 0 {
			fields[FieldError] = c.Errors.String()
		}
		reqLogger.Log(r.Context(), level, "HTTP request completed", fields.ToSlice()...)
	}
}
