// Package http exposes the analytics and ledger API over gin.
//
// This file maps service errors to status codes and builds the JSON
// error bodies shared by every handler.
package http

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// ErrorBody is the JSON shape of every error response
type ErrorBody struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// statusFor classifies err against the core sentinels
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage strips the sentinel prefix so clients see the specific reason
func publicMessage(err error, status int) string {
	msg := err.Error()
	switch status {
	case http.StatusBadRequest:
		msg = strings.TrimPrefix(msg, core.ErrInvalidInput.Error()+": ")
	case http.StatusConflict:
		msg = strings.TrimPrefix(msg, core.ErrConflict.Error()+": ")
	case http.StatusNotFound:
		if errors.Is(err, core.ErrCategoryNotFound) {
			return "Category not found"
		}
		return "Not found"
	case http.StatusForbidden:
		return "Forbidden"
	}
	return msg
}

// respondError writes err as JSON. Unclassified errors become an opaque 500
// and are logged with the request logger.
func respondError(c *gin.Context, err error) {
	ctx := c.Request.Context()
	status := statusFor(err)

	if status == http.StatusInternalServerError {
		log.FromContext(ctx).ErrorContext(ctx, "Request failed",
			log.NewFields().
				WithErrorType(log.ErrorTypeInternal).
				WithError(err).
				ToSlice()...)
		_ = c.Error(err)
		c.AbortWithStatusJSON(status, ErrorBody{Error: "internal server error"})
		return
	}

	c.AbortWithStatusJSON(status, ErrorBody{Error: publicMessage(err, status)})
}

// respondBindError reports a request body or query that failed binding.
// Validator failures list the offending fields.
func respondBindError(c *gin.Context, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		details := make(map[string]string, len(ve))
		for _, fe := range ve {
			details[jsonName(fe.Field())] = fe.Tag()
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorBody{Error: "validation failed", Details: details})
		return
	}
	if errors.Is(err, core.ErrInvalidInput) {
		respondError(c, err)
		return
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorBody{Error: "invalid request body"})
}

var registerTagNames sync.Once

// useJSONFieldNames makes validator errors report json tag names
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

// jsonName lower-cases the first letter of a Go field name
func jsonName(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

func respondMessage(c *gin.Context, status int, message string, extra gin.H) {
	body := gin.H{"message": message}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(status, body)
}
