package security

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// HeadersConfig holds security headers configuration
type HeadersConfig struct {
	CSP string

	HSTSMaxAge            int
	HSTSIncludeSubdomains bool

	XFrameOptions       string
	XContentTypeOptions string
	ReferrerPolicy      string
	CrossOriginResource string
	CacheControl        string
}

// DefaultHeadersConfig returns defaults for a JSON API that serves no documents
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP:                   "default-src 'none'; frame-ancestors 'none'",
		HSTSMaxAge:            31536000,
		HSTSIncludeSubdomains: true,
		XFrameOptions:         "DENY",
		XContentTypeOptions:   "nosniff",
		ReferrerPolicy:        "no-referrer",
		CrossOriginResource:   "same-origin",
		CacheControl:          "no-store",
	}
}

// Headers applies the configured security headers to every response
func Headers(config HeadersConfig) gin.HandlerFunc {
	hsts := ""
	if config.HSTSMaxAge > 0 {
		hsts = fmt.Sprintf("max-age=%d", config.HSTSMaxAge)
		if config.HSTSIncludeSubdomains {
			hsts += "; includeSubDomains"
		}
	}

	return func(c *gin.Context) {
		h := c.Writer.Header()
		set := func(name, value string) {
			if value != "" {
				h.Set(name, value)
			}
		}
		set("Content-Security-Policy", config.CSP)
		set("X-Frame-Options", config.XFrameOptions)
		set("X-Content-Type-Options", config.XContentTypeOptions)
		set("Referrer-Policy", config.ReferrerPolicy)
		set("Cross-Origin-Resource-Policy", config.CrossOriginResource)
		set("Cache-Control", config.CacheControl)

		// HSTS only over TLS
		if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
			set("Strict-Transport-Security", hsts)
		}
		c.Next()
	}
}
