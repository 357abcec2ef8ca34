package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// Identity headers set by the gateway after verifying the caller's token
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserRole  = "X-User-Role"
	HeaderUserEmail = "X-User-Email"

	identityKey = "identity"
)

// RequireIdentity reads the caller from the gateway headers. A missing or
// malformed id is rejected with 401; an unknown role is treated as USER.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(strings.TrimSpace(c.GetHeader(HeaderUserID)), 10, 64)
		if err != nil || id < 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorBody{Error: "Unauthenticated"})
			return
		}

		role := core.Role(strings.ToUpper(strings.TrimSpace(c.GetHeader(HeaderUserRole))))
		if role != core.RoleAdmin {
			role = core.RoleUser
		}

		who := core.Identity{
			ID:    id,
			Role:  role,
			Email: strings.TrimSpace(c.GetHeader(HeaderUserEmail)),
		}
		c.Set(identityKey, who)

		ctx := c.Request.Context()
		logger := log.FromContext(ctx).With(log.FieldUserID, id)
		c.Request = c.Request.WithContext(log.NewContext(ctx, logger))
		c.Next()
	}
}

// identityFrom returns the caller attached by RequireIdentity
func identityFrom(c *gin.Context) core.Identity {
	who, _ := c.MustGet(identityKey).(core.Identity)
	return who
}

// rateLimitKey buckets authenticated callers by user id
func rateLimitKey(c *gin.Context) string {
	if v, ok := c.Get(identityKey); ok {
		return "user:" + strconv.FormatInt(v.(core.Identity).ID, 10)
	}
	return ""
}
