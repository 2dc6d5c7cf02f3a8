package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/tixora/internal/observability/context"
	"github.com/smallbiznis/tixora/internal/usercontext"
)

// HeaderUserID carries the caller identity resolved by the upstream gateway.
const HeaderUserID = "X-User-ID"

// UserIdentity copies the gateway-supplied user id into the request context.
func UserIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if userID != "" {
			ctx := usercontext.WithUserID(c.Request.Context(), userID)
			ctx = obscontext.WithActor(ctx, "user", userID)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := usercontext.UserIDFromContext(c.Request.Context()); !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}
