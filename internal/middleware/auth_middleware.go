package middleware

import (
	"context"
	"net/http"
	"strings"

	"pairchat/internal/services"
	"pairchat/internal/transport/httpdto"
	"pairchat/pkg/logger"

	"github.com/gin-gonic/gin"
)

type identityCtxKey string

const identityKey identityCtxKey = "identity"

// AuthMiddleware authenticates the bearer credential and attaches the
// resulting identity to the request context.
func AuthMiddleware(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := auth.Authenticate(extractBearer(c))
		if err != nil {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "AUTH_ERROR"))
			c.Abort()
			return
		}

		ctx := context.WithValue(c.Request.Context(), identityKey, identity)
		ctx = context.WithValue(ctx, logger.UserIdKey, identity.UserID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// IdentityFromContext returns the authenticated identity, if present.
func IdentityFromContext(ctx context.Context) (services.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(services.Identity)
	return identity, ok
}

func extractBearer(c *gin.Context) string {
	value := c.GetHeader("Authorization")
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
