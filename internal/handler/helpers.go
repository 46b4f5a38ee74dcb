package handler

import (
	"net/http"

	"pairchat/internal/middleware"
	"pairchat/internal/services"
	"pairchat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func respondErr(c *gin.Context, err error) {
	c.JSON(httpdto.HTTPStatus(err), httpdto.NewErrorResponse(httpdto.ErrorMessage(err), httpdto.ErrorCode(err)))
}

func callerIdentity(c *gin.Context) (services.Identity, bool) {
	identity, ok := middleware.IdentityFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "AUTH_ERROR"))
	}
	return identity, ok
}

func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(value)
}
