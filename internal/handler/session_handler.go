package handler

import (
	"net/http"

	"pairchat/internal/services"
	"pairchat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	service *services.SessionService
}

func NewSessionHandler(service *services.SessionService) *SessionHandler {
	return &SessionHandler{service: service}
}

func (h *SessionHandler) List(c *gin.Context) {
	identity, ok := callerIdentity(c)
	if !ok {
		return
	}

	sessions, err := h.service.ListActiveSessions(c.Request.Context(), identity.UserID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromRooms(sessions)))
}

func (h *SessionHandler) Resume(c *gin.Context) {
	identity, ok := callerIdentity(c)
	if !ok {
		return
	}

	rm, err := h.service.ResumeSession(c.Request.Context(), c.Param("code"), identity.UserID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromRoom(rm)))
}

func (h *SessionHandler) Delete(c *gin.Context) {
	identity, ok := callerIdentity(c)
	if !ok {
		return
	}

	if err := h.service.DeleteSession(c.Request.Context(), c.Param("code"), identity.UserID); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"deleted": true}))
}
