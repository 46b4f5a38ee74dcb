package handler

import (
	"errors"
	"net/http"

	"pairchat/internal/domain/room"
	"pairchat/internal/services"
	"pairchat/internal/transport/httpdto"
	pairchat_errors "pairchat/pkg/errors"

	"github.com/gin-gonic/gin"
)

type RoomHandler struct {
	service *services.RoomService
}

func NewRoomHandler(service *services.RoomService) *RoomHandler {
	return &RoomHandler{service: service}
}

func (h *RoomHandler) Create(c *gin.Context) {
	identity, ok := callerIdentity(c)
	if !ok {
		return
	}

	var req httpdto.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "VALIDATION_ERROR"))
		return
	}

	creator := room.Party{
		UserID: identity.UserID,
		Email:  firstNonEmpty(req.Email, identity.Email),
		Name:   firstNonEmpty(req.Name, identity.Name),
	}

	rm, err := h.service.CreateRoom(c.Request.Context(), creator)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.FromRoom(rm)))
}

func (h *RoomHandler) Validate(c *gin.Context) {
	var req httpdto.ValidateCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "VALIDATION_ERROR"))
		return
	}

	rm, err := h.service.ValidateCode(c.Request.Context(), req.Code)
	if err != nil {
		// Invalid codes are a normal outcome here, not an error status.
		switch {
		case errors.Is(err, pairchat_errors.ErrNotFound),
			errors.Is(err, pairchat_errors.ErrExpired),
			errors.Is(err, pairchat_errors.ErrConflict):
			c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ValidateCodeResponse{
				Valid:  false,
				Reason: httpdto.ErrorCode(err),
			}))
		default:
			respondErr(c, err)
		}
		return
	}

	view := httpdto.FromRoom(rm)
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ValidateCodeResponse{
		Valid: true,
		Room:  &view,
	}))
}

func (h *RoomHandler) Join(c *gin.Context) {
	identity, ok := callerIdentity(c)
	if !ok {
		return
	}

	var req httpdto.JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "VALIDATION_ERROR"))
		return
	}

	joiner := room.Party{
		UserID: identity.UserID,
		Email:  firstNonEmpty(req.Email, identity.Email),
		Name:   firstNonEmpty(req.Name, identity.Name),
	}

	rm, err := h.service.JoinRoom(c.Request.Context(), req.Code, joiner)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromRoom(rm)))
}

func (h *RoomHandler) Reset(c *gin.Context) {
	identity, ok := callerIdentity(c)
	if !ok {
		return
	}

	if err := h.service.ResetRoom(c.Request.Context(), c.Param("code"), identity.UserID); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"reset": true}))
}

func (h *RoomHandler) List(c *gin.Context) {
	identity, ok := callerIdentity(c)
	if !ok {
		return
	}

	rooms, err := h.service.GetRoomsForUser(c.Request.Context(), identity.UserID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromRooms(rooms)))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
