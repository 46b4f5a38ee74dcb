package handler

import (
	"net/http"
	"strconv"

	"pairchat/internal/services"
	"pairchat/internal/transport/httpdto"
	pairchat_errors "pairchat/pkg/errors"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	messages *services.MessageService
	rooms    *services.RoomService
	uploads  *services.UploadService
}

func NewMessageHandler(messages *services.MessageService, rooms *services.RoomService, uploads *services.UploadService) *MessageHandler {
	return &MessageHandler{messages: messages, rooms: rooms, uploads: uploads}
}

// List returns the newest messages of a room. The caller must be a room
// member.
func (h *MessageHandler) List(c *gin.Context) {
	identity, ok := callerIdentity(c)
	if !ok {
		return
	}

	roomID, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid room id", "VALIDATION_ERROR"))
		return
	}

	rm, err := h.rooms.GetRoomByRoomID(c.Request.Context(), roomID)
	if err != nil {
		respondErr(c, err)
		return
	}
	if !rm.HasMember(identity.UserID) {
		respondErr(c, pairchat_errors.ErrForbidden)
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	msgs, err := h.messages.ListRoomMessages(c.Request.Context(), roomID, limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromMessages(msgs)))
}

// Unread returns how many messages the caller has not read in a room.
func (h *MessageHandler) Unread(c *gin.Context) {
	identity, ok := callerIdentity(c)
	if !ok {
		return
	}

	roomID, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid room id", "VALIDATION_ERROR"))
		return
	}

	rm, err := h.rooms.GetRoomByRoomID(c.Request.Context(), roomID)
	if err != nil {
		respondErr(c, err)
		return
	}
	if !rm.HasMember(identity.UserID) {
		respondErr(c, pairchat_errors.ErrForbidden)
		return
	}

	count, err := h.messages.UnreadCount(c.Request.Context(), roomID, identity.UserID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.UnreadCountResponse{
		RoomID: roomID.String(),
		Count:  count,
	}))
}

// SendFile turns a completed upload into a file or image message.
func (h *MessageHandler) SendFile(c *gin.Context) {
	identity, ok := callerIdentity(c)
	if !ok {
		return
	}

	var req httpdto.SendFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "VALIDATION_ERROR"))
		return
	}

	roomID, err := parseUUID(req.RoomID)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid room id", "VALIDATION_ERROR"))
		return
	}
	uploadID, err := parseUUID(req.UploadID)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid upload id", "VALIDATION_ERROR"))
		return
	}

	rm, err := h.rooms.GetRoomByRoomID(c.Request.Context(), roomID)
	if err != nil {
		respondErr(c, err)
		return
	}
	if !rm.HasMember(identity.UserID) {
		respondErr(c, pairchat_errors.ErrForbidden)
		return
	}

	descriptor, err := h.uploads.Complete(c.Request.Context(), uploadID, identity.UserID)
	if err != nil {
		respondErr(c, err)
		return
	}

	m, err := h.messages.SendFile(c.Request.Context(), services.SendFileInput{
		RoomID:     roomID,
		SenderID:   identity.UserID,
		Caption:    req.Caption,
		Attachment: descriptor.AsAttachment(),
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.FromMessage(m)))
}

// MarkRead records the caller's read receipt on a message.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	identity, ok := callerIdentity(c)
	if !ok {
		return
	}

	messageID, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid message id", "VALIDATION_ERROR"))
		return
	}

	if err := h.messages.MarkRead(c.Request.Context(), messageID, identity.UserID); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"read": true}))
}

// MarkViewed records a view receipt; viewing an image as the non-sender
// tombstones it.
func (h *MessageHandler) MarkViewed(c *gin.Context) {
	identity, ok := callerIdentity(c)
	if !ok {
		return
	}

	messageID, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid message id", "VALIDATION_ERROR"))
		return
	}

	m, err := h.messages.MarkViewed(c.Request.Context(), messageID, identity.UserID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromMessage(m)))
}
