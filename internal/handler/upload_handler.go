package handler

import (
	"net/http"

	"pairchat/internal/services"
	"pairchat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type UploadHandler struct {
	service *services.UploadService
}

func NewUploadHandler(service *services.UploadService) *UploadHandler {
	return &UploadHandler{service: service}
}

// Presign opens an upload and returns a signed PUT URL for it.
func (h *UploadHandler) Presign(c *gin.Context) {
	identity, ok := callerIdentity(c)
	if !ok {
		return
	}

	var req httpdto.PresignUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "VALIDATION_ERROR"))
		return
	}

	result, err := h.service.Presign(c.Request.Context(), services.PresignInput{
		UploaderID:  identity.UserID,
		FileName:    req.FileName,
		ContentType: req.ContentType,
		FileSize:    req.FileSize,
	})
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.PresignUploadResponse{
		UploadID:  result.UploadID.String(),
		UploadURL: result.UploadURL,
		UploadKey: result.UploadKey,
		Headers:   result.Headers,
	}))
}

// Complete resolves a finished upload into its stored-file descriptor.
func (h *UploadHandler) Complete(c *gin.Context) {
	identity, ok := callerIdentity(c)
	if !ok {
		return
	}

	uploadID, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid upload id", "VALIDATION_ERROR"))
		return
	}

	descriptor, err := h.service.Complete(c.Request.Context(), uploadID, identity.UserID)
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.CompleteUploadResponse{
		StoragePath:  descriptor.StoragePath,
		PublicURL:    descriptor.PublicURL,
		OriginalName: descriptor.OriginalName,
		SizeBytes:    descriptor.SizeBytes,
		MimeType:     descriptor.MimeType,
	}))
}
