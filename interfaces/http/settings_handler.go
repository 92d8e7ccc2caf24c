package http

import (
	"net/http"
	"strings"

	"news-social/interfaces/middleware"
	"news-social/usecase"

	"github.com/gin-gonic/gin"
)

type ISettingsHandler interface {
	Get(ctx *gin.Context)
	Update(ctx *gin.Context)
}

type SettingsHandler struct {
	creds usecase.ICredentialUsecase
}

func NewSettingsHandler(creds usecase.ICredentialUsecase) ISettingsHandler {
	return &SettingsHandler{creds: creds}
}

// Get returns the stored fields with secrets masked.
func (h *SettingsHandler) Get(ctx *gin.Context) {
	masked, err := h.creds.Masked(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"settings": masked})
}

// Update applies a flat patch; a null value removes the field. The actor is
// the X-Actor-ID header, else the authenticated token subject.
func (h *SettingsHandler) Update(ctx *gin.Context) {
	actor := strings.TrimSpace(ctx.GetHeader(ActorHeader))
	if actor == "" {
		actor = ctx.GetString(middleware.ActorKey)
	}
	if actor == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": ActorHeader + " header is required"})
		return
	}
	var patch map[string]any
	if err := ctx.ShouldBindJSON(&patch); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.creds.Update(ctx.Request.Context(), patch, actor); err != nil {
		writeError(ctx, err)
		return
	}
	masked, err := h.creds.Masked(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusOK, gin.H{"updated": true})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"updated": true, "settings": masked})
}
