package http

import (
	"net/http"

	"news-social/usecase"

	"github.com/gin-gonic/gin"
)

type ITokenHandler interface {
	Status(ctx *gin.Context)
	Info(ctx *gin.Context)
	Refresh(ctx *gin.Context)
	Check(ctx *gin.Context)
}

type TokenHandler struct {
	tokens usecase.ITokenLifecycleManager
}

func NewTokenHandler(tokens usecase.ITokenLifecycleManager) ITokenHandler {
	return &TokenHandler{tokens: tokens}
}

func (h *TokenHandler) Status(ctx *gin.Context) {
	p, ok := platformParam(ctx)
	if !ok {
		return
	}
	st, err := h.tokens.CheckTokenStatus(ctx.Request.Context(), p)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, st)
}

func (h *TokenHandler) Info(ctx *gin.Context) {
	p, ok := platformParam(ctx)
	if !ok {
		return
	}
	info, err := h.tokens.GetTokenInfo(ctx.Request.Context(), p)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, info)
}

// Refresh leaves the stored token untouched when the provider rejects the refresh.
func (h *TokenHandler) Refresh(ctx *gin.Context) {
	p, ok := platformParam(ctx)
	if !ok {
		return
	}
	res, err := h.tokens.RefreshToken(ctx.Request.Context(), p)
	if err != nil {
		ctx.JSON(errorStatus(err), gin.H{"error": err.Error(), "result": res})
		return
	}
	ctx.JSON(http.StatusOK, res)
}

// Check runs one scheduled-check cycle now.
func (h *TokenHandler) Check(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"reports": h.tokens.RunScheduledCheck(ctx.Request.Context())})
}
