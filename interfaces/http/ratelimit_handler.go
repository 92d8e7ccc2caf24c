package http

import (
	"net/http"

	"news-social/infrastructure/logger"
	"news-social/usecase"

	"github.com/gin-gonic/gin"
)

type IRateLimitHandler interface {
	List(ctx *gin.Context)
	Reset(ctx *gin.Context)
}

type RateLimitHandler struct {
	rate usecase.IRateLimitManager
}

func NewRateLimitHandler(rate usecase.IRateLimitManager) IRateLimitHandler {
	return &RateLimitHandler{rate: rate}
}

func (h *RateLimitHandler) List(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"rateLimits": h.rate.Snapshot(ctx.Request.Context())})
}

func (h *RateLimitHandler) Reset(ctx *gin.Context) {
	p, ok := platformParam(ctx)
	if !ok {
		return
	}
	if _, configured := h.rate.Config(p); !configured {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "no rate limit configured for " + string(p)})
		return
	}
	h.rate.ResetRateLimits(ctx.Request.Context(), p)
	logger.GetLogger().WithFields(map[string]interface{}{"platform": p, "actor": ctx.GetHeader(ActorHeader)}).Info("rate limit counters reset")
	ctx.JSON(http.StatusOK, gin.H{"reset": true, "platform": p})
}
