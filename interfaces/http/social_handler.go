package http

import (
	"net/http"
	"strconv"
	"strings"

	"news-social/domain/model"
	"news-social/infrastructure/logger"
	"news-social/usecase"

	"github.com/gin-gonic/gin"
)

type ISocialHandler interface {
	AutoPost(ctx *gin.Context)
	Platforms(ctx *gin.Context)
	History(ctx *gin.Context)
	DeletePost(ctx *gin.Context)
}

type SocialHandler struct {
	autoPost usecase.IAutoPostUsecase
	creds    usecase.ICredentialUsecase
	rate     usecase.IRateLimitManager
	tokens   usecase.ITokenLifecycleManager
}

func NewSocialHandler(autoPost usecase.IAutoPostUsecase, creds usecase.ICredentialUsecase, rate usecase.IRateLimitManager, tokens usecase.ITokenLifecycleManager) ISocialHandler {
	return &SocialHandler{autoPost: autoPost, creds: creds, rate: rate, tokens: tokens}
}

// AutoPost answers 200 with the per-platform breakdown even when every platform failed.
func (h *SocialHandler) AutoPost(ctx *gin.Context) {
	var article model.Article
	if err := ctx.ShouldBindJSON(&article); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := article.Validate(); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res := h.autoPost.AutoPostContent(ctx.Request.Context(), article)
	logger.GetLogger().WithFields(map[string]interface{}{
		"slug":       article.Slug,
		"runId":      res.RunID,
		"successful": res.SuccessfulPosts,
		"total":      res.TotalPlatforms,
	}).Info("auto-post requested over http")
	ctx.JSON(http.StatusOK, res)
}

type platformView struct {
	model.PlatformReadiness
	RateLimit *model.RateLimitSnapshot `json:"rateLimit,omitempty"`
	Token     *model.TokenStatus       `json:"token,omitempty"`
}

func (h *SocialHandler) Platforms(ctx *gin.Context) {
	readiness, err := h.creds.Readiness(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	snaps := make(map[model.Platform]model.RateLimitSnapshot)
	for _, s := range h.rate.Snapshot(ctx.Request.Context()) {
		snaps[s.Platform] = s
	}
	states := h.tokens.States()

	out := make([]platformView, 0, len(readiness))
	for _, r := range readiness {
		v := platformView{PlatformReadiness: r}
		if s, ok := snaps[r.Platform]; ok {
			v.RateLimit = &s
		}
		if st, ok := states[r.Platform]; ok {
			v.Token = &st
		}
		out = append(out, v)
	}
	ctx.JSON(http.StatusOK, gin.H{"platforms": out})
}

func (h *SocialHandler) History(ctx *gin.Context) {
	slug := strings.TrimSpace(ctx.Query("slug"))
	if slug == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "slug is required"})
		return
	}
	limit := 0
	if v := ctx.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	list, err := h.autoPost.History(ctx.Request.Context(), slug, limit)
	if err != nil {
		writeError(ctx, err)
		return
	}
	if list == nil {
		list = []*model.PostAudit{}
	}
	ctx.JSON(http.StatusOK, gin.H{"slug": slug, "records": list})
}

func (h *SocialHandler) DeletePost(ctx *gin.Context) {
	p, ok := platformParam(ctx)
	if !ok {
		return
	}
	postID := ctx.Param("postId")
	if err := h.autoPost.DeletePost(ctx.Request.Context(), p, postID); err != nil {
		logger.GetLogger().WithFields(map[string]interface{}{"platform": p, "postId": postID, "error": err.Error()}).Warn("delete post failed")
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"deleted": true, "platform": p, "postId": postID})
}
