package http

import (
	"errors"
	"net/http"

	"news-social/domain/model"
	"news-social/usecase"

	"github.com/gin-gonic/gin"
)

// ActorHeader names the admin performing a settings write.
const ActorHeader = "X-Actor-ID"

// platformParam resolves :platform or writes a 404.
func platformParam(c *gin.Context) (model.Platform, bool) {
	p, ok := model.ParsePlatform(c.Param("platform"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown platform " + c.Param("platform")})
		return "", false
	}
	return p, true
}

// errorStatus maps usecase and provider errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, usecase.ErrInvalidSettings):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrDeleteUnsupported), errors.Is(err, model.ErrRefreshUnsupported), errors.Is(err, model.ErrIntrospectionUnsupported):
		return http.StatusNotImplemented
	}
	var pe *model.PostError
	if !errors.As(err, &pe) {
		return http.StatusInternalServerError
	}
	switch pe.Kind {
	case model.ErrorKindValidation:
		return http.StatusBadRequest
	case model.ErrorKindNotConfigured:
		return http.StatusConflict
	case model.ErrorKindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}

func writeError(c *gin.Context, err error) {
	body := gin.H{"error": err.Error()}
	var pe *model.PostError
	if errors.As(err, &pe) {
		body["errorKind"] = pe.Kind
	}
	c.JSON(errorStatus(err), body)
}
