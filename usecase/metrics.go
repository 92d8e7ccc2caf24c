package usecase

import (
	"time"

	"news-social/domain/model"
)

// IPostMetrics receives auto-posting telemetry.
type IPostMetrics interface {
	ObservePost(platform model.Platform, outcome string, elapsed time.Duration)
	RateGateDenied(platform model.Platform, reason model.RateLimitReason)
	TokenRefresh(platform model.Platform, outcome string)
}

type noopMetrics struct{}

func (noopMetrics) ObservePost(model.Platform, string, time.Duration)  {}
func (noopMetrics) RateGateDenied(model.Platform, model.RateLimitReason) {}
func (noopMetrics) TokenRefresh(model.Platform, string)                 {}
