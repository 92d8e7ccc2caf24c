package metrics

import (
	"net/http"
	"strconv"
	"time"

	"news-social/domain/model"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry with auto-posting and HTTP metrics.
type Collector struct {
	registry *prometheus.Registry

	postsTotal   *prometheus.CounterVec
	postDuration *prometheus.HistogramVec
	gateDenied   *prometheus.CounterVec
	refreshTotal *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func NewCollector() (*Collector, error) {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		postsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "social_posts_total",
			Help: "Platform post attempts by outcome (success or error kind).",
		}, []string{"platform", "outcome"}),
		postDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "social_post_duration_seconds",
			Help:    "Time spent posting to a platform, retries included.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
		}, []string{"platform"}),
		gateDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "social_rate_gate_denied_total",
			Help: "Posts skipped by the local rate gate.",
		}, []string{"platform", "reason"}),
		refreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "social_token_refresh_total",
			Help: "Token refresh attempts by outcome.",
		}, []string{"platform", "outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "social",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of inbound HTTP requests.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "social",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution for inbound HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}
	for _, col := range []prometheus.Collector{
		c.postsTotal, c.postDuration, c.gateDenied, c.refreshTotal, c.httpRequests, c.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := c.registry.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collector) ObservePost(platform model.Platform, outcome string, elapsed time.Duration) {
	c.postsTotal.WithLabelValues(string(platform), outcome).Inc()
	c.postDuration.WithLabelValues(string(platform)).Observe(elapsed.Seconds())
}

func (c *Collector) RateGateDenied(platform model.Platform, reason model.RateLimitReason) {
	c.gateDenied.WithLabelValues(string(platform), string(reason)).Inc()
}

func (c *Collector) TokenRefresh(platform model.Platform, outcome string) {
	c.refreshTotal.WithLabelValues(string(platform), outcome).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Middleware records request count and latency labelled by route template.
func (c *Collector) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		path := ctx.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(ctx.Writer.Status())
		c.httpRequests.WithLabelValues(ctx.Request.Method, path, status).Inc()
		c.httpDuration.WithLabelValues(ctx.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}
