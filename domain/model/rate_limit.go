package model

import "time"

// RateLimitConfig is the per-platform posting policy.
type RateLimitConfig struct {
	PostsPerHour         int           `json:"postsPerHour"`
	PostsPerDay          int           `json:"postsPerDay"`
	MinDelayBetweenPosts time.Duration `json:"minDelayBetweenPosts"`
	RetryDelay           time.Duration `json:"retryDelay"`
	MaxRetries           int           `json:"maxRetries"`
}

// DefaultRateLimits are conservative operator defaults, not provider contracts.
func DefaultRateLimits() map[Platform]RateLimitConfig {
	return map[Platform]RateLimitConfig{
		PlatformFacebook:  {PostsPerHour: 25, PostsPerDay: 200, MinDelayBetweenPosts: time.Minute, RetryDelay: 30 * time.Second, MaxRetries: 3},
		PlatformTwitter:   {PostsPerHour: 15, PostsPerDay: 50, MinDelayBetweenPosts: 2 * time.Minute, RetryDelay: time.Minute, MaxRetries: 3},
		PlatformLinkedIn:  {PostsPerHour: 20, PostsPerDay: 100, MinDelayBetweenPosts: time.Minute, RetryDelay: 30 * time.Second, MaxRetries: 3},
		PlatformInstagram: {PostsPerHour: 10, PostsPerDay: 25, MinDelayBetweenPosts: 2 * time.Minute, RetryDelay: time.Minute, MaxRetries: 2},
		PlatformTelegram:  {PostsPerHour: 60, PostsPerDay: 500, MinDelayBetweenPosts: 5 * time.Second, RetryDelay: 5 * time.Second, MaxRetries: 3},
	}
}

// RateLimitState holds the rolling counters for one platform.
type RateLimitState struct {
	HourlyCount       int       `json:"hourlyCount"`
	DailyCount        int       `json:"dailyCount"`
	LastPostTime      time.Time `json:"lastPostTime"`
	HourlyWindowStart time.Time `json:"hourlyWindowStart"`
	DailyWindowStart  time.Time `json:"dailyWindowStart"`
}

// RateLimitReason names the constraint that denied a post.
type RateLimitReason string

const (
	ReasonHourlyLimit RateLimitReason = "hourly_limit"
	ReasonDailyLimit  RateLimitReason = "daily_limit"
	ReasonMinDelay    RateLimitReason = "min_delay"
	ReasonUnknown     RateLimitReason = "unknown_platform"
)

// CanPostResult is the rate gate's decision.
type CanPostResult struct {
	CanPost bool            `json:"canPost"`
	Reason  RateLimitReason `json:"reason,omitempty"`
	Message string          `json:"message,omitempty"`
	// WaitTime is how long until the failing constraint would pass.
	WaitTime time.Duration `json:"-"`
}

// WaitTimeMs exposes WaitTime in milliseconds.
func (r CanPostResult) WaitTimeMs() int64 { return r.WaitTime.Milliseconds() }

// RateLimitSnapshot is the admin view of a platform's counters against its limits.
type RateLimitSnapshot struct {
	Platform     Platform        `json:"platform"`
	HourlyCount  int             `json:"hourlyCount"`
	HourlyLimit  int             `json:"hourlyLimit"`
	DailyCount   int             `json:"dailyCount"`
	DailyLimit   int             `json:"dailyLimit"`
	LastPostTime *time.Time      `json:"lastPostTime,omitempty"`
	Gate         CanPostResult   `json:"gate"`
	Config       RateLimitConfig `json:"-"`
}
