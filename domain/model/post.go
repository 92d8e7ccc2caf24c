package model

import "time"

// PostAttemptResult is the outcome of one orchestrated post to one platform.
type PostAttemptResult struct {
	Platform  Platform  `json:"platform"`
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	PostID    *string   `json:"postId"`
	URL       *string   `json:"url"`
	ErrorKind ErrorKind `json:"errorKind,omitempty"`
	Attempts  int       `json:"attempts"`
	// WaitTimeMs is set when the local rate gate denied the attempt.
	WaitTimeMs int64 `json:"waitTime,omitempty"`
}

// MultiPlatformPostResult aggregates every platform attempt for one article.
type MultiPlatformPostResult struct {
	RunID           string              `json:"runId"`
	Success         bool                `json:"success"`
	TotalPlatforms  int                 `json:"totalPlatforms"`
	SuccessfulPosts int                 `json:"successfulPosts"`
	Results         []PostAttemptResult `json:"results"`
}

// SuccessPolicy decides the aggregate success flag.
type SuccessPolicy string

const (
	SuccessPolicyAny SuccessPolicy = "any"
	SuccessPolicyAll SuccessPolicy = "all"
)

// Evaluate applies the policy to successful/total counts. Zero platforms is never a success.
func (p SuccessPolicy) Evaluate(successful, total int) bool {
	if total == 0 {
		return false
	}
	if p == SuccessPolicyAll {
		return successful == total
	}
	return successful > 0
}

// PostAudit is an append-only row recording one platform attempt.
type PostAudit struct {
	ID          int64     `json:"id"`
	RunID       string    `json:"run_id"`
	ArticleSlug string    `json:"article_slug"`
	Platform    Platform  `json:"platform"`
	Success     bool      `json:"success"`
	ErrorKind   ErrorKind `json:"error_kind,omitempty"`
	Message     string    `json:"message"`
	PostID      *string   `json:"post_id,omitempty"`
	URL         *string   `json:"url,omitempty"`
	Attempts    int       `json:"attempts"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewPostAudit builds an audit row from an attempt result.
func NewPostAudit(runID, slug string, r PostAttemptResult) *PostAudit {
	return &PostAudit{
		RunID:       runID,
		ArticleSlug: slug,
		Platform:    r.Platform,
		Success:     r.Success,
		ErrorKind:   r.ErrorKind,
		Message:     r.Message,
		PostID:      r.PostID,
		URL:         r.URL,
		Attempts:    r.Attempts,
		CreatedAt:   time.Now().UTC(),
	}
}

// PostStatusEvent is broadcast to live subscribers when a platform attempt finishes.
type PostStatusEvent struct {
	RunID     string    `json:"runId"`
	Slug      string    `json:"slug"`
	Platform  Platform  `json:"platform"`
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	PostID    *string   `json:"postId,omitempty"`
	URL       *string   `json:"url,omitempty"`
	ErrorKind ErrorKind `json:"errorKind,omitempty"`
}
