package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"news-social/domain/model"
	"news-social/infrastructure/logger"

	"cloud.google.com/go/pubsub"
)

// AutoPoster is the part of the orchestrator the subscriber drives.
type AutoPoster interface {
	AutoPostContent(ctx context.Context, article model.Article) *model.MultiPlatformPostResult
}

// ArticleSubscriber turns "article published" messages into auto-post runs.
type ArticleSubscriber struct {
	client  *pubsub.Client
	subID   string
	poster  AutoPoster
	timeout time.Duration
}

func NewArticleSubscriber(client *pubsub.Client, subID string, poster AutoPoster, runTimeout time.Duration) *ArticleSubscriber {
	if runTimeout <= 0 {
		runTimeout = 10 * time.Minute
	}
	return &ArticleSubscriber{client: client, subID: subID, poster: poster, timeout: runTimeout}
}

// Run blocks until ctx is done or the subscription fails.
func (s *ArticleSubscriber) Run(ctx context.Context) error {
	sub := s.client.Subscription(s.subID)
	// runs already fan out per platform
	sub.ReceiveSettings.MaxOutstandingMessages = 4
	logger.GetLogger().WithField("subscription", s.subID).Info("article subscriber started")
	err := sub.Receive(ctx, s.handle)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("receive %s: %w", s.subID, err)
	}
	return nil
}

// handle always acks: a redelivered article would be posted twice.
func (s *ArticleSubscriber) handle(ctx context.Context, msg *pubsub.Message) {
	defer msg.Ack()
	log := logger.GetLogger().WithField("messageId", msg.ID)

	article, err := DecodeArticle(msg.Data)
	if err != nil {
		log.WithField("error", err).Warn("dropping invalid article message")
		return
	}

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	res := s.poster.AutoPostContent(runCtx, article)
	log.WithFields(map[string]interface{}{
		"slug":    article.Slug,
		"runId":   res.RunID,
		"success": res.Success,
	}).Info("auto-post run from subscription finished")
}

// DecodeArticle parses and validates a message payload.
func DecodeArticle(data []byte) (model.Article, error) {
	var a model.Article
	if err := json.Unmarshal(data, &a); err != nil {
		return model.Article{}, fmt.Errorf("decode article: %w", err)
	}
	if err := a.Validate(); err != nil {
		return model.Article{}, err
	}
	return a, nil
}
