package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"news-social/domain/model"
	"news-social/domain/repository"
	"news-social/infrastructure/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrDeleteUnsupported is returned for platforms whose client cannot remove posts.
var ErrDeleteUnsupported = errors.New("post deletion not supported for this platform")

type IAutoPostUsecase interface {
	// AutoPostContent posts article to every ready platform. It never fails as a whole:
	// every per-platform problem is reported inside the result.
	AutoPostContent(ctx context.Context, article model.Article) *model.MultiPlatformPostResult
	DeletePost(ctx context.Context, platform model.Platform, postID string) error
	History(ctx context.Context, slug string, limit int) ([]*model.PostAudit, error)
}

type AutoPostConfig struct {
	RequestTimeout time.Duration
	MaxRetryDelay  time.Duration
	Policy         model.SuccessPolicy
}

type AutoPostOption func(*autoPostUsecase)

func WithAuditLog(audit repository.IPostAudit) AutoPostOption {
	return func(u *autoPostUsecase) { u.audit = audit }
}

func WithPostMetrics(m IPostMetrics) AutoPostOption {
	return func(u *autoPostUsecase) {
		if m != nil {
			u.metrics = m
		}
	}
}

// WithBroadcaster sets a callback fired after each platform attempt finishes.
func WithBroadcaster(fn func(model.PostStatusEvent)) AutoPostOption {
	return func(u *autoPostUsecase) { u.broadcast = fn }
}

// WithSleeper replaces the context-aware backoff sleep.
func WithSleeper(fn func(ctx context.Context, d time.Duration) error) AutoPostOption {
	return func(u *autoPostUsecase) { u.sleep = fn }
}

type autoPostUsecase struct {
	creds   ICredentialUsecase
	rate    IRateLimitManager
	content IContentGenerator
	clients map[model.Platform]repository.IPlatformClient
	cfg     AutoPostConfig

	audit     repository.IPostAudit
	metrics   IPostMetrics
	broadcast func(model.PostStatusEvent)
	sleep     func(ctx context.Context, d time.Duration) error

	locksMu sync.Mutex
	locks   map[model.Platform]*sync.Mutex
}

func NewAutoPostUsecase(creds ICredentialUsecase, rate IRateLimitManager, content IContentGenerator, clients []repository.IPlatformClient, cfg AutoPostConfig, opts ...AutoPostOption) IAutoPostUsecase {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 20 * time.Second
	}
	if cfg.Policy == "" {
		cfg.Policy = model.SuccessPolicyAny
	}
	u := &autoPostUsecase{
		creds:   creds,
		rate:    rate,
		content: content,
		clients: make(map[model.Platform]repository.IPlatformClient, len(clients)),
		cfg:     cfg,
		metrics: noopMetrics{},
		sleep:   sleepCtx,
		locks:   make(map[model.Platform]*sync.Mutex),
	}
	for _, c := range clients {
		u.clients[c.Platform()] = c
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *autoPostUsecase) AutoPostContent(ctx context.Context, article model.Article) *model.MultiPlatformPostResult {
	lg := logger.GetLogger().WithField("slug", article.Slug)
	result := &model.MultiPlatformPostResult{RunID: uuid.NewString(), Results: []model.PostAttemptResult{}}
	lg = lg.WithField("runId", result.RunID)

	settings, err := u.creds.Load(ctx)
	if err != nil {
		lg.WithError(err).Error("auto-post skipped, settings unavailable")
		return result
	}

	candidates := make([]model.Platform, 0, len(model.AllPlatforms))
	for _, p := range settings.ReadyPlatforms() {
		if _, ok := u.clients[p]; !ok {
			lg.WithField("platform", p).Warn("platform ready but no client registered")
			continue
		}
		candidates = append(candidates, p)
	}
	result.TotalPlatforms = len(candidates)
	if len(candidates) == 0 {
		lg.Info("no social platforms enabled and configured")
		return result
	}

	results := make([]model.PostAttemptResult, len(candidates))
	var g errgroup.Group
	for i, p := range candidates {
		g.Go(func() error {
			results[i] = u.postToPlatform(ctx, result.RunID, article, p, settings)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r.Success {
			result.SuccessfulPosts++
		}
	}
	result.Results = results
	result.Success = u.cfg.Policy.Evaluate(result.SuccessfulPosts, result.TotalPlatforms)
	u.writeAudit(ctx, result.RunID, article.Slug, results)

	lg.WithFields(map[string]interface{}{
		"total":      result.TotalPlatforms,
		"successful": result.SuccessfulPosts,
		"success":    result.Success,
	}).Info("auto-post finished")
	return result
}

// postToPlatform runs gate, post and record for one platform. Each pass holds the
// platform's process-wide lock; backoff waits happen outside it and the gate is
// checked again before every retry.
func (u *autoPostUsecase) postToPlatform(ctx context.Context, runID string, article model.Article, p model.Platform, settings *model.SocialMediaSettings) (res model.PostAttemptResult) {
	lg := logger.GetLogger().WithFields(map[string]interface{}{"runId": runID, "platform": p, "slug": article.Slug})
	defer func() { u.emit(runID, article.Slug, res) }()

	req := &model.PostRequest{
		Article:  article,
		Text:     u.content.GeneratePostContent(article, p),
		Link:     u.content.ArticleURL(article),
		ImageURL: article.ThumbnailURL,
	}
	cfg, _ := u.rate.Config(p)
	client := u.clients[p]

	for attempt := 1; ; attempt++ {
		out, err := u.gatedAttempt(ctx, lg, client, req, settings, attempt)
		if err == nil {
			if !out.Success {
				out.Attempts = attempt - 1
			}
			return *out
		}

		kind := model.KindOf(err)
		entry := lg.WithFields(map[string]interface{}{"attempt": attempt, "errorKind": kind, "error": err.Error()})
		var pe *model.PostError
		if kind == model.ErrorKindUnknown && errors.As(err, &pe) && pe.Payload != "" {
			entry = entry.WithField("payload", pe.Payload)
		}

		if !kind.Retryable() || attempt > cfg.MaxRetries {
			entry.Warn("post failed")
			return model.PostAttemptResult{Platform: p, Message: err.Error(), ErrorKind: kind, Attempts: attempt}
		}

		wait := u.rate.HandleRateLimitError(p, attempt)
		if ra := model.RetryAfterOf(err); ra > wait {
			wait = ra
		}
		if u.cfg.MaxRetryDelay > 0 && wait > u.cfg.MaxRetryDelay {
			wait = u.cfg.MaxRetryDelay
		}
		entry.WithField("wait", wait.String()).Warn("post failed, retrying")
		if sErr := u.sleep(ctx, wait); sErr != nil {
			return model.PostAttemptResult{Platform: p, Message: fmt.Sprintf("%s (retry abandoned: %v)", err.Error(), sErr), ErrorKind: kind, Attempts: attempt}
		}
	}
}

// gatedAttempt checks the rate gate and makes one post under the platform lock.
// An unsuccessful result with a nil error means the gate refused and no call was made.
func (u *autoPostUsecase) gatedAttempt(ctx context.Context, lg *logrus.Entry, client repository.IPlatformClient, req *model.PostRequest, settings *model.SocialMediaSettings, attempt int) (*model.PostAttemptResult, error) {
	p := client.Platform()
	lock := u.platformLock(p)
	lock.Lock()
	defer lock.Unlock()

	gate := u.rate.CanPost(ctx, p)
	if !gate.CanPost {
		u.metrics.RateGateDenied(p, gate.Reason)
		lg.WithFields(map[string]interface{}{"attempt": attempt, "reason": gate.Reason, "waitMs": gate.WaitTimeMs()}).Info("rate gate denied post")
		msg := gate.Message
		if msg == "" {
			msg = string(gate.Reason)
		}
		return &model.PostAttemptResult{Platform: p, Message: msg, ErrorKind: model.ErrorKindRateLimited, WaitTimeMs: gate.WaitTimeMs()}, nil
	}

	start := time.Now()
	out, err := u.attempt(ctx, client, req, settings)
	elapsed := time.Since(start)
	if err != nil {
		u.metrics.ObservePost(p, string(model.KindOf(err)), elapsed)
		return nil, err
	}
	if out == nil {
		out = &model.PostAttemptResult{}
	}
	out.Platform = p
	out.Success = true
	out.Attempts = attempt
	out.ErrorKind = model.ErrorKindNone
	if out.Message == "" {
		out.Message = "posted"
	}
	u.rate.RecordPost(ctx, p)
	u.metrics.ObservePost(p, "success", elapsed)
	lg.WithFields(map[string]interface{}{"attempt": attempt, "postId": deref(out.PostID)}).Info("post published")
	return out, nil
}

// attempt makes one bounded adapter call, turning panics and timeouts into classified errors.
func (u *autoPostUsecase) attempt(ctx context.Context, client repository.IPlatformClient, req *model.PostRequest, settings *model.SocialMediaSettings) (res *model.PostAttemptResult, err error) {
	p := client.Platform()
	defer func() {
		if r := recover(); r != nil {
			logger.GetLogger().WithFields(map[string]interface{}{"platform": p, "panic": fmt.Sprint(r)}).Error("platform client panicked")
			res, err = nil, model.NewUnknownError(p, fmt.Sprintf("client panic: %v", r), "")
		}
	}()

	actx, cancel := context.WithTimeout(ctx, u.cfg.RequestTimeout)
	defer cancel()
	res, err = client.Post(actx, req, settings)
	if err != nil && errors.Is(actx.Err(), context.DeadlineExceeded) && model.KindOf(err) == model.ErrorKindUnknown {
		err = model.NewNetworkError(p, fmt.Errorf("request timed out after %v: %w", u.cfg.RequestTimeout, err))
	}
	return res, err
}

func (u *autoPostUsecase) DeletePost(ctx context.Context, p model.Platform, postID string) error {
	client, ok := u.clients[p]
	if !ok {
		return fmt.Errorf("no client for platform %q", p)
	}
	deleter, ok := client.(repository.IPostDeleter)
	if !ok {
		return ErrDeleteUnsupported
	}
	settings, err := u.creds.Load(ctx)
	if err != nil {
		return err
	}
	if !model.Ready(settings.Credentials(p)) {
		return &model.PostError{Kind: model.ErrorKindNotConfigured, Platform: p, Message: "platform not enabled or not configured"}
	}
	actx, cancel := context.WithTimeout(ctx, u.cfg.RequestTimeout)
	defer cancel()
	if err := deleter.DeletePost(actx, postID, settings); err != nil {
		return err
	}
	logger.GetLogger().WithFields(map[string]interface{}{"platform": p, "postId": postID}).Info("post deleted")
	return nil
}

func (u *autoPostUsecase) History(ctx context.Context, slug string, limit int) ([]*model.PostAudit, error) {
	if u.audit == nil {
		return []*model.PostAudit{}, nil
	}
	return u.audit.ListBySlug(ctx, slug, limit)
}

func (u *autoPostUsecase) writeAudit(ctx context.Context, runID, slug string, results []model.PostAttemptResult) {
	if u.audit == nil || len(results) == 0 {
		return
	}
	rows := make([]*model.PostAudit, 0, len(results))
	for _, r := range results {
		rows = append(rows, model.NewPostAudit(runID, slug, r))
	}
	if err := u.audit.CreateAudit(ctx, rows); err != nil {
		logger.GetLogger().WithField("runId", runID).WithError(err).Error("failed to write post audit")
	}
}

func (u *autoPostUsecase) emit(runID, slug string, r model.PostAttemptResult) {
	if u.broadcast == nil {
		return
	}
	u.broadcast(model.PostStatusEvent{
		RunID:     runID,
		Slug:      slug,
		Platform:  r.Platform,
		Success:   r.Success,
		Message:   r.Message,
		PostID:    r.PostID,
		URL:       r.URL,
		ErrorKind: r.ErrorKind,
	})
}

func (u *autoPostUsecase) platformLock(p model.Platform) *sync.Mutex {
	u.locksMu.Lock()
	defer u.locksMu.Unlock()
	l, ok := u.locks[p]
	if !ok {
		l = &sync.Mutex{}
		u.locks[p] = l
	}
	return l
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
