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

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// ErrInvalidSettings wraps rejected settings updates.
var ErrInvalidSettings = errors.New("invalid social media settings")

type ICredentialUsecase interface {
	// Load returns the typed settings, served from cache within the TTL.
	Load(ctx context.Context) (*model.SocialMediaSettings, error)
	// Update merges a flat patch into the stored document and drops the cache.
	Update(ctx context.Context, patch map[string]any, actorID string) error
	// Masked returns the stored fields with secrets masked.
	Masked(ctx context.Context) (map[string]any, error)
	Readiness(ctx context.Context) ([]model.PlatformReadiness, error)
	Invalidate()
}

type credentialUsecase struct {
	repo repository.ISettings
	ttl  time.Duration
	now  func() time.Time

	mu       sync.Mutex
	cached   *model.SocialMediaSettings
	cachedAt time.Time
}

func NewCredentialUsecase(repo repository.ISettings, ttl time.Duration) ICredentialUsecase {
	return &credentialUsecase{repo: repo, ttl: ttl, now: time.Now}
}

func (u *credentialUsecase) Load(ctx context.Context) (*model.SocialMediaSettings, error) {
	u.mu.Lock()
	if u.cached != nil && u.now().Sub(u.cachedAt) < u.ttl {
		s := *u.cached
		u.mu.Unlock()
		return &s, nil
	}
	u.mu.Unlock()

	raw, err := u.repo.GetCategorySettings(ctx, model.SettingsCategory)
	if err != nil {
		return nil, fmt.Errorf("load %s settings: %w", model.SettingsCategory, err)
	}
	settings, err := DecodeSettings(raw)
	if err != nil {
		return nil, err
	}
	if vErr := settings.Validate(); vErr != nil {
		logger.GetLogger().WithField("error", vErr.Error()).Warn("social media settings have invalid fields")
	}

	u.mu.Lock()
	u.cached = settings
	u.cachedAt = u.now()
	u.mu.Unlock()

	s := *settings
	return &s, nil
}

func (u *credentialUsecase) Update(ctx context.Context, patch map[string]any, actorID string) error {
	if len(patch) == 0 {
		return fmt.Errorf("%w: empty patch", ErrInvalidSettings)
	}
	coerced, err := model.CoerceSettingsPatch(patch)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}

	current, err := u.repo.GetCategorySettings(ctx, model.SettingsCategory)
	if err != nil {
		return fmt.Errorf("load %s settings: %w", model.SettingsCategory, err)
	}
	merged := make(map[string]any, len(current)+len(coerced))
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range coerced {
		merged[k] = v
	}
	next, err := DecodeSettings(merged)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	if vErr := touchedErrors(next.Validate(), coerced); vErr != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, vErr)
	}

	if err := u.repo.UpdateCategorySettings(ctx, model.SettingsCategory, coerced, actorID); err != nil {
		return fmt.Errorf("update %s settings: %w", model.SettingsCategory, err)
	}
	u.Invalidate()

	fields := make([]string, 0, len(coerced))
	for k := range coerced {
		fields = append(fields, k)
	}
	logger.GetLogger().WithFields(map[string]interface{}{"actor": actorID, "fields": fields}).Info("social media settings updated")
	return nil
}

func (u *credentialUsecase) Masked(ctx context.Context) (map[string]any, error) {
	raw, err := u.repo.GetCategorySettings(ctx, model.SettingsCategory)
	if err != nil {
		return nil, fmt.Errorf("load %s settings: %w", model.SettingsCategory, err)
	}
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok && model.IsSecretField(k) {
			out[k] = model.MaskSecret(s)
			continue
		}
		out[k] = v
	}
	return out, nil
}

func (u *credentialUsecase) Readiness(ctx context.Context) ([]model.PlatformReadiness, error) {
	s, err := u.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.PlatformReadiness, 0, len(model.AllPlatforms))
	for _, p := range model.AllPlatforms {
		c := s.Credentials(p)
		out = append(out, model.PlatformReadiness{
			Platform:   p,
			Enabled:    c.IsEnabled(),
			Configured: c.Configured(),
			Ready:      model.Ready(c),
		})
	}
	return out, nil
}

func (u *credentialUsecase) Invalidate() {
	u.mu.Lock()
	u.cached = nil
	u.mu.Unlock()
}

// DecodeSettings maps the flat stored fields onto the typed settings through a BSON round-trip.
func DecodeSettings(raw map[string]any) (*model.SocialMediaSettings, error) {
	settings := &model.SocialMediaSettings{}
	if len(raw) == 0 {
		return settings, nil
	}
	b, err := bson.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	if err := bson.Unmarshal(b, settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return settings, nil
}

// touchedErrors keeps only validation errors for platforms the patch modified.
func touchedErrors(err error, patch map[string]any) error {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return err
	}
	touched := map[string]bool{}
	for k := range patch {
		if p, ok := model.PlatformOfField(k); ok {
			touched[string(p)] = true
		}
	}
	out := validation.Errors{}
	for k, v := range errs {
		if touched[k] {
			out[k] = v
		}
	}
	return out.Filter()
}
