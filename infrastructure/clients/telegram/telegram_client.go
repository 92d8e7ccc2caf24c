package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"news-social/domain/model"
	"news-social/domain/repository"
	"news-social/infrastructure/clients/provider"
	"news-social/infrastructure/logger"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const platform = model.PlatformTelegram

// IClient sends channel messages through the Bot API.
type IClient interface {
	repository.IPlatformClient
	repository.ITokenStrategy
	repository.IPostDeleter
}

type Config struct {
	ServerURL  string
	HTTPClient *http.Client
}

type client struct {
	serverURL string
	http      *http.Client
}

func NewTelegramClient(cfg Config) IClient {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = provider.NewHTTPClient(30 * time.Second)
	}
	return &client{serverURL: strings.TrimRight(cfg.ServerURL, "/"), http: hc}
}

func (c *client) Platform() model.Platform { return platform }

// bot builds a Bot API client for the stored token; the token can change with
// every settings update so nothing is cached.
func (c *client) bot(token string) (*tgbot.Bot, error) {
	opts := []tgbot.Option{
		tgbot.WithSkipGetMe(),
		tgbot.WithHTTPClient(c.http.Timeout, c.http),
	}
	if c.serverURL != "" {
		opts = append(opts, tgbot.WithServerURL(c.serverURL))
	}
	b, err := tgbot.New(token, opts...)
	if err != nil {
		return nil, model.NewAuthError(platform, fmt.Sprintf("invalid bot token: %v", err))
	}
	return b, nil
}

// classify maps Bot API errors into the taxonomy.
func classify(err error) error {
	var tooMany *tgbot.TooManyRequestsError
	switch {
	case errors.As(err, &tooMany):
		return model.NewRateLimitError(platform, tooMany.Message, time.Duration(tooMany.RetryAfter)*time.Second)
	case errors.Is(err, tgbot.ErrorUnauthorized), errors.Is(err, tgbot.ErrorForbidden):
		return &model.PostError{Kind: model.ErrorKindAuth, Platform: platform, Message: err.Error(), Err: err}
	case errors.Is(err, tgbot.ErrorBadRequest), errors.Is(err, tgbot.ErrorNotFound):
		return &model.PostError{Kind: model.ErrorKindValidation, Platform: platform, Message: err.Error(), Err: err}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return model.NewNetworkError(platform, err)
	}
	if model.KindOf(err) == model.ErrorKindNetwork {
		return model.NewNetworkError(platform, err)
	}
	return &model.PostError{Kind: model.ErrorKindUnknown, Platform: platform, Message: err.Error(), Err: err}
}

// MessageURL links a channel message: public channels by username, private
// ones through the t.me/c/ form of the -100 prefixed id.
func MessageURL(tg model.TelegramCredentials, messageID int) string {
	if u := strings.TrimPrefix(strings.TrimSpace(tg.ChannelUsername), "@"); u != "" {
		return fmt.Sprintf("https://t.me/%s/%d", u, messageID)
	}
	if id := strings.TrimPrefix(tg.ChannelID, "-100"); id != tg.ChannelID {
		return fmt.Sprintf("https://t.me/c/%s/%d", id, messageID)
	}
	return ""
}

func (c *client) Post(ctx context.Context, req *model.PostRequest, s *model.SocialMediaSettings) (*model.PostAttemptResult, error) {
	tg := s.Telegram
	b, err := c.bot(tg.BotToken)
	if err != nil {
		return nil, err
	}
	msg, err := b.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:    tg.ChannelID,
		Text:      req.Text,
		ParseMode: models.ParseModeMarkdownV1,
	})
	if err != nil {
		pe := classify(err)
		logger.GetLogger().WithFields(map[string]interface{}{"platform": platform, "errorKind": model.KindOf(pe)}).Warn("sendMessage failed")
		return nil, pe
	}
	logger.GetLogger().WithFields(map[string]interface{}{"platform": platform, "messageId": msg.ID}).Info("channel message sent")
	return &model.PostAttemptResult{
		Platform: platform,
		Success:  true,
		Message:  "posted",
		PostID:   provider.StrPtr(strconv.Itoa(msg.ID)),
		URL:      provider.StrPtr(MessageURL(tg, msg.ID)),
	}, nil
}

// CheckToken calls getMe, then getChat to confirm the bot can see the channel.
func (c *client) CheckToken(ctx context.Context, s *model.SocialMediaSettings) (*model.TokenStatus, error) {
	b, err := c.bot(s.Telegram.BotToken)
	if err != nil {
		return nil, err
	}
	me, err := b.GetMe(ctx)
	if err != nil {
		return nil, classify(err)
	}
	st := &model.TokenStatus{Valid: true, Identity: "@" + me.Username}
	chat, err := b.GetChat(ctx, &tgbot.GetChatParams{ChatID: s.Telegram.ChannelID})
	if err != nil {
		st.Message = fmt.Sprintf("bot cannot access channel %s: %v", s.Telegram.ChannelID, err)
		return st, nil
	}
	st.Message = "channel " + chat.Title
	return st, nil
}

// TokenInfo: bot tokens have no introspection endpoint.
func (c *client) TokenInfo(context.Context, *model.SocialMediaSettings) (*model.TokenInfo, error) {
	return nil, model.ErrIntrospectionUnsupported
}

// RefreshToken: bot tokens never expire.
func (c *client) RefreshToken(context.Context, *model.SocialMediaSettings) (*model.RefreshResult, error) {
	return nil, model.ErrRefreshUnsupported
}

func (c *client) DeletePost(ctx context.Context, postID string, s *model.SocialMediaSettings) error {
	id, err := strconv.Atoi(postID)
	if err != nil {
		return model.NewValidationError(platform, "message id must be numeric")
	}
	b, err := c.bot(s.Telegram.BotToken)
	if err != nil {
		return err
	}
	ok, err := b.DeleteMessage(ctx, &tgbot.DeleteMessageParams{ChatID: s.Telegram.ChannelID, MessageID: id})
	if err != nil {
		return classify(err)
	}
	if !ok {
		return model.NewUnknownError(platform, "deleteMessage returned false", "")
	}
	logger.GetLogger().WithField("messageId", id).Info("channel message deleted")
	return nil
}
