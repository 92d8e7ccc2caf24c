package model

import (
	"strings"
	"time"
)

// Platform identifies a third-party social network we publish to.
type Platform string

const (
	PlatformFacebook  Platform = "facebook"
	PlatformTwitter   Platform = "twitter"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformInstagram Platform = "instagram"
	PlatformTelegram  Platform = "telegram"
)

// AllPlatforms lists every supported platform in a stable order.
var AllPlatforms = []Platform{
	PlatformFacebook,
	PlatformTwitter,
	PlatformLinkedIn,
	PlatformInstagram,
	PlatformTelegram,
}

// ParsePlatform normalizes user input ("X" is accepted for twitter).
func ParsePlatform(s string) (Platform, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "x" {
		s = string(PlatformTwitter)
	}
	for _, p := range AllPlatforms {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}

// SettingsCategory is the Credential Store category holding all platform credentials.
const SettingsCategory = "social-media"

// PlatformCredentials is the common view over the per-platform credential sections.
type PlatformCredentials interface {
	Platform() Platform
	IsEnabled() bool
	// Configured reports whether every required credential field is non-empty.
	Configured() bool
}

// Ready is true iff the platform is enabled and configured.
func Ready(c PlatformCredentials) bool {
	return c != nil && c.IsEnabled() && c.Configured()
}

type FacebookCredentials struct {
	Enabled         bool       `bson:"facebookEnabled" json:"facebookEnabled"`
	AppID           string     `bson:"facebookAppId" json:"facebookAppId"`
	AppSecret       string     `bson:"facebookAppSecret" json:"facebookAppSecret"`
	PageID          string     `bson:"facebookPageId" json:"facebookPageId"`
	PageAccessToken string     `bson:"facebookPageAccessToken" json:"facebookPageAccessToken"`
	UserAccessToken string     `bson:"facebookUserAccessToken,omitempty" json:"facebookUserAccessToken,omitempty"`
	TokenExpiresAt  *time.Time `bson:"facebookTokenExpiresAt,omitempty" json:"facebookTokenExpiresAt,omitempty"`
}

func (c FacebookCredentials) Platform() Platform { return PlatformFacebook }
func (c FacebookCredentials) IsEnabled() bool    { return c.Enabled }
func (c FacebookCredentials) Configured() bool {
	return notBlank(c.AppID, c.AppSecret, c.PageID, c.PageAccessToken)
}

type TwitterCredentials struct {
	Enabled           bool   `bson:"twitterEnabled" json:"twitterEnabled"`
	APIKey            string `bson:"twitterApiKey" json:"twitterApiKey"`
	APISecret         string `bson:"twitterApiSecret" json:"twitterApiSecret"`
	AccessToken       string `bson:"twitterAccessToken" json:"twitterAccessToken"`
	AccessTokenSecret string `bson:"twitterAccessTokenSecret" json:"twitterAccessTokenSecret"`
	BearerToken       string `bson:"twitterBearerToken,omitempty" json:"twitterBearerToken,omitempty"`
}

func (c TwitterCredentials) Platform() Platform { return PlatformTwitter }
func (c TwitterCredentials) IsEnabled() bool    { return c.Enabled }
func (c TwitterCredentials) Configured() bool {
	return notBlank(c.APIKey, c.APISecret, c.AccessToken, c.AccessTokenSecret)
}

type LinkedInCredentials struct {
	Enabled        bool       `bson:"linkedinEnabled" json:"linkedinEnabled"`
	ClientID       string     `bson:"linkedinClientId" json:"linkedinClientId"`
	ClientSecret   string     `bson:"linkedinClientSecret" json:"linkedinClientSecret"`
	AccessToken    string     `bson:"linkedinAccessToken" json:"linkedinAccessToken"`
	RefreshToken   string     `bson:"linkedinRefreshToken" json:"linkedinRefreshToken"`
	OrganizationID string     `bson:"linkedinOrganizationId" json:"linkedinOrganizationId"`
	TokenExpiresAt *time.Time `bson:"linkedinTokenExpiresAt,omitempty" json:"linkedinTokenExpiresAt,omitempty"`
}

func (c LinkedInCredentials) Platform() Platform { return PlatformLinkedIn }
func (c LinkedInCredentials) IsEnabled() bool    { return c.Enabled }

// Configured does not require the refresh token: posting works without it,
// only renewal does.
func (c LinkedInCredentials) Configured() bool {
	return notBlank(c.ClientID, c.ClientSecret, c.AccessToken, c.OrganizationID)
}

type InstagramCredentials struct {
	Enabled           bool       `bson:"instagramEnabled" json:"instagramEnabled"`
	AppID             string     `bson:"instagramAppId" json:"instagramAppId"`
	BusinessAccountID string     `bson:"instagramBusinessAccountId" json:"instagramBusinessAccountId"`
	AccessToken       string     `bson:"instagramAccessToken" json:"instagramAccessToken"`
	TokenExpiresAt    *time.Time `bson:"instagramTokenExpiresAt,omitempty" json:"instagramTokenExpiresAt,omitempty"`
}

func (c InstagramCredentials) Platform() Platform { return PlatformInstagram }
func (c InstagramCredentials) IsEnabled() bool    { return c.Enabled }
func (c InstagramCredentials) Configured() bool {
	return notBlank(c.AppID, c.BusinessAccountID, c.AccessToken)
}

type TelegramCredentials struct {
	Enabled         bool   `bson:"telegramEnabled" json:"telegramEnabled"`
	BotToken        string `bson:"telegramBotToken" json:"telegramBotToken"`
	ChannelID       string `bson:"telegramChannelId" json:"telegramChannelId"`
	ChannelUsername string `bson:"telegramChannelUsername,omitempty" json:"telegramChannelUsername,omitempty"`
}

func (c TelegramCredentials) Platform() Platform { return PlatformTelegram }
func (c TelegramCredentials) IsEnabled() bool    { return c.Enabled }
func (c TelegramCredentials) Configured() bool {
	return notBlank(c.BotToken, c.ChannelID)
}

// SocialMediaSettings is the typed form of the "social-media" settings document.
// Sections are inlined so the stored field names stay flat (facebookAppId, ...).
type SocialMediaSettings struct {
	Facebook  FacebookCredentials  `bson:",inline"`
	Twitter   TwitterCredentials   `bson:",inline"`
	LinkedIn  LinkedInCredentials  `bson:",inline"`
	Instagram InstagramCredentials `bson:",inline"`
	Telegram  TelegramCredentials  `bson:",inline"`
}

// Credentials returns the section for platform, or nil for an unknown platform.
func (s *SocialMediaSettings) Credentials(p Platform) PlatformCredentials {
	if s == nil {
		return nil
	}
	switch p {
	case PlatformFacebook:
		return s.Facebook
	case PlatformTwitter:
		return s.Twitter
	case PlatformLinkedIn:
		return s.LinkedIn
	case PlatformInstagram:
		return s.Instagram
	case PlatformTelegram:
		return s.Telegram
	}
	return nil
}

// ReadyPlatforms returns the platforms that are enabled and configured.
func (s *SocialMediaSettings) ReadyPlatforms() []Platform {
	out := make([]Platform, 0, len(AllPlatforms))
	for _, p := range AllPlatforms {
		if Ready(s.Credentials(p)) {
			out = append(out, p)
		}
	}
	return out
}

// PlatformReadiness is the admin view of a single platform's configuration state.
type PlatformReadiness struct {
	Platform   Platform `json:"platform"`
	Enabled    bool     `json:"enabled"`
	Configured bool     `json:"configured"`
	Ready      bool     `json:"ready"`
}

func notBlank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}
