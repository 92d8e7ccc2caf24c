package configuration

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"news-social/domain/model"
	"news-social/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	App         App         `json:"app"`
	Database    Database    `json:"database"`
	RedisClient RedisClient `json:"redisClient"`
	Pubsub      Pubsub      `json:"pubsub"`
	Logger      Logger      `json:"logger"`
	SocialMedia SocialMedia `json:"socialMedia"`
	OAuth       OAuth       `json:"oauth"`
}

type App struct {
	Port        int    `json:"port"`
	TLSEnabled  bool   `json:"tlsEnabled"`
	TLSCertFile string `json:"tlsCertFile"`
	TLSKeyFile  string `json:"tlsKeyFile"`

	// SecretKey signs admin API bearer tokens; empty disables auth.
	SecretKey    string   `json:"secretKey"`
	AllowOrigins []string `json:"allowOrigins"`
}

type Database struct {
	Psql  Db `json:"psql"`
	Mongo Db `json:"mongo"`
	Mssql Db `json:"mssql"`
	// Vendor selects the audit log database: "psql" (default) or "mssql".
	Vendor string `json:"vendor"`
}

type Db struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type RedisClient struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Password string `json:"password"`
	Username string `json:"username"`
	DB       int    `json:"db"`
}

type Pubsub struct {
	ProjectID           string `json:"projectID"`
	ArticleSubscription string `json:"articleSubscription"`
}

type Logger struct {
	Format string `json:"format"`
}

// SocialMedia configures the auto-posting subsystem.
type SocialMedia struct {
	SiteURL                   string                       `json:"siteURL"`
	ArticlePath               string                       `json:"articlePath"`
	DefaultHashtags           []string                     `json:"defaultHashtags"`
	Language                  string                       `json:"language"`
	RequestTimeoutSeconds     int                          `json:"requestTimeoutSeconds"`
	MaxRetryDelaySeconds      int                          `json:"maxRetryDelaySeconds"`
	SuccessPolicy             string                       `json:"successPolicy"`
	TokenCheckIntervalHours   int                          `json:"tokenCheckIntervalHours"`
	TokenRefreshThresholdDays int                          `json:"tokenRefreshThresholdDays"`
	SettingsCacheSeconds      int                          `json:"settingsCacheSeconds"`
	RateLimitStore            string                       `json:"rateLimitStore"`
	GraphAPIVersion           string                       `json:"graphAPIVersion"`
	GraphBaseURL              string                       `json:"graphBaseURL"`
	TwitterBaseURL            string                       `json:"twitterBaseURL"`
	LinkedInBaseURL           string                       `json:"linkedinBaseURL"`
	LinkedInTokenURL          string                       `json:"linkedinTokenURL"`
	TelegramBaseURL           string                       `json:"telegramBaseURL"`
	RateLimits                map[string]RateLimitOverride `json:"rateLimits"`
}

// RateLimitOverride replaces individual fields of the default table; zero keeps the default.
type RateLimitOverride struct {
	PostsPerHour      int `json:"postsPerHour"`
	PostsPerDay       int `json:"postsPerDay"`
	MinDelaySeconds   int `json:"minDelaySeconds"`
	RetryDelaySeconds int `json:"retryDelaySeconds"`
	MaxRetries        int `json:"maxRetries"`
}

// OAuth holds redirect configuration for interactive connect flows.
type OAuth struct {
	Facebook OAuthClient `json:"facebook"`
}

type OAuthClient struct {
	RedirectURI string `json:"redirectURI"`
}

var C Config

func init() {
	LoadEnvFromFile("config.env", ".env")
	LoadConfig()
	initDatabase(&C)
	initApp(&C)
	initSocialMedia(&C.SocialMedia)
	if C.App.TLSEnabled && C.OAuth.Facebook.RedirectURI != "" && !hasHTTPS(C.OAuth.Facebook.RedirectURI) {
		C.OAuth.Facebook.RedirectURI = toHTTPSCallback(C.OAuth.Facebook.RedirectURI)
	}
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().WithField("config", name).Warn("Config file not found, using defaults")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
}

func getConfig() string {
	name := "config"
	if env := os.Getenv("ENV"); env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initDatabase(c *Config) {
	setIfEmpty(&c.Database.Mongo.Host, os.Getenv("MONGO_HOST"), "localhost")
	setIfEmpty(&c.Database.Mongo.Port, os.Getenv("MONGO_PORT"), "27017")
	setIfEmpty(&c.Database.Mongo.Name, os.Getenv("MONGO_DB_NAME"), "news")
	setIfEmpty(&c.Database.Mongo.User, os.Getenv("MONGO_USER"), "")
	setIfEmpty(&c.Database.Mongo.Password, os.Getenv("MONGO_PASSWORD"), "")

	setIfEmpty(&c.Database.Psql.Name, os.Getenv("DB_NAME"), "")
	setIfEmpty(&c.Database.Psql.Host, os.Getenv("DB_HOST"), "")
	setIfEmpty(&c.Database.Psql.Port, os.Getenv("DB_PORT"), "5432")
	setIfEmpty(&c.Database.Psql.User, os.Getenv("DB_USER"), "")
	setIfEmpty(&c.Database.Psql.Password, os.Getenv("DB_PASSWORD"), "")

	setIfEmpty(&c.Database.Mssql.Name, os.Getenv("MSSQL_DB_NAME"), "")
	setIfEmpty(&c.Database.Mssql.Host, os.Getenv("MSSQL_HOST"), "localhost")
	setIfEmpty(&c.Database.Mssql.Port, os.Getenv("MSSQL_PORT"), "1433")
	setIfEmpty(&c.Database.Mssql.User, os.Getenv("MSSQL_USER"), "")
	setIfEmpty(&c.Database.Mssql.Password, os.Getenv("MSSQL_PASSWORD"), "")

	// DB_VENDOR=mssql overrides the config file, matching how production is deployed
	if v := os.Getenv("DB_VENDOR"); v != "" {
		c.Database.Vendor = v
	}
	if c.Database.Vendor == "" {
		c.Database.Vendor = "psql"
	}

	setIfEmpty(&c.RedisClient.Host, os.Getenv("REDIS_HOST"), "localhost")
	setIfEmpty(&c.RedisClient.Port, os.Getenv("REDIS_PORT"), "6379")
	setIfEmpty(&c.RedisClient.Password, os.Getenv("REDIS_PASSWORD"), "")
}

func initApp(c *Config) {
	// Port resolution order (env overrides config): APP_PORT -> PORT -> config -> default 10001
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.App.Port = p
		}
	}
	if c.App.Port == 0 {
		c.App.Port = 10001
	}
	if v := os.Getenv("TLS_ENABLED"); v != "" {
		switch strings.ToLower(v) {
		case "1", "true":
			c.App.TLSEnabled = true
		case "0", "false":
			c.App.TLSEnabled = false
		}
	}
	setIfEmpty(&c.App.TLSCertFile, os.Getenv("TLS_CERT_FILE"), "")
	setIfEmpty(&c.App.TLSKeyFile, os.Getenv("TLS_KEY_FILE"), "")
	setIfEmpty(&c.App.SecretKey, os.Getenv("SECRET_KEY"), "")
	if v := os.Getenv("CORS_ALLOW_ORIGINS"); v != "" {
		c.App.AllowOrigins = strings.Split(v, ",")
	}
	if len(c.App.AllowOrigins) == 0 {
		c.App.AllowOrigins = []string{"http://localhost:4200", "http://localhost:4201", "https://localhost:4200", "https://localhost:4201"}
	}
	if c.App.TLSEnabled {
		logger.GetLogger().WithFields(map[string]interface{}{"cert": c.App.TLSCertFile, "key": c.App.TLSKeyFile}).Info("TLS enabled via configuration")
	}
}

func initSocialMedia(s *SocialMedia) {
	setIfEmpty(&s.SiteURL, os.Getenv("SITE_URL"), "http://localhost:3000")
	setIfEmpty(&s.ArticlePath, "", "/news/")
	setIfEmpty(&s.Language, "", "en")
	setIfEmpty(&s.SuccessPolicy, "", string(model.SuccessPolicyAny))
	setIfEmpty(&s.RateLimitStore, os.Getenv("RATE_LIMIT_STORE"), "memory")
	setIfEmpty(&s.GraphAPIVersion, os.Getenv("FACEBOOK_GRAPH_VERSION"), "v19.0")
	setIfEmpty(&s.GraphBaseURL, "", "https://graph.facebook.com")
	setIfEmpty(&s.TwitterBaseURL, "", "https://api.twitter.com")
	setIfEmpty(&s.LinkedInBaseURL, "", "https://api.linkedin.com")
	setIfEmpty(&s.LinkedInTokenURL, "", "https://www.linkedin.com/oauth/v2/accessToken")
	setIfEmpty(&s.TelegramBaseURL, "", "https://api.telegram.org")
	if s.RequestTimeoutSeconds <= 0 {
		s.RequestTimeoutSeconds = 20
	}
	if s.MaxRetryDelaySeconds <= 0 {
		s.MaxRetryDelaySeconds = 900
	}
	if s.TokenCheckIntervalHours <= 0 {
		s.TokenCheckIntervalHours = 24
	}
	if s.TokenRefreshThresholdDays <= 0 {
		s.TokenRefreshThresholdDays = 10
	}
	if s.SettingsCacheSeconds <= 0 {
		s.SettingsCacheSeconds = 60
	}
	if len(s.DefaultHashtags) == 0 {
		s.DefaultHashtags = []string{"#News", "#Cambodia"}
	}
}

// RequestTimeout bounds every provider call.
func (s SocialMedia) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

func (s SocialMedia) MaxRetryDelay() time.Duration {
	return time.Duration(s.MaxRetryDelaySeconds) * time.Second
}

func (s SocialMedia) TokenCheckInterval() time.Duration {
	return time.Duration(s.TokenCheckIntervalHours) * time.Hour
}

func (s SocialMedia) SettingsCacheTTL() time.Duration {
	return time.Duration(s.SettingsCacheSeconds) * time.Second
}

// Policy returns the aggregate success policy; unknown values fall back to "any".
func (s SocialMedia) Policy() model.SuccessPolicy {
	if model.SuccessPolicy(strings.ToLower(s.SuccessPolicy)) == model.SuccessPolicyAll {
		return model.SuccessPolicyAll
	}
	return model.SuccessPolicyAny
}

// RateLimitTable merges configured overrides into the default table.
func (s SocialMedia) RateLimitTable() map[model.Platform]model.RateLimitConfig {
	table := model.DefaultRateLimits()
	for name, o := range s.RateLimits {
		p, ok := model.ParsePlatform(name)
		if !ok {
			logger.GetLogger().WithField("platform", name).Warn("ignoring rate limit override for unknown platform")
			continue
		}
		cfg := table[p]
		if o.PostsPerHour > 0 {
			cfg.PostsPerHour = o.PostsPerHour
		}
		if o.PostsPerDay > 0 {
			cfg.PostsPerDay = o.PostsPerDay
		}
		if o.MinDelaySeconds > 0 {
			cfg.MinDelayBetweenPosts = time.Duration(o.MinDelaySeconds) * time.Second
		}
		if o.RetryDelaySeconds > 0 {
			cfg.RetryDelay = time.Duration(o.RetryDelaySeconds) * time.Second
		}
		if o.MaxRetries > 0 {
			cfg.MaxRetries = o.MaxRetries
		}
		table[p] = cfg
	}
	return table
}

// setIfEmpty fills *dst from env first, then def, leaving non-empty values from the config file alone.
func setIfEmpty(dst *string, env, def string) {
	if *dst != "" {
		return
	}
	if env != "" {
		*dst = env
		return
	}
	*dst = def
}

// helpers to coerce local callback to https
func hasHTTPS(u string) bool { return strings.HasPrefix(u, "https://") }
func toHTTPSCallback(u string) string {
	if strings.HasPrefix(u, "http://") {
		return "https://" + strings.TrimPrefix(u, "http://")
	}
	return u
}
