package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"news-social/domain/model"
	"news-social/domain/repository"
	"news-social/infrastructure/cache"
	"news-social/infrastructure/clients/facebook"
	"news-social/infrastructure/clients/instagram"
	"news-social/infrastructure/clients/linkedin"
	"news-social/infrastructure/clients/provider"
	"news-social/infrastructure/clients/telegram"
	"news-social/infrastructure/clients/twitter"
	"news-social/infrastructure/configuration"
	"news-social/infrastructure/logger"
	"news-social/infrastructure/metrics"
	"news-social/infrastructure/persistence"
	"news-social/infrastructure/pubsub"
	"news-social/infrastructure/realtime"
	httpHandler "news-social/interfaces/http"
	"news-social/server"
	"news-social/usecase"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

var httpServer *http.Server

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	if err := run(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application stopped with an error")
		os.Exit(1)
	}
}

// run owns every resource it opens, so all deferred cleanup has finished when it returns.
func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	app := configuration.C.App
	social := configuration.C.SocialMedia
	health := map[string]httpHandler.HealthCheck{}

	mongoCfg := configuration.C.Database.Mongo
	mongoClient, err := persistence.NewMongoDb(mongoCfg.Host, mongoCfg.Port, mongoCfg.User, mongoCfg.Password, mongoCfg.Name)
	if err != nil {
		return fmt.Errorf("credential store unavailable: %w", err)
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()
	if err := mongoClient.Ping(ctx, nil); err != nil {
		logger.GetLogger().WithField("error", err).Warn("MongoDB ping failed - settings reads will fail until it is reachable")
	} else {
		logger.GetLogger().Info("MongoDB connected successfully")
	}
	health["mongo"] = func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) }
	settingsRepo := persistence.NewSettingsRepository(mongoClient.Database(mongoCfg.Name))

	auditDB, auditRepo, err := InitiateDatabase()
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Audit database not available - post history disabled")
	}
	if auditDB != nil {
		defer auditDB.Close()
		health["audit"] = auditDB.PingContext
	}

	collector, err := metrics.NewCollector()
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	rateOpts := []usecase.RateLimitOption{}
	if rdb := initiateRedis(ctx); rdb != nil {
		defer rdb.Close()
		rateOpts = append(rateOpts, usecase.WithRateLimitStore(cache.NewRateLimitStore(rdb)))
		health["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	rateLimits := usecase.NewRateLimitManager(social.RateLimitTable(), social.MaxRetryDelay(), rateOpts...)
	rateLimits.Restore(ctx)

	hc := provider.NewHTTPClient(social.RequestTimeout())
	fbClient := facebook.NewFacebookClient(facebook.Config{BaseURL: social.GraphBaseURL, APIVersion: social.GraphAPIVersion, HTTPClient: hc})
	twClient := twitter.NewTwitterClient(twitter.Config{BaseURL: social.TwitterBaseURL, HTTPClient: hc})
	liClient := linkedin.NewLinkedInClient(linkedin.Config{BaseURL: social.LinkedInBaseURL, TokenURL: social.LinkedInTokenURL, HTTPClient: hc})
	igClient := instagram.NewInstagramClient(instagram.Config{BaseURL: social.GraphBaseURL, APIVersion: social.GraphAPIVersion, HTTPClient: hc})
	tgClient := telegram.NewTelegramClient(telegram.Config{ServerURL: social.TelegramBaseURL, HTTPClient: hc})

	creds := usecase.NewCredentialUsecase(settingsRepo, social.SettingsCacheTTL())
	content := usecase.NewContentGenerator(usecase.ContentConfig{
		SiteURL:         social.SiteURL,
		ArticlePath:     social.ArticlePath,
		DefaultHashtags: social.DefaultHashtags,
		Language:        social.Language,
	})

	hub := realtime.NewPostHub()
	autoOpts := []usecase.AutoPostOption{
		usecase.WithPostMetrics(collector),
		usecase.WithBroadcaster(hub.Broadcast),
	}
	if auditRepo != nil {
		autoOpts = append(autoOpts, usecase.WithAuditLog(auditRepo))
	}
	autoPost := usecase.NewAutoPostUsecase(creds, rateLimits, content,
		[]repository.IPlatformClient{fbClient, twClient, liClient, igClient, tgClient},
		usecase.AutoPostConfig{RequestTimeout: social.RequestTimeout(), MaxRetryDelay: social.MaxRetryDelay(), Policy: social.Policy()},
		autoOpts...,
	)

	tokens := usecase.NewTokenLifecycleManager(creds,
		[]repository.ITokenStrategy{fbClient, twClient, liClient, igClient, tgClient},
		usecase.TokenConfig{
			Interval:       social.TokenCheckInterval(),
			ThresholdDays:  social.TokenRefreshThresholdDays,
			RequestTimeout: social.RequestTimeout(),
		},
		collector,
	)
	g.Go(func() error { return tokens.Start(ctx) })

	if sub := configuration.C.Pubsub.ArticleSubscription; sub != "" {
		psClient, err := pubsub.NewPubSub(ctx, configuration.C.Pubsub.ProjectID)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("PubSub not available - article trigger disabled")
		} else {
			defer psClient.Close()
			subscriber := pubsub.NewArticleSubscriber(psClient, sub, autoPost, 10*time.Minute)
			g.Go(func() error { return subscriber.Run(ctx) })
		}
	}

	connector := facebook.NewConnector(facebook.ConnectConfig{GraphBaseURL: social.GraphBaseURL, APIVersion: social.GraphAPIVersion, HTTPClient: hc})
	var facebookOAuthHandler httpHandler.IFacebookOAuthHandler
	if configuration.C.OAuth.Facebook.RedirectURI != "" {
		facebookOAuthHandler = httpHandler.NewFacebookOAuthHandler(creds, connector, configuration.C.OAuth.Facebook.RedirectURI)
	}

	router := server.InitiateRouter(server.Handlers{
		Social:        httpHandler.NewSocialHandler(autoPost, creds, rateLimits, tokens),
		Settings:      httpHandler.NewSettingsHandler(creds),
		RateLimits:    httpHandler.NewRateLimitHandler(rateLimits),
		Tokens:        httpHandler.NewTokenHandler(tokens),
		Health:        httpHandler.NewHealthHandler(health),
		FacebookOAuth: facebookOAuthHandler,
		Stream:        hub.Serve,
		Metrics:       collector.Handler(),
		HTTPMetrics:   collector.Middleware(),
	}, server.RouterConfig{SecretKey: app.SecretKey, AllowOrigins: app.AllowOrigins})

	logger.GetLogger().WithFields(map[string]interface{}{
		"port":       app.Port,
		"tls":        app.TLSEnabled,
		"platforms":  len(model.AllPlatforms),
		"auditLog":   auditRepo != nil,
		"rateStore":  social.RateLimitStore,
		"successPol": social.Policy(),
	}).Info("Starting application")
	// SSE streams stay open, so there is no write timeout.
	httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		var err error
		if app.TLSEnabled && app.TLSCertFile != "" && app.TLSKeyFile != "" {
			logger.GetLogger().WithFields(map[string]interface{}{"cert": app.TLSCertFile, "key": app.TLSKeyFile}).Info("Serving HTTPS")
			err = httpServer.ListenAndServeTLS(app.TLSCertFile, app.TLSKeyFile)
		} else {
			if app.TLSEnabled {
				logger.GetLogger().Error("TLS enabled but cert or key path empty; falling back to HTTP")
			}
			err = httpServer.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	select {
	case <-interrupt:
		logger.GetLogger().Info("Application shutdown requested")
	case <-ctx.Done():
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.GetLogger().WithField("error", err).Warn("HTTP shutdown incomplete")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// InitiateDatabase opens the audit log for the configured vendor and makes
// sure its table exists. A missing database disables history, not posting.
func InitiateDatabase() (*sql.DB, repository.IPostAudit, error) {
	switch configuration.C.Database.Vendor {
	case "mssql":
		db, err := persistence.NewMSSQLDB()
		if err != nil {
			return nil, nil, fmt.Errorf("connect mssql: %w", err)
		}
		if err := persistence.EnsurePostAuditSchemaMSSQL(db); err != nil {
			logger.GetLogger().WithField("error", err).Error("failed ensuring post audit schema (mssql)")
		}
		logger.GetLogger().Info("Audit log on MSSQL")
		return db, persistence.NewPostAuditRepositoryMSSQL(db), nil
	default:
		db, err := persistence.NewPostgreSQLDB()
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := persistence.EnsurePostAuditSchema(db); err != nil {
			logger.GetLogger().WithField("error", err).Error("failed ensuring post audit schema")
		}
		logger.GetLogger().Info("Audit log on PostgreSQL")
		return db, persistence.NewPostAuditRepository(db), nil
	}
}

// initiateRedis returns nil unless the redis rate limit store is selected and reachable.
func initiateRedis(ctx context.Context) *redis.Client {
	if configuration.C.SocialMedia.RateLimitStore != "redis" {
		return nil
	}
	rc := configuration.C.RedisClient
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rdb, err := cache.NewCache(pingCtx, fmt.Sprintf("%s:%s", rc.Host, rc.Port), rc.Username, rc.Password)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Redis not available - rate limit counters stay in memory")
		return nil
	}
	return rdb
}
