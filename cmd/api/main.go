// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/lovelistings/internal/admin"
	"github.com/carterperez-dev/lovelistings/internal/auth"
	"github.com/carterperez-dev/lovelistings/internal/billing"
	"github.com/carterperez-dev/lovelistings/internal/community"
	"github.com/carterperez-dev/lovelistings/internal/config"
	"github.com/carterperez-dev/lovelistings/internal/core"
	"github.com/carterperez-dev/lovelistings/internal/health"
	"github.com/carterperez-dev/lovelistings/internal/lifecycle"
	"github.com/carterperez-dev/lovelistings/internal/listing"
	"github.com/carterperez-dev/lovelistings/internal/media"
	"github.com/carterperez-dev/lovelistings/internal/metrics"
	"github.com/carterperez-dev/lovelistings/internal/middleware"
	"github.com/carterperez-dev/lovelistings/internal/moderation"
	"github.com/carterperez-dev/lovelistings/internal/server"
	"github.com/carterperez-dev/lovelistings/internal/store"
	"github.com/carterperez-dev/lovelistings/internal/user"
	"github.com/carterperez-dev/lovelistings/internal/wallet"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	genKeys := flag.Bool("gen-keys", false, "write a new ES256 key pair to the configured paths and exit")
	flag.Parse()

	var err error
	if *genKeys {
		err = generateKeys(*configPath)
	} else {
		err = run(*configPath)
	}
	if err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func generateKeys(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := auth.GenerateKeyPair(cfg.JWT.PrivateKeyPath, cfg.JWT.PublicKeyPath); err != nil {
		return err
	}
	fmt.Printf("wrote %s and %s\n", cfg.JWT.PrivateKeyPath, cfg.JWT.PublicKeyPath)
	return nil
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	if cfg.Database.AutoMigrate {
		if err := core.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
			return err
		}
		logger.Info("migrations applied", "path", cfg.Database.MigrationsPath)
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	sessions := auth.NewSessionStore(redis.Client)
	jwtManager.SetRevocations(sessions)
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.GetKeyID(),
	)

	uploads, err := media.NewDiskStorage(cfg.Media.UploadDir, cfg.Media.PublicBase)
	if err != nil {
		return err
	}

	userRepo := user.NewRepository(db.DB)
	userSvc := user.NewService(userRepo)
	userHandler := user.NewHandler(userSvc)

	authSvc := auth.NewService(jwtManager, sessions, userSvc)
	authHandler := auth.NewHandler(authSvc)

	listingRepo := listing.NewRepository(db.DB)
	feedCache := listing.NewFeedCache(redis.Client, cfg.Feed.CacheTTL)
	listingSvc := listing.NewService(listingRepo, feedCache, userSvc, cfg.Feed, cfg.Media, logger)
	listingHandler := listing.NewHandler(listingSvc)

	sqlStore := store.NewSQLStore(db.DB)

	lifecycleSvc := lifecycle.NewService(
		sqlStore,
		lifecycle.NewEngine(cfg.Lifecycle),
		cfg.Lifecycle,
		cfg.Media,
		listingSvc,
		logger,
	)
	lifecycleHandler := lifecycle.NewHandler(lifecycleSvc)

	billingSvc := billing.NewService(sqlStore, cfg.Payments, logger)
	billingHandler := billing.NewHandler(billingSvc)

	mediaRepo := media.NewRepository(db.DB)
	mediaSvc := media.NewService(mediaRepo, uploads, userSvc, cfg.Media, logger)
	mediaHandler := media.NewHandler(mediaSvc)

	moderationSvc := moderation.NewService(moderation.NewSQLStore(db.DB), listingSvc, logger)
	moderationHandler := moderation.NewHandler(moderationSvc)

	communitySvc := community.NewService(community.NewRepository(db.DB), logger)
	communityHandler := community.NewHandler(communitySvc)

	walletRepo := wallet.NewRepository(db.DB)

	healthHandler := health.NewHandler(db, redis, health.Check{Name: "uploads", Checker: uploads})

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		DBStats:    db.Stats,
		RedisStats: redis.PoolStats,
		DBPing:     db.Ping,
		RedisPing:  redis.Ping,
		Platform: []admin.PlatformSource{
			{Name: "users", Fetch: func(ctx context.Context) (any, error) { return userSvc.Stats(ctx) }},
			{Name: "listings", Fetch: func(ctx context.Context) (any, error) { return listingSvc.Stats(ctx) }},
			{Name: "wallet", Fetch: func(ctx context.Context) (any, error) { return walletRepo.Stats(ctx) }},
			{Name: "media", Fetch: func(ctx context.Context) (any, error) { return mediaSvc.Stats(ctx) }},
			{Name: "flags", Fetch: func(ctx context.Context) (any, error) { return moderationSvc.Stats(ctx) }},
		},
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(metrics.Middleware)
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.PerMinute(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
			),
			FailOpen: true,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	router.Handle("/metrics", metrics.Handler())
	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())
	if base := uploads.PublicBase(); strings.HasPrefix(base, "/") {
		router.Handle(base+"/*", uploads)
	}

	authenticator := middleware.Authenticator(jwtManager)
	adminOnly := middleware.RequireAdmin
	writeLimit := middleware.TieredRateLimiter(redis.Client, middleware.DefaultTiers)

	router.Route("/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r, authenticator)

		userHandler.RegisterRoutes(r, authenticator)
		userHandler.RegisterAdminRoutes(r, authenticator, adminOnly)

		listingHandler.RegisterRoutes(r, authenticator)
		lifecycleHandler.RegisterRoutes(r, authenticator, writeLimit)
		billingHandler.RegisterRoutes(r, authenticator, writeLimit)
		mediaHandler.RegisterRoutes(r, authenticator, writeLimit)
		communityHandler.RegisterRoutes(r, authenticator, writeLimit)
		moderationHandler.RegisterRoutes(r, authenticator, writeLimit)
		moderationHandler.RegisterAdminRoutes(r, authenticator, adminOnly)

		adminHandler.RegisterRoutes(r, authenticator, adminOnly)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
