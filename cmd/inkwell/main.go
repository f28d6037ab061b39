package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/inkwell-blog/inkwell/cmd/inkwell/cli"
	"github.com/inkwell-blog/inkwell/internal/admin"
	"github.com/inkwell-blog/inkwell/internal/app"
	"github.com/inkwell-blog/inkwell/internal/auth"
	"github.com/inkwell-blog/inkwell/internal/identity"
	"github.com/inkwell-blog/inkwell/internal/observability"
	"github.com/inkwell-blog/inkwell/internal/platform/cache"
	"github.com/inkwell-blog/inkwell/internal/platform/db"
	"github.com/inkwell-blog/inkwell/internal/posts"
	"github.com/inkwell-blog/inkwell/internal/profiles"
	"github.com/inkwell-blog/inkwell/internal/rbac"
	"github.com/inkwell-blog/inkwell/internal/token"
	"github.com/inkwell-blog/inkwell/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		if err := runJobs(ctx, cfg, os.Args[2:]); err != nil {
			logger.Error("jobs command", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	if err := serve(ctx, stop, cfg, logger); err != nil {
		logger.Error("serve", slog.Any("error", err))
		os.Exit(1)
	}
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) error {
	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer dbpool.Close()

	if err := db.Migrate(ctx, dbpool); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	var redisClient *redis.Client
	if client, err := cache.New(ctx, cfg.RedisAddr); err != nil {
		logger.Warn("redis unavailable, caching disabled", slog.Any("error", err))
	} else {
		redisClient = client
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	table, err := rbac.LoadTable(cfg.RBACTablePath)
	if err != nil {
		return err
	}
	registry, err := rbac.NewRegistry(table)
	if err != nil {
		return err
	}

	tokens, err := token.NewService(token.Config{
		Secret:    []byte(cfg.JWTSecret),
		Audience:  cfg.JWTAudience,
		TTL:       cfg.JWTTTL,
		CacheSize: cfg.JWTCacheSize,
	})
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics()
	rbacMiddleware := rbac.Middleware{Registry: registry, Logger: logger, Recorder: metrics}

	profileRepo := profiles.NewRepository(dbpool)
	profileService := profiles.NewService(profileRepo, registry, logger)

	resolver := identity.NewResolver(tokens, profileRepo, identity.Options{
		DefaultRole:  registry.DefaultRole(),
		StoreTimeout: cfg.AuthStoreTimeout,
		Logger:       logger,
	})
	identityMiddleware := identity.Middleware{Resolver: resolver}

	postsCache := cache.NewVersioned(redisClient, "inkwell:posts", cfg.PostsCacheTTL)
	postService := posts.NewService(posts.NewRepository(dbpool), registry, postsCache, logger)

	authService := auth.NewService(tokens, profileService, registry, logger)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	adminService := admin.NewService(admin.NewRepository(dbpool), admin.Options{
		Enqueuer:    jobClient,
		Invalidator: postsCache,
		RedisPing: func(ctx context.Context) error {
			if redisClient == nil {
				return errors.New("redis not connected")
			}
			return redisClient.Ping(ctx).Err()
		},
		Environment: cfg.Presence(),
		Logger:      logger,
	})

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Authenticate:       identityMiddleware.Authenticate,
		RBAC:               rbacMiddleware,
		AuthHandler:        auth.NewHandler(logger, authService, resolver, identityMiddleware.Authenticate, cfg.DevTokensEnabled),
		PermissionsHandler: rbac.NewPermissionsHandler(logger, registry, identityMiddleware.Optional),
		ProfilesHandler:    profiles.NewHandler(logger, profileService, identityMiddleware.Authenticate, rbacMiddleware),
		PostsHandler:       posts.NewHandler(logger, postService, identityMiddleware.Authenticate, identityMiddleware.Optional, rbacMiddleware),
		AdminHandler:       admin.NewHandler(logger, adminService, identityMiddleware.Authenticate, rbacMiddleware),
		JobHandler:         jobs.NewHandler(inspector, logger),
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr),
			slog.Bool("dev_tokens", cfg.DevTokensEnabled))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	return nil
}

func runJobs(ctx context.Context, cfg *app.Config, args []string) error {
	jobsCLI := cli.NewJobsCLI(cfg.RedisAddr)
	defer jobsCLI.Close()
	return jobsCLI.Run(ctx, os.Stdout, args)
}
