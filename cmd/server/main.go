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

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/happyheadlines/headlines-backend/internal/api/middleware"
	"github.com/happyheadlines/headlines-backend/internal/api/rest"
	"github.com/happyheadlines/headlines-backend/internal/cache"
	"github.com/happyheadlines/headlines-backend/internal/config"
	"github.com/happyheadlines/headlines-backend/internal/models"
	"github.com/happyheadlines/headlines-backend/internal/pkg/logger"
	"github.com/happyheadlines/headlines-backend/internal/pkg/tracing"
	"github.com/happyheadlines/headlines-backend/internal/repository"
	"github.com/happyheadlines/headlines-backend/internal/service"
)

const serviceName = "headlines-backend"

func main() {
	if err := run(); err != nil {
		logger.StdLogger().Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)
	log.Info("Headlines backend starting", "port", cfg.Port, "driver", cfg.DatabaseDriver,
		"article_cache", cfg.ArticleCacheEnabled, "comment_cache", cfg.CommentCacheEnabled)

	shutdownTracing, err := tracing.Init(serviceName, cfg.TracingEndpoint, cfg.TracingSamplingRate)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer shutdownTracing(context.Background())

	// Stores
	shards, err := repository.OpenShards(cfg.DatabaseDriver, cfg.ShardDSN)
	if err != nil {
		return err
	}
	defer shards.Close()
	commentDB, err := repository.OpenStore(cfg.DatabaseDriver, cfg.CommentDSN, repository.CommentStore)
	if err != nil {
		return fmt.Errorf("open comment store: %w", err)
	}
	defer commentDB.Close()
	comments := repository.NewCommentRepository(commentDB)
	log.Info("Stores ready", "shards", len(models.AllShards()))

	// Caches: the Redis or NoOp variant of each is chosen once, here.
	var gw *cache.Gateway
	if cfg.ArticleCacheEnabled || cfg.CommentCacheEnabled {
		gw = cache.NewGateway(cache.NewRedisDialer(&redis.Options{
			Addr:        cfg.RedisAddr,
			Password:    cfg.RedisPassword,
			DB:          cfg.RedisDB,
			DialTimeout: cfg.RedisDialTimeout(),
		}), cfg.RedisDialTimeout(), log.With("component", "cache_gateway"))
		defer gw.Close()
	}

	var articleCache cache.ArticleCache = cache.NoOpArticleCache{}
	if cfg.ArticleCacheEnabled {
		articleCache = cache.NewRedisArticleCache(gw, cfg.ArticleOptions(), log.With("component", "article_cache"))
	}
	var commentCache cache.CommentCache = cache.NoOpCommentCache{}
	if cfg.CommentCacheEnabled {
		commentCache = cache.NewRedisCommentCache(gw, cfg.CommentOptions(), log.With("component", "comment_cache"))
	}

	articleSvc := service.NewArticleService(shards, articleCache, log.With("component", "articles"))
	localProfanity := service.NewLocalProfanityFilter(cfg.ProfanityWords)
	var profanity service.ProfanityFilter = localProfanity
	if cfg.ProfanityServiceURL != "" {
		client := service.NewProfanityClient(cfg.ProfanityServiceURL, cfg.ProfanityTimeout(), localProfanity, log.With("component", "profanity"))
		go client.RunDictionaryRefresh(ctx, cfg.ProfanityRefreshInterval())
		profanity = client
	}
	commentSvc := service.NewCommentService(comments, commentCache, articleSvc, profanity, log.With("component", "comments"))

	var prewarm *service.PrewarmService
	if cfg.ArticleCacheEnabled {
		prewarm = service.NewPrewarmService(shards, articleCache, service.PrewarmOptions{
			Interval:   cfg.PrewarmInterval(),
			Limit:      cfg.ArticleCachePrewarmLimit,
			StaleAfter: cfg.ArticleOptions().StaleAfter,
		}, log.With("component", "prewarm"))
		prewarm.Start(ctx)
	}

	// HTTP
	router := mux.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.Recover(log),
		middleware.StructuredLog,
		middleware.Tracing,
		middleware.RateLimit(cfg.RateLimitPerMin),
		middleware.SecureHeaders,
		middleware.MaxBodySize(middleware.DefaultMaxBodyBytes),
	)
	rest.SetupOpsRoutes(router, rest.NewHealthzHandler(
		map[string]rest.Check{
			"article_stores": shards.Ping,
			"comment_store":  comments.Ping,
		},
		cacheChecks(gw),
		func() map[string]string {
			if prewarm == nil {
				return map[string]string{"prewarm": "disabled"}
			}
			return map[string]string{"prewarm": prewarm.State().String()}
		},
	))
	rest.SetupRoutes(router.PathPrefix("/api/v1").Subrouter(), rest.NewHandler(articleSvc, commentSvc))

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.ResponseRequestIDHeader},
		ExposedHeaders:   []string{middleware.ResponseRequestIDHeader, middleware.TraceIDHeader},
		AllowCredentials: true,
	})

	timeout := time.Duration(cfg.RequestTimeoutSec) * time.Second
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      c.Handler(router),
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("Shutting down", "signal", sig.String())
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	}

	if prewarm != nil {
		prewarm.Stop()
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSec)*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("Server forced to shutdown", "error", err)
	}
	log.Info("Server exited gracefully")
	return nil
}

func cacheChecks(gw *cache.Gateway) map[string]rest.Check {
	if gw == nil {
		return nil
	}
	return map[string]rest.Check{
		"cache": func(ctx context.Context) error {
			rdb, err := gw.Acquire(ctx)
			if err != nil {
				return err
			}
			err = rdb.Ping(ctx).Err()
			gw.Observe(rdb, err)
			return err
		},
	}
}
