// cmd/chat-server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"commerce-chat/internal/api"
	"commerce-chat/internal/chat/cache"
	"commerce-chat/internal/chat/components"
	"commerce-chat/internal/chat/knowledge"
	"commerce-chat/internal/chat/pipeline"
	"commerce-chat/internal/chat/products"
	"commerce-chat/internal/chat/rerank"
	"commerce-chat/internal/chat/resolver"
	"commerce-chat/internal/common/config"
	"commerce-chat/internal/common/database"
	"commerce-chat/internal/common/logger"
	"commerce-chat/internal/common/observability"
	"commerce-chat/internal/nlu"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting chat server...",
		zap.String("name", cfg.App.Name),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	// --- Postgres with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		return err
	}, 10, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres unavailable", zap.Error(err))
	}
	defer pg.Close()

	// --- Elasticsearch with retry ---
	var es *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return es.Ping()
	}, 10, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch unavailable", zap.Error(err))
	}

	// --- Redis (optional) ---
	var redisClient *database.RedisClient
	if cfg.Database.Redis.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			redisClient, err = database.NewRedis(cfg.Database.Redis)
			return err
		}, 5, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Warn("redis unavailable, reply caching disabled", zap.Error(err))
			redisClient = nil
		}
	} else {
		zapLog.Info("reply caching disabled by configuration")
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// --- External language services ---
	languageClient, err := nlu.NewClient(&nlu.Config{
		BaseURL:    cfg.APIs.GenAI.BaseURL,
		APIKey:     cfg.APIs.GenAI.APIKey,
		Timeout:    time.Duration(cfg.APIs.GenAI.Timeout) * time.Millisecond,
		MaxRetries: cfg.APIs.GenAI.MaxRetries,
	}, log)
	if err != nil {
		zapLog.Fatal("language client init failed", zap.Error(err))
	}

	var scorer knowledge.Scorer
	if cfg.APIs.Rerank.Enabled {
		scorer = rerank.NewClient(rerank.Config{
			BaseURL: cfg.APIs.Rerank.BaseURL,
			APIKey:  cfg.APIs.Rerank.APIKey,
			Model:   cfg.APIs.Rerank.Model,
			Timeout: time.Duration(cfg.APIs.Rerank.Timeout) * time.Millisecond,
		}, log)
	}

	// --- Pipeline assembly ---
	store := products.NewStore(pg.GetDB())
	kbStore := knowledge.NewESStore(es.Client, cfg.Database.Elasticsearch.Index)
	retriever := knowledge.NewRetriever(kbStore, scorer, cfg.Retrieval.KnowledgeLimit)

	var replyCache *cache.ReplyCache
	if redisClient != nil {
		replyCache = cache.New(redisClient.GetClient(), time.Duration(cfg.Cache.TTLSeconds)*time.Second)
	} else {
		replyCache = cache.New(nil, 0)
	}

	chatPipeline := pipeline.New(
		languageClient,
		store,
		retriever,
		resolver.NewResolver(store),
		components.NewRegistry(),
		replyCache,
		pipeline.Options{
			Thresholds: products.Thresholds{
				Default:           cfg.Retrieval.DefaultThreshold,
				Browse:            cfg.Retrieval.BrowseThreshold,
				Search:            cfg.Retrieval.SearchThreshold,
				FallbackRelevance: cfg.Retrieval.FallbackRelevance,
				Limit:             cfg.Retrieval.ProductLimit,
			},
			CandidateLimit: cfg.Retrieval.CandidateLimit,
			CacheNamespace: cfg.Cache.Namespace,
		},
		log,
	)

	checks := []api.Check{
		{Name: "postgres", Ping: pg.Ping},
		{Name: "elasticsearch", Ping: func(ctx context.Context) error { return es.Info(ctx) }},
	}
	if redisClient != nil {
		checks = append(checks, api.Check{Name: "redis", Ping: redisClient.Ping})
	}

	router := api.NewRouter(
		api.NewChatHandler(chatPipeline, obs, log),
		api.NewHealthHandler(checks...),
		log,
	)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: time.Duration(cfg.Server.RequestTimeout) * time.Millisecond,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLog.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("graceful shutdown failed", zap.Error(err))
	}
	zapLog.Info("Server stopped")
}
