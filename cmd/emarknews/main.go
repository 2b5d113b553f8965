package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/yhun1542/emarknews-stable/internal/api"
	"github.com/yhun1542/emarknews-stable/internal/cache"
	"github.com/yhun1542/emarknews-stable/internal/config"
	"github.com/yhun1542/emarknews-stable/internal/enrich"
	"github.com/yhun1542/emarknews-stable/internal/fetch"
	"github.com/yhun1542/emarknews-stable/internal/logger"
	"github.com/yhun1542/emarknews-stable/internal/retry"
	"github.com/yhun1542/emarknews-stable/internal/service"
)

func main() {
	// Root context cancelled on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Init()
	log := logger.With("main")

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log.Info("configuration loaded", "sections", len(cfg.Topology.Sections))

	// Cache backend: Mongo when MONGO_URI is set, in-process otherwise.
	connectRetry := retry.Config{MaxAttempts: 5, Delay: time.Second, MaxDelay: 10 * time.Second}

	var store cache.Store = cache.NewMemory(cfg.CacheMaxEntries)
	var mongoDisconnect func(context.Context) error
	if cfg.MongoURI != "" {
		var client *mongo.Client
		err := retry.Do(ctx, connectRetry, func() error {
			var connErr error
			client, connErr = cache.ConnectMongo(ctx, cfg.MongoURI)
			return connErr
		})
		if err != nil {
			log.Error("failed to connect to mongo", "error", err)
			os.Exit(1)
		}
		mongoDisconnect = client.Disconnect
		mongoStore, err := cache.NewMongoStore(client.Database(cfg.MongoDBName))
		if err != nil {
			log.Error("failed to init mongo cache", "error", err)
			os.Exit(1)
		}
		store = mongoStore
		log.Info("mongo cache backend initialised", "db", cfg.MongoDBName)
	}
	tiered := cache.NewTiered(store)

	// Enrichment providers. Either may be absent; the queue passes
	// articles through untouched when no provider is configured.
	var primary, fallback enrich.Provider
	if cfg.OpenAIKey != "" {
		primary = enrich.NewOpenAIProvider(cfg.OpenAIKey, "")
		log.Info("openai enrichment provider initialised")
	}
	if cfg.GeminiKey != "" {
		gemini, err := enrich.NewGeminiProvider(ctx, cfg.GeminiKey)
		if err != nil {
			log.Warn("gemini provider unavailable", "error", err)
		} else {
			defer gemini.Close()
			if primary == nil {
				primary = gemini
			} else {
				fallback = gemini
			}
			log.Info("gemini enrichment provider initialised")
		}
	}

	var publisher enrich.Publisher
	if cfg.RabbitURI != "" {
		var rabbit *enrich.RabbitPublisher
		err := retry.Do(ctx, connectRetry, func() error {
			var connErr error
			rabbit, connErr = enrich.NewRabbitPublisher(cfg.RabbitURI, cfg.RabbitExchange, cfg.RabbitRoutingKey)
			return connErr
		})
		if err != nil {
			log.Warn("rabbit publisher unavailable, dead letters stay local", "error", err)
		} else {
			defer rabbit.Close()
			publisher = rabbit
			log.Info("rabbit dead-letter publisher initialised", "exchange", cfg.RabbitExchange)
		}
	}

	queue := enrich.NewQueue(primary, fallback, tiered, publisher, enrich.Config{
		MaxAttempts:     cfg.EnrichMaxAttempts,
		BaseDelay:       cfg.EnrichBaseDelay,
		MaxDelay:        cfg.EnrichMaxDelay,
		Floor:           cfg.EnrichFloor,
		Ceiling:         cfg.EnrichCeiling,
		LowHeadroom:     cfg.EnrichLowHeadroom,
		DetailRatingMin: cfg.DetailRatingMin,
		TargetLanguage:  cfg.TargetLanguage,
		ResultTTL:       cfg.EnrichResultTTL,
	})

	fetcher := fetch.New(tiered, cfg.FastDeadline, cfg.FullDeadline, cfg.FastSubset)
	agg := service.New(cfg, fetcher, tiered, queue)
	server := api.NewServer(agg, queue, cfg.DefaultLimit)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: server.Router(),
	}

	go func() {
		log.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown error", "error", err)
	}
	if mongoDisconnect != nil {
		if err := mongoDisconnect(shutdownCtx); err != nil {
			log.Error("mongo disconnect error", "error", err)
		}
	}

	log.Info("shutdown complete")
}
