package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harrier-search/harrier/internal/analytics"
	"github.com/harrier-search/harrier/internal/cache"
	"github.com/harrier-search/harrier/internal/docmeta"
	"github.com/harrier-search/harrier/internal/handler"
	"github.com/harrier-search/harrier/internal/rank"
	"github.com/harrier-search/harrier/internal/tokenize"
	"github.com/harrier-search/harrier/pkg/config"
	"github.com/harrier-search/harrier/pkg/health"
	"github.com/harrier-search/harrier/pkg/kafka"
	"github.com/harrier-search/harrier/pkg/logger"
	"github.com/harrier-search/harrier/pkg/metrics"
	"github.com/harrier-search/harrier/pkg/middleware"
	"github.com/harrier-search/harrier/pkg/postgres"
	pkgredis "github.com/harrier-search/harrier/pkg/redis"
	"github.com/harrier-search/harrier/pkg/resilience"
	"github.com/harrier-search/harrier/pkg/rpc"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting ranking service",
		"port", cfg.Server.Port,
		"index", cfg.Ranker.IndexPath,
		"strict", cfg.Ranker.Strict,
	)

	tok, err := tokenize.New(cfg.Ranker.Tokenizer, cfg.Ranker.TokenizerCommand...)
	if err != nil {
		slog.Error("failed to create tokenizer", "kind", cfg.Ranker.Tokenizer, "error", err)
		os.Exit(1)
	}
	if closer, ok := tok.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	ranker, err := rank.New(rank.Config{
		IndexPath:        cfg.Ranker.IndexPath,
		Strict:           cfg.Ranker.Strict,
		NormalizeVectors: cfg.Ranker.NormalizeVectors,
		Tokenizer:        tok,
	})
	if err != nil {
		slog.Error("failed to load index", "path", cfg.Ranker.IndexPath, "error", err)
		os.Exit(1)
	}
	idx := ranker.Index()
	slog.Info("index loaded",
		"documents", idx.NumDocs(),
		"hash_size", idx.HashSize(),
		"ngram_order", idx.NgramOrder(),
		"nonzeros", idx.NNZ(),
	)

	m := metrics.New()
	m.IndexDocuments.Set(float64(idx.NumDocs()))
	m.IndexBuckets.Set(float64(idx.HashSize()))
	m.IndexNonzeros.Set(float64(idx.NNZ()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis and Postgres are degradable: each connect is retried with
	// backoff, and if the backend stays down its feature is disabled
	// and ranking runs without it. The Kafka producer dials lazily on
	// first publish, so there is no startup connection to retry.
	connectRetry := resilience.RetryConfig{MaxAttempts: 3, InitialDelay: 500 * time.Millisecond}

	var queryCache *cache.QueryCache
	var redisClient *pkgredis.Client
	err = resilience.Retry(ctx, "redis-connect", connectRetry, func() error {
		var connErr error
		redisClient, connErr = pkgredis.NewClient(cfg.Redis)
		return connErr
	})
	if err != nil {
		slog.Warn("redis unavailable, result caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		queryCache = cache.New(redisClient, cfg.Redis)
		slog.Info("result cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	var metaStore *docmeta.Store
	var pgClient *postgres.Client
	err = resilience.Retry(ctx, "postgres-connect", connectRetry, func() error {
		var connErr error
		pgClient, connErr = postgres.New(cfg.Postgres)
		return connErr
	})
	if err != nil {
		slog.Warn("postgres unavailable, metadata enrichment disabled", "error", err)
	} else {
		defer pgClient.Close()
		metaStore = docmeta.New(pgClient)
		slog.Info("metadata enrichment enabled", "host", cfg.Postgres.Host)
	}

	var collector *analytics.Collector
	if cfg.Analytics.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.QueryEvents)
		defer producer.Close()
		collector = analytics.NewCollector(producer, cfg.Analytics.BatchSize, cfg.Analytics.FlushInterval)
		collector.Start(ctx)
		defer collector.Close()
		slog.Info("query event collector started", "topic", cfg.Kafka.Topics.QueryEvents)
	}

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		if idx.NumDocs() > 0 {
			return health.ComponentHealth{
				Status:  health.StatusUp,
				Message: fmt.Sprintf("%d documents", idx.NumDocs()),
			}
		}
		return health.ComponentHealth{Status: health.StatusDown, Message: "index is empty"}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
		if metaStore == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := metaStore.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	limits := handler.Limits{
		DefaultK:        cfg.Ranker.DefaultK,
		MaxK:            cfg.Ranker.MaxK,
		MaxBatchQueries: cfg.Ranker.MaxBatchQueries,
		MaxBatchWorkers: cfg.Ranker.MaxBatchWorkers,
	}
	h := handler.New(ranker, queryCache, metaStore, collector, m, limits)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	if cfg.RPC.Enabled {
		rpcServer := rpc.NewServer()
		handler.RegisterRPC(rpcServer, ranker, limits)
		go func() {
			if err := rpcServer.Serve(fmt.Sprintf(":%d", cfg.RPC.Port)); err != nil {
				slog.Error("rpc server error", "error", err)
			}
		}()
		defer rpcServer.Stop()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("ranking service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("ranking service stopped")
}
