package main

import (
	"log"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/dig"

	"github.com/davidbz/markl/internal/cache"
	rediscache "github.com/davidbz/markl/internal/cache/redis"
	"github.com/davidbz/markl/internal/client"
	"github.com/davidbz/markl/internal/config"
	"github.com/davidbz/markl/internal/dedup"
	"github.com/davidbz/markl/internal/domain"
	httpapi "github.com/davidbz/markl/internal/http"
	"github.com/davidbz/markl/internal/http/middleware"
	"github.com/davidbz/markl/internal/metrics"
	"github.com/davidbz/markl/internal/observability"
	"github.com/davidbz/markl/internal/provider/openai"
	"github.com/davidbz/markl/internal/ratelimit"
	"github.com/davidbz/markl/internal/strategy"
	"github.com/davidbz/markl/internal/validate"
)

func main() {
	container := buildContainer()

	err := container.Invoke(func(server *httpapi.Server) {
		if err := server.Start(); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}
}

func buildContainer() *dig.Container {
	container := dig.New()

	provide := func(constructor interface{}) {
		if err := container.Provide(constructor); err != nil {
			log.Fatalf("Failed to build container: %v", err)
		}
	}

	// Configuration
	provide(config.Load)
	provide(config.ParseDependenciesConfig)

	// Observability
	provide(observability.InitLogger)

	// Provider
	provide(func(cfg *openai.Config) (*openai.Provider, error) {
		return openai.NewProvider(*cfg)
	})

	// Response cache: Redis when configured, in-memory otherwise.
	provide(func(cfg *config.CacheConfig) domain.ResponseCache {
		if !cfg.Enabled {
			return nil
		}
		ttl := time.Duration(cfg.TTLMinutes) * time.Minute
		if cfg.RedisAddr != "" {
			rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
			return rediscache.New(rdb, ttl)
		}
		return cache.NewMemory(cfg.MaxEntries, ttl)
	})

	// Rate limiter shared by every outbound call path.
	provide(func(cfg *config.RateLimitConfig) domain.RateLimiter {
		return ratelimit.New(time.Duration(cfg.MinIntervalMS)*time.Millisecond, cfg.MaxPerMinute)
	})

	provide(dedup.New)
	provide(metrics.NewCollector)

	// API client layer
	provide(func(
		provider *openai.Provider,
		responseCache domain.ResponseCache,
		deduplicator *dedup.Deduplicator,
		limiter domain.RateLimiter,
		cfg *config.ClientConfig,
	) *client.Executor {
		return client.NewExecutor(provider, responseCache, deduplicator, limiter, client.Config{
			Model:             cfg.Model,
			FallbackModel:     cfg.FallbackModel,
			AutoModelFallback: cfg.AutoModelFallback,
			MaxRetries:        cfg.MaxRetries,
			RetryDelay:        time.Duration(cfg.RetryDelayMS) * time.Millisecond,
			MaxRetryDelay:     time.Duration(cfg.MaxRetryDelayMS) * time.Millisecond,
			TokenLimit:        cfg.TokenLimit,
			MaxOutputTokens:   cfg.MaxOutputTokens,
			MinOutputTokens:   cfg.MinOutputTokens,
			TokenSafetyMargin: cfg.TokenSafetyMargin,
		})
	})

	// Strategy orchestrator. Hooks, billing, and the error sink are
	// external collaborators; absent here, their safe defaults apply.
	provide(func(
		exec *client.Executor,
		collector *metrics.Collector,
		tcfg *config.TranslationConfig,
		vcfg *config.ValidationConfig,
	) *strategy.Orchestrator {
		return strategy.New(exec, collector, nil, nil, nil, strategy.Config{
			LongTextThreshold: tcfg.LongTextThreshold,
			MaxChunkSize:      tcfg.MaxChunkSize,
			ListChunkSize:     tcfg.ListChunkSize,
			HookTimeout:       time.Duration(tcfg.HookTimeoutMS) * time.Millisecond,
			Thresholds: validate.Thresholds{
				TagBalanceTolerance:  vcfg.TagBalanceTolerance,
				TagBalanceMinimum:    vcfg.TagBalanceMinimum,
				WordOverlapThreshold: vcfg.WordOverlapThreshold,
				MinOverlapWords:      vcfg.MinOverlapWords,
			},
		})
	})

	// HTTP Layer
	provide(func(orch *strategy.Orchestrator) httpapi.Translator {
		return orch
	})
	provide(func(cfg *config.CORSConfig) middleware.Middleware {
		return middleware.Chain(middleware.Trace(), middleware.CORS(cfg))
	})
	provide(httpapi.NewHandler)
	provide(httpapi.NewServer)

	return container
}
