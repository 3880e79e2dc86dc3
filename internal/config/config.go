package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/dig"

	"github.com/davidbz/markl/internal/provider/openai"
)

// Config represents the translation engine configuration.
type Config struct {
	Server      ServerConfig
	CORS        CORSConfig
	OpenAI      openai.Config
	Client      ClientConfig
	Cache       CacheConfig
	RateLimit   RateLimitConfig
	Translation TranslationConfig
	Validation  ValidationConfig
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int `env:"SERVER_PORT"          envDefault:"8080"`
	ReadTimeout  int `env:"SERVER_READ_TIMEOUT"  envDefault:"30"`
	WriteTimeout int `env:"SERVER_WRITE_TIMEOUT" envDefault:"120"`
}

// CORSConfig contains CORS policy settings.
type CORSConfig struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS"   envSeparator:"," envDefault:"*"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS"   envSeparator:"," envDefault:"GET,POST,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS"   envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS"                  envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE"                            envDefault:"86400"`
}

// ClientConfig contains API client layer settings: models, retry policy,
// and the token budget for output clamping.
type ClientConfig struct {
	Model             string `env:"TRANSLATE_MODEL"           envDefault:"gpt-4-turbo"`
	FallbackModel     string `env:"TRANSLATE_FALLBACK_MODEL"  envDefault:"gpt-3.5-turbo"`
	AutoModelFallback bool   `env:"TRANSLATE_MODEL_FALLBACK"  envDefault:"true"`
	MaxRetries        int    `env:"TRANSLATE_MAX_RETRIES"     envDefault:"3"`
	RetryDelayMS      int    `env:"TRANSLATE_RETRY_DELAY"     envDefault:"1000"`
	MaxRetryDelayMS   int    `env:"TRANSLATE_MAX_RETRY_DELAY" envDefault:"30000"`
	TokenLimit        int    `env:"TRANSLATE_TOKEN_LIMIT"     envDefault:"8192"`
	MaxOutputTokens   int    `env:"TRANSLATE_MAX_OUTPUT"      envDefault:"4096"`
	MinOutputTokens   int    `env:"TRANSLATE_MIN_OUTPUT"      envDefault:"256"`
	TokenSafetyMargin int    `env:"TRANSLATE_TOKEN_MARGIN"    envDefault:"512"`
}

// CacheConfig contains response cache settings. RedisAddr selects the
// Redis backend; empty means in-memory.
type CacheConfig struct {
	Enabled    bool   `env:"CACHE_ENABLED"     envDefault:"true"`
	TTLMinutes int    `env:"CACHE_TTL"         envDefault:"60"`
	MaxEntries int    `env:"CACHE_MAX_ENTRIES" envDefault:"1000"`
	RedisAddr  string `env:"CACHE_REDIS_ADDR"`
}

// RateLimitConfig paces outbound completion calls.
type RateLimitConfig struct {
	MinIntervalMS int `env:"RATE_MIN_INTERVAL"   envDefault:"500"`
	MaxPerMinute  int `env:"RATE_MAX_PER_MINUTE" envDefault:"60"`
}

// TranslationConfig contains orchestrator thresholds.
type TranslationConfig struct {
	LongTextThreshold int `env:"TRANSLATE_LONG_THRESHOLD" envDefault:"1500"`
	MaxChunkSize      int `env:"TRANSLATE_MAX_CHUNK"      envDefault:"1000"`
	ListChunkSize     int `env:"TRANSLATE_LIST_CHUNK"     envDefault:"500"`
	HookTimeoutMS     int `env:"TRANSLATE_HOOK_TIMEOUT"   envDefault:"5000"`
}

// ValidationConfig contains completeness/quality thresholds. The tag
// balance allowance is an empirically tuned heuristic, kept configurable.
type ValidationConfig struct {
	TagBalanceTolerance  float64 `env:"VALIDATE_TAG_TOLERANCE"  envDefault:"0.3"`
	TagBalanceMinimum    int     `env:"VALIDATE_TAG_MINIMUM"    envDefault:"10"`
	WordOverlapThreshold float64 `env:"VALIDATE_WORD_OVERLAP"   envDefault:"0.8"`
	MinOverlapWords      int     `env:"VALIDATE_MIN_OVERLAP"    envDefault:"10"`
}

// DepConfig is used for dependency injection with dig.
type DepConfig struct {
	dig.Out
	*ServerConfig
	*CORSConfig
	*openai.Config
	*ClientConfig
	*CacheConfig
	*RateLimitConfig
	*TranslationConfig
	*ValidationConfig
}

// Load loads environment files and parses configuration.
func Load() *Config {
	for _, file := range []string{".env"} {
		_ = godotenv.Load(file)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		panic(err)
	}

	return &cfg
}

// ParseDependenciesConfig returns pointers to sub-configs for dependency injection.
func ParseDependenciesConfig(cfg *Config) DepConfig {
	return DepConfig{
		dig.Out{},
		&cfg.Server,
		&cfg.CORS,
		&cfg.OpenAI,
		&cfg.Client,
		&cfg.Cache,
		&cfg.RateLimit,
		&cfg.Translation,
		&cfg.Validation,
	}
}
