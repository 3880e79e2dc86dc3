package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/markl/internal/config"
)

func TestLoad(t *testing.T) {
	t.Run("should load config with defaults", func(t *testing.T) {
		// Clear environment
		os.Clearenv()

		cfg := config.Load()

		require.NotNil(t, cfg)

		// Verify defaults
		require.Equal(t, 8080, cfg.Server.Port)
		require.Equal(t, 30, cfg.Server.ReadTimeout)
		require.Equal(t, 120, cfg.Server.WriteTimeout)
		require.Equal(t, "https://api.openai.com/v1", cfg.OpenAI.BaseURL)
		require.Equal(t, 45, cfg.OpenAI.Timeout)
		require.Empty(t, cfg.OpenAI.APIKey)
		require.Equal(t, "gpt-4-turbo", cfg.Client.Model)
		require.Equal(t, "gpt-3.5-turbo", cfg.Client.FallbackModel)
		require.True(t, cfg.Client.AutoModelFallback)
		require.Equal(t, 3, cfg.Client.MaxRetries)
		require.Equal(t, 1000, cfg.Client.RetryDelayMS)
		require.Equal(t, 8192, cfg.Client.TokenLimit)
		require.True(t, cfg.Cache.Enabled)
		require.Equal(t, 60, cfg.Cache.TTLMinutes)
		require.Empty(t, cfg.Cache.RedisAddr)
		require.Equal(t, 500, cfg.RateLimit.MinIntervalMS)
		require.Equal(t, 60, cfg.RateLimit.MaxPerMinute)
		require.Equal(t, 1500, cfg.Translation.LongTextThreshold)
		require.Equal(t, 1000, cfg.Translation.MaxChunkSize)
		require.Equal(t, 500, cfg.Translation.ListChunkSize)
		require.InEpsilon(t, 0.3, cfg.Validation.TagBalanceTolerance, 1e-9)
		require.Equal(t, 10, cfg.Validation.TagBalanceMinimum)
	})

	t.Run("should load config from environment variables", func(t *testing.T) {
		// Set environment variables using t.Setenv for automatic cleanup
		t.Setenv("SERVER_PORT", "9000")
		t.Setenv("TRANSLATE_API_KEY", "sk-test-key")
		t.Setenv("TRANSLATE_API_URL", "https://test.openai.com")
		t.Setenv("TRANSLATE_TIMEOUT", "120")
		t.Setenv("TRANSLATE_MODEL", "gpt-4o")
		t.Setenv("TRANSLATE_MAX_RETRIES", "5")
		t.Setenv("CACHE_REDIS_ADDR", "localhost:6379")
		t.Setenv("TRANSLATE_LONG_THRESHOLD", "2000")

		cfg := config.Load()

		require.NotNil(t, cfg)

		// Verify loaded values
		require.Equal(t, 9000, cfg.Server.Port)
		require.Equal(t, "sk-test-key", cfg.OpenAI.APIKey)
		require.Equal(t, "https://test.openai.com", cfg.OpenAI.BaseURL)
		require.Equal(t, 120, cfg.OpenAI.Timeout)
		require.Equal(t, "gpt-4o", cfg.Client.Model)
		require.Equal(t, 5, cfg.Client.MaxRetries)
		require.Equal(t, "localhost:6379", cfg.Cache.RedisAddr)
		require.Equal(t, 2000, cfg.Translation.LongTextThreshold)
	})
}

func TestParseDependenciesConfig(t *testing.T) {
	t.Run("should expose sub-config pointers into the same struct", func(t *testing.T) {
		os.Clearenv()
		cfg := config.Load()

		deps := config.ParseDependenciesConfig(cfg)

		require.Same(t, &cfg.Server, deps.ServerConfig)
		require.Same(t, &cfg.Client, deps.ClientConfig)
		require.Same(t, &cfg.Cache, deps.CacheConfig)
		require.Same(t, &cfg.Translation, deps.TranslationConfig)
	})
}
