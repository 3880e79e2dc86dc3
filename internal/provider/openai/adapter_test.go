package openai_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/markl/internal/domain"
	"github.com/davidbz/markl/internal/provider/openai"
)

func TestNewProvider(t *testing.T) {
	t.Run("should create provider with valid config", func(t *testing.T) {
		provider, err := openai.NewProvider(openai.Config{
			APIKey:  "test-api-key",
			BaseURL: "https://api.openai.com/v1",
			Timeout: 45,
		})

		require.NoError(t, err)
		require.NotNil(t, provider)
		require.Equal(t, "openai", provider.Name())
	})

	t.Run("should fail fast on a missing api key", func(t *testing.T) {
		provider, err := openai.NewProvider(openai.Config{APIKey: ""})

		require.Error(t, err)
		require.Nil(t, provider)

		var terr *domain.Error
		require.ErrorAs(t, err, &terr)
		require.Equal(t, "MISSING_API_KEY", terr.Code)
		require.Equal(t, domain.CategoryConfig, terr.Category)
		require.False(t, terr.Retryable)
	})
}

func TestProvider_Complete(t *testing.T) {
	t.Run("should reject a nil request", func(t *testing.T) {
		provider, err := openai.NewProvider(openai.Config{APIKey: "test-key"})
		require.NoError(t, err)

		resp, err := provider.Complete(context.Background(), nil)

		require.Error(t, err)
		require.Nil(t, resp)
		require.Contains(t, err.Error(), "request cannot be nil")
	})
}
