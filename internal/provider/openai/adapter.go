// Package openai adapts the remote chat-completion endpoint using the
// official SDK. It implements domain.Completer and maps SDK errors onto
// the typed error taxonomy; retry policy is owned by the client layer, so
// the SDK's built-in retry is disabled.
package openai

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/davidbz/markl/internal/domain"
	"github.com/davidbz/markl/internal/observability"
)

const defaultTemperature = 0.3

// Provider implements domain.Completer against the OpenAI-compatible API.
type Provider struct {
	client openai.Client
	name   string
}

// NewProvider creates a new provider. A missing API key is a
// configuration error: fail fast, no retry.
func NewProvider(config Config) (*Provider, error) {
	if config.APIKey == "" {
		return nil, domain.NewError(
			"MISSING_API_KEY", domain.CategoryConfig, false, "translation API key is required", nil)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(time.Duration(config.Timeout)*time.Second))
	}

	return &Provider{
		client: openai.NewClient(opts...),
		name:   "openai",
	}, nil
}

// Complete sends one completion request and returns the translated text.
func (p *Provider) Complete(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResponse, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	logger := observability.FromContext(ctx)
	logger.Debug("calling completion API", observability.String("model", req.Model))

	params := p.toSDKParams(req)

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		classified := classify(err)
		logger.Error("completion API call failed",
			observability.Error(err),
			observability.String("category", string(classified.Category)),
			observability.Bool("retryable", classified.Retryable),
		)
		return nil, classified
	}

	content := ""
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}
	if strings.TrimSpace(content) == "" {
		return nil, domain.NewError(
			"EMPTY_COMPLETION", domain.CategoryContent, false, "completion returned no text", nil)
	}

	logger.Debug("completion API call succeeded",
		observability.Int("prompt_tokens", int(resp.Usage.PromptTokens)),
		observability.Int("completion_tokens", int(resp.Usage.CompletionTokens)),
	)

	return &domain.CompletionResponse{
		Content: content,
		Model:   string(resp.Model),
		Usage: domain.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

func (p *Provider) toSDKParams(req *domain.CompletionRequest) openai.ChatCompletionNewParams {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(req.Text))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: messages,
	}

	temperature := req.Temperature
	if temperature <= 0 {
		temperature = defaultTemperature
	}
	params.Temperature = openai.Float(temperature)

	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	return params
}
