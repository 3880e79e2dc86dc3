package domain

import "time"

// Strategy identifies a translation execution variant. The set is closed:
// every switch over Strategy handles all variants explicitly.
type Strategy string

const (
	// StrategyDefault lets the orchestrator pick: enhanced first, then
	// simple, then any caller-supplied fallbacks.
	StrategyDefault Strategy = ""

	// StrategySimple uses a minimal translation prompt.
	StrategySimple Strategy = "simple"

	// StrategyEnhanced uses the full instruction prompt with markup and
	// tone guidance.
	StrategyEnhanced Strategy = "enhanced"

	// StrategyLongText chunks plain text before translating.
	StrategyLongText Strategy = "long-text"

	// StrategyLongHTML protects markup, chunks HTML-aware, and translates
	// chunk by chunk.
	StrategyLongHTML Strategy = "long-html"

	// StrategyConfigKey marks configuration values that must never be
	// translated; the source text is returned annotated.
	StrategyConfigKey Strategy = "config-key"
)

// SkipReason explains why a result deliberately carries the source text.
type SkipReason string

const (
	SkipEmptyInput      SkipReason = "empty_input"
	SkipConfigKey       SkipReason = "config_key"
	SkipHookDeclined    SkipReason = "hook_declined"
	SkipProductCode     SkipReason = "product_code"
	SkipTechnicalTerm   SkipReason = "technical_term"
	SkipPossibleBrand   SkipReason = "possible_brand"
	SkipIdenticalResult SkipReason = "identical_result"
)

// Options carries caller intent for a single translation request.
type Options struct {
	Strategy       Strategy          `json:"strategy,omitempty"`
	ResourceType   string            `json:"resource_type,omitempty"`
	FieldName      string            `json:"field_name,omitempty"`
	ShopID         string            `json:"shop_id,omitempty"`
	ResourceID     string            `json:"resource_id,omitempty"`
	Priority       int               `json:"priority,omitempty"`
	RetryCount     int               `json:"retry_count,omitempty"`
	MaxChunkSize   int               `json:"max_chunk_size,omitempty"`
	Fallbacks      []FallbackStep    `json:"fallbacks,omitempty"`
	PostProcess    bool              `json:"post_process,omitempty"`
	LinkConversion bool              `json:"link_conversion,omitempty"`
	Extras         map[string]string `json:"extras,omitempty"`
}

// FallbackStep describes one caller-supplied alternate execution step.
type FallbackStep struct {
	Name         string `json:"name"`
	Model        string `json:"model,omitempty"`
	SystemPrompt string `json:"system_prompt,omitempty"`
	MaxTokens    int    `json:"max_tokens,omitempty"`
}

// Meta records how a result was produced.
type Meta struct {
	Strategy       string        `json:"strategy"`
	OriginStrategy string        `json:"origin_strategy,omitempty"`
	Cached         bool          `json:"cached"`
	Retries        int           `json:"retries"`
	Duration       time.Duration `json:"duration"`
	Fallback       []string      `json:"fallback,omitempty"`
	Skipped        bool          `json:"skipped,omitempty"`
	SkipReason     SkipReason    `json:"skip_reason,omitempty"`
}

// Result is the normalized outcome of a translation request.
//
// Invariant: Success=false implies IsOriginal=true and Text carries the
// source text, so callers can always fall back to displaying the input.
type Result struct {
	Success    bool   `json:"success"`
	Text       string `json:"text"`
	Err        *Error `json:"error,omitempty"`
	IsOriginal bool   `json:"is_original"`
	Language   string `json:"language,omitempty"`
	TokenLimit int    `json:"token_limit,omitempty"`
	Meta       Meta   `json:"meta"`
}

// CompletionRequest is a single outbound call to the completion endpoint.
type CompletionRequest struct {
	Model        string  `json:"model"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	Text         string  `json:"text"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
}

// CompletionResponse is the provider's answer to one call.
type CompletionResponse struct {
	Content string `json:"content"`
	Model   string `json:"model"`
	Usage   Usage  `json:"usage"`
}

// Usage tracks token consumption for one call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ValidationRecord is a structured completeness/quality finding.
type ValidationRecord struct {
	Category  string            `json:"category"`
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Severity  int               `json:"severity"` // 1 (info) to 5 (fatal)
	Retryable bool              `json:"retryable"`
	Context   map[string]string `json:"context,omitempty"`
}
