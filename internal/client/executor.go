// Package client wraps the completion provider with the resilience layer:
// response caching, in-flight deduplication, bounded retry with
// exponential backoff, a declarative fallback step chain, token budget
// clamping, and rate limiting. Every outbound call, including retries and
// fallback steps, passes through the shared rate limiter.
package client

import (
	"context"
	"time"

	"github.com/davidbz/markl/internal/cache"
	"github.com/davidbz/markl/internal/dedup"
	"github.com/davidbz/markl/internal/domain"
	"github.com/davidbz/markl/internal/observability"
)

// Config contains the client layer settings.
type Config struct {
	Model             string
	FallbackModel     string
	AutoModelFallback bool
	MaxRetries        int
	RetryDelay        time.Duration
	MaxRetryDelay     time.Duration
	TokenLimit        int
	MaxOutputTokens   int
	MinOutputTokens   int
	TokenSafetyMargin int
	DefaultFallbacks  []domain.FallbackStep
}

// Request is one execution through the step chain.
type Request struct {
	Text         string
	TargetLang   string
	SystemPrompt string
	Strategy     domain.Strategy
	Extras       map[string]string
	Fallbacks    []domain.FallbackStep
	MaxTokens    int
	MaxRetries   int
	Cacheable    bool
	Dedupe       bool
}

// step is one entry of the fallback chain.
type step struct {
	name         string
	model        string
	systemPrompt string
	maxTokens    int
}

// Executor runs requests through the step chain.
type Executor struct {
	provider domain.Completer
	cache    domain.ResponseCache
	dedup    *dedup.Deduplicator
	limiter  domain.RateLimiter
	cfg      Config

	sleep func(context.Context, time.Duration) error
}

// NewExecutor creates an executor. cache, dedup, and limiter may be nil to
// disable the corresponding layer.
func NewExecutor(
	provider domain.Completer,
	responseCache domain.ResponseCache,
	deduplicator *dedup.Deduplicator,
	limiter domain.RateLimiter,
	cfg Config,
) *Executor {
	return &Executor{
		provider: provider,
		cache:    responseCache,
		dedup:    deduplicator,
		limiter:  limiter,
		cfg:      cfg,
		sleep:    sleepCtx,
	}
}

// Execute runs the step chain and returns the first successful result, or
// the last step's failure when every step fails. It never returns nil.
func (e *Executor) Execute(ctx context.Context, req *Request) *domain.Result {
	start := time.Now()
	logger := observability.FromContext(ctx)

	steps := e.buildSteps(req)
	primary := steps[0].name

	traversed := make([]string, 0, len(steps))
	totalRetries := 0
	var last *domain.Result

	for i, st := range steps {
		traversed = append(traversed, st.name)
		key := cache.Key(req.TargetLang, st.systemPrompt, req.Text, extrasWithModel(req.Extras, st.model))

		if req.Cacheable && e.cache != nil {
			if cached, ok := e.cache.Get(ctx, key); ok {
				logger.Debug("cache hit", observability.String("step", st.name))
				out := *cached
				out.Meta.Strategy = st.name
				out.Meta.OriginStrategy = primary
				out.Meta.Cached = true
				out.Meta.Retries = totalRetries
				out.Meta.Duration = time.Since(start)
				if i > 0 {
					out.Meta.Fallback = append([]string(nil), traversed...)
				}
				return &out
			}
		}

		res := e.callStep(ctx, st, req, key)
		totalRetries += res.Meta.Retries

		if res.Success {
			res.Meta.Strategy = st.name
			res.Meta.OriginStrategy = primary
			res.Meta.Retries = totalRetries
			res.Meta.Duration = time.Since(start)
			if i > 0 {
				res.Meta.Fallback = append([]string(nil), traversed...)
			}
			if req.Cacheable && e.cache != nil {
				stored := *res
				stored.Meta.Cached = false
				e.cache.Set(ctx, key, &stored)
			}
			return res
		}

		last = res
		if i < len(steps)-1 {
			logger.Warn("step failed, trying next fallback",
				observability.String("step", st.name),
				observability.Error(res.Err),
			)
		}
		if ctx.Err() != nil {
			break
		}
	}

	last.Meta.Strategy = traversed[len(traversed)-1]
	last.Meta.OriginStrategy = primary
	last.Meta.Retries = totalRetries
	last.Meta.Duration = time.Since(start)
	last.Meta.Fallback = traversed
	return last
}

// callStep executes one step, joining an identical in-flight call when
// deduplication is enabled.
func (e *Executor) callStep(ctx context.Context, st step, req *Request, key string) *domain.Result {
	if !req.Dedupe || e.dedup == nil {
		return e.callWithRetry(ctx, st, req)
	}

	res, _, err := e.dedup.Do(ctx, key, func() (*domain.Result, error) {
		return e.callWithRetry(ctx, st, req), nil
	})
	if err != nil {
		// Only the joiner's own cancellation lands here.
		return e.failure(req, domain.AsError(err), 0)
	}
	// Joiners share the in-flight call's result; each caller gets its own
	// copy so per-request metadata never crosses between them.
	out := *res
	return &out
}

// callWithRetry retries a step with exponential backoff, up to the
// request's retry budget (MaxRetries when the request sets none), but
// only for retryable failures. If the caller's context is done, the
// call fails immediately without entering backoff.
func (e *Executor) callWithRetry(ctx context.Context, st step, req *Request) *domain.Result {
	var lastErr error

	maxRetries := e.cfg.MaxRetries
	if req.MaxRetries > 0 {
		maxRetries = req.MaxRetries
	}

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if err := e.sleep(ctx, e.backoff(attempt)); err != nil {
				return e.failure(req, domain.AsError(err), attempt-1)
			}
		}

		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return e.failure(req, domain.AsError(err), attempt)
			}
		}

		maxOut := e.outputBudget(st, req)
		resp, err := e.provider.Complete(ctx, &domain.CompletionRequest{
			Model:        st.model,
			SystemPrompt: st.systemPrompt,
			Text:         req.Text,
			MaxTokens:    maxOut,
		})
		if err == nil {
			return &domain.Result{
				Success:    true,
				Text:       resp.Content,
				IsOriginal: false,
				Language:   req.TargetLang,
				TokenLimit: maxOut,
				Meta:       domain.Meta{Retries: attempt},
			}
		}

		if ctx.Err() != nil || !domain.Retryable(err) {
			return e.failure(req, domain.AsError(err), attempt)
		}
		lastErr = err
	}

	return e.failure(req, domain.AsError(lastErr), maxRetries)
}

// failure builds a failed result that preserves the source text.
func (e *Executor) failure(req *Request, err *domain.Error, retries int) *domain.Result {
	return &domain.Result{
		Success:    false,
		Text:       req.Text,
		Err:        err,
		IsOriginal: true,
		Language:   req.TargetLang,
		Meta:       domain.Meta{Retries: retries},
	}
}

// backoff returns RetryDelay * 2^(attempt-1), capped at MaxRetryDelay.
func (e *Executor) backoff(attempt int) time.Duration {
	delay := e.cfg.RetryDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if e.cfg.MaxRetryDelay > 0 && delay >= e.cfg.MaxRetryDelay {
			return e.cfg.MaxRetryDelay
		}
	}
	if e.cfg.MaxRetryDelay > 0 && delay > e.cfg.MaxRetryDelay {
		delay = e.cfg.MaxRetryDelay
	}
	return delay
}

// buildSteps assembles the ordered fallback chain: primary, automatic
// model fallback, client-level defaults, then caller-supplied steps.
func (e *Executor) buildSteps(req *Request) []step {
	primaryName := string(req.Strategy)
	if primaryName == "" {
		primaryName = "primary"
	}

	steps := []step{{
		name:         primaryName,
		model:        e.cfg.Model,
		systemPrompt: req.SystemPrompt,
		maxTokens:    req.MaxTokens,
	}}

	if e.cfg.AutoModelFallback && e.cfg.FallbackModel != "" && e.cfg.FallbackModel != e.cfg.Model {
		steps = append(steps, step{
			name:         "model-fallback:" + e.cfg.FallbackModel,
			model:        e.cfg.FallbackModel,
			systemPrompt: req.SystemPrompt,
			maxTokens:    req.MaxTokens,
		})
	}

	for _, f := range e.cfg.DefaultFallbacks {
		steps = append(steps, e.fallbackStep(f, req))
	}
	for _, f := range req.Fallbacks {
		steps = append(steps, e.fallbackStep(f, req))
	}

	return steps
}

func (e *Executor) fallbackStep(f domain.FallbackStep, req *Request) step {
	st := step{
		name:         f.Name,
		model:        f.Model,
		systemPrompt: f.SystemPrompt,
		maxTokens:    f.MaxTokens,
	}
	if st.model == "" {
		st.model = e.cfg.Model
	}
	if st.systemPrompt == "" {
		st.systemPrompt = req.SystemPrompt
	}
	if st.maxTokens == 0 {
		st.maxTokens = req.MaxTokens
	}
	return st
}

// outputBudget clamps the requested output tokens so that estimated input
// plus the safety margin plus output stays under the model ceiling. A
// non-positive budget falls back to the minimum-response floor.
func (e *Executor) outputBudget(st step, req *Request) int {
	maxOut := e.cfg.MaxOutputTokens
	if st.maxTokens > 0 {
		maxOut = st.maxTokens
	}

	if e.cfg.TokenLimit <= 0 {
		return maxOut
	}

	estimated := estimateTokens(st.systemPrompt) + estimateTokens(req.Text)
	budget := e.cfg.TokenLimit - estimated - e.cfg.TokenSafetyMargin
	if budget < e.cfg.MinOutputTokens {
		budget = e.cfg.MinOutputTokens
	}
	if maxOut > budget {
		maxOut = budget
	}
	return maxOut
}

// estimateTokens approximates token count from byte length; four bytes
// per token is the usual rule of thumb for mixed content.
func estimateTokens(s string) int {
	return len(s)/4 + 1
}

// extrasWithModel folds the step's model into the cache key extras so
// different fallback steps never share a cache entry.
func extrasWithModel(extras map[string]string, model string) map[string]string {
	out := make(map[string]string, len(extras)+1)
	for k, v := range extras {
		out[k] = v
	}
	out["model"] = model
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
