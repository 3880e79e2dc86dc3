// Package strategy selects and runs the translation strategy for a
// request: short text goes straight through the client layer, long text
// and HTML are protected, chunked, translated chunk by chunk in order,
// and reassembled. Results are validated, annotated, and recorded.
package strategy

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/davidbz/markl/internal/chunk"
	"github.com/davidbz/markl/internal/client"
	"github.com/davidbz/markl/internal/domain"
	"github.com/davidbz/markl/internal/metrics"
	"github.com/davidbz/markl/internal/observability"
	"github.com/davidbz/markl/internal/protect"
	"github.com/davidbz/markl/internal/validate"
)

// Config contains orchestrator thresholds.
type Config struct {
	LongTextThreshold int
	MaxChunkSize      int
	ListChunkSize     int
	ChunkConcurrency  int
	HookTimeout       time.Duration
	Thresholds        validate.Thresholds
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		LongTextThreshold: 1500,
		MaxChunkSize:      chunk.DefaultMaxSize,
		ListChunkSize:     chunk.ListMaxSize,
		ChunkConcurrency:  4,
		HookTimeout:       5 * time.Second,
		Thresholds:        validate.DefaultThresholds(),
	}
}

// Orchestrator coordinates strategies atop the client layer.
type Orchestrator struct {
	exec      *client.Executor
	collector *metrics.Collector
	hooks     domain.Hooks
	billing   domain.Billing
	sink      domain.ErrorSink
	cfg       Config
}

// New creates an orchestrator. hooks, billing, and sink may be nil; their
// documented safe defaults apply.
func New(
	exec *client.Executor,
	collector *metrics.Collector,
	hooks domain.Hooks,
	billing domain.Billing,
	sink domain.ErrorSink,
	cfg Config,
) *Orchestrator {
	if cfg.LongTextThreshold <= 0 {
		cfg.LongTextThreshold = 1500
	}
	if cfg.MaxChunkSize <= 0 {
		cfg.MaxChunkSize = chunk.DefaultMaxSize
	}
	if cfg.ListChunkSize <= 0 {
		cfg.ListChunkSize = chunk.ListMaxSize
	}
	if cfg.ChunkConcurrency <= 0 {
		cfg.ChunkConcurrency = 4
	}
	if cfg.HookTimeout <= 0 {
		cfg.HookTimeout = 5 * time.Second
	}
	if cfg.Thresholds == (validate.Thresholds{}) {
		cfg.Thresholds = validate.DefaultThresholds()
	}
	return &Orchestrator{
		exec:      exec,
		collector: collector,
		hooks:     hooks,
		billing:   billing,
		sink:      sink,
		cfg:       cfg,
	}
}

// Translate runs one translation request end to end and always returns a
// well-formed result. The error is non-nil only when the entire fallback
// chain is exhausted or billing aborts the request.
func (o *Orchestrator) Translate(ctx context.Context, text, targetLang string, opts domain.Options) (*domain.Result, error) {
	if strings.TrimSpace(text) == "" {
		return skippedResult(text, targetLang, domain.SkipEmptyInput), nil
	}

	ctx = observability.WithTargetLang(ctx, targetLang)
	start := time.Now()

	hctx := domain.HookContext{
		Text:         text,
		TargetLang:   targetLang,
		ResourceType: opts.ResourceType,
		FieldName:    opts.FieldName,
		ShopID:       opts.ShopID,
		ResourceID:   opts.ResourceID,
		Priority:     opts.Priority,
	}

	if !o.shouldTranslate(ctx, hctx) {
		return skippedResult(text, targetLang, domain.SkipHookDeclined), nil
	}

	resv, err := o.reserve(ctx, opts.ShopID, estimateCredits(text))
	if err != nil {
		return failedResult(text, targetLang, domain.ErrInsufficientCredits), err
	}

	selected := o.selectStrategy(text, opts)
	ctx = observability.WithStrategy(ctx, strategyLabel(selected))
	logger := observability.FromContext(ctx)

	run := func(ctx context.Context) (*domain.Result, error) {
		return o.runStrategy(ctx, text, targetLang, opts, selected), nil
	}

	var result *domain.Result
	if o.hooks != nil {
		// The schedule hook may queue, reprioritize, or run the task on its
		// own worker; a hook failure falls back to inline execution.
		scheduled, schedErr := o.hooks.Schedule(ctx, hctx, run)
		if schedErr != nil || scheduled == nil {
			if schedErr != nil {
				logger.Warn("schedule hook failed, running inline", observability.Error(schedErr))
			}
			result, _ = run(ctx)
		} else {
			result = scheduled
		}
	} else {
		result, _ = run(ctx)
	}

	result = o.finish(ctx, text, targetLang, opts, result)
	result.Meta.Duration = time.Since(start)

	o.record(selected, targetLang, result)
	resv.settle(ctx, result.Success, estimateCredits(text))

	if hv := o.validateHook(ctx, result, hctx); !hv.Success {
		logger.Warn("external validation hook flagged result",
			observability.Int("errors", len(hv.Errors)),
			observability.Int("warnings", len(hv.Warnings)))
	}

	if !result.Success && result.Err != nil {
		return result, result.Err
	}
	return result, nil
}

// runStrategy dispatches one selected strategy. The switch is exhaustive
// over the closed Strategy set.
func (o *Orchestrator) runStrategy(
	ctx context.Context,
	text, targetLang string,
	opts domain.Options,
	selected domain.Strategy,
) *domain.Result {
	switch selected {
	case domain.StrategyConfigKey:
		return skippedResult(text, targetLang, domain.SkipConfigKey)
	case domain.StrategyLongHTML, domain.StrategyLongText:
		long, longErr := o.runLong(ctx, text, targetLang, opts, selected)
		if longErr != nil {
			// Explicit degrade: the whole original text goes through the
			// default runner rather than propagating a partial failure.
			observability.FromContext(ctx).Warn("long pipeline failed, falling back to default runner",
				observability.Error(longErr))
			result := o.runDefault(ctx, text, targetLang, opts)
			result.Meta.OriginStrategy = strategyLabel(selected)
			return result
		}
		return long
	case domain.StrategySimple:
		return o.runSingle(ctx, text, targetLang, simplePrompt(targetLang), domain.StrategySimple, opts.Fallbacks, opts)
	case domain.StrategyEnhanced:
		return o.runSingle(ctx, text, targetLang, enhancedPrompt(targetLang, opts.ResourceType), domain.StrategyEnhanced, opts.Fallbacks, opts)
	case domain.StrategyDefault:
		return o.runDefault(ctx, text, targetLang, opts)
	default:
		return o.runDefault(ctx, text, targetLang, opts)
	}
}

// selectStrategy honors a forced strategy, routes long text to the
// chunked pipelines, and defaults otherwise.
func (o *Orchestrator) selectStrategy(text string, opts domain.Options) domain.Strategy {
	if opts.Strategy != domain.StrategyDefault {
		return opts.Strategy
	}
	if utf8.RuneCountInString(text) > o.cfg.LongTextThreshold {
		if chunk.LooksLikeHTML(text) {
			return domain.StrategyLongHTML
		}
		return domain.StrategyLongText
	}
	return domain.StrategyDefault
}

// runDefault tries enhanced, then simple, then caller-supplied fallbacks,
// as one client-layer step chain.
func (o *Orchestrator) runDefault(ctx context.Context, text, targetLang string, opts domain.Options) *domain.Result {
	fallbacks := append([]domain.FallbackStep{{
		Name:         string(domain.StrategySimple),
		SystemPrompt: simplePrompt(targetLang),
	}}, opts.Fallbacks...)

	return o.runSingle(ctx, text, targetLang, enhancedPrompt(targetLang, opts.ResourceType), domain.StrategyEnhanced, fallbacks, opts)
}

func (o *Orchestrator) runSingle(
	ctx context.Context,
	text, targetLang, prompt string,
	strat domain.Strategy,
	fallbacks []domain.FallbackStep,
	opts domain.Options,
) *domain.Result {
	return o.exec.Execute(ctx, &client.Request{
		Text:         text,
		TargetLang:   targetLang,
		SystemPrompt: prompt,
		Strategy:     strat,
		Extras:       requestExtras(opts),
		Fallbacks:    fallbacks,
		MaxRetries:   opts.RetryCount,
		Cacheable:    true,
		Dedupe:       true,
	})
}

// runLong is the chunked pipeline: protect, chunk, one call per chunk
// with results reinserted by chunk index, rejoin, restore, validate.
func (o *Orchestrator) runLong(
	ctx context.Context,
	text, targetLang string,
	opts domain.Options,
	selected domain.Strategy,
) (*domain.Result, error) {
	html := selected == domain.StrategyLongHTML

	protected := text
	var pmap *protect.Map
	if html {
		protected, pmap = protect.Protect(text)
	}

	maxChunk := opts.MaxChunkSize
	if maxChunk <= 0 {
		maxChunk = o.cfg.MaxChunkSize
	}
	chunks := chunk.SplitWithListLimit(protected, maxChunk, o.cfg.ListChunkSize, html)
	if len(chunks) == 0 {
		return skippedResult(text, targetLang, domain.SkipEmptyInput), nil
	}

	texts := make([]string, len(chunks))
	var mu sync.Mutex
	totalRetries := 0
	allCached := true

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.ChunkConcurrency)
	for i, c := range chunks {
		i, c := i, c
		g.Go(func() error {
			res := o.exec.Execute(gctx, &client.Request{
				Text:         c.Text,
				TargetLang:   targetLang,
				SystemPrompt: chunkPrompt(targetLang, c.Index, len(chunks)),
				Strategy:     selected,
				Extras:       requestExtras(opts),
				MaxRetries:   opts.RetryCount,
				Cacheable:    true,
				Dedupe:       true,
			})
			if !res.Success {
				if res.Err != nil {
					return res.Err
				}
				return domain.NewError("CHUNK_FAILED", domain.CategoryContent, false, "chunk translation failed", nil)
			}

			mu.Lock()
			texts[i] = res.Text
			totalRetries += res.Meta.Retries
			allCached = allCached && res.Meta.Cached
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	joined := chunk.Join(texts, html)
	restored := joined
	if pmap != nil {
		restored = protect.Restore(joined, pmap)
	}
	if protect.LeakedPlaceholder(restored) {
		return nil, domain.NewError(
			"PLACEHOLDER_LEAK", domain.CategoryContent, false, "model corrupted a protection placeholder", nil)
	}

	ct := o.contentType(text, opts)
	ok, records := validate.Completeness(text, restored, targetLang, ct, o.cfg.Thresholds)
	o.emitRecords(ctx, records)
	if !ok {
		return nil, domain.NewError(
			"INCOMPLETE_TRANSLATION", domain.CategoryContent, false, "chunked translation failed completeness checks", nil)
	}

	return &domain.Result{
		Success:    true,
		Text:       restored,
		IsOriginal: false,
		Language:   targetLang,
		Meta: domain.Meta{
			Strategy: strategyLabel(selected),
			Retries:  totalRetries,
			Cached:   allCached,
		},
	}, nil
}

// finish applies post-processing and validation to a raw result:
// identical-result annotation, link localization, quality scoring, and
// language detection.
func (o *Orchestrator) finish(ctx context.Context, original, targetLang string, opts domain.Options, res *domain.Result) *domain.Result {
	if !res.Success || res.Meta.Skipped {
		return res
	}

	// A translation byte-identical to the source must never be persisted
	// as a hard success without an annotation.
	if strings.EqualFold(strings.TrimSpace(res.Text), strings.TrimSpace(original)) {
		res.Meta.Skipped = true
		res.Meta.SkipReason = classifyIdentical(original)
		res.IsOriginal = true
		return res
	}

	// PostProcess is the broad post-processing switch; LinkConversion
	// requests link rewriting specifically.
	if (opts.LinkConversion || opts.PostProcess) && chunk.LooksLikeHTML(res.Text) {
		res.Text = localizeLinks(res.Text, targetLang)
	}

	ct := o.contentType(original, opts)
	qualityOK, records := validate.Quality(original, res.Text, targetLang, ct, o.cfg.Thresholds)
	o.emitRecords(ctx, records)

	if !qualityOK {
		for _, rec := range records {
			if rec.Code == "EMPTY_TRANSLATION" {
				return failedResult(original, targetLang, domain.NewError(
					"EMPTY_TRANSLATION", domain.CategoryValidation, true, "translation came back empty", nil))
			}
		}
		// Remaining terminating findings are surfaced as warnings by
		// default; the result stands.
		observability.FromContext(ctx).Warn("quality validation flagged result",
			observability.Int("records", len(records)))
	}

	if detected := validate.DetectISO6391(res.Text); detected != "" {
		res.Language = detected
	} else if res.Language == "" {
		res.Language = targetLang
	}
	return res
}

func (o *Orchestrator) contentType(text string, opts domain.Options) validate.ContentType {
	if chunk.LooksLikeHTML(text) {
		return validate.ContentHTML
	}
	rt := strings.ToLower(opts.ResourceType)
	switch {
	case strings.Contains(rt, "product"):
		return validate.ContentProduct
	case strings.Contains(rt, "setting"), strings.Contains(rt, "config"), strings.Contains(rt, "theme"):
		return validate.ContentTechnical
	default:
		return validate.ContentGeneric
	}
}

func (o *Orchestrator) record(selected domain.Strategy, targetLang string, res *domain.Result) {
	if o.collector == nil {
		return
	}
	o.collector.Record(metrics.Entry{
		Success:    res.Success,
		Strategy:   strategyLabel(selected),
		TargetLang: targetLang,
		Duration:   res.Meta.Duration,
		Cached:     res.Meta.Cached,
		Retries:    res.Meta.Retries,
	})
}

func strategyLabel(s domain.Strategy) string {
	if s == domain.StrategyDefault {
		return "default"
	}
	return string(s)
}

func requestExtras(opts domain.Options) map[string]string {
	extras := make(map[string]string, len(opts.Extras)+2)
	for k, v := range opts.Extras {
		extras[k] = v
	}
	if opts.ResourceType != "" {
		extras["resource_type"] = opts.ResourceType
	}
	if opts.FieldName != "" {
		extras["field_name"] = opts.FieldName
	}
	return extras
}

// estimateCredits approximates billing credits from text length.
func estimateCredits(text string) int {
	return utf8.RuneCountInString(text)/100 + 1
}

func skippedResult(text, targetLang string, reason domain.SkipReason) *domain.Result {
	return &domain.Result{
		Success:    true,
		Text:       text,
		IsOriginal: true,
		Language:   targetLang,
		Meta: domain.Meta{
			Strategy:   "none",
			Skipped:    true,
			SkipReason: reason,
		},
	}
}

func failedResult(text, targetLang string, err *domain.Error) *domain.Result {
	return &domain.Result{
		Success:    false,
		Text:       text,
		Err:        err,
		IsOriginal: true,
		Language:   targetLang,
		Meta:       domain.Meta{Strategy: "none"},
	}
}
