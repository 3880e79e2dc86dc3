package domain

import "context"

// Completer issues a single call to the remote completion endpoint.
type Completer interface {
	// Complete sends one completion request and returns the full response.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider identifier.
	Name() string
}

// ResponseCache stores successful translation results by deterministic key.
type ResponseCache interface {
	// Get retrieves a cached result; ok is false on miss or expiry.
	Get(ctx context.Context, key string) (*Result, bool)

	// Set stores a result under key, subject to the store's TTL and
	// eviction policy.
	Set(ctx context.Context, key string, res *Result)
}

// RateLimiter paces outbound calls. Wait blocks until a call may proceed
// or the context is done. All call paths, including retries and fallbacks,
// must pass through the same limiter.
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// HookContext describes the request being considered by a hook.
type HookContext struct {
	Text         string
	TargetLang   string
	ResourceType string
	FieldName    string
	ShopID       string
	ResourceID   string
	Priority     int
}

// HookValidation is the outcome of an external validation hook.
type HookValidation struct {
	Success  bool
	Errors   []string
	Warnings []string
}

// Hooks is the optional external hooks collaborator. Implementations may
// block; callers invoke each hook with a bounded timeout and fall back to
// safe defaults (translate, pass) when a hook errors or times out.
type Hooks interface {
	ShouldTranslate(ctx context.Context, hctx HookContext) (bool, error)
	Schedule(ctx context.Context, hctx HookContext, task func(context.Context) (*Result, error)) (*Result, error)
	Validate(ctx context.Context, res *Result, hctx HookContext) (HookValidation, error)
}

// Billing reserves and settles translation credits. Reservation happens
// before any network call; an ErrInsufficientCredits from Reserve aborts
// the request outright.
type Billing interface {
	Reserve(ctx context.Context, shopID string, estimatedCredits int) (reservationID string, err error)
	Confirm(ctx context.Context, reservationID string, actualCredits int) error
	Release(ctx context.Context, reservationID string) error
}

// ErrorSink collects validation records. Implementations must never block
// the translation path; dispatch is fire-and-forget.
type ErrorSink interface {
	Record(ctx context.Context, rec ValidationRecord)
}
