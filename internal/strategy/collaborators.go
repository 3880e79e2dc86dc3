package strategy

import (
	"context"
	"time"

	"github.com/davidbz/markl/internal/domain"
	"github.com/davidbz/markl/internal/observability"
)

// shouldTranslate consults the hooks collaborator with a bounded timeout.
// Safe default when the hook is absent, errors, or times out: translate.
func (o *Orchestrator) shouldTranslate(ctx context.Context, hctx domain.HookContext) bool {
	if o.hooks == nil {
		return true
	}

	hookCtx, cancel := context.WithTimeout(ctx, o.cfg.HookTimeout)
	defer cancel()

	ok, err := o.hooks.ShouldTranslate(hookCtx, hctx)
	if err != nil {
		observability.FromContext(ctx).Warn("shouldTranslate hook failed, defaulting to translate",
			observability.Error(err))
		return true
	}
	return ok
}

// validateHook runs the external validation hook. Safe default: pass.
func (o *Orchestrator) validateHook(ctx context.Context, res *domain.Result, hctx domain.HookContext) domain.HookValidation {
	if o.hooks == nil {
		return domain.HookValidation{Success: true}
	}

	hookCtx, cancel := context.WithTimeout(ctx, o.cfg.HookTimeout)
	defer cancel()

	v, err := o.hooks.Validate(hookCtx, res, hctx)
	if err != nil {
		observability.FromContext(ctx).Warn("validate hook failed, defaulting to pass",
			observability.Error(err))
		return domain.HookValidation{Success: true}
	}
	return v
}

// emitRecords forwards validation findings to the error sink without ever
// blocking the translation path.
func (o *Orchestrator) emitRecords(ctx context.Context, records []domain.ValidationRecord) {
	if o.sink == nil || len(records) == 0 {
		return
	}

	requestID := observability.GetRequestID(ctx)
	go func() {
		sinkCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		sinkCtx = observability.WithRequestID(sinkCtx, requestID)
		for _, rec := range records {
			o.sink.Record(sinkCtx, rec)
		}
	}()
}

// reservation wraps the billing lifecycle around strategy execution.
type reservation struct {
	billing domain.Billing
	id      string
}

// reserve obtains a credit reservation before any network call. Billing
// transport failures degrade to no reservation; an explicit
// ErrInsufficientCredits aborts the request.
func (o *Orchestrator) reserve(ctx context.Context, shopID string, estimatedCredits int) (*reservation, error) {
	if o.billing == nil || shopID == "" {
		return nil, nil
	}

	id, err := o.billing.Reserve(ctx, shopID, estimatedCredits)
	if err != nil {
		if terr := domain.AsError(err); terr.Code == domain.ErrInsufficientCredits.Code {
			return nil, domain.ErrInsufficientCredits
		}
		observability.FromContext(ctx).Warn("billing reserve failed, continuing without reservation",
			observability.Error(err))
		return nil, nil
	}
	return &reservation{billing: o.billing, id: id}, nil
}

// settle confirms the reservation on success and releases it on failure.
func (r *reservation) settle(ctx context.Context, success bool, actualCredits int) {
	if r == nil {
		return
	}

	var err error
	if success {
		err = r.billing.Confirm(ctx, r.id, actualCredits)
	} else {
		err = r.billing.Release(ctx, r.id)
	}
	if err != nil {
		observability.FromContext(ctx).Warn("billing settlement failed",
			observability.Error(err), observability.Bool("success", success))
	}
}
