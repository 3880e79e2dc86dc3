package strategy_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/markl/internal/client"
	"github.com/davidbz/markl/internal/domain"
	"github.com/davidbz/markl/internal/metrics"
	"github.com/davidbz/markl/internal/strategy"
)

// mockCompleter scripts provider behavior by inspecting the request.
type mockCompleter struct {
	mu           sync.Mutex
	calls        []*domain.CompletionRequest
	completeFunc func(req *domain.CompletionRequest) (*domain.CompletionResponse, error)
}

func (m *mockCompleter) Complete(_ context.Context, req *domain.CompletionRequest) (*domain.CompletionResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()
	return m.completeFunc(req)
}

func (m *mockCompleter) Name() string { return "mock" }

func (m *mockCompleter) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type mockHooks struct {
	shouldFunc   func(domain.HookContext) (bool, error)
	scheduleFunc func(context.Context, domain.HookContext, func(context.Context) (*domain.Result, error)) (*domain.Result, error)
	validateFunc func(*domain.Result, domain.HookContext) (domain.HookValidation, error)
}

func (m *mockHooks) ShouldTranslate(_ context.Context, hctx domain.HookContext) (bool, error) {
	if m.shouldFunc != nil {
		return m.shouldFunc(hctx)
	}
	return true, nil
}

func (m *mockHooks) Schedule(
	ctx context.Context,
	hctx domain.HookContext,
	task func(context.Context) (*domain.Result, error),
) (*domain.Result, error) {
	if m.scheduleFunc != nil {
		return m.scheduleFunc(ctx, hctx, task)
	}
	return task(ctx)
}

func (m *mockHooks) Validate(_ context.Context, res *domain.Result, hctx domain.HookContext) (domain.HookValidation, error) {
	if m.validateFunc != nil {
		return m.validateFunc(res, hctx)
	}
	return domain.HookValidation{Success: true}, nil
}

type mockBilling struct {
	mu         sync.Mutex
	reserveErr error
	reserved   int
	confirmed  int
	released   int
}

func (m *mockBilling) Reserve(_ context.Context, _ string, _ int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reserveErr != nil {
		return "", m.reserveErr
	}
	m.reserved++
	return "resv-1", nil
}

func (m *mockBilling) Confirm(_ context.Context, _ string, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmed++
	return nil
}

func (m *mockBilling) Release(_ context.Context, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released++
	return nil
}

func newOrchestrator(provider *mockCompleter, hooks domain.Hooks, billing domain.Billing) *strategy.Orchestrator {
	exec := client.NewExecutor(provider, nil, nil, nil, client.Config{
		Model:      "gpt-4-turbo",
		MaxRetries: 0,
		RetryDelay: time.Millisecond,
	})
	return strategy.New(exec, metrics.NewCollector(), hooks, billing, nil, strategy.Config{
		LongTextThreshold: 100,
		MaxChunkSize:      80,
	})
}

func echoProvider() *mockCompleter {
	return &mockCompleter{
		completeFunc: func(req *domain.CompletionRequest) (*domain.CompletionResponse, error) {
			return &domain.CompletionResponse{Content: req.Text}, nil
		},
	}
}

func TestOrchestrator_Translate(t *testing.T) {
	t.Run("should skip blank input without calling the provider", func(t *testing.T) {
		provider := echoProvider()
		o := newOrchestrator(provider, nil, nil)

		res, err := o.Translate(context.Background(), "   \n ", "fr", domain.Options{})

		require.NoError(t, err)
		require.True(t, res.Success)
		require.True(t, res.IsOriginal)
		require.True(t, res.Meta.Skipped)
		require.Equal(t, domain.SkipEmptyInput, res.Meta.SkipReason)
		require.Equal(t, 0, provider.callCount())
	})

	t.Run("should translate short text with the default chain", func(t *testing.T) {
		provider := &mockCompleter{
			completeFunc: func(_ *domain.CompletionRequest) (*domain.CompletionResponse, error) {
				return &domain.CompletionResponse{Content: "Bonjour le monde, merci beaucoup pour votre visite."}, nil
			},
		}
		o := newOrchestrator(provider, nil, nil)

		res, err := o.Translate(context.Background(), "Hello world, thank you so much for visiting us.", "fr", domain.Options{})

		require.NoError(t, err)
		require.True(t, res.Success)
		require.False(t, res.IsOriginal)
		require.Equal(t, "Bonjour le monde, merci beaucoup pour votre visite.", res.Text)
		require.Equal(t, "enhanced", res.Meta.Strategy)
		require.Equal(t, "fr", res.Language)
	})

	t.Run("should return source annotated for config key strategy", func(t *testing.T) {
		provider := echoProvider()
		o := newOrchestrator(provider, nil, nil)

		res, err := o.Translate(context.Background(), "checkout_button_label", "fr", domain.Options{
			Strategy: domain.StrategyConfigKey,
		})

		require.NoError(t, err)
		require.True(t, res.Success)
		require.True(t, res.IsOriginal)
		require.Equal(t, domain.SkipConfigKey, res.Meta.SkipReason)
		require.Equal(t, "checkout_button_label", res.Text)
		require.Equal(t, 0, provider.callCount())
	})

	t.Run("should surface failures with the source text preserved", func(t *testing.T) {
		provider := &mockCompleter{
			completeFunc: func(_ *domain.CompletionRequest) (*domain.CompletionResponse, error) {
				return nil, domain.NewError("SERVER_ERROR", domain.CategoryServer, false, "boom", nil)
			},
		}
		o := newOrchestrator(provider, nil, nil)

		res, err := o.Translate(context.Background(), "Hello there, welcome in.", "fr", domain.Options{})

		require.Error(t, err)
		require.False(t, res.Success)
		require.True(t, res.IsOriginal)
		require.Equal(t, "Hello there, welcome in.", res.Text)
		require.NotNil(t, res.Err)
	})
}

func TestOrchestrator_IdenticalResults(t *testing.T) {
	cases := []struct {
		name   string
		text   string
		reason domain.SkipReason
	}{
		{"product code", "SKU-12345", domain.SkipProductCode},
		{"technical terms", "API SDK", domain.SkipTechnicalTerm},
		{"possible brand", "Golden Harvest", domain.SkipPossibleBrand},
		{"plain identical", "the same ordinary sentence came back", domain.SkipIdenticalResult},
	}

	for _, tc := range cases {
		t.Run("should annotate "+tc.name, func(t *testing.T) {
			provider := echoProvider()
			o := newOrchestrator(provider, nil, nil)

			res, err := o.Translate(context.Background(), tc.text, "fr", domain.Options{})

			require.NoError(t, err)
			require.True(t, res.Success)
			require.True(t, res.IsOriginal)
			require.True(t, res.Meta.Skipped)
			require.Equal(t, tc.reason, res.Meta.SkipReason)
			require.Equal(t, tc.text, res.Text)
		})
	}
}

func TestOrchestrator_LongPipeline(t *testing.T) {
	longHTML := strings.Repeat("<p>word and word again</p>", 10)

	t.Run("should chunk long html and reassemble", func(t *testing.T) {
		provider := &mockCompleter{
			completeFunc: func(req *domain.CompletionRequest) (*domain.CompletionResponse, error) {
				return &domain.CompletionResponse{Content: strings.ReplaceAll(req.Text, "word", "mot")}, nil
			},
		}
		o := newOrchestrator(provider, nil, nil)

		res, err := o.Translate(context.Background(), longHTML, "fr", domain.Options{})

		require.NoError(t, err)
		require.True(t, res.Success)
		require.Equal(t, "long-html", res.Meta.Strategy)
		require.Equal(t, strings.Repeat("<p>mot and mot again</p>", 10), res.Text)
		require.Greater(t, provider.callCount(), 1)
	})

	t.Run("should protect markup through the chunked pipeline", func(t *testing.T) {
		original := strings.Repeat(`<p>word text <a href="/shop/item">link word</a></p>`, 5)
		provider := &mockCompleter{
			completeFunc: func(req *domain.CompletionRequest) (*domain.CompletionResponse, error) {
				return &domain.CompletionResponse{Content: strings.ReplaceAll(req.Text, "word", "mot")}, nil
			},
		}
		o := newOrchestrator(provider, nil, nil)

		res, err := o.Translate(context.Background(), original, "fr", domain.Options{})

		require.NoError(t, err)
		require.True(t, res.Success)
		// Hrefs travel as placeholders and come back intact.
		require.Contains(t, res.Text, `href="/shop/item"`)
		require.NotContains(t, res.Text, "__PROTECTED_")
	})

	t.Run("should degrade to the default runner when chunking fails", func(t *testing.T) {
		provider := &mockCompleter{
			completeFunc: func(req *domain.CompletionRequest) (*domain.CompletionResponse, error) {
				if strings.Contains(req.SystemPrompt, "fragment") {
					return nil, domain.NewError("SERVER_ERROR", domain.CategoryServer, false, "chunk call failed", nil)
				}
				return &domain.CompletionResponse{Content: "Texte traduit en entier, sans morceaux."}, nil
			},
		}
		o := newOrchestrator(provider, nil, nil)

		res, err := o.Translate(context.Background(), longHTML, "fr", domain.Options{})

		require.NoError(t, err)
		require.True(t, res.Success)
		require.Equal(t, "Texte traduit en entier, sans morceaux.", res.Text)
		require.Equal(t, "long-html", res.Meta.OriginStrategy)
	})
}

func TestOrchestrator_LinkConversion(t *testing.T) {
	t.Run("should localize root relative links", func(t *testing.T) {
		provider := &mockCompleter{
			completeFunc: func(_ *domain.CompletionRequest) (*domain.CompletionResponse, error) {
				return &domain.CompletionResponse{
					Content: `<p>Découvrez <a href="/products/1">le produit</a> et <a href="https://cdn.example.com/x">l'image</a></p>`,
				}, nil
			},
		}
		o := newOrchestrator(provider, nil, nil)

		res, err := o.Translate(context.Background(),
			`<p>See <a href="/products/1">the product</a> and <a href="https://cdn.example.com/x">the image</a></p>`,
			"fr", domain.Options{LinkConversion: true})

		require.NoError(t, err)
		require.True(t, res.Success)
		require.Contains(t, res.Text, `href="/fr/products/1"`)
		require.Contains(t, res.Text, `href="https://cdn.example.com/x"`)
	})

	t.Run("should localize links when post processing is requested", func(t *testing.T) {
		provider := &mockCompleter{
			completeFunc: func(_ *domain.CompletionRequest) (*domain.CompletionResponse, error) {
				return &domain.CompletionResponse{
					Content: `<p>Voir <a href="/shop/item">l'article</a> maintenant</p>`,
				}, nil
			},
		}
		o := newOrchestrator(provider, nil, nil)

		res, err := o.Translate(context.Background(),
			`<p>See <a href="/shop/item">the item</a> now</p>`,
			"fr", domain.Options{PostProcess: true})

		require.NoError(t, err)
		require.True(t, res.Success)
		require.Contains(t, res.Text, `href="/fr/shop/item"`)
	})
}

func TestOrchestrator_RetryCount(t *testing.T) {
	t.Run("should retry per the request's retry count", func(t *testing.T) {
		var calls int
		var mu sync.Mutex
		provider := &mockCompleter{
			completeFunc: func(_ *domain.CompletionRequest) (*domain.CompletionResponse, error) {
				mu.Lock()
				defer mu.Unlock()
				calls++
				if calls == 1 {
					return nil, domain.NewError("RATE_LIMITED", domain.CategoryRateLimit, true, "429 from upstream", nil)
				}
				return &domain.CompletionResponse{Content: "Traduction obtenue après une relance."}, nil
			},
		}
		o := newOrchestrator(provider, nil, nil)

		res, err := o.Translate(context.Background(), "Translate this text with retries allowed.", "fr", domain.Options{
			RetryCount: 2,
		})

		require.NoError(t, err)
		require.True(t, res.Success)
		require.Equal(t, 1, res.Meta.Retries)
		require.Equal(t, 2, provider.callCount())
	})
}

func TestOrchestrator_Hooks(t *testing.T) {
	t.Run("should skip when the hook declines", func(t *testing.T) {
		provider := echoProvider()
		hooks := &mockHooks{
			shouldFunc: func(_ domain.HookContext) (bool, error) { return false, nil },
		}
		o := newOrchestrator(provider, hooks, nil)

		res, err := o.Translate(context.Background(), "Do not translate this text please.", "fr", domain.Options{})

		require.NoError(t, err)
		require.True(t, res.Success)
		require.True(t, res.Meta.Skipped)
		require.Equal(t, domain.SkipHookDeclined, res.Meta.SkipReason)
		require.Equal(t, 0, provider.callCount())
	})

	t.Run("should pass the request priority to hooks", func(t *testing.T) {
		provider := echoProvider()
		var seen int
		hooks := &mockHooks{
			shouldFunc: func(hctx domain.HookContext) (bool, error) {
				seen = hctx.Priority
				return false, nil
			},
		}
		o := newOrchestrator(provider, hooks, nil)

		_, err := o.Translate(context.Background(), "Translate this urgent banner text.", "fr", domain.Options{
			Priority: 7,
		})

		require.NoError(t, err)
		require.Equal(t, 7, seen)
	})

	t.Run("should translate when the hook errors", func(t *testing.T) {
		provider := &mockCompleter{
			completeFunc: func(_ *domain.CompletionRequest) (*domain.CompletionResponse, error) {
				return &domain.CompletionResponse{Content: "Texte traduit pour vous aujourd'hui."}, nil
			},
		}
		hooks := &mockHooks{
			shouldFunc: func(_ domain.HookContext) (bool, error) {
				return false, domain.NewError("HOOK_DOWN", domain.CategoryNetwork, true, "hook unreachable", nil)
			},
		}
		o := newOrchestrator(provider, hooks, nil)

		res, err := o.Translate(context.Background(), "Please translate this text now.", "fr", domain.Options{})

		require.NoError(t, err)
		require.True(t, res.Success)
		require.Equal(t, 1, provider.callCount())
	})

	t.Run("should route execution through the schedule hook", func(t *testing.T) {
		provider := &mockCompleter{
			completeFunc: func(_ *domain.CompletionRequest) (*domain.CompletionResponse, error) {
				return &domain.CompletionResponse{Content: "Texte planifié puis traduit correctement."}, nil
			},
		}
		scheduled := false
		hooks := &mockHooks{
			scheduleFunc: func(ctx context.Context, _ domain.HookContext, task func(context.Context) (*domain.Result, error)) (*domain.Result, error) {
				scheduled = true
				return task(ctx)
			},
		}
		o := newOrchestrator(provider, hooks, nil)

		res, err := o.Translate(context.Background(), "Schedule this translation for me.", "fr", domain.Options{})

		require.NoError(t, err)
		require.True(t, res.Success)
		require.True(t, scheduled)
	})

	t.Run("should run inline when the schedule hook fails", func(t *testing.T) {
		provider := &mockCompleter{
			completeFunc: func(_ *domain.CompletionRequest) (*domain.CompletionResponse, error) {
				return &domain.CompletionResponse{Content: "Traduction exécutée directement sans file."}, nil
			},
		}
		hooks := &mockHooks{
			scheduleFunc: func(_ context.Context, _ domain.HookContext, _ func(context.Context) (*domain.Result, error)) (*domain.Result, error) {
				return nil, domain.NewError("QUEUE_FULL", domain.CategoryServer, true, "queue rejected task", nil)
			},
		}
		o := newOrchestrator(provider, hooks, nil)

		res, err := o.Translate(context.Background(), "Translate this even if the queue is full.", "fr", domain.Options{})

		require.NoError(t, err)
		require.True(t, res.Success)
		require.Equal(t, 1, provider.callCount())
	})
}

func TestOrchestrator_Billing(t *testing.T) {
	t.Run("should abort before any network call when credits are insufficient", func(t *testing.T) {
		provider := echoProvider()
		billing := &mockBilling{reserveErr: domain.ErrInsufficientCredits}
		o := newOrchestrator(provider, nil, billing)

		res, err := o.Translate(context.Background(), "Translate this product description.", "fr", domain.Options{
			ShopID: "shop-1",
		})

		require.Error(t, err)
		require.ErrorIs(t, err, domain.ErrInsufficientCredits)
		require.False(t, res.Success)
		require.True(t, res.IsOriginal)
		require.Equal(t, 0, provider.callCount())
	})

	t.Run("should confirm the reservation on success", func(t *testing.T) {
		provider := &mockCompleter{
			completeFunc: func(_ *domain.CompletionRequest) (*domain.CompletionResponse, error) {
				return &domain.CompletionResponse{Content: "Description du produit traduite avec soin."}, nil
			},
		}
		billing := &mockBilling{}
		o := newOrchestrator(provider, nil, billing)

		res, err := o.Translate(context.Background(), "A handsome product description to translate.", "fr", domain.Options{
			ShopID: "shop-1",
		})

		require.NoError(t, err)
		require.True(t, res.Success)
		require.Equal(t, 1, billing.reserved)
		require.Equal(t, 1, billing.confirmed)
		require.Equal(t, 0, billing.released)
	})

	t.Run("should release the reservation on failure", func(t *testing.T) {
		provider := &mockCompleter{
			completeFunc: func(_ *domain.CompletionRequest) (*domain.CompletionResponse, error) {
				return nil, domain.NewError("SERVER_ERROR", domain.CategoryServer, false, "boom", nil)
			},
		}
		billing := &mockBilling{}
		o := newOrchestrator(provider, nil, billing)

		res, err := o.Translate(context.Background(), "A product description that will not translate.", "fr", domain.Options{
			ShopID: "shop-1",
		})

		require.Error(t, err)
		require.False(t, res.Success)
		require.Equal(t, 1, billing.released)
		require.Equal(t, 0, billing.confirmed)
	})

	t.Run("should proceed without reservation when billing transport fails", func(t *testing.T) {
		provider := &mockCompleter{
			completeFunc: func(_ *domain.CompletionRequest) (*domain.CompletionResponse, error) {
				return &domain.CompletionResponse{Content: "Traduction réussie malgré la panne de facturation."}, nil
			},
		}
		billing := &mockBilling{reserveErr: domain.NewError("BILLING_DOWN", domain.CategoryNetwork, true, "billing unreachable", nil)}
		o := newOrchestrator(provider, nil, billing)

		res, err := o.Translate(context.Background(), "Translate this despite billing trouble.", "fr", domain.Options{
			ShopID: "shop-1",
		})

		require.NoError(t, err)
		require.True(t, res.Success)
	})
}

func TestOrchestrator_Metrics(t *testing.T) {
	t.Run("should record every call in the collector", func(t *testing.T) {
		provider := &mockCompleter{
			completeFunc: func(_ *domain.CompletionRequest) (*domain.CompletionResponse, error) {
				return &domain.CompletionResponse{Content: "Une phrase traduite pour les statistiques."}, nil
			},
		}
		exec := client.NewExecutor(provider, nil, nil, nil, client.Config{Model: "gpt-4-turbo"})
		collector := metrics.NewCollector()
		o := strategy.New(exec, collector, nil, nil, nil, strategy.Config{})

		_, err := o.Translate(context.Background(), "A sentence translated for the statistics.", "fr", domain.Options{})
		require.NoError(t, err)

		snap := collector.Snapshot()
		require.Equal(t, int64(1), snap.Totals.Calls)
		require.Equal(t, int64(1), snap.Totals.Successes)
		require.Contains(t, snap.PerStrategy, "default")
	})
}
