package openai

import (
	"errors"
	"net/http"

	"github.com/openai/openai-go"

	"github.com/davidbz/markl/internal/domain"
)

// classify maps an SDK error onto the typed taxonomy. HTTP 429 and 5xx
// are retryable; other 4xx are semantic errors and are not. Timeouts are
// retryable network failures unless the caller's own context was canceled.
func classify(err error) *domain.Error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return domain.NewError(
				"RATE_LIMITED", domain.CategoryRateLimit, true, "completion API rate limit hit", err)
		case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
			return domain.NewError(
				"AUTH_FAILED", domain.CategoryAuth, false, "completion API rejected credentials", err)
		case apiErr.StatusCode >= http.StatusInternalServerError:
			return domain.NewError(
				"SERVER_ERROR", domain.CategoryServer, true, "completion API server error", err)
		case apiErr.StatusCode >= http.StatusBadRequest:
			return domain.NewError(
				"BAD_REQUEST", domain.CategoryContent, false, "completion API rejected the request", err)
		}
	}

	return domain.AsError(err)
}
