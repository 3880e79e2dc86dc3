package domain

import (
	"context"
	"errors"
	"fmt"
)

// Category classifies a translation failure for retry decisions.
type Category string

const (
	CategoryConfig     Category = "configuration"
	CategoryNetwork    Category = "network"
	CategoryRateLimit  Category = "rate_limit"
	CategoryAuth       Category = "auth"
	CategoryServer     Category = "server"
	CategoryContent    Category = "content"
	CategoryValidation Category = "validation"
)

// Error is the typed error carried across component boundaries.
type Error struct {
	Code      string            `json:"code"`
	Category  Category          `json:"category"`
	Retryable bool              `json:"retryable"`
	Message   string            `json:"message"`
	Context   map[string]string `json:"context,omitempty"`

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Code, e.Category, e.Message, e.cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Code, e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// NewError creates a typed error; cause may be nil.
func NewError(code string, category Category, retryable bool, message string, cause error) *Error {
	return &Error{
		Code:      code,
		Category:  category,
		Retryable: retryable,
		Message:   message,
		cause:     cause,
	}
}

// WithContext attaches a key/value pair to the error context.
func (e *Error) WithContext(key, value string) *Error {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// ErrInsufficientCredits aborts translation before any spend.
var ErrInsufficientCredits = NewError(
	"INSUFFICIENT_CREDITS", CategoryConfig, false, "credit reservation rejected", nil,
)

// Retryable reports whether the error warrants another attempt. Context
// cancellation and deadline expiry on the caller's side are never retried;
// typed errors answer for themselves; everything else is assumed to be a
// transport hiccup.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var terr *Error
	if errors.As(err, &terr) {
		return terr.Retryable
	}
	return true
}

// AsError converts any error into a typed Error, classifying unknown errors
// as retryable network failures.
func AsError(err error) *Error {
	var terr *Error
	if errors.As(err, &terr) {
		return terr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError("TIMEOUT", CategoryNetwork, true, "request timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return NewError("CANCELED", CategoryNetwork, false, "request canceled", err)
	}
	return NewError("NETWORK_ERROR", CategoryNetwork, true, "request failed", err)
}
