package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/davidbz/markl/internal/domain"
	"github.com/davidbz/markl/internal/metrics"
	"github.com/davidbz/markl/internal/observability"
)

// Translator runs one translation request end to end.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string, opts domain.Options) (*domain.Result, error)
}

// Handler handles HTTP requests.
type Handler struct {
	translator Translator
	collector  *metrics.Collector
}

// NewHandler creates a new HTTP handler (DI constructor).
func NewHandler(translator Translator, collector *metrics.Collector) *Handler {
	return &Handler{
		translator: translator,
		collector:  collector,
	}
}

// TranslateRequest is the inbound translation payload.
type TranslateRequest struct {
	Text       string         `json:"text"`
	TargetLang string         `json:"target_lang"`
	Options    domain.Options `json:"options"`
}

// HandleTranslate processes translation requests.
func (h *Handler) HandleTranslate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req TranslateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.TargetLang == "" {
		http.Error(w, "target_lang is required", http.StatusBadRequest)
		return
	}

	ctx = observability.WithTargetLang(ctx, req.TargetLang)
	logger := observability.FromContext(ctx)
	logger.Info("translation request received",
		observability.Int("text_length", len(req.Text)),
		observability.String("strategy", string(req.Options.Strategy)),
	)

	result, err := h.translator.Translate(ctx, req.Text, req.TargetLang, req.Options)
	if err != nil {
		logger.Warn("translation failed", observability.Error(err))
		// The result is still well-formed and carries the source text;
		// callers get it together with the error classification.
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusFor(err))
		_ = json.NewEncoder(w).Encode(result)
		return
	}

	logger.Info("translation succeeded",
		observability.String("strategy", result.Meta.Strategy),
		observability.Bool("cached", result.Meta.Cached),
		observability.Int("retries", result.Meta.Retries),
	)

	w.Header().Set("Content-Type", "application/json")
	if encodeErr := json.NewEncoder(w).Encode(result); encodeErr != nil {
		logger.Error("failed to encode response", observability.Error(encodeErr))
	}
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var terr *domain.Error
	if !errors.As(err, &terr) {
		return http.StatusInternalServerError
	}
	switch terr.Category {
	case domain.CategoryConfig, domain.CategoryAuth:
		return http.StatusBadGateway
	case domain.CategoryRateLimit:
		return http.StatusTooManyRequests
	case domain.CategoryContent, domain.CategoryValidation:
		return http.StatusUnprocessableEntity
	case domain.CategoryNetwork, domain.CategoryServer:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// HandleMetrics returns the translation metrics snapshot.
func (h *Handler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.collector.Snapshot()); err != nil {
		observability.FromContext(r.Context()).Error("failed to encode metrics", observability.Error(err))
	}
}

// HandleHealth handles health check requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	}); err != nil {
		// Already written status, can't change it, just log.
		return
	}
}
