// Package metrics records translation call outcomes: process-lifetime
// Prometheus series for scraping, plus an in-process collector with
// rolling windows and duration quantiles for the snapshot endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TranslationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "markl_translations_total",
			Help: "Total number of translation calls",
		},
		[]string{"strategy", "outcome"},
	)

	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "markl_cache_hits_total",
			Help: "Total number of translation cache hits",
		},
	)

	RetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "markl_retries_total",
			Help: "Total number of retried completion calls",
		},
	)

	TranslationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "markl_translation_duration_seconds",
			Help:    "Translation call latency in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"strategy"},
	)
)
