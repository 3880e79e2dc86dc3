package metrics

import (
	"math"
	"sort"
	"sync"
	"time"
)

const (
	maxHistory   = 1000
	recentWindow = 100
)

var rollingWindows = []time.Duration{time.Minute, 5 * time.Minute, 15 * time.Minute}

// Entry is one recorded translation call.
type Entry struct {
	Timestamp  time.Time     `json:"timestamp"`
	Success    bool          `json:"success"`
	Strategy   string        `json:"strategy"`
	TargetLang string        `json:"target_lang"`
	Duration   time.Duration `json:"duration"`
	Cached     bool          `json:"cached"`
	Retries    int           `json:"retries"`
}

// Totals are monotonic for the process lifetime.
type Totals struct {
	Calls     int64 `json:"calls"`
	Successes int64 `json:"successes"`
	Failures  int64 `json:"failures"`
	CacheHits int64 `json:"cache_hits"`
	Retries   int64 `json:"retries"`
}

// StrategyStats aggregates per-strategy outcomes.
type StrategyStats struct {
	Calls         int64         `json:"calls"`
	Successes     int64         `json:"successes"`
	CacheHits     int64         `json:"cache_hits"`
	TotalDuration time.Duration `json:"total_duration"`
}

// RecentStats summarizes the last N calls.
type RecentStats struct {
	Count       int           `json:"count"`
	AvgDuration time.Duration `json:"avg_duration"`
	Median      time.Duration `json:"median_duration"`
	P90         time.Duration `json:"p90_duration"`
	P95         time.Duration `json:"p95_duration"`
	P99         time.Duration `json:"p99_duration"`
	AvgRetries  float64       `json:"avg_retries"`
}

// WindowStats summarizes one rolling time window.
type WindowStats struct {
	Count       int           `json:"count"`
	Successes   int           `json:"successes"`
	AvgDuration time.Duration `json:"avg_duration"`
}

// Snapshot is the full metrics view returned to callers.
type Snapshot struct {
	Totals      Totals                   `json:"totals"`
	Recent      RecentStats              `json:"recent"`
	PerStrategy map[string]StrategyStats `json:"per_strategy"`
	Windows     map[string]WindowStats   `json:"windows"`
}

// Collector keeps a capped call history plus cumulative aggregates. It is
// safe for concurrent use.
type Collector struct {
	mu          sync.Mutex
	history     []Entry
	totals      Totals
	perStrategy map[string]*StrategyStats

	now func() time.Time
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		perStrategy: make(map[string]*StrategyStats),
		now:         time.Now,
	}
}

// Record appends a call outcome, updates aggregates, and mirrors the
// outcome into the Prometheus series.
func (c *Collector) Record(e Entry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = c.now()
	}

	c.mu.Lock()
	c.history = append(c.history, e)
	if len(c.history) > maxHistory {
		c.history = append(c.history[:0], c.history[len(c.history)-maxHistory:]...)
	}

	c.totals.Calls++
	c.totals.Retries += int64(e.Retries)
	if e.Success {
		c.totals.Successes++
	} else {
		c.totals.Failures++
	}
	if e.Cached {
		c.totals.CacheHits++
	}

	ss, ok := c.perStrategy[e.Strategy]
	if !ok {
		ss = &StrategyStats{}
		c.perStrategy[e.Strategy] = ss
	}
	ss.Calls++
	ss.TotalDuration += e.Duration
	if e.Success {
		ss.Successes++
	}
	if e.Cached {
		ss.CacheHits++
	}
	c.mu.Unlock()

	outcome := "failure"
	if e.Success {
		outcome = "success"
	}
	TranslationsTotal.WithLabelValues(e.Strategy, outcome).Inc()
	TranslationDuration.WithLabelValues(e.Strategy).Observe(e.Duration.Seconds())
	if e.Cached {
		CacheHitsTotal.Inc()
	}
	if e.Retries > 0 {
		RetriesTotal.Add(float64(e.Retries))
	}
}

// Snapshot returns totals, a recent-call summary, per-strategy stats, and
// rolling-window stats.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Totals:      c.totals,
		PerStrategy: make(map[string]StrategyStats, len(c.perStrategy)),
		Windows:     make(map[string]WindowStats, len(rollingWindows)),
	}
	for name, ss := range c.perStrategy {
		snap.PerStrategy[name] = *ss
	}

	recent := c.history
	if len(recent) > recentWindow {
		recent = recent[len(recent)-recentWindow:]
	}
	snap.Recent = summarizeRecent(recent)

	now := c.now()
	for _, w := range rollingWindows {
		snap.Windows[w.String()] = summarizeWindow(c.history, now, w)
	}

	return snap
}

func summarizeRecent(entries []Entry) RecentStats {
	stats := RecentStats{Count: len(entries)}
	if len(entries) == 0 {
		return stats
	}

	durations := make([]time.Duration, len(entries))
	var totalDur time.Duration
	var totalRetries int
	for i, e := range entries {
		durations[i] = e.Duration
		totalDur += e.Duration
		totalRetries += e.Retries
	}
	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	stats.AvgDuration = totalDur / time.Duration(len(entries))
	stats.Median = quantile(durations, 0.5)
	stats.P90 = quantile(durations, 0.9)
	stats.P95 = quantile(durations, 0.95)
	stats.P99 = quantile(durations, 0.99)
	stats.AvgRetries = float64(totalRetries) / float64(len(entries))
	return stats
}

func summarizeWindow(history []Entry, now time.Time, window time.Duration) WindowStats {
	cutoff := now.Add(-window)
	var stats WindowStats
	var totalDur time.Duration
	for _, e := range history {
		if e.Timestamp.Before(cutoff) {
			continue
		}
		stats.Count++
		totalDur += e.Duration
		if e.Success {
			stats.Successes++
		}
	}
	if stats.Count > 0 {
		stats.AvgDuration = totalDur / time.Duration(stats.Count)
	}
	return stats
}

// quantile indexes a sorted slice by ceil(n*q)-1, clamped to valid bounds.
func quantile(sorted []time.Duration, q float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(float64(len(sorted))*q)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
