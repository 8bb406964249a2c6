package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Budget caps classifier calls per provider over a rolling day.
type Budget struct {
	mu        sync.Mutex
	counts    map[string]int
	limits    map[string]int
	total     int
	maxTotal  int
	cacheHits int
	resetTime time.Time
	now       func() time.Time
	logger    *slog.Logger
}

// NewBudget creates a budget. A zero limit means unlimited.
func NewBudget(limits map[string]int, maxTotal int, logger *slog.Logger) *Budget {
	if logger == nil {
		logger = slog.Default()
	}
	l := make(map[string]int, len(limits))
	for k, v := range limits {
		l[k] = v
	}
	return &Budget{
		counts:    make(map[string]int),
		limits:    l,
		maxTotal:  maxTotal,
		now:       time.Now,
		resetTime: time.Now().Add(24 * time.Hour),
		logger:    logger.With("component", "budget"),
	}
}

// Use records one call against provider, or fails when the cap is reached.
func (b *Budget) Use(provider string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.checkReset()

	if limit := b.limits[provider]; limit > 0 && b.counts[provider] >= limit {
		return fmt.Errorf("%s call budget exhausted (%d/%d)", provider, b.counts[provider], limit)
	}
	if b.maxTotal > 0 && b.total >= b.maxTotal {
		return fmt.Errorf("total call budget exhausted (%d/%d)", b.total, b.maxTotal)
	}

	b.counts[provider]++
	b.total++

	b.logger.Debug("classifier call", "provider", provider, "used", b.counts[provider], "limit", b.limits[provider], "total", b.total)
	return nil
}

// Reset clears the call counters and starts a new reset period.
func (b *Budget) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.counts = make(map[string]int)
	b.total = 0
	b.cacheHits = 0
	b.resetTime = b.now().Add(24 * time.Hour)
}

// RecordCacheHit counts a verdict served without a provider call.
func (b *Budget) RecordCacheHit() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cacheHits++
}

// Stats returns a snapshot for the monitoring endpoint.
func (b *Budget) Stats() map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()

	stats := map[string]any{
		"total_used":  b.total,
		"total_limit": b.maxTotal,
		"cache_hits":  b.cacheHits,
		"reset_time":  b.resetTime.Format(time.RFC3339),
	}
	for provider, used := range b.counts {
		stats[provider+"_used"] = used
		stats[provider+"_limit"] = b.limits[provider]
	}
	return stats
}

func (b *Budget) checkReset() {
	now := b.now()
	if !now.After(b.resetTime) {
		return
	}
	b.logger.Info("resetting classifier budget", "total_used", b.total, "cache_hits", b.cacheHits)
	b.counts = make(map[string]int)
	b.total = 0
	b.cacheHits = 0
	b.resetTime = now.Add(24 * time.Hour)
}

// Pacer spaces out writes to a quota-limited sink. The first Wait returns
// immediately.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer allows one event per interval. A non-positive interval disables
// pacing.
func NewPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		return &Pacer{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next event is allowed or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}
