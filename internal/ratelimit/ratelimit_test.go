package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestBudgetPerProviderLimit(t *testing.T) {
	t.Parallel()

	b := NewBudget(map[string]int{"gemini": 2}, 0, nil)

	for i := 0; i < 2; i++ {
		if err := b.Use("gemini"); err != nil {
			t.Fatalf("call %d: unexpected error %v", i, err)
		}
	}
	if err := b.Use("gemini"); err == nil {
		t.Fatalf("expected budget exhaustion")
	}
	if err := b.Use("openai"); err != nil {
		t.Fatalf("unlimited provider rejected: %v", err)
	}
}

func TestBudgetTotalLimit(t *testing.T) {
	t.Parallel()

	b := NewBudget(nil, 1, nil)
	if err := b.Use("openai"); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if err := b.Use("gemini"); err == nil {
		t.Fatalf("expected total budget exhaustion")
	}
}

func TestBudgetDailyReset(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	b := NewBudget(map[string]int{"gemini": 1}, 0, nil)
	b.now = func() time.Time { return now }
	b.resetTime = now.Add(24 * time.Hour)

	if err := b.Use("gemini"); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if err := b.Use("gemini"); err == nil {
		t.Fatalf("expected exhaustion before reset")
	}

	now = now.Add(25 * time.Hour)
	if err := b.Use("gemini"); err != nil {
		t.Fatalf("expected budget reset, got %v", err)
	}
}

func TestBudgetReset(t *testing.T) {
	t.Parallel()

	b := NewBudget(map[string]int{"openai": 1}, 1, nil)
	if err := b.Use("openai"); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if err := b.Use("openai"); err == nil {
		t.Fatalf("expected exhaustion")
	}

	b.Reset()
	if err := b.Use("openai"); err != nil {
		t.Fatalf("expected a fresh budget after Reset, got %v", err)
	}
	if b.Stats()["total_used"] != 1 {
		t.Fatalf("total_used = %v", b.Stats()["total_used"])
	}
}

func TestBudgetStats(t *testing.T) {
	t.Parallel()

	b := NewBudget(map[string]int{"gemini": 10}, 20, nil)
	_ = b.Use("gemini")
	b.RecordCacheHit()

	stats := b.Stats()
	if stats["gemini_used"] != 1 || stats["gemini_limit"] != 10 {
		t.Fatalf("unexpected provider stats %v", stats)
	}
	if stats["cache_hits"] != 1 || stats["total_used"] != 1 {
		t.Fatalf("unexpected totals %v", stats)
	}
}

func TestPacerFirstWaitIsImmediate(t *testing.T) {
	t.Parallel()

	p := NewPacer(time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := p.Wait(ctx); err != nil {
		t.Fatalf("first wait should not block: %v", err)
	}
	// The second event would need an hour, so the deadline wins.
	if err := p.Wait(ctx); err == nil {
		t.Fatalf("expected second wait to fail on deadline")
	}
}

func TestPacerDisabled(t *testing.T) {
	t.Parallel()

	p := NewPacer(0)
	for i := 0; i < 5; i++ {
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("disabled pacer returned %v", err)
		}
	}

	var nilPacer *Pacer
	if err := nilPacer.Wait(context.Background()); err != nil {
		t.Fatalf("nil pacer returned %v", err)
	}
}
