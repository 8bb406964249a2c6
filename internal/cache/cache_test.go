package cache

import (
	"testing"
	"time"
)

func TestCacheSetGet(t *testing.T) {
	t.Parallel()

	c := New[int](time.Hour, 0)
	defer c.Close()

	c.Set("a", 1)
	got, ok := c.Get("a")
	if !ok || got != 1 {
		t.Fatalf("Get(a) = %d, %v", got, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatalf("unexpected hit for missing key")
	}
}

func TestCacheExpiry(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	c := New[string](time.Minute, 0)
	defer c.Close()
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	now = now.Add(2 * time.Minute)

	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected entry to expire")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry not removed, len=%d", c.Len())
	}
}

func TestCacheCleanup(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	c := New[string](time.Minute, 0)
	defer c.Close()
	c.now = func() time.Time { return now }

	c.Set("old", "v")
	now = now.Add(time.Hour)
	c.Set("fresh", "v")
	c.cleanup()

	if c.Len() != 1 {
		t.Fatalf("expected only fresh entry, len=%d", c.Len())
	}
}

func TestKeyIsStableAndSeparated(t *testing.T) {
	t.Parallel()

	if Key("ab", "c") == Key("a", "bc") {
		t.Fatalf("key parts must not run together")
	}
	if Key("x", "y") != Key("x", "y") {
		t.Fatalf("key must be stable")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	c := New[int](time.Minute, time.Millisecond)
	c.Close()
	c.Close()
}
