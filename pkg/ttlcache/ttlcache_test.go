package ttlcache

import (
	"testing"
	"time"
)

func TestCache_GetBeforeExpiry(t *testing.T) {
	c := New[string, int](10 * time.Minute)
	c.Set("agenda", 7)

	got, ok := c.Get("agenda")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got != 7 {
		t.Fatalf("got %d, want 7", got)
	}
}

func TestCache_MissAfterExpiry(t *testing.T) {
	c := New[string, string](10 * time.Minute)

	base := time.Now()
	c.now = func() time.Time { return base }
	c.Set("k", "v")

	c.now = func() time.Time { return base.Add(10*time.Minute + time.Second) }
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected expired entry to miss")
	}
}

func TestCache_SetResetsExpiry(t *testing.T) {
	c := New[string, int](time.Hour)

	base := time.Now()
	c.now = func() time.Time { return base }
	c.Set("k", 1)

	c.now = func() time.Time { return base.Add(50 * time.Minute) }
	c.Set("k", 2)

	c.now = func() time.Time { return base.Add(90 * time.Minute) }
	got, ok := c.Get("k")
	if !ok {
		t.Fatal("expected hit after refresh")
	}
	if got != 2 {
		t.Fatalf("got %d, want 2", got)
	}
}

func TestCache_MissOnUnknownKey(t *testing.T) {
	c := New[int, int](time.Minute)
	if _, ok := c.Get(42); ok {
		t.Fatal("expected miss for unknown key")
	}
}
