package cache

import (
	"testing"
	"time"
)

func TestMemoryCacheSetGet(t *testing.T) {
	c := NewMemoryCache(time.Minute)

	c.Set("k", "v")
	value, ok := c.Get("k")
	if !ok || value.(string) != "v" {
		t.Fatalf("got (%v, %v)", value, ok)
	}

	if _, ok := c.Get("missing"); ok {
		t.Error("missing key should not be found")
	}
}

func TestMemoryCacheExpiration(t *testing.T) {
	c := NewMemoryCache(10 * time.Millisecond)

	c.Set("k", "v")
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Error("expired entry should not be returned")
	}
}

func TestPageCacheKeysByRefAndSteps(t *testing.T) {
	pc := NewPageCache()

	pc.SetPage("ref-1", 0, "original")
	pc.SetPage("ref-1", 2, "transposed")

	text, ok := pc.GetPage("ref-1", 2)
	if !ok || text != "transposed" {
		t.Fatalf("got (%q, %v)", text, ok)
	}
	text, _ = pc.GetPage("ref-1", 0)
	if text != "original" {
		t.Errorf("steps must be part of the key, got %q", text)
	}
}

func TestPageCacheInvalidateRef(t *testing.T) {
	pc := NewPageCache()

	pc.SetPage("ref-1", 0, "a")
	pc.SetPage("ref-1", 3, "b")
	pc.SetPage("ref-2", 0, "c")

	pc.InvalidateRef("ref-1")

	if _, ok := pc.GetPage("ref-1", 0); ok {
		t.Error("ref-1@0 should be invalidated")
	}
	if _, ok := pc.GetPage("ref-1", 3); ok {
		t.Error("ref-1@3 should be invalidated")
	}
	if _, ok := pc.GetPage("ref-2", 0); !ok {
		t.Error("other refs must survive invalidation")
	}
}
