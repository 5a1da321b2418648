package cache

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jonwraymond/quotastore/store"
)

func TestLoad_MissComputesAndStores(t *testing.T) {
	ctx := context.Background()
	b := store.NewMemoryBackend(0)
	c := newTestCache(t, b)

	key, err := NewDefaultKeyer().Key("analysis", map[string]any{"adId": "a-1"})
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}

	calls := 0
	fn := func(context.Context) (any, error) {
		calls++
		return map[string]any{"overall_score": 72}, nil
	}

	for range 3 {
		got, err := c.Load(ctx, key, fn)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got != `{"overall_score":72}` {
			t.Errorf("Load() = %q", got)
		}
	}
	if calls != 1 {
		t.Errorf("loader called %d times, want 1", calls)
	}
	if !hasKey(t, b, key) {
		t.Error("loaded value should be cached")
	}
}

func TestLoad_LoaderError(t *testing.T) {
	c := newTestCache(t, store.NewMemoryBackend(0))
	boom := errors.New("analysis failed")

	_, err := c.Load(context.Background(), "incivus_cache_x", func(context.Context) (any, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("Load() error = %v, want %v", err, boom)
	}
}

func TestLoad_OversizedValueFails(t *testing.T) {
	ctx := context.Background()
	b := store.NewMemoryBackend(0)
	c := newTestCache(t, b)

	_, err := c.Load(ctx, "incivus_cache_big", func(context.Context) (any, error) {
		return strings.Repeat("r", 600), nil
	})
	if !errors.Is(err, ErrOversizedItem) {
		t.Errorf("Load() error = %v, want ErrOversizedItem", err)
	}
	if hasKey(t, b, "incivus_cache_big") {
		t.Error("oversized value should not be cached")
	}
}

func TestLoad_DroppedWriteStillReturnsValue(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend(0)
	b.setErr = alwaysQuota
	c := newTestCache(t, b)

	got, err := c.Load(ctx, "incivus_cache_x", func(context.Context) (any, error) {
		return "computed", nil
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != "computed" {
		t.Errorf("Load() = %q, want computed", got)
	}
	if hasKey(t, b, "incivus_cache_x") {
		t.Error("dropped write should leave nothing stored")
	}
}

func TestLoad_EssentialQuotaFailure(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend(0)
	b.setErr = alwaysQuota
	c := newTestCache(t, b)

	got, err := c.Load(ctx, "incivus_user_profile", func(context.Context) (any, error) {
		return "profile", nil
	}, WithEssential(true))

	var qe *QuotaExceededError
	if !errors.As(err, &qe) {
		t.Fatalf("Load() error = %v, want *QuotaExceededError", err)
	}
	if got != "" {
		t.Errorf("Load() = %q, want empty on error", got)
	}
}

func TestLoad_ReturnsCompressedForm(t *testing.T) {
	ctx := context.Background()
	b := store.NewMemoryBackend(0)
	c := newTestCache(t, b, smallCompressor())

	fn := func(context.Context) (any, error) {
		return map[string]any{"filePreview": strings.Repeat("p", 400)}, nil
	}

	miss, err := c.Load(ctx, "incivus_cache_doc", fn)
	if err != nil {
		t.Fatalf("Load() miss error = %v", err)
	}
	stored, ok, err := b.Get(ctx, "incivus_cache_doc")
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v", ok, err)
	}
	if miss != stored {
		t.Errorf("miss returned %d bytes, backend holds %d", len(miss), len(stored))
	}
	if !strings.Contains(miss, CompressedMarker) {
		t.Errorf("Load() = %s, want compressed document", miss)
	}

	hit, err := c.Load(ctx, "incivus_cache_doc", fn)
	if err != nil {
		t.Fatalf("Load() hit error = %v", err)
	}
	if hit != miss {
		t.Error("hit and miss should return the same stored form")
	}
}

func TestLoad_InvalidKey(t *testing.T) {
	c := newTestCache(t, store.NewMemoryBackend(0))
	_, err := c.Load(context.Background(), "", func(context.Context) (any, error) {
		t.Error("loader should not run for an invalid key")
		return nil, nil
	})
	if err != ErrInvalidKey {
		t.Errorf("Load() error = %v, want ErrInvalidKey", err)
	}
}
