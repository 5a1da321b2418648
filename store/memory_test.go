package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestMemoryBackend_GetSetRemove(t *testing.T) {
	b := NewMemoryBackend(1024)
	ctx := context.Background()

	// Miss on empty backend
	val, ok, err := b.Get(ctx, "missing")
	if err != nil || ok || val != "" {
		t.Fatalf("Get(missing) = (%q, %v, %v), want (\"\", false, nil)", val, ok, err)
	}

	if err := b.Set(ctx, "k", "value"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, ok, err = b.Get(ctx, "k")
	if err != nil || !ok || val != "value" {
		t.Fatalf("Get(k) = (%q, %v, %v), want (\"value\", true, nil)", val, ok, err)
	}
	if b.Used() != len("k")+len("value") {
		t.Errorf("Used() = %d, want %d", b.Used(), len("k")+len("value"))
	}

	if err := b.Remove(ctx, "k"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, ok, _ := b.Get(ctx, "k"); ok {
		t.Error("Get after Remove should miss")
	}
	if b.Used() != 0 {
		t.Errorf("Used() after Remove = %d, want 0", b.Used())
	}

	// Remove is idempotent
	if err := b.Remove(ctx, "k"); err != nil {
		t.Errorf("Remove on missing key should not error, got: %v", err)
	}
}

func TestMemoryBackend_QuotaExceeded(t *testing.T) {
	b := NewMemoryBackend(20)
	ctx := context.Background()

	if err := b.Set(ctx, "a", strings.Repeat("x", 10)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	err := b.Set(ctx, "b", strings.Repeat("y", 10))
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("Set over capacity = %v, want ErrQuotaExceeded", err)
	}
	if !IsQuotaExceeded(err) {
		t.Error("IsQuotaExceeded should report true")
	}
	if _, ok, _ := b.Get(ctx, "b"); ok {
		t.Error("rejected write must not be stored")
	}
	if b.Used() != 11 {
		t.Errorf("Used() = %d, want 11", b.Used())
	}
}

func TestMemoryBackend_OverwriteAccountsForOldValue(t *testing.T) {
	b := NewMemoryBackend(20)
	ctx := context.Background()

	if err := b.Set(ctx, "a", strings.Repeat("x", 15)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	// Replacing a 16-byte entry with a 19-byte one fits in 20.
	if err := b.Set(ctx, "a", strings.Repeat("z", 18)); err != nil {
		t.Fatalf("overwrite should fit, got: %v", err)
	}
	if b.Used() != 19 {
		t.Errorf("Used() = %d, want 19", b.Used())
	}

	// A failing overwrite keeps the old value.
	if err := b.Set(ctx, "a", strings.Repeat("q", 30)); !IsQuotaExceeded(err) {
		t.Fatalf("oversized overwrite = %v, want ErrQuotaExceeded", err)
	}
	val, _, _ := b.Get(ctx, "a")
	if val != strings.Repeat("z", 18) {
		t.Errorf("old value lost after failed overwrite: %q", val)
	}
}

func TestMemoryBackend_KeysSorted(t *testing.T) {
	b := NewMemoryBackend(0)
	ctx := context.Background()

	for _, k := range []string{"c", "a", "b"} {
		_ = b.Set(ctx, k, "v")
	}

	keys, err := b.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	want := []string{"a", "b", "c"}
	if strings.Join(keys, ",") != strings.Join(want, ",") {
		t.Errorf("Keys() = %v, want %v", keys, want)
	}
	if b.Capacity() != DefaultCapacity {
		t.Errorf("Capacity() = %d, want %d", b.Capacity(), DefaultCapacity)
	}
}

func TestMemoryBackend_ConcurrentAccess(t *testing.T) {
	b := NewMemoryBackend(1 << 20)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i%26))
			_ = b.Set(ctx, key, strings.Repeat("v", i))
			_, _, _ = b.Get(ctx, key)
			if i%3 == 0 {
				_ = b.Remove(ctx, key)
			}
		}(i)
	}
	wg.Wait()

	// Used must equal the sum over live entries.
	keys, _ := b.Keys(ctx)
	total := 0
	for _, k := range keys {
		v, _, _ := b.Get(ctx, k)
		total += EntrySize(k, v)
	}
	if total != b.Used() {
		t.Errorf("Used() = %d, sum over entries = %d", b.Used(), total)
	}
}
