package cache

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/jonwraymond/quotastore/store"
)

func TestCache_SizeOf(t *testing.T) {
	ctx := context.Background()
	b := store.NewMemoryBackend(0)
	c := newTestCache(t, b)

	mustSet(t, b, "abc", "12345")

	if got, err := c.SizeOf(ctx, "abc"); err != nil || got != 8 {
		t.Errorf("SizeOf(abc) = %d, %v; want 8, nil", got, err)
	}
	if got, err := c.SizeOf(ctx, "missing"); err != nil || got != 0 {
		t.Errorf("SizeOf(missing) = %d, %v; want 0, nil", got, err)
	}
}

func TestCache_IsNearLimit(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		bytes int
		want  bool
	}{
		{"empty", 0, false},
		{"below threshold", 799, false},
		{"at threshold", 800, true},
		{"above threshold", 900, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := store.NewMemoryBackend(0)
			c := newTestCache(t, b)
			if tt.bytes > 0 {
				mustSet(t, b, "k", string(make([]byte, tt.bytes-1)))
			}
			got, err := c.IsNearLimit(ctx)
			if err != nil {
				t.Fatalf("IsNearLimit() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("IsNearLimit() = %v at %d bytes, want %v", got, tt.bytes, tt.want)
			}
		})
	}
}

func TestCache_IsNearLimitDefaultBudget(t *testing.T) {
	ctx := context.Background()
	b := store.NewMemoryBackend(0)
	c, err := New(b)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// 3.5 MiB of 4 MiB is 87.5%.
	for i := range 14 {
		key := fmt.Sprintf("incivus_old_%02d", i)
		mustSet(t, b, key, stampedValue(key, 256*1024, 0))
	}

	near, err := c.IsNearLimit(ctx)
	if err != nil {
		t.Fatalf("IsNearLimit() error = %v", err)
	}
	if !near {
		t.Error("IsNearLimit() = false at 87.5% utilization")
	}
}

// TestCache_TotalSizeMatchesLiveEntries drives random writes and removals and
// checks TotalSize against the sum over live entries after each step.
func TestCache_TotalSizeMatchesLiveEntries(t *testing.T) {
	ctx := context.Background()
	b := store.NewMemoryBackend(0)
	c := newTestCache(t, b, WithLimits(Limits{MaxTotalSize: 1 << 20, MaxItemSize: 1 << 16}))

	rng := rand.New(rand.NewPCG(1, 2))
	keys := []string{"incivus_old_a", "incivus_cache_b", "incivus_user_profile", "misc", "incivus_temp_data"}

	for step := range 200 {
		key := keys[rng.IntN(len(keys))]
		if rng.IntN(3) == 0 {
			if err := c.Remove(ctx, key); err != nil {
				t.Fatalf("step %d: Remove() error = %v", step, err)
			}
		} else {
			value := string(make([]byte, rng.IntN(500)))
			if _, err := c.SafeSet(ctx, key, value); err != nil {
				t.Fatalf("step %d: SafeSet() error = %v", step, err)
			}
		}

		want := 0
		for _, k := range keysOf(t, b) {
			v, _, _ := b.Get(ctx, k)
			want += len(k) + len(v)
		}
		got, err := c.TotalSize(ctx)
		if err != nil {
			t.Fatalf("step %d: TotalSize() error = %v", step, err)
		}
		if got != want || got != b.Used() {
			t.Fatalf("step %d: TotalSize() = %d, sum = %d, backend used = %d", step, got, want, b.Used())
		}
	}
}
