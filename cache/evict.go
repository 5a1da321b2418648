package cache

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/jonwraymond/quotastore/observe"
)

// Candidate is a cleanable entry considered during one cleanup pass.
type Candidate struct {
	Entry Entry
	Age   time.Duration
	Size  int
}

// Comparator orders eviction candidates. It returns a negative number when
// a should be evicted before b, positive when after, zero when either order
// is fine.
type Comparator func(a, b Candidate) int

// BucketedAgeSize is the default eviction order. Candidates whose ages
// differ by more than bucket are ordered oldest first; otherwise the
// larger one goes first. Same-day entries are thus freed by bulk.
//
// The ordering is not transitive across buckets, so results depend on
// input order; Cleanup feeds it candidates in key order and sorts stably.
func BucketedAgeSize(bucket time.Duration) Comparator {
	return func(a, b Candidate) int {
		diff := a.Age - b.Age
		if diff > bucket || -diff > bucket {
			return cmp.Compare(b.Age, a.Age)
		}
		return cmp.Compare(b.Size, a.Size)
	}
}

// OldestFirst orders strictly by age, largest size breaking ties.
func OldestFirst() Comparator {
	return func(a, b Candidate) int {
		if c := cmp.Compare(b.Age, a.Age); c != 0 {
			return c
		}
		return cmp.Compare(b.Size, a.Size)
	}
}

// LargestFirst orders strictly by size, oldest breaking ties.
func LargestFirst() Comparator {
	return func(a, b Candidate) int {
		if c := cmp.Compare(b.Size, a.Size); c != 0 {
			return c
		}
		return cmp.Compare(b.Age, a.Age)
	}
}

// CleanupResult summarizes one cleanup pass.
// SizeBefore - SizeAfter == BytesFreed always holds.
type CleanupResult struct {
	ItemsRemoved int `json:"itemsRemoved"`
	BytesFreed   int `json:"bytesFreed"`
	SizeBefore   int `json:"sizeBefore"`
	SizeAfter    int `json:"sizeAfter"`
}

// Cleanup removes cleanable entries, in comparator order, until the store
// is no longer near its limit or no candidates remain. Essential entries
// and entries matching neither pattern list are never touched, and
// surviving entries are never modified.
//
// Concurrent calls share a single pass and its result.
func (c *Cache) Cleanup(ctx context.Context) (CleanupResult, error) {
	var res CleanupResult
	err := c.obs.Run(ctx, c.meta("cleanup", ""), func(ctx context.Context) error {
		v, err, _ := c.sweeps.Do("cleanup", func() (any, error) {
			return c.cleanup(ctx)
		})
		res = v.(CleanupResult)
		return err
	})
	return res, err
}

func (c *Cache) cleanup(ctx context.Context) (CleanupResult, error) {
	log := c.obs.Logger().WithOp(c.meta("cleanup", ""))
	metrics := c.obs.Metrics()

	entries, err := c.entries(ctx)
	if err != nil {
		return CleanupResult{}, err
	}

	now := c.now()
	total := 0
	var candidates []Candidate
	for _, e := range entries {
		total += e.Size
		if e.Class.Essential || !e.Class.Cleanable {
			continue
		}
		candidates = append(candidates, Candidate{
			Entry: e,
			Age:   ageOf(c.timestamps, e.Value, now),
			Size:  e.Size,
		})
	}
	slices.SortStableFunc(candidates, c.comparator)

	res := CleanupResult{SizeBefore: total}
	log.Info(ctx, "cleanup started",
		observe.F("size_bytes", total),
		observe.F("candidates", len(candidates)),
	)

	for _, cand := range candidates {
		if !c.limits.NearLimit(total) {
			break
		}
		if err := c.backend.Remove(ctx, cand.Entry.Key); err != nil {
			res.SizeAfter = total
			return res, fmt.Errorf("remove %q: %w", cand.Entry.Key, err)
		}
		total -= cand.Size
		res.ItemsRemoved++
		res.BytesFreed += cand.Size
		metrics.RecordEviction(ctx, observe.EvictCleanup, cand.Size)
		observe.SpanEvent(ctx, "cache.evict",
			observe.F("reason", observe.EvictCleanup),
			observe.F("evicted_key", cand.Entry.Key),
			observe.F("size_bytes", cand.Size),
		)
		log.Debug(ctx, "evicted entry",
			observe.F("evicted_key", cand.Entry.Key),
			observe.F("size_bytes", cand.Size),
			observe.F("age_hours", int(cand.Age.Hours())),
		)
	}
	res.SizeAfter = total

	log.Info(ctx, "cleanup complete",
		observe.F("items_removed", res.ItemsRemoved),
		observe.F("bytes_freed", res.BytesFreed),
		observe.F("size_before", res.SizeBefore),
		observe.F("size_after", res.SizeAfter),
	)
	return res, nil
}

// largestNonEssential returns the biggest entry not classified essential,
// irrespective of whether it is cleanable. Ties go to the first key.
func (c *Cache) largestNonEssential(ctx context.Context) (Entry, bool, error) {
	entries, err := c.entries(ctx)
	if err != nil {
		return Entry{}, false, err
	}

	var victim Entry
	found := false
	for _, e := range entries {
		if e.Class.Essential {
			continue
		}
		if !found || e.Size > victim.Size {
			victim = e
			found = true
		}
	}
	return victim, found, nil
}
