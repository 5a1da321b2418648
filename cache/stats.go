package cache

import (
	"cmp"
	"context"
	"slices"
)

// TopItemsLimit is the number of largest entries reported by Stats.
const TopItemsLimit = 10

// ItemStat describes one entry in Stats.
type ItemStat struct {
	Key       string `json:"key"`
	Size      int    `json:"size"`
	Essential bool   `json:"essential"`
}

// Stats is a read-only snapshot of store usage.
type Stats struct {
	TotalSize          int        `json:"totalSize"`
	TotalItems         int        `json:"totalItems"`
	UtilizationPercent float64    `json:"utilizationPercent"`
	NearLimit          bool       `json:"nearLimit"`
	TopItems           []ItemStat `json:"items"`
}

// Stats reports usage from a single scan of the backend. It never mutates
// the store.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := c.obs.Run(ctx, c.meta("stats", ""), func(ctx context.Context) error {
		entries, err := c.entries(ctx)
		if err != nil {
			return err
		}

		items := make([]ItemStat, 0, len(entries))
		for _, e := range entries {
			st.TotalSize += e.Size
			items = append(items, ItemStat{Key: e.Key, Size: e.Size, Essential: e.Class.Essential})
		}
		slices.SortStableFunc(items, func(a, b ItemStat) int {
			return cmp.Compare(b.Size, a.Size)
		})

		st.TotalItems = len(entries)
		st.UtilizationPercent = c.limits.Utilization(st.TotalSize)
		st.NearLimit = c.limits.NearLimit(st.TotalSize)
		st.TopItems = items[:min(len(items), TopItemsLimit)]
		return nil
	})
	return st, err
}
