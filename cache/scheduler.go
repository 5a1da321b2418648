package cache

import (
	"context"
	"time"

	"github.com/jonwraymond/quotastore/observe"
)

// Init sweeps once if the store is near its limit, then starts the
// periodic background sweep. Calling Init again while the sweep runs is a
// no-op. The sweep lives until Shutdown, independent of ctx cancellation.
func (c *Cache) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stop != nil {
		return nil
	}

	log := c.obs.Logger().WithOp(c.meta("init", ""))
	st, err := c.Stats(ctx)
	if err != nil {
		return err
	}
	log.Info(ctx, "storage management initialized",
		observe.F("size_bytes", st.TotalSize),
		observe.F("utilization_percent", st.UtilizationPercent),
		observe.F("interval", c.limits.CleanupInterval.String()),
	)
	if st.NearLimit {
		if _, err := c.Cleanup(ctx); err != nil {
			return err
		}
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.stop = cancel
	c.done = make(chan struct{})
	go c.sweepLoop(loopCtx, c.done)
	return nil
}

// Shutdown stops the background sweep and waits for it to exit or for ctx
// to be done. It is safe to call without Init and more than once.
func (c *Cache) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	stop, done := c.stop, c.done
	c.stop, c.done = nil, nil
	c.mu.Unlock()

	if stop == nil {
		return nil
	}
	stop()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Cache) sweepLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.limits.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweep(ctx)
		}
	}
}

// sweep has no caller to report to, so failures are logged.
func (c *Cache) sweep(ctx context.Context) {
	log := c.obs.Logger().WithOp(c.meta("sweep", ""))

	near, err := c.IsNearLimit(ctx)
	if err != nil {
		log.Error(ctx, "periodic sweep failed", observe.F("error", err.Error()))
		return
	}
	if !near {
		return
	}
	log.Info(ctx, "periodic storage cleanup triggered")
	if _, err := c.Cleanup(ctx); err != nil {
		log.Error(ctx, "periodic sweep failed", observe.F("error", err.Error()))
	}
}
