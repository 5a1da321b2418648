package cache

import (
	"context"
	"fmt"

	"github.com/jonwraymond/quotastore/observe"
)

// SaveWithFallback stores full as a best-effort write. If that write is
// dropped or fails, the document built by reduced is stored as an
// essential, uncompressed write instead, so a minimal copy survives quota
// pressure.
//
// It returns nil when either document was stored.
func (c *Cache) SaveWithFallback(ctx context.Context, key string, full any, reduced func() any) error {
	saved, err := c.SafeSet(ctx, key, full)
	if err == nil && saved {
		return nil
	}

	log := c.obs.Logger().WithOp(c.meta("save_fallback", key))
	fields := []observe.Field{}
	if err != nil {
		fields = append(fields, observe.F("error", err.Error()))
	}
	log.Warn(ctx, "full document not saved, storing reduced copy", fields...)

	if reduced == nil {
		if err != nil {
			return err
		}
		return fmt.Errorf("cache: %q not saved: %w", key, ErrQuotaExceeded)
	}

	if _, rerr := c.SafeSet(ctx, key, reduced(), WithEssential(true), WithCompress(false)); rerr != nil {
		return rerr
	}
	return nil
}
