// Package resilience provides the bounded retry loop used by cache writes.
//
// Retry runs an operation up to MaxAttempts times. Between attempts it can
// run a recovery hook (for the cache: an eviction pass) that may cut the
// loop short when recovery made no progress. Termination is guaranteed by
// the attempt bound, not by a deadline.
//
// # Usage
//
//	retry := resilience.NewRetry(resilience.RetryConfig{
//	    MaxAttempts: 3,
//	    RetryIf:     store.IsQuotaExceeded,
//	    BeforeRetry: func(ctx context.Context, attempt int, err error) error {
//	        freed := evict(ctx)
//	        if freed == 0 {
//	            return resilience.ErrAbortRetry
//	        }
//	        return nil
//	    },
//	})
//
//	err := retry.Execute(ctx, func(ctx context.Context) error {
//	    return backend.Set(ctx, key, value)
//	})
package resilience
