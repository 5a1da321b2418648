package resilience

import "errors"

// ErrAbortRetry is returned by a BeforeRetry hook to stop retrying.
// Execute then returns the error of the last attempt, not this one.
var ErrAbortRetry = errors.New("resilience: retry aborted")
