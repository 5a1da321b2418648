package health

import "errors"

var (
	// ErrCheckFailed indicates a health check failed.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout indicates a health check timed out.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCheckerNotFound indicates a checker was not found.
	ErrCheckerNotFound = errors.New("health: checker not found")

	// ErrMethodNotAllowed is returned by handlers that only accept POST.
	ErrMethodNotAllowed = errors.New("health: method not allowed")

	// ErrStorageFull indicates storage utilization reached the cleanup threshold.
	ErrStorageFull = errors.New("health: storage near capacity")
)
