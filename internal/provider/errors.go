package provider

import "errors"

var (
	// ErrQuotaExceeded is returned when a call would exceed the usage limit
	// of the current period.
	ErrQuotaExceeded = errors.New("provider quota exceeded")

	// ErrNoProvider is returned when Metered has no provider of the
	// requested kind.
	ErrNoProvider = errors.New("no provider configured")
)
