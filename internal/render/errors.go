package render

import "errors"

var (
	// ErrTimeout marks a fetch that exceeded its deadline.
	ErrTimeout = errors.New("fetch timed out")

	// ErrNoHeadless is returned when JavaScript rendering is required but
	// no headless renderer is configured.
	ErrNoHeadless = errors.New("headless rendering is not available")

	// ErrEmptyDocument is returned when the headless browser produced no DOM.
	ErrEmptyDocument = errors.New("rendered document is empty")
)
