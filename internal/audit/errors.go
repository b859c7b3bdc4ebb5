package audit

import "errors"

var (
	// ErrNotFound is returned for unknown job IDs.
	ErrNotFound = errors.New("audit job not found")

	// ErrNotFinished is returned when asking for the result of a job that
	// is still running.
	ErrNotFinished = errors.New("audit job not finished")

	// ErrInvalidURL is returned when the site URL is not an absolute http
	// or https URL.
	ErrInvalidURL = errors.New("invalid site URL")

	// ErrClosed is returned when starting a job on a closed Service.
	ErrClosed = errors.New("audit service closed")
)
