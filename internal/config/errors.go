package config

import "errors"

// Configuration validation errors returned by Config.Validate and
// Policy.Validate. Callers can match them with errors.Is.
var (
	// ErrNoTarget is returned when no URL or --list file is specified.
	ErrNoTarget = errors.New("no target specified: provide a site URL or use --list")

	// ErrInvalidMaxPages is returned when the page budget is not positive.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be positive")

	// ErrInvalidMaxDepth is returned when the depth is negative.
	ErrInvalidMaxDepth = errors.New("invalid max depth: must be non-negative")

	// ErrInvalidTimeout is returned when a timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidTimeBudget is returned when the time budget is negative.
	ErrInvalidTimeBudget = errors.New("invalid time budget: must be non-negative")

	// ErrInvalidConcurrency is returned when a worker count is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrHeadlessConcurrency is returned when the headless cap exceeds the
	// static worker count.
	ErrHeadlessConcurrency = errors.New("invalid headless concurrency: must not exceed --concurrency")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and
	// --markdown are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidCrawlDelay is returned when the crawl delay is negative.
	ErrInvalidCrawlDelay = errors.New("invalid crawl delay: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidLogFormat is returned for a log format other than text or json.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")

	// ErrInvalidThreshold is returned when the similarity threshold is
	// outside (0, 1].
	ErrInvalidThreshold = errors.New("invalid similarity threshold: must be in (0, 1]")

	// ErrInvalidWeight is returned for a negative policy weight.
	ErrInvalidWeight = errors.New("invalid weight: must be non-negative")

	// ErrInvalidShingleSize is returned when the shingle size is not positive.
	ErrInvalidShingleSize = errors.New("invalid shingle size: must be positive")
)
