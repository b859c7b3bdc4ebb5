package normalizer

import "errors"

var (
	// ErrNilOutput is returned for a nil CrawlerOutput.
	ErrNilOutput = errors.New("crawler output is nil")

	// ErrFailedPage is returned for outputs of pages that could not be fetched.
	ErrFailedPage = errors.New("page was not fetched")

	// ErrInvalidOutput is wrapped by validation failures.
	ErrInvalidOutput = errors.New("crawler output failed validation")
)
