package crawler

import "errors"

var (
	// ErrInvalidURL is returned for URLs that cannot be crawled.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrUnsupportedScheme is returned for seeds that are not http or https.
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")

	// ErrNotHTML marks a response whose content type is not HTML.
	ErrNotHTML = errors.New("response is not HTML")
)
