package analyzer

import "errors"

var (
	// ErrAnalyzerTimeout is reported when an analyzer exceeds its per-page
	// timeout.
	ErrAnalyzerTimeout = errors.New("analyzer timed out")

	// ErrAnalyzerPanic is reported when an analyzer panics.
	ErrAnalyzerPanic = errors.New("analyzer panicked")
)
