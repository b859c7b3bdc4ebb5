package model

import (
	"fmt"
	"strings"
)

// Severity represents how much an issue hurts the site's search visibility.
// Integer values keep comparisons and sorting cheap; String provides the
// human-readable form used in reports.
type Severity int

const (
	// SeverityInfo marks observations that need no action.
	SeverityInfo Severity = iota

	// SeverityLow marks minor issues, including "missing data" conditions
	// reported by analyzers when an input could not be evaluated.
	SeverityLow

	// SeverityMedium marks issues that measurably weaken a page.
	// Examples: missing meta description, images without alt text.
	SeverityMedium

	// SeverityHigh marks issues that prevent a page from ranking well.
	// Examples: missing title, no H1, page served over plain HTTP.
	SeverityHigh

	// SeverityCritical marks issues that remove a page from search results.
	// Examples: noindex on the homepage, server errors.
	SeverityCritical
)

// String returns a human-readable representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ParseSeverity converts a severity name (case-insensitive) to a Severity.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INFO":
		return SeverityInfo, nil
	case "LOW":
		return SeverityLow, nil
	case "MEDIUM":
		return SeverityMedium, nil
	case "HIGH":
		return SeverityHigh, nil
	case "CRITICAL":
		return SeverityCritical, nil
	default:
		return SeverityInfo, fmt.Errorf("unknown severity %q", s)
	}
}

// MarshalText encodes the severity by name so stored reports stay readable.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity name.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// AllSeverities returns every severity from lowest to highest.
func AllSeverities() []Severity {
	return []Severity{SeverityInfo, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
}
