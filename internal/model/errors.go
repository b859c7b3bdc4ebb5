package model

import (
	"errors"
	"fmt"
	"strings"
)

// FetchError is a page-scoped failure to retrieve a URL: network errors,
// timeouts, TLS failures and HTTP error statuses. The crawl records it and
// continues.
type FetchError struct {
	URL string
	// Op names the failing step ("request", "read", "render", "status").
	Op string
	// StatusCode is set when the server answered with an error status.
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: %s: HTTP %d", e.URL, e.Op, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Temporary reports whether retrying may succeed: network failures and
// 5xx/429 responses.
func (e *FetchError) Temporary() bool {
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// FieldError is one validation failure.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Value string `json:"value,omitempty"`
}

// ValidationError reports a malformed CrawlerOutput. The page is skipped
// and never reaches the analyzers.
type ValidationError struct {
	URL    string
	Fields []FieldError
	Err    error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("invalid crawler output for %s: %v", e.URL, e.Err)
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" ("+f.Rule+")")
	}
	return fmt.Sprintf("invalid crawler output for %s: %s", e.URL, strings.Join(parts, ", "))
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// AnalyzerDataError reports missing or ambiguous analyzer input. It never
// aborts analysis: the analyzer scores the factor neutrally and emits a
// low-severity missing-data issue.
type AnalyzerDataError struct {
	Analyzer string
	Factor   string
	URL      string
}

// Error implements the error interface.
func (e *AnalyzerDataError) Error() string {
	return fmt.Sprintf("%s: missing data for %s on %s", e.Analyzer, e.Factor, e.URL)
}

// Issue surfaces the error as a low-severity missing-data issue.
func (e *AnalyzerDataError) Issue(category IssueCategory) Issue {
	issue := NewMissingDataIssue(category, e.URL, e.Factor)
	issue.Analyzer = e.Analyzer
	return issue
}

// JobFatalError aborts a whole audit job. It is returned only when the seed
// URL stays unreachable after retries.
type JobFatalError struct {
	URL      string
	Attempts int
	Err      error
}

// Error implements the error interface.
func (e *JobFatalError) Error() string {
	return fmt.Sprintf("seed %s unreachable after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

// Unwrap returns the underlying error.
func (e *JobFatalError) Unwrap() error {
	return e.Err
}

// IsJobFatal reports whether err aborts the job.
func IsJobFatal(err error) bool {
	var fatal *JobFatalError
	return errors.As(err, &fatal)
}

// StopReason records why a crawl stopped. Budget-based reasons are normal
// stops, not failures.
type StopReason string

// Stop reason constants.
const (
	StopNone          StopReason = ""
	StopMaxPages      StopReason = "max-pages"
	StopFrontierEmpty StopReason = "frontier-empty"
	StopMaxDepth      StopReason = "max-depth"
	StopTimeBudget    StopReason = "time-budget"
	StopCancelled     StopReason = "cancelled"
	StopFatal         StopReason = "fatal"
)

// IsBudgetExceeded reports whether the reason is a budget limit.
func (r StopReason) IsBudgetExceeded() bool {
	return r == StopMaxPages || r == StopMaxDepth || r == StopTimeBudget
}
