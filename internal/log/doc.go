// Package log builds the slog loggers used by siteaudit.
//
// Audits send site-specific cookies and headers from the configuration
// file, and crawled URLs regularly carry session or tracking tokens in
// their query strings. SecureHandler wraps any slog.Handler and masks such
// values before they reach the output:
//   - attributes whose key names a credential (cookie, authorization, token)
//   - values that look like secrets (bearer tokens, JWTs, long API keys)
//   - sensitive query parameters inside URL values
//
// Usage:
//
//	logger := log.NewLogger(os.Stderr, verbose, "text")
//	slog.SetDefault(logger)
package log
