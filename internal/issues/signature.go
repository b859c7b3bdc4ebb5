package issues

import (
	"regexp"
	"strings"

	"github.com/nao1215/siteaudit/internal/model"
)

var (
	urlPattern    = regexp.MustCompile(`(?i)\b(?:https?://|www\.)\S+`)
	quotedPattern = regexp.MustCompile(`"[^"]*"|'[^']*'|“[^”]*”`)
	numberPattern = regexp.MustCompile(`\d+(?:[.,]\d+)*`)
	spacePattern  = regexp.MustCompile(`\s+`)
)

// Signature returns the grouping key of an issue: its type and message
// template. Issues without a template fall back to their message with
// URLs, quoted strings and numbers replaced by placeholders.
func Signature(issue model.Issue) string {
	template := issue.MessageTemplate
	if template == "" {
		template = Template(issue.Message)
	}
	return issue.Type + "|" + template
}

// Template strips the page-specific parts from a message.
func Template(message string) string {
	t := urlPattern.ReplaceAllString(message, "<url>")
	t = quotedPattern.ReplaceAllString(t, "<str>")
	t = numberPattern.ReplaceAllString(t, "<n>")
	t = spacePattern.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}
