package analyzer

import (
	"context"
	"net/url"
	"strings"

	"golang.org/x/text/language"

	"github.com/nao1215/siteaudit/internal/model"
)

// TechnicalAnalyzer scores crawlability and markup correctness.
type TechnicalAnalyzer struct{}

// NewTechnicalAnalyzer creates a TechnicalAnalyzer.
func NewTechnicalAnalyzer() *TechnicalAnalyzer {
	return &TechnicalAnalyzer{}
}

// Name returns the analyzer name.
func (a *TechnicalAnalyzer) Name() string {
	return NameTechnical
}

// Category returns the issue category.
func (a *TechnicalAnalyzer) Category() model.IssueCategory {
	return model.CategoryTechnical
}

// Analyze scores the technical health of the page.
func (a *TechnicalAnalyzer) Analyze(_ context.Context, page *model.PageCrawlResult) model.AnalyzerResult {
	s := newScorecard(a, page)

	a.status(s, page)
	a.transport(s, page)
	a.canonical(s, page)
	a.indexability(s, page)
	a.structuredData(s, page)
	a.hreflang(s, page)

	return s.result()
}

func (a *TechnicalAnalyzer) status(s *scorecard, page *model.PageCrawlResult) {
	switch {
	case page.StatusCode >= 200 && page.StatusCode < 300:
		s.add("status", 3, 100)
	case page.StatusCode >= 300 && page.StatusCode < 400:
		s.add("status", 3, 80)
	default:
		s.add("status", 3, 0)
		s.flag("http_error", "Page returned HTTP %d", page.StatusCode)
	}
}

func (a *TechnicalAnalyzer) transport(s *scorecard, page *model.PageCrawlResult) {
	if !page.Security.HTTPS {
		s.add("https", 3, 0)
		s.flag("not_https", "Page is served over plain HTTP")
		return
	}
	s.add("https", 3, 100)

	if page.Security.HSTS {
		s.add("hsts", 0.5, 100)
	} else {
		s.add("hsts", 0.5, 50)
		s.flag("missing_hsts", "No Strict-Transport-Security header")
	}

	if page.Security.MixedContent {
		s.add("mixed_content", 1, 30)
		s.flag("mixed_content", "HTTPS page loads resources over HTTP")
	} else {
		s.add("mixed_content", 1, 100)
	}
}

func (a *TechnicalAnalyzer) canonical(s *scorecard, page *model.PageCrawlResult) {
	switch {
	case page.Canonical == "":
		s.add("canonical", 1.5, 40)
		s.flag("missing_canonical", "Page has no canonical link")
	case sameDocument(page.Canonical, page.URL):
		s.add("canonical", 1.5, 100)
	case page.IsDuplicate && sameDocument(page.Canonical, page.SimilarURL):
		// A duplicate pointing at its original is the recommended fix.
		s.add("canonical", 1.5, 100)
	default:
		s.add("canonical", 1.5, 70)
		s.flag("canonical_mismatch", "Canonical points to %s", page.Canonical)
	}
}

func (a *TechnicalAnalyzer) indexability(s *scorecard, page *model.PageCrawlResult) {
	if hasDirective(page.Robots, "noindex") || hasDirective(page.Robots, "none") {
		s.add("indexable", 3, 0)
		s.flag("noindex", "Page is excluded from search results by a noindex directive")
		return
	}
	s.add("indexable", 3, 100)
}

func (a *TechnicalAnalyzer) structuredData(s *scorecard, page *model.PageCrawlResult) {
	total := len(page.StructuredData)
	if total == 0 {
		s.add("structured_data", 1.5, 30)
		s.flag("no_structured_data", "Page has no structured data")
		return
	}
	valid := 0
	for _, sd := range page.StructuredData {
		if sd.Valid {
			valid++
		}
	}
	if valid < total {
		s.flag("invalid_structured_data", "%d of %d structured data blocks could not be parsed", total-valid, total)
	}
	if valid == 0 {
		s.missing("structured data", 1.5)
		return
	}
	s.add("structured_data", 1.5, ratio(valid, total))
}

func (a *TechnicalAnalyzer) hreflang(s *scorecard, page *model.PageCrawlResult) {
	if len(page.Hreflang) == 0 {
		return
	}
	valid := 0
	for _, h := range page.Hreflang {
		if validHreflang(h.Lang) {
			valid++
			continue
		}
		s.flag("invalid_hreflang", "Invalid hreflang code %q", h.Lang)
	}
	s.add("hreflang", 0.5, ratio(valid, len(page.Hreflang)))
}

// validHreflang reports whether code is x-default or a well-formed BCP 47
// tag.
func validHreflang(code string) bool {
	if strings.EqualFold(code, "x-default") {
		return true
	}
	if code == "" || strings.Contains(code, "_") {
		return false
	}
	_, err := language.Parse(code)
	return err == nil
}

// hasDirective reports whether a comma-separated robots value contains
// directive.
func hasDirective(robots, directive string) bool {
	for _, d := range strings.Split(robots, ",") {
		if strings.EqualFold(strings.TrimSpace(d), directive) {
			return true
		}
	}
	return false
}

// sameDocument compares two absolute URLs ignoring host case, a trailing
// slash and the fragment.
func sameDocument(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return strings.EqualFold(ua.Scheme, ub.Scheme) &&
		strings.EqualFold(ua.Host, ub.Host) &&
		strings.TrimSuffix(ua.Path, "/") == strings.TrimSuffix(ub.Path, "/") &&
		ua.RawQuery == ub.RawQuery
}
