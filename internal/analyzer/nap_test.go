package analyzer

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/nao1215/siteaudit/internal/crawler"
	"github.com/nao1215/siteaudit/internal/model"
	"github.com/nao1215/siteaudit/internal/normalizer"
	"github.com/nao1215/siteaudit/internal/render"
)

const contactPageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <title>Contact Acme Plumbing</title>
  <script type="application/ld+json">
  {"@context":"https://schema.org","@type":"Plumber","name":"Acme Plumbing",
   "telephone":%q,
   "address":{"@type":"PostalAddress","streetAddress":%q,"addressLocality":%q}}
  </script>
</head>
<body>
  <main>
    <h1>Contact us</h1>
    <p>Call us at (512) 555-0100 any time.</p>
    <address>100 Main Street, Austin</address>
  </main>
</body>
</html>`

// analyzeContactPage runs a contact page through extraction, normalization
// and the local analyzer.
func analyzeContactPage(t *testing.T, phone, street, city string) model.AnalyzerResult {
	t.Helper()

	resp := &render.Response{
		URL:        "https://acme.example/contact",
		FinalURL:   "https://acme.example/contact",
		StatusCode: http.StatusOK,
		Headers:    http.Header{"Content-Type": {"text/html"}},
		HTML:       fmt.Sprintf(contactPageTemplate, phone, street, city),
	}
	out, err := crawler.Extract(resp)
	if err != nil {
		t.Fatalf("unexpected extract error: %v", err)
	}
	out.Role = model.PageRoleContact

	page, err := normalizer.Normalize(out)
	if err != nil {
		t.Fatalf("unexpected normalize error: %v", err)
	}
	return NewLocalAnalyzer().Analyze(context.Background(), page)
}

// TestLocalAnalyzerNAPFromExtractedPage tests NAP consistency on pages that
// went through extraction, where structured data and visible text differ.
func TestLocalAnalyzerNAPFromExtractedPage(t *testing.T) {
	t.Parallel()

	t.Run("structured data disagreeing with the page is flagged", func(t *testing.T) {
		t.Parallel()
		r := analyzeContactPage(t, "+1 512-555-9999", "9 Other Road", "Dallas")

		requireIssue(t, r, "nap_inconsistent")
		if got, ok := r.Factors["nap_consistency"]; !ok || got != 0 {
			t.Errorf("expected nap_consistency 0, got %.1f (present=%v)", got, ok)
		}
	})

	t.Run("structured data matching the page is consistent", func(t *testing.T) {
		t.Parallel()
		r := analyzeContactPage(t, "+1 512-555-0100", "100 Main Street", "Austin")

		requireNoIssue(t, r, "nap_inconsistent")
		if got := r.Factors["nap_consistency"]; got != 100 {
			t.Errorf("expected nap_consistency 100, got %.1f", got)
		}
	})
}
