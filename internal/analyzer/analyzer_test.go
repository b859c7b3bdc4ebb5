package analyzer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/siteaudit/internal/model"
)

// goodPage returns a homepage that satisfies every analyzer.
func goodPage() *model.PageCrawlResult {
	return &model.PageCrawlResult{
		SourceURL:    "https://example.com/",
		URL:          "https://example.com/",
		Role:         model.PageRoleHomepage,
		StatusCode:   200,
		ResponseTime: 300 * time.Millisecond,
		PageBytes:    40_000,

		Title:           "Acme Plumbing Repairs in Austin, Texas",
		MetaDescription: "Acme Plumbing repairs leaks, installs water heaters and clears drains across Austin, Texas. Licensed plumbers, same-day service and upfront prices.",
		MetaTags:        map[string]string{"viewport": "width=device-width, initial-scale=1"},
		Canonical:       "https://example.com/",
		Robots:          "index, follow",
		Lang:            "en",
		Hreflang: []model.Hreflang{
			{Lang: "en-US", Href: "https://example.com/"},
			{Lang: "x-default", Href: "https://example.com/"},
		},

		H1:             []string{"Plumbing Repairs in Austin"},
		H2:             []string{"Leaks", "Water heaters"},
		H3:             []string{"Same-day service"},
		HeadingOutline: []int{1, 2, 2, 3},

		InternalLinks: []model.Link{{Href: "https://example.com/contact"}},
		ExternalLinks: []model.Link{{Href: "https://www.facebook.com/acmeplumbing"}},

		Images: []model.Image{
			{Src: "https://example.com/van.jpg", Alt: "Service van", HasAlt: true},
			{Src: "https://example.com/team.jpg", Alt: "Our team", HasAlt: true},
		},
		ImageCount:    2,
		ImagesWithAlt: 2,

		StructuredData: []model.StructuredData{{
			Types: []string{"Plumber"},
			Valid: true,
			Fields: map[string]string{
				"name":      "Acme Plumbing",
				"telephone": "+1 512-555-0100",
				"address":   "US, Austin, TX, 78701, 100 Main St",
			},
		}},
		SchemaTypes: []string{"Plumber"},

		Security:      model.SecurityFlags{HTTPS: true, HSTS: true},
		Accessibility: model.AccessibilityFlags{HasLang: true, HasSkipLink: true, HasMainLandmark: true},
		Mobile:        model.MobileFlags{HasViewport: true, ViewportContent: "width=device-width, initial-scale=1"},
		Contact: model.ContactInfo{
			BusinessName: "Acme Plumbing",
			Phones:       []string{"5125550100"},
			Emails:       []string{},
			Addresses:    []string{"100 Main Street, Austin, TX 78701"},
		},

		Text:      strings.Repeat("Acme plumbing fixes leaks fast. ", 60),
		WordCount: 300,
	}
}

func issueTypes(r model.AnalyzerResult) []string {
	types := make([]string, 0, len(r.Issues))
	for _, i := range r.Issues {
		types = append(types, i.Type)
	}
	return types
}

func requireIssue(t *testing.T, r model.AnalyzerResult, issueType string) {
	t.Helper()
	if !model.HasIssue(r.Issues, issueType) {
		t.Errorf("%s: expected issue %s, got %v", r.Analyzer, issueType, issueTypes(r))
	}
}

func requireNoIssue(t *testing.T, r model.AnalyzerResult, issueType string) {
	t.Helper()
	if model.HasIssue(r.Issues, issueType) {
		t.Errorf("%s: unexpected issue %s", r.Analyzer, issueType)
	}
}

func requireMissingData(t *testing.T, r model.AnalyzerResult, factor string) {
	t.Helper()
	for _, i := range r.Issues {
		if i.Type == model.IssueMissingData && strings.Contains(i.Message, factor) {
			if i.Severity != model.SeverityLow {
				t.Errorf("expected LOW missing-data issue, got %s", i.Severity)
			}
			return
		}
	}
	t.Errorf("%s: expected missing data issue for %q, got %v", r.Analyzer, factor, issueTypes(r))
}

// TestAnalyzersOnGoodPage tests that a well-built page scores excellent
// everywhere without issues.
func TestAnalyzersOnGoodPage(t *testing.T) {
	t.Parallel()

	for _, a := range Default() {
		t.Run(a.Name(), func(t *testing.T) {
			t.Parallel()
			r := a.Analyze(context.Background(), goodPage())
			if r.Analyzer != a.Name() {
				t.Errorf("expected analyzer %s, got %s", a.Name(), r.Analyzer)
			}
			if r.Score != 100 {
				t.Errorf("expected 100, got %.1f (factors %v)", r.Score, r.Factors)
			}
			if r.Category != model.ScoreExcellent {
				t.Errorf("expected excellent, got %s", r.Category)
			}
			if len(r.Issues) != 0 {
				t.Errorf("expected no issues, got %v", issueTypes(r))
			}
		})
	}
}

// TestAnalyzersOnEmptyPage tests that an empty page never panics and
// yields bounded scores with missing data issues.
func TestAnalyzersOnEmptyPage(t *testing.T) {
	t.Parallel()

	empty := &model.PageCrawlResult{URL: "https://example.com/blank", StatusCode: 200, Role: model.PageRoleOther}
	for _, a := range Default() {
		t.Run(a.Name(), func(t *testing.T) {
			t.Parallel()
			r := a.Analyze(context.Background(), empty)
			if r.Score < 0 || r.Score > 100 {
				t.Errorf("score out of range: %.1f", r.Score)
			}
			if r.Category != model.CategoryFor(r.Score) {
				t.Errorf("category %s does not match score %.1f", r.Category, r.Score)
			}
			for _, i := range r.Issues {
				if i.Category != a.Category() {
					t.Errorf("issue %s has category %s, expected %s", i.Type, i.Category, a.Category())
				}
				if i.Analyzer != a.Name() || i.PageURL != empty.URL {
					t.Errorf("issue %s not attributed: %+v", i.Type, i)
				}
			}
		})
	}

	t.Run("content reports missing text", func(t *testing.T) {
		t.Parallel()
		r := NewContentAnalyzer().Analyze(context.Background(), empty)
		requireMissingData(t, r, "content depth")
		requireMissingData(t, r, "keyword presence")
		requireIssue(t, r, "missing_title")
	})

	t.Run("local scores neutral without any signal", func(t *testing.T) {
		t.Parallel()
		r := NewLocalAnalyzer().Analyze(context.Background(), empty)
		requireMissingData(t, r, "local business signals")
		if r.Score != NeutralScore {
			t.Errorf("expected neutral score, got %.1f", r.Score)
		}
	})

	t.Run("ux reports missing timing and weight", func(t *testing.T) {
		t.Parallel()
		r := NewUXAnalyzer().Analyze(context.Background(), empty)
		requireMissingData(t, r, "response time")
		requireMissingData(t, r, "page weight")
	})
}

// TestContentAnalyzer tests content checks.
func TestContentAnalyzer(t *testing.T) {
	t.Parallel()

	analyze := func(mutate func(*model.PageCrawlResult)) model.AnalyzerResult {
		p := goodPage()
		mutate(p)
		return NewContentAnalyzer().Analyze(context.Background(), p)
	}

	t.Run("thin content", func(t *testing.T) {
		t.Parallel()
		r := analyze(func(p *model.PageCrawlResult) {
			p.Text = "Acme plumbing fixes leaks."
			p.WordCount = 4
		})
		requireIssue(t, r, "thin_content")
		if r.Factors["depth"] >= 10 {
			t.Errorf("expected low depth factor, got %.1f", r.Factors["depth"])
		}
	})

	t.Run("contact pages may be short", func(t *testing.T) {
		t.Parallel()
		r := analyze(func(p *model.PageCrawlResult) {
			p.Role = model.PageRoleContact
			p.Text = strings.Repeat("Call acme plumbing today. ", 20)
			p.WordCount = MinContactWords
		})
		requireNoIssue(t, r, "thin_content")
	})

	t.Run("title length", func(t *testing.T) {
		t.Parallel()
		requireIssue(t, analyze(func(p *model.PageCrawlResult) { p.Title = "Acme Plumbing" }), "title_too_short")
		requireIssue(t, analyze(func(p *model.PageCrawlResult) { p.Title = strings.Repeat("Plumbing ", 10) }), "title_too_long")
		requireIssue(t, analyze(func(p *model.PageCrawlResult) { p.Title = "" }), "missing_title")
	})

	t.Run("meta description", func(t *testing.T) {
		t.Parallel()
		requireIssue(t, analyze(func(p *model.PageCrawlResult) { p.MetaDescription = "" }), "missing_meta_description")
		requireIssue(t, analyze(func(p *model.PageCrawlResult) { p.MetaDescription = "Plumbers." }), "meta_description_length")
	})

	t.Run("h1 count", func(t *testing.T) {
		t.Parallel()
		requireIssue(t, analyze(func(p *model.PageCrawlResult) { p.H1 = []string{} }), "missing_h1")
		requireIssue(t, analyze(func(p *model.PageCrawlResult) {
			p.H1 = []string{"Plumbing", "Plumbing again"}
		}), "multiple_h1")
	})

	t.Run("skipped heading level", func(t *testing.T) {
		t.Parallel()
		r := analyze(func(p *model.PageCrawlResult) { p.HeadingOutline = []int{1, 3, 4, 2, 4} })
		requireIssue(t, r, "heading_hierarchy_skip")
		if got := r.Factors["heading_hierarchy"]; got != 50 {
			t.Errorf("expected two skips to score 50, got %.1f", got)
		}
	})

	t.Run("keyword missing from h1 and body", func(t *testing.T) {
		t.Parallel()
		r := analyze(func(p *model.PageCrawlResult) {
			p.H1 = []string{"Welcome"}
			p.Text = strings.Repeat("We fix things quickly. ", 75)
		})
		requireIssue(t, r, "keyword_missing_in_h1")
		requireIssue(t, r, "keyword_missing_in_body")
		if got := r.Factors["keywords"]; got != 0 {
			t.Errorf("expected keyword factor 0, got %.1f", got)
		}
	})

	t.Run("author signals on service pages", func(t *testing.T) {
		t.Parallel()
		r := analyze(func(p *model.PageCrawlResult) { p.Role = model.PageRoleService })
		requireIssue(t, r, "no_author_signal")

		r = analyze(func(p *model.PageCrawlResult) {
			p.Role = model.PageRoleService
			p.Text += " Written by Jane Doe, master plumber."
		})
		requireNoIssue(t, r, "no_author_signal")

		r = analyze(func(p *model.PageCrawlResult) {
			p.Role = model.PageRoleOther
			p.MetaTags["author"] = "Jane Doe"
		})
		requireNoIssue(t, r, "no_author_signal")
	})

	t.Run("duplicate", func(t *testing.T) {
		t.Parallel()
		r := analyze(func(p *model.PageCrawlResult) {
			p.IsDuplicate = true
			p.SimilarURL = "https://example.com/original"
			p.Similarity = 0.95
		})
		requireIssue(t, r, "duplicate_content")
		if r.Score >= 100 {
			t.Errorf("expected a lower score for duplicates, got %.1f", r.Score)
		}
	})

	t.Run("same defect shares a template", func(t *testing.T) {
		t.Parallel()
		a := analyze(func(p *model.PageCrawlResult) { p.WordCount, p.Text = 10, "short text" })
		b := analyze(func(p *model.PageCrawlResult) { p.WordCount, p.Text = 20, "other short text" })
		var ta, tb string
		for _, i := range a.Issues {
			if i.Type == "thin_content" {
				ta = i.MessageTemplate
			}
		}
		for _, i := range b.Issues {
			if i.Type == "thin_content" {
				tb = i.MessageTemplate
			}
		}
		if ta == "" || ta != tb {
			t.Errorf("expected equal templates, got %q and %q", ta, tb)
		}
	})
}

// TestTechnicalAnalyzer tests technical checks.
func TestTechnicalAnalyzer(t *testing.T) {
	t.Parallel()

	analyze := func(mutate func(*model.PageCrawlResult)) model.AnalyzerResult {
		p := goodPage()
		mutate(p)
		return NewTechnicalAnalyzer().Analyze(context.Background(), p)
	}

	t.Run("plain http", func(t *testing.T) {
		t.Parallel()
		r := analyze(func(p *model.PageCrawlResult) { p.Security = model.SecurityFlags{} })
		requireIssue(t, r, "not_https")
		requireNoIssue(t, r, "missing_hsts")
	})

	t.Run("https without hsts and with mixed content", func(t *testing.T) {
		t.Parallel()
		r := analyze(func(p *model.PageCrawlResult) {
			p.Security = model.SecurityFlags{HTTPS: true, MixedContent: true}
		})
		requireIssue(t, r, "missing_hsts")
		requireIssue(t, r, "mixed_content")
	})

	t.Run("noindex", func(t *testing.T) {
		t.Parallel()
		r := analyze(func(p *model.PageCrawlResult) { p.Robots = "NOINDEX, follow" })
		requireIssue(t, r, "noindex")
		if r.Issues[0].Severity != model.SeverityCritical {
			t.Errorf("expected CRITICAL, got %s", r.Issues[0].Severity)
		}
	})

	t.Run("canonical", func(t *testing.T) {
		t.Parallel()
		requireIssue(t, analyze(func(p *model.PageCrawlResult) { p.Canonical = "" }), "missing_canonical")
		requireIssue(t, analyze(func(p *model.PageCrawlResult) {
			p.Canonical = "https://example.com/elsewhere"
		}), "canonical_mismatch")
		requireNoIssue(t, analyze(func(p *model.PageCrawlResult) {
			p.Canonical = "https://EXAMPLE.com"
		}), "canonical_mismatch")
		requireNoIssue(t, analyze(func(p *model.PageCrawlResult) {
			p.IsDuplicate = true
			p.SimilarURL = "https://example.com/original"
			p.Similarity = 0.95
			p.Canonical = "https://example.com/original/"
		}), "canonical_mismatch")
	})

	t.Run("structured data", func(t *testing.T) {
		t.Parallel()
		requireIssue(t, analyze(func(p *model.PageCrawlResult) {
			p.StructuredData = []model.StructuredData{}
		}), "no_structured_data")

		r := analyze(func(p *model.PageCrawlResult) {
			p.StructuredData = []model.StructuredData{{Raw: "{broken"}}
		})
		requireIssue(t, r, "invalid_structured_data")
		requireMissingData(t, r, "structured data")
		if got := r.Factors["structured_data"]; got != NeutralScore {
			t.Errorf("expected neutral factor, got %.1f", got)
		}
	})

	t.Run("hreflang", func(t *testing.T) {
		t.Parallel()
		r := analyze(func(p *model.PageCrawlResult) {
			p.Hreflang = append(p.Hreflang, model.Hreflang{Lang: "en_US", Href: "https://example.com/us"})
		})
		requireIssue(t, r, "invalid_hreflang")
		if got := r.Factors["hreflang"]; got < 66 || got > 67 {
			t.Errorf("expected two of three valid, got %.1f", got)
		}
	})

	t.Run("error status", func(t *testing.T) {
		t.Parallel()
		requireIssue(t, analyze(func(p *model.PageCrawlResult) { p.StatusCode = 404 }), "http_error")
	})
}

// TestLocalAnalyzer tests local business checks.
func TestLocalAnalyzer(t *testing.T) {
	t.Parallel()

	analyze := func(mutate func(*model.PageCrawlResult)) model.AnalyzerResult {
		p := goodPage()
		mutate(p)
		return NewLocalAnalyzer().Analyze(context.Background(), p)
	}

	t.Run("missing nap on homepage", func(t *testing.T) {
		t.Parallel()
		r := analyze(func(p *model.PageCrawlResult) {
			p.Contact = model.ContactInfo{}
			p.StructuredData = []model.StructuredData{}
			p.SchemaTypes = []string{}
		})
		requireIssue(t, r, "missing_phone")
		requireIssue(t, r, "missing_address")
		requireIssue(t, r, "missing_local_business_schema")
	})

	t.Run("other pages are not held to nap", func(t *testing.T) {
		t.Parallel()
		r := analyze(func(p *model.PageCrawlResult) {
			p.Role = model.PageRoleOther
			p.Contact = model.ContactInfo{}
		})
		requireNoIssue(t, r, "missing_phone")
		requireNoIssue(t, r, "missing_address")
	})

	t.Run("contact page without a contact method", func(t *testing.T) {
		t.Parallel()
		r := analyze(func(p *model.PageCrawlResult) {
			p.Role = model.PageRoleContact
			p.Contact.Phones = nil
			p.Contact.Emails = nil
		})
		requireIssue(t, r, "missing_contact_method")
	})

	t.Run("inconsistent phone", func(t *testing.T) {
		t.Parallel()
		r := analyze(func(p *model.PageCrawlResult) {
			p.Contact.Phones = []string{"5125559999"}
		})
		requireIssue(t, r, "nap_inconsistent")
		if got := r.Factors["nap_consistency"]; got != 50 {
			t.Errorf("expected half consistent, got %.1f", got)
		}
	})

	t.Run("inconsistent address", func(t *testing.T) {
		t.Parallel()
		r := analyze(func(p *model.PageCrawlResult) {
			p.Contact.Addresses = []string{"200 Oak Avenue, Dallas, TX 75201"}
		})
		requireIssue(t, r, "nap_inconsistent")
	})

	t.Run("location page completeness", func(t *testing.T) {
		t.Parallel()
		r := analyze(func(p *model.PageCrawlResult) { p.Role = model.PageRoleLocation })
		requireIssue(t, r, "location_missing_map")
		requireIssue(t, r, "location_missing_hours")

		r = analyze(func(p *model.PageCrawlResult) {
			p.Role = model.PageRoleLocation
			p.Contact.HasMap = true
			p.StructuredData[0].Fields["openingHours"] = "Mo-Fr 08:00-17:00"
		})
		requireNoIssue(t, r, "location_missing_map")
		requireNoIssue(t, r, "location_missing_hours")
	})
}

// TestUXAnalyzer tests user experience checks.
func TestUXAnalyzer(t *testing.T) {
	t.Parallel()

	analyze := func(mutate func(*model.PageCrawlResult)) model.AnalyzerResult {
		p := goodPage()
		mutate(p)
		return NewUXAnalyzer().Analyze(context.Background(), p)
	}

	t.Run("slow response", func(t *testing.T) {
		t.Parallel()
		r := analyze(func(p *model.PageCrawlResult) { p.ResponseTime = 2500 * time.Millisecond })
		requireIssue(t, r, "slow_response")
		if got := r.Factors["response_time"]; got != 50 {
			t.Errorf("expected 50, got %.1f", got)
		}
	})

	t.Run("viewport", func(t *testing.T) {
		t.Parallel()
		requireIssue(t, analyze(func(p *model.PageCrawlResult) { p.Mobile = model.MobileFlags{} }), "missing_viewport")
		requireIssue(t, analyze(func(p *model.PageCrawlResult) {
			p.Mobile.ViewportContent = "width=1024"
		}), "viewport_not_responsive")
	})

	t.Run("images", func(t *testing.T) {
		t.Parallel()
		r := analyze(func(p *model.PageCrawlResult) {
			p.ImageCount = 8
			p.ImagesWithAlt = 2
			p.LazyImages = 0
		})
		requireIssue(t, r, "images_missing_alt")
		requireIssue(t, r, "images_not_lazy")
		if got := r.Factors["image_alt"]; got != 25 {
			t.Errorf("expected 25, got %.1f", got)
		}
	})

	t.Run("accessibility", func(t *testing.T) {
		t.Parallel()
		r := analyze(func(p *model.PageCrawlResult) {
			p.Lang = ""
			p.Accessibility = model.AccessibilityFlags{FormInputsWithoutLabel: 2}
		})
		requireIssue(t, r, "missing_lang")
		requireIssue(t, r, "unlabeled_inputs")
	})

	t.Run("heavy page", func(t *testing.T) {
		t.Parallel()
		requireIssue(t, analyze(func(p *model.PageCrawlResult) { p.PageBytes = 3 << 20 }), "heavy_page")
	})
}
