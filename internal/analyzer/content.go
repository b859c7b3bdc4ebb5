package analyzer

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/nao1215/siteaudit/internal/model"
	"github.com/nao1215/siteaudit/internal/similarity"
)

// Content thresholds.
const (
	// MinWords is the word count below which a page is thin.
	MinWords = 300
	// MinContactWords is the thin-content threshold of contact pages,
	// which are short by nature.
	MinContactWords = 80

	MinTitleLength       = 30
	MaxTitleLength       = 60
	MinDescriptionLength = 120
	MaxDescriptionLength = 160

	// maxKeywords is the number of title terms checked for presence.
	maxKeywords = 3
)

// bylinePattern matches "By Jane Doe" and "Written by Jane Doe" bylines.
var bylinePattern = regexp.MustCompile(`(?i)\b(?:written |reviewed |posted )?by\s+[A-Z][a-z]+(?:\s+[A-Z][a-z]+)+`)

// stopwords are ignored when picking keywords from the title.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "the": true, "for": true, "of": true,
	"in": true, "on": true, "to": true, "with": true, "your": true, "our": true,
	"we": true, "you": true, "at": true, "by": true, "is": true, "are": true,
	"home": true, "page": true, "welcome": true, "best": true, "top": true,
}

// ContentAnalyzer scores content quality: depth, title and meta
// description, headings, keyword presence, authorship and uniqueness.
type ContentAnalyzer struct{}

// NewContentAnalyzer creates a ContentAnalyzer.
func NewContentAnalyzer() *ContentAnalyzer {
	return &ContentAnalyzer{}
}

// Name returns the analyzer name.
func (a *ContentAnalyzer) Name() string {
	return NameContent
}

// Category returns the issue category.
func (a *ContentAnalyzer) Category() model.IssueCategory {
	return model.CategoryContent
}

// Analyze scores the page content.
func (a *ContentAnalyzer) Analyze(_ context.Context, page *model.PageCrawlResult) model.AnalyzerResult {
	s := newScorecard(a, page)

	a.depth(s, page)
	a.title(s, page)
	a.description(s, page)
	a.headings(s, page)
	a.keywords(s, page)
	a.authorship(s, page)
	a.uniqueness(s, page)

	return s.result()
}

func (a *ContentAnalyzer) depth(s *scorecard, page *model.PageCrawlResult) {
	if page.WordCount == 0 && strings.TrimSpace(page.Text) == "" {
		s.missing("content depth", 3)
		return
	}
	minWords := MinWords
	if page.Role == model.PageRoleContact {
		minWords = MinContactWords
	}
	s.add("depth", 3, ratio(page.WordCount, minWords))
	if page.WordCount < minWords {
		s.flag("thin_content", "Thin content: %d words, at least %d expected", page.WordCount, minWords)
	}
}

func (a *ContentAnalyzer) title(s *scorecard, page *model.PageCrawlResult) {
	n := utf8.RuneCountInString(strings.TrimSpace(page.Title))
	switch {
	case n == 0:
		s.add("title", 2, 0)
		s.flag("missing_title", "Page has no title")
	case n < MinTitleLength:
		s.add("title", 2, 60)
		s.flag("title_too_short", "Title is %d characters long", n)
	case n > MaxTitleLength:
		s.add("title", 2, 75)
		s.flag("title_too_long", "Title is %d characters long", n)
	default:
		s.add("title", 2, 100)
	}
}

func (a *ContentAnalyzer) description(s *scorecard, page *model.PageCrawlResult) {
	n := utf8.RuneCountInString(strings.TrimSpace(page.MetaDescription))
	switch {
	case n == 0:
		s.add("meta_description", 1.5, 0)
		s.flag("missing_meta_description", "Page has no meta description")
	case n < MinDescriptionLength || n > MaxDescriptionLength:
		s.add("meta_description", 1.5, 70)
		s.flag("meta_description_length", "Meta description is %d characters long", n)
	default:
		s.add("meta_description", 1.5, 100)
	}
}

func (a *ContentAnalyzer) headings(s *scorecard, page *model.PageCrawlResult) {
	switch len(page.H1) {
	case 0:
		s.add("h1", 2, 0)
		s.flag("missing_h1", "Page has no H1 heading")
	case 1:
		s.add("h1", 2, 100)
	default:
		s.add("h1", 2, 60)
		s.flag("multiple_h1", "Page has %d H1 headings", len(page.H1))
	}

	if len(page.HeadingOutline) == 0 {
		return
	}
	skips := 0
	prev := page.HeadingOutline[0]
	for _, level := range page.HeadingOutline[1:] {
		if level > prev+1 {
			if skips == 0 {
				s.flag("heading_hierarchy_skip", "Heading level skipped: H%d follows H%d", level, prev)
			}
			skips++
		}
		prev = level
	}
	s.add("heading_hierarchy", 1, 100-25*float64(skips))
}

func (a *ContentAnalyzer) keywords(s *scorecard, page *model.PageCrawlResult) {
	keywords := titleKeywords(page.Title)
	body := similarity.Words(page.Text)
	if len(keywords) == 0 || (len(page.H1) == 0 && len(body) == 0) {
		s.missing("keyword presence", 1.5)
		return
	}

	found, checked := 0, 0
	if len(page.H1) > 0 {
		checked++
		h1 := strings.Join(similarity.Words(strings.Join(page.H1, " ")), " ")
		if containsAny(h1, keywords) {
			found++
		} else {
			s.flag("keyword_missing_in_h1", "None of the title keywords appear in the H1")
		}
	}
	if len(body) > 0 {
		checked++
		if containsAny(strings.Join(body, " "), keywords) {
			found++
		} else {
			s.flag("keyword_missing_in_body", "None of the title keywords appear in the body text")
		}
	}
	s.add("keywords", 1.5, ratio(found, checked))
}

// authorship looks for author or credential signals. Only service and
// general content pages are expected to carry them.
func (a *ContentAnalyzer) authorship(s *scorecard, page *model.PageCrawlResult) {
	if page.Role != model.PageRoleService && page.Role != model.PageRoleOther {
		return
	}
	if page.MetaTags["author"] != "" ||
		page.MetaTags["article:author"] != "" ||
		page.HasSchemaType("Person") ||
		page.SchemaField("author") != "" ||
		bylinePattern.MatchString(page.Text) {
		s.add("authorship", 1, 100)
		return
	}
	s.add("authorship", 1, 40)
	s.flag("no_author_signal", "No author or credential signal found")
}

func (a *ContentAnalyzer) uniqueness(s *scorecard, page *model.PageCrawlResult) {
	if !page.IsDuplicate {
		s.add("uniqueness", 2, 100)
		return
	}
	s.add("uniqueness", 2, 100*(1-page.Similarity))
	s.flag("duplicate_content", "Content duplicates %s (%.0f%% similar)", page.SimilarURL, 100*page.Similarity)
}

// titleKeywords returns up to maxKeywords significant title terms.
func titleKeywords(title string) []string {
	var out []string
	for _, w := range similarity.Words(title) {
		if utf8.RuneCountInString(w) < 3 || stopwords[w] {
			continue
		}
		out = append(out, w)
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}

// containsAny reports whether any keyword occurs as a word of text. Both
// sides are normalized words.
func containsAny(text string, keywords []string) bool {
	padded := " " + strings.TrimSpace(text) + " "
	for _, k := range keywords {
		if strings.Contains(padded, " "+k+" ") {
			return true
		}
	}
	return false
}
