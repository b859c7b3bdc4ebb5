package analyzer

import (
	"context"
	"strings"
	"time"

	"github.com/nao1215/siteaudit/internal/model"
)

// UX thresholds.
const (
	// FastResponse is the response time that scores full marks.
	FastResponse = 500 * time.Millisecond
	// SlowResponse is the response time above which slow_response is
	// reported.
	SlowResponse = time.Second

	// HeavyPageBytes is the HTML size above which heavy_page is reported.
	HeavyPageBytes = 1 << 20

	// lazyImageMin is the image count from which lazy loading is expected.
	lazyImageMin = 4
)

// UXAnalyzer scores performance, mobile friendliness and accessibility.
type UXAnalyzer struct{}

// NewUXAnalyzer creates a UXAnalyzer.
func NewUXAnalyzer() *UXAnalyzer {
	return &UXAnalyzer{}
}

// Name returns the analyzer name.
func (a *UXAnalyzer) Name() string {
	return NameUX
}

// Category returns the issue category.
func (a *UXAnalyzer) Category() model.IssueCategory {
	return model.CategoryUX
}

// Analyze scores the user experience of the page.
func (a *UXAnalyzer) Analyze(_ context.Context, page *model.PageCrawlResult) model.AnalyzerResult {
	s := newScorecard(a, page)

	a.responseTime(s, page)
	a.viewport(s, page)
	a.images(s, page)
	a.accessibility(s, page)
	a.weight(s, page)

	return s.result()
}

func (a *UXAnalyzer) responseTime(s *scorecard, page *model.PageCrawlResult) {
	d := page.ResponseTime
	switch {
	case d <= 0:
		s.missing("response time", 2)
	case d <= FastResponse:
		s.add("response_time", 2, 100)
	case d <= SlowResponse:
		s.add("response_time", 2, 90)
	default:
		score := 70.0
		if d > 3*time.Second {
			score = 20
		} else if d > 2*time.Second {
			score = 50
		}
		s.add("response_time", 2, score)
		s.flag("slow_response", "Page took %s to load", d.Round(100*time.Millisecond))
	}
}

func (a *UXAnalyzer) viewport(s *scorecard, page *model.PageCrawlResult) {
	switch {
	case !page.Mobile.HasViewport:
		s.add("viewport", 2, 0)
		s.flag("missing_viewport", "Page has no viewport meta tag")
	case !strings.Contains(strings.ReplaceAll(strings.ToLower(page.Mobile.ViewportContent), " ", ""), "width=device-width"):
		s.add("viewport", 2, 50)
		s.flag("viewport_not_responsive", "Viewport does not use device-width")
	default:
		s.add("viewport", 2, 100)
	}
}

func (a *UXAnalyzer) images(s *scorecard, page *model.PageCrawlResult) {
	if page.ImageCount == 0 {
		return
	}
	s.add("image_alt", 1.5, ratio(page.ImagesWithAlt, page.ImageCount))
	if missing := page.ImageCount - page.ImagesWithAlt; missing > 0 {
		s.flag("images_missing_alt", "%d of %d images have no alt text", missing, page.ImageCount)
	}

	if page.ImageCount < lazyImageMin {
		return
	}
	s.add("lazy_loading", 0.5, 50+ratio(page.LazyImages, page.ImageCount)/2)
	if page.LazyImages == 0 {
		s.flag("images_not_lazy", "None of the %d images load lazily", page.ImageCount)
	}
}

func (a *UXAnalyzer) accessibility(s *scorecard, page *model.PageCrawlResult) {
	if page.Accessibility.HasLang || page.Lang != "" {
		s.add("lang", 1, 100)
	} else {
		s.add("lang", 1, 0)
		s.flag("missing_lang", "Page does not declare its language")
	}

	if n := page.Accessibility.FormInputsWithoutLabel; n > 0 {
		s.add("form_labels", 1, 100-25*float64(n))
		s.flag("unlabeled_inputs", "%d form inputs have no label", n)
	} else {
		s.add("form_labels", 1, 100)
	}

	landmarks := 0
	if page.Accessibility.HasMainLandmark {
		landmarks++
	}
	if page.Accessibility.HasSkipLink {
		landmarks++
	}
	s.add("landmarks", 0.5, 60+20*float64(landmarks))
}

func (a *UXAnalyzer) weight(s *scorecard, page *model.PageCrawlResult) {
	b := page.PageBytes
	switch {
	case b <= 0:
		s.missing("page weight", 1)
	case b <= HeavyPageBytes/2:
		s.add("page_weight", 1, 100)
	case b <= HeavyPageBytes:
		s.add("page_weight", 1, 75)
	default:
		score := 50.0
		if b > 2*HeavyPageBytes {
			score = 25
		}
		s.add("page_weight", 1, score)
		s.flag("heavy_page", "HTML document is %d KB", b/1024)
	}
}
