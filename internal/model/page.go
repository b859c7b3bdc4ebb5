package model

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"
)

// CrawlerOutput is one raw fetched page with everything the crawler
// extracted from it. It is created once per visited URL and never
// modified afterwards, except for the duplicate flags which the crawler
// sets once the similarity check has run.
//
// The validate tags describe the shape the page normalizer requires before
// a page may reach the analyzers.
type CrawlerOutput struct {
	// URL is the normalized URL that was requested.
	URL string `json:"url" validate:"required,url"`

	// FinalURL is the URL after redirects. Empty when no redirect happened.
	FinalURL string `json:"final_url,omitempty" validate:"omitempty,url"`

	// StatusCode is the HTTP status of the final response.
	// Zero when the fetch failed before a response arrived.
	StatusCode int `json:"status_code" validate:"required,min=100,max=599"`

	// Headers contains the response headers (canonical keys).
	Headers http.Header `json:"headers,omitempty"`

	// ResponseTime is the time from request to full body.
	ResponseTime time.Duration `json:"response_time" validate:"min=0"`

	// ContentLength is the number of body bytes received.
	ContentLength int `json:"content_length" validate:"min=0"`

	// Rendered is true when the HTML came from the headless renderer.
	Rendered bool `json:"rendered"`

	// Depth is the number of link hops from the seed.
	Depth int `json:"depth" validate:"min=0"`

	// Role is the SiteStructure bucket this page was classified into.
	Role PageRole `json:"role" validate:"omitempty,oneof=homepage contact service location service-area other"`

	// Platform is the publishing platform detected for the site, if any.
	Platform string `json:"platform,omitempty"`

	Title           string            `json:"title,omitempty"`
	MetaDescription string            `json:"meta_description,omitempty"`
	MetaTags        map[string]string `json:"meta_tags,omitempty"`
	Canonical       string            `json:"canonical,omitempty"`
	Robots          string            `json:"robots,omitempty"`
	Lang            string            `json:"lang,omitempty"`

	Hreflang []Hreflang `json:"hreflang,omitempty" validate:"dive"`

	Headings Headings `json:"headings"`

	InternalLinks []Link  `json:"internal_links,omitempty" validate:"dive"`
	ExternalLinks []Link  `json:"external_links,omitempty" validate:"dive"`
	Images        []Image `json:"images,omitempty" validate:"dive"`

	StructuredData []StructuredData `json:"structured_data,omitempty" validate:"dive"`

	Security      SecurityFlags      `json:"security"`
	Accessibility AccessibilityFlags `json:"accessibility"`
	Mobile        MobileFlags        `json:"mobile"`

	Contact ContactInfo `json:"contact"`

	// WordCount is the number of words in the main text.
	WordCount int `json:"word_count" validate:"min=0"`

	// Text is the visible main text with boilerplate removed.
	Text string `json:"-"`

	// HTML is the raw or rendered document.
	HTML string `json:"-"`

	// Error describes why the page could not be fetched or processed.
	// A page with Error set carries no extraction data.
	Error string `json:"error,omitempty"`

	// Duplicate flags. Set post-hoc by the similarity filter.
	IsDuplicate bool    `json:"is_duplicate"`
	SimilarURL  string  `json:"similar_url,omitempty" validate:"required_if=IsDuplicate true"`
	Similarity  float64 `json:"similarity,omitempty" validate:"min=0,max=1"`
}

// Headings holds the heading texts of a page by level.
type Headings struct {
	H1 []string `json:"h1,omitempty"`
	H2 []string `json:"h2,omitempty"`
	H3 []string `json:"h3,omitempty"`
	H4 []string `json:"h4,omitempty"`
	H5 []string `json:"h5,omitempty"`
	H6 []string `json:"h6,omitempty"`

	// Outline lists the heading levels in document order.
	Outline []int `json:"outline,omitempty" validate:"dive,min=1,max=6"`
}

// Link is an anchor found on a page.
type Link struct {
	Href     string `json:"href" validate:"required"`
	Text     string `json:"text,omitempty"`
	Rel      string `json:"rel,omitempty"`
	NoFollow bool   `json:"nofollow,omitempty"`
}

// Image is an <img> element found on a page.
type Image struct {
	Src     string `json:"src" validate:"required"`
	Alt     string `json:"alt,omitempty"`
	HasAlt  bool   `json:"has_alt"`
	Width   string `json:"width,omitempty"`
	Height  string `json:"height,omitempty"`
	Loading string `json:"loading,omitempty"`
}

// Hreflang is one alternate-language link.
type Hreflang struct {
	Lang string `json:"lang" validate:"required"`
	Href string `json:"href" validate:"required"`
}

// StructuredData is one JSON-LD block.
type StructuredData struct {
	// Types lists the @type values declared in the block, including
	// those nested in an @graph.
	Types []string `json:"types,omitempty"`

	// Raw is the block source.
	Raw string `json:"raw,omitempty"`

	// Valid is false when the block is not parseable JSON.
	Valid bool `json:"valid"`

	// Fields holds selected top-level properties such as name,
	// telephone and address flattened to strings.
	Fields map[string]string `json:"fields,omitempty"`
}

// SecurityFlags are transport-level signals.
type SecurityFlags struct {
	HTTPS        bool `json:"https"`
	HSTS         bool `json:"hsts"`
	MixedContent bool `json:"mixed_content"`
}

// AccessibilityFlags are markup-level accessibility signals.
type AccessibilityFlags struct {
	HasLang                bool `json:"has_lang"`
	ImagesMissingAlt       int  `json:"images_missing_alt" validate:"min=0"`
	FormInputsWithoutLabel int  `json:"form_inputs_without_label" validate:"min=0"`
	HasSkipLink            bool `json:"has_skip_link"`
	HasMainLandmark        bool `json:"has_main_landmark"`
}

// MobileFlags are responsive-design signals.
type MobileFlags struct {
	HasViewport     bool   `json:"has_viewport"`
	ViewportContent string `json:"viewport_content,omitempty"`
}

// ContactInfo holds NAP (name, address, phone) evidence found on a page.
type ContactInfo struct {
	BusinessName string   `json:"business_name,omitempty"`
	Phones       []string `json:"phones,omitempty"`
	Emails       []string `json:"emails,omitempty"`
	Addresses    []string `json:"addresses,omitempty"`
	HasMap       bool     `json:"has_map"`
	HasHours     bool     `json:"has_hours"`
}

// Failed reports whether the page could not be fetched or processed.
func (o *CrawlerOutput) Failed() bool {
	return o.Error != ""
}

// EffectiveURL returns FinalURL when the fetch was redirected, URL otherwise.
func (o *CrawlerOutput) EffectiveURL() string {
	if o.FinalURL != "" {
		return o.FinalURL
	}
	return o.URL
}

// GetHeader returns the first value of a response header.
func (o *CrawlerOutput) GetHeader(name string) string {
	if o.Headers == nil {
		return ""
	}
	return o.Headers.Get(name)
}

// IsHTML reports whether the response declared an HTML content type.
// Responses without a Content-Type are treated as HTML.
func (o *CrawlerOutput) IsHTML() bool {
	ct := strings.ToLower(o.GetHeader("Content-Type"))
	return ct == "" || strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}

// ContentHash returns the SHA-256 of the document, hex encoded.
func (o *CrawlerOutput) ContentHash() string {
	sum := sha256.Sum256([]byte(o.HTML))
	return hex.EncodeToString(sum[:])
}

// MarkDuplicate sets the duplicate flags.
func (o *CrawlerOutput) MarkDuplicate(similarURL string, similarity float64) {
	o.IsDuplicate = true
	o.SimilarURL = similarURL
	o.Similarity = similarity
}
