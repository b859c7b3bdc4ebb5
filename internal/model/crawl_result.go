package model

import "time"

// PageCrawlResult is the canonical view of a page that every analyzer
// consumes. Its shape does not depend on crawl quirks: slices are never nil
// and counts are precomputed. It is derived from exactly one validated
// CrawlerOutput (SourceURL) and never mutated after creation.
type PageCrawlResult struct {
	SourceURL string   `json:"source_url"`
	URL       string   `json:"url"`
	Role      PageRole `json:"role"`
	Depth     int      `json:"depth"`
	Platform  string   `json:"platform,omitempty"`

	StatusCode   int           `json:"status_code"`
	ResponseTime time.Duration `json:"response_time"`
	PageBytes    int           `json:"page_bytes"`
	Rendered     bool          `json:"rendered"`

	Title           string            `json:"title"`
	MetaDescription string            `json:"meta_description"`
	MetaTags        map[string]string `json:"meta_tags"`
	Canonical       string            `json:"canonical"`
	Robots          string            `json:"robots"`
	Lang            string            `json:"lang"`
	Hreflang        []Hreflang        `json:"hreflang"`

	H1 []string `json:"h1"`
	H2 []string `json:"h2"`
	H3 []string `json:"h3"`

	// HeadingOutline lists heading levels (1-6) in document order.
	HeadingOutline []int `json:"heading_outline"`

	InternalLinks     []Link `json:"internal_links"`
	ExternalLinks     []Link `json:"external_links"`
	InternalLinkCount int    `json:"internal_link_count"`
	ExternalLinkCount int    `json:"external_link_count"`

	Images        []Image `json:"images"`
	ImageCount    int     `json:"image_count"`
	ImagesWithAlt int     `json:"images_with_alt"`
	LazyImages    int     `json:"lazy_images"`

	StructuredData []StructuredData `json:"structured_data"`
	SchemaTypes    []string         `json:"schema_types"`

	Security      SecurityFlags      `json:"security"`
	Accessibility AccessibilityFlags `json:"accessibility"`
	Mobile        MobileFlags        `json:"mobile"`
	Contact       ContactInfo        `json:"contact"`

	Text      string `json:"-"`
	WordCount int    `json:"word_count"`

	IsDuplicate bool    `json:"is_duplicate"`
	SimilarURL  string  `json:"similar_url,omitempty"`
	Similarity  float64 `json:"similarity,omitempty"`

	// Extension carries CrawlerOutput data outside the analyzer contract,
	// such as H4-H6 headings.
	Extension Extension `json:"extension"`
}

// Extension is page data kept for reference but not read by analyzers.
type Extension struct {
	H4 []string `json:"h4"`
	H5 []string `json:"h5"`
	H6 []string `json:"h6"`
}

// HasSchemaType reports whether any structured-data block declares one of
// the given types.
func (p *PageCrawlResult) HasSchemaType(types ...string) bool {
	for _, have := range p.SchemaTypes {
		for _, want := range types {
			if have == want {
				return true
			}
		}
	}
	return false
}

// SchemaField returns the first non-empty value of a structured-data field
// across all blocks.
func (p *PageCrawlResult) SchemaField(name string) string {
	for _, sd := range p.StructuredData {
		if v := sd.Fields[name]; v != "" {
			return v
		}
	}
	return ""
}
