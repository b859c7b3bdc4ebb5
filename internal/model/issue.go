package model

import (
	"fmt"
	"strings"
)

// Issue is one finding on one page. Analyzers create issues; nothing
// modifies them afterwards.
type Issue struct {
	// Type identifies the kind of issue (e.g. "missing_title").
	Type string `json:"type"`

	Category IssueCategory `json:"category"`
	Severity Severity      `json:"severity"`

	// PageURL is the page the issue was found on.
	PageURL string `json:"page_url"`

	// Message is the rendered, page-specific description.
	Message string `json:"message"`

	// MessageTemplate is the format string Message was rendered from.
	// Issues sharing a type and template share a root cause.
	MessageTemplate string `json:"message_template,omitempty"`

	Suggestion string `json:"suggestion,omitempty"`

	// Analyzer is the name of the analyzer that produced the issue.
	Analyzer string `json:"analyzer,omitempty"`
}

// IssueGroup clusters issues that share a root cause across pages.
type IssueGroup struct {
	Signature  string        `json:"signature"`
	Type       string        `json:"type"`
	Category   IssueCategory `json:"category"`
	Severity   Severity      `json:"severity"`
	Message    string        `json:"message"`
	Suggestion string        `json:"suggestion,omitempty"`

	// AffectedPages lists the distinct pages, in discovery order.
	AffectedPages     []string `json:"affected_pages"`
	AffectedPageCount int      `json:"affected_page_count"`

	Priority float64 `json:"priority"`

	// Context describes where fixing the group pays off, derived from the
	// roles of the affected pages.
	Context ImprovementContext `json:"context"`

	// RoleMix counts affected pages per role.
	RoleMix map[PageRole]int `json:"role_mix,omitempty"`

	// IssueCount is the number of raw issues merged into the group.
	IssueCount int `json:"issue_count"`

	// FirstSeen is the discovery index of the first merged issue.
	FirstSeen int `json:"first_seen"`
}

// ImprovementContext labels the kind of fix an issue group calls for.
type ImprovementContext string

// Improvement context constants.
const (
	ContextSitewideTemplate ImprovementContext = "sitewide-template"
	ContextHomepage         ImprovementContext = "homepage"
	ContextConversion       ImprovementContext = "conversion"
	ContextServicePages     ImprovementContext = "service-pages"
	ContextLocalPages       ImprovementContext = "local-pages"
	ContextIsolated         ImprovementContext = "isolated"
)

// Description returns a short explanation of the context for reports.
func (c ImprovementContext) Description() string {
	switch c {
	case ContextSitewideTemplate:
		return "Shared template defect: one fix in the site template resolves every affected page."
	case ContextHomepage:
		return "Homepage issue: the most visible page on the site."
	case ContextConversion:
		return "Conversion path: affects pages visitors use to get in touch."
	case ContextServicePages:
		return "Service pages: affects pages that describe what the business sells."
	case ContextLocalPages:
		return "Local pages: affects location and service-area visibility."
	case ContextIsolated:
		return "Isolated issue: fix on the affected page."
	default:
		return ""
	}
}

// IssueInfo is catalog metadata for an issue type.
type IssueInfo struct {
	Severity   Severity
	Category   IssueCategory
	Suggestion string
}

// IssueMissingData is emitted when an analyzer could not evaluate a factor
// because its input was absent or ambiguous.
const IssueMissingData = "missing_data"

// issueCatalog maps issue types to their default severity, category and
// fix suggestion, so that every analyzer rates the same defect the same way.
var issueCatalog = map[string]IssueInfo{
	// Content
	"missing_title": {
		Severity: SeverityHigh, Category: CategoryContent,
		Suggestion: "Add a unique, descriptive <title> of 30-60 characters.",
	},
	"title_too_short": {
		Severity: SeverityMedium, Category: CategoryContent,
		Suggestion: "Expand the title to at least 30 characters with the page's main topic.",
	},
	"title_too_long": {
		Severity: SeverityLow, Category: CategoryContent,
		Suggestion: "Shorten the title to 60 characters so it is not truncated in results.",
	},
	"missing_meta_description": {
		Severity: SeverityMedium, Category: CategoryContent,
		Suggestion: "Add a meta description of 120-160 characters summarizing the page.",
	},
	"meta_description_length": {
		Severity: SeverityLow, Category: CategoryContent,
		Suggestion: "Keep the meta description between 120 and 160 characters.",
	},
	"missing_h1": {
		Severity: SeverityHigh, Category: CategoryContent,
		Suggestion: "Add exactly one H1 heading that states the page topic.",
	},
	"multiple_h1": {
		Severity: SeverityMedium, Category: CategoryContent,
		Suggestion: "Use a single H1 and demote the others to H2.",
	},
	"heading_hierarchy_skip": {
		Severity: SeverityLow, Category: CategoryContent,
		Suggestion: "Do not skip heading levels; nest H2 under H1, H3 under H2.",
	},
	"weak_content": {
		Severity: SeverityMedium, Category: CategoryContent,
		Suggestion: "Rework the copy following the content review.",
	},
	"thin_content": {
		Severity: SeverityHigh, Category: CategoryContent,
		Suggestion: "Expand the page to at least 300 words of useful, original content.",
	},
	"keyword_missing_in_h1": {
		Severity: SeverityLow, Category: CategoryContent,
		Suggestion: "Repeat the main keyword of the title in the H1.",
	},
	"keyword_missing_in_body": {
		Severity: SeverityLow, Category: CategoryContent,
		Suggestion: "Mention the title's main keyword in the body text.",
	},
	"no_author_signal": {
		Severity: SeverityLow, Category: CategoryContent,
		Suggestion: "Add an author byline, author meta tag or Person schema to show expertise.",
	},
	"duplicate_content": {
		Severity: SeverityHigh, Category: CategoryContent,
		Suggestion: "Rewrite the page with unique content or point its canonical to the original.",
	},

	// Technical
	"not_https": {
		Severity: SeverityHigh, Category: CategoryTechnical,
		Suggestion: "Serve every page over HTTPS and redirect HTTP to HTTPS.",
	},
	"missing_canonical": {
		Severity: SeverityMedium, Category: CategoryTechnical,
		Suggestion: "Add a self-referencing <link rel=\"canonical\">.",
	},
	"canonical_mismatch": {
		Severity: SeverityLow, Category: CategoryTechnical,
		Suggestion: "Check that the canonical URL points to the intended page.",
	},
	"noindex": {
		Severity: SeverityCritical, Category: CategoryTechnical,
		Suggestion: "Remove the noindex directive if the page should appear in search results.",
	},
	"no_structured_data": {
		Severity: SeverityMedium, Category: CategoryTechnical,
		Suggestion: "Add JSON-LD structured data (Organization, LocalBusiness, Service).",
	},
	"invalid_structured_data": {
		Severity: SeverityMedium, Category: CategoryTechnical,
		Suggestion: "Fix the JSON-LD syntax so search engines can parse it.",
	},
	"invalid_hreflang": {
		Severity: SeverityLow, Category: CategoryTechnical,
		Suggestion: "Use valid BCP 47 language codes in hreflang links.",
	},
	"http_error": {
		Severity: SeverityCritical, Category: CategoryTechnical,
		Suggestion: "Fix the server response so the page returns HTTP 200.",
	},
	"missing_hsts": {
		Severity: SeverityLow, Category: CategoryTechnical,
		Suggestion: "Send a Strict-Transport-Security header.",
	},
	"mixed_content": {
		Severity: SeverityMedium, Category: CategoryTechnical,
		Suggestion: "Load every resource over HTTPS.",
	},

	// Local
	"missing_phone": {
		Severity: SeverityMedium, Category: CategoryLocal,
		Suggestion: "Show a clickable phone number (tel: link) on the page.",
	},
	"missing_address": {
		Severity: SeverityMedium, Category: CategoryLocal,
		Suggestion: "Show the full business address on the page.",
	},
	"nap_inconsistent": {
		Severity: SeverityHigh, Category: CategoryLocal,
		Suggestion: "Use the same name, address and phone in page text and structured data.",
	},
	"missing_local_business_schema": {
		Severity: SeverityMedium, Category: CategoryLocal,
		Suggestion: "Add LocalBusiness structured data with name, address and telephone.",
	},
	"missing_social_profiles": {
		Severity: SeverityLow, Category: CategoryLocal,
		Suggestion: "Link the business profiles (Google, Facebook, Yelp) from the homepage or list them in sameAs.",
	},
	"missing_contact_method": {
		Severity: SeverityHigh, Category: CategoryLocal,
		Suggestion: "Offer at least one contact method: phone, email or a contact form.",
	},
	"location_missing_map": {
		Severity: SeverityLow, Category: CategoryLocal,
		Suggestion: "Embed a map of the location.",
	},
	"location_missing_hours": {
		Severity: SeverityLow, Category: CategoryLocal,
		Suggestion: "List opening hours on location pages.",
	},

	// UX
	"slow_response": {
		Severity: SeverityMedium, Category: CategoryUX,
		Suggestion: "Reduce server response time below 1 second (caching, CDN).",
	},
	"missing_viewport": {
		Severity: SeverityHigh, Category: CategoryUX,
		Suggestion: "Add <meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">.",
	},
	"viewport_not_responsive": {
		Severity: SeverityMedium, Category: CategoryUX,
		Suggestion: "Set the viewport width to device-width.",
	},
	"images_missing_alt": {
		Severity: SeverityMedium, Category: CategoryUX,
		Suggestion: "Describe every meaningful image with alt text.",
	},
	"images_not_lazy": {
		Severity: SeverityLow, Category: CategoryUX,
		Suggestion: "Add loading=\"lazy\" to below-the-fold images.",
	},
	"missing_lang": {
		Severity: SeverityLow, Category: CategoryUX,
		Suggestion: "Declare the page language with <html lang>.",
	},
	"unlabeled_inputs": {
		Severity: SeverityMedium, Category: CategoryUX,
		Suggestion: "Associate every form input with a <label> or aria-label.",
	},
	"heavy_page": {
		Severity: SeverityLow, Category: CategoryUX,
		Suggestion: "Reduce HTML weight by removing inline assets and unused markup.",
	},

	IssueMissingData: {
		Severity: SeverityLow, Category: CategoryTechnical,
		Suggestion: "Check that the page renders its content so it can be evaluated.",
	},
}

// GetIssueInfo returns the catalog entry for an issue type.
// Unknown types default to a low-severity technical issue.
func GetIssueInfo(issueType string) IssueInfo {
	if info, ok := issueCatalog[issueType]; ok {
		return info
	}
	return IssueInfo{Severity: SeverityLow, Category: CategoryTechnical}
}

// NewIssue builds an issue from the catalog. The message is rendered from
// template and args; the template is kept so that the same defect on
// different pages can be recognized.
func NewIssue(issueType, pageURL, template string, args ...any) Issue {
	info := GetIssueInfo(issueType)
	msg := template
	if len(args) > 0 {
		msg = fmt.Sprintf(template, args...)
	}
	return Issue{
		Type:            issueType,
		Category:        info.Category,
		Severity:        info.Severity,
		PageURL:         pageURL,
		Message:         msg,
		MessageTemplate: template,
		Suggestion:      info.Suggestion,
	}
}

// NewMissingDataIssue reports a factor that could not be evaluated. Each
// factor gets its own message template, so missing data of different
// factors never groups together.
func NewMissingDataIssue(category IssueCategory, pageURL, factor string) Issue {
	info := GetIssueInfo(IssueMissingData)
	msg := "Missing data: could not evaluate " + factor
	return Issue{
		Type:            IssueMissingData,
		Category:        category,
		Severity:        info.Severity,
		PageURL:         pageURL,
		Message:         msg,
		MessageTemplate: msg,
		Suggestion:      info.Suggestion,
	}
}

// IssueTypes returns all catalogued issue types that belong to a category.
func IssueTypes(category IssueCategory) []string {
	var types []string
	for t, info := range issueCatalog {
		if info.Category == category {
			types = append(types, t)
		}
	}
	return types
}

// HasIssue reports whether issues contains an issue of the given type.
func HasIssue(issues []Issue, issueType string) bool {
	for _, i := range issues {
		if strings.EqualFold(i.Type, issueType) {
			return true
		}
	}
	return false
}
