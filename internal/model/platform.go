package model

import "fmt"

// PageRole classifies a crawled page by the part it plays on the site.
type PageRole string

// Page role constants.
const (
	// PageRoleHomepage is the site root.
	PageRoleHomepage PageRole = "homepage"
	// PageRoleContact is a contact or "get in touch" page.
	PageRoleContact PageRole = "contact"
	// PageRoleService describes a service or product offering.
	PageRoleService PageRole = "service"
	// PageRoleLocation describes a physical location or branch.
	PageRoleLocation PageRole = "location"
	// PageRoleServiceArea describes a region the business serves.
	PageRoleServiceArea PageRole = "service-area"
	// PageRoleOther is any page that matched no other role.
	PageRoleOther PageRole = "other"
)

// String returns the string representation of the PageRole.
func (r PageRole) String() string {
	if r == "" {
		return string(PageRoleOther)
	}
	return string(r)
}

// IsValid returns true if this is a known role.
func (r PageRole) IsValid() bool {
	switch r {
	case PageRoleHomepage, PageRoleContact, PageRoleService,
		PageRoleLocation, PageRoleServiceArea, PageRoleOther:
		return true
	default:
		return false
	}
}

// ParsePageRole converts a string to a PageRole.
func ParsePageRole(s string) (PageRole, error) {
	r := PageRole(s)
	if !r.IsValid() {
		return PageRoleOther, fmt.Errorf("unknown page role %q", s)
	}
	return r, nil
}

// AllPageRoles returns every page role in reporting order.
func AllPageRoles() []PageRole {
	return []PageRole{
		PageRoleHomepage, PageRoleContact, PageRoleService,
		PageRoleLocation, PageRoleServiceArea, PageRoleOther,
	}
}

// ScoreCategory is the banded interpretation of a 0-100 score.
type ScoreCategory string

// Score category constants.
const (
	// ScoreExcellent is a score of 90 or more.
	ScoreExcellent ScoreCategory = "excellent"
	// ScoreGood is a score of 70 or more.
	ScoreGood ScoreCategory = "good"
	// ScoreNeedsWork is a score of 50 or more.
	ScoreNeedsWork ScoreCategory = "needs-work"
	// ScorePoor is any score below 50.
	ScorePoor ScoreCategory = "poor"
)

// Score category thresholds.
const (
	ExcellentThreshold = 90.0
	GoodThreshold      = 70.0
	NeedsWorkThreshold = 50.0
)

// CategoryFor returns the category band of a score.
func CategoryFor(score float64) ScoreCategory {
	switch {
	case score >= ExcellentThreshold:
		return ScoreExcellent
	case score >= GoodThreshold:
		return ScoreGood
	case score >= NeedsWorkThreshold:
		return ScoreNeedsWork
	default:
		return ScorePoor
	}
}

// String returns the string representation of the ScoreCategory.
func (c ScoreCategory) String() string {
	return string(c)
}

// IssueCategory groups issues by the analyzer concern that produced them.
type IssueCategory string

// Issue category constants.
const (
	// CategoryContent covers content depth, headings and authorship.
	CategoryContent IssueCategory = "content"
	// CategoryTechnical covers crawlability and markup correctness.
	CategoryTechnical IssueCategory = "technical"
	// CategoryLocal covers local business signals.
	CategoryLocal IssueCategory = "local"
	// CategoryUX covers performance, mobile and accessibility.
	CategoryUX IssueCategory = "ux"
)

// String returns the string representation of the IssueCategory.
func (c IssueCategory) String() string {
	return string(c)
}

// IsValid returns true if this is a known category.
func (c IssueCategory) IsValid() bool {
	switch c {
	case CategoryContent, CategoryTechnical, CategoryLocal, CategoryUX:
		return true
	default:
		return false
	}
}

// JobStatus is the lifecycle state of an audit job.
type JobStatus string

// Job status constants.
const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// String returns the string representation of the JobStatus.
func (s JobStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the job can no longer change state.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}
