package issues

import (
	"math"
	"sort"

	"github.com/nao1215/siteaudit/internal/config"
	"github.com/nao1215/siteaudit/internal/model"
)

// Sitewide thresholds of the improvement context.
const (
	// SitewideShare is the share of audited pages from which an issue
	// counts as a template defect.
	SitewideShare = 0.5
	// SitewideMinPages is the page count from which an issue spanning
	// several roles counts as a template defect.
	SitewideMinPages = 5
)

// Policy holds the constants of the priority formula.
type Policy struct {
	SeverityWeights    map[model.Severity]float64
	CategoryImportance map[model.IssueCategory]float64
}

// DefaultPolicy returns the built-in priority constants.
func DefaultPolicy() Policy {
	return Policy{
		SeverityWeights: map[model.Severity]float64{
			model.SeverityCritical: 10,
			model.SeverityHigh:     7,
			model.SeverityMedium:   4,
			model.SeverityLow:      2,
			model.SeverityInfo:     1,
		},
		CategoryImportance: map[model.IssueCategory]float64{
			model.CategoryTechnical: 1.0,
			model.CategoryContent:   0.9,
			model.CategoryLocal:     0.8,
			model.CategoryUX:        0.7,
		},
	}
}

// FromPolicy converts the configured policy, keeping built-in values for
// keys the configuration does not set. Unknown severity names are ignored.
func FromPolicy(p config.Policy) Policy {
	out := DefaultPolicy()
	for name, w := range p.SeverityWeights {
		if sev, err := model.ParseSeverity(name); err == nil {
			out.SeverityWeights[sev] = w
		}
	}
	for name, w := range p.CategoryImportance {
		out.CategoryImportance[model.IssueCategory(name)] = w
	}
	return out
}

// Priority computes the priority of a group.
func (p Policy) Priority(sev model.Severity, category model.IssueCategory, affectedPages int) float64 {
	sw, ok := p.SeverityWeights[sev]
	if !ok {
		sw = 1
	}
	ci, ok := p.CategoryImportance[category]
	if !ok {
		ci = 1
	}
	return sw * ci * (1 + math.Log(1+float64(affectedPages)))
}

// Group merges issues with the same signature across pages and returns the
// groups ordered by priority. roles maps page URLs to their role and
// defines the audited page set; pages missing from it count as "other".
// Issues must be in discovery order.
func Group(issues []model.Issue, roles map[string]model.PageRole, policy Policy) []model.IssueGroup {
	index := make(map[string]int)
	groups := make([]*builder, 0)

	for i, issue := range issues {
		sig := Signature(issue)
		gi, ok := index[sig]
		if !ok {
			gi = len(groups)
			index[sig] = gi
			groups = append(groups, newBuilder(sig, issue, i))
		}
		groups[gi].add(issue)
	}

	totalPages := len(roles)
	out := make([]model.IssueGroup, 0, len(groups))
	for _, b := range groups {
		g := b.group
		g.AffectedPageCount = len(g.AffectedPages)
		g.RoleMix = make(map[model.PageRole]int)
		for _, url := range g.AffectedPages {
			role, ok := roles[url]
			if !ok || role == "" {
				role = model.PageRoleOther
			}
			g.RoleMix[role]++
		}
		g.Context = Context(g.RoleMix, g.AffectedPageCount, totalPages)
		g.Priority = round2(policy.Priority(g.Severity, g.Category, g.AffectedPageCount))
		out = append(out, g)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.AffectedPageCount != b.AffectedPageCount {
			return a.AffectedPageCount > b.AffectedPageCount
		}
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		return a.FirstSeen < b.FirstSeen
	})
	return out
}

// Context labels where fixing an issue pays off, from the roles of the
// pages it affects.
func Context(roleMix map[model.PageRole]int, affected, total int) model.ImprovementContext {
	if affected == 0 {
		return model.ContextIsolated
	}
	if affected > 1 && total > 0 && float64(affected) >= SitewideShare*float64(total) {
		return model.ContextSitewideTemplate
	}
	if affected >= SitewideMinPages && len(roleMix) >= 2 {
		return model.ContextSitewideTemplate
	}
	switch {
	case roleMix[model.PageRoleHomepage] > 0:
		return model.ContextHomepage
	case roleMix[model.PageRoleContact] > 0:
		return model.ContextConversion
	case roleMix[model.PageRoleService] > 0:
		return model.ContextServicePages
	case roleMix[model.PageRoleLocation]+roleMix[model.PageRoleServiceArea] > 0:
		return model.ContextLocalPages
	default:
		return model.ContextIsolated
	}
}

type builder struct {
	group model.IssueGroup
	pages map[string]bool
}

func newBuilder(sig string, first model.Issue, order int) *builder {
	message := first.Message
	if first.MessageTemplate == "" || containsVerb(first.MessageTemplate) {
		message = Template(first.Message)
	}
	return &builder{
		group: model.IssueGroup{
			Signature:     sig,
			Type:          first.Type,
			Category:      first.Category,
			Severity:      first.Severity,
			Message:       message,
			Suggestion:    first.Suggestion,
			AffectedPages: make([]string, 0, 1),
			FirstSeen:     order,
		},
		pages: make(map[string]bool),
	}
}

func (b *builder) add(issue model.Issue) {
	b.group.IssueCount++
	if issue.Severity > b.group.Severity {
		b.group.Severity = issue.Severity
	}
	if issue.PageURL != "" && !b.pages[issue.PageURL] {
		b.pages[issue.PageURL] = true
		b.group.AffectedPages = append(b.group.AffectedPages, issue.PageURL)
	}
}

// containsVerb reports whether s holds a fmt verb.
func containsVerb(s string) bool {
	for i := 0; i < len(s)-1; i++ {
		if s[i] == '%' && s[i+1] != '%' {
			return true
		}
	}
	return false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
