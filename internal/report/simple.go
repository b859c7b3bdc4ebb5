package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/siteaudit/internal/model"
	"github.com/nao1215/siteaudit/internal/score"
)

// DefaultMaxGroups is the number of issue groups listed by default.
const DefaultMaxGroups = 15

// SimpleWriter outputs human-readable text reports for terminal display.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with nothing to list are shown.
	showEmpty bool

	// verbose lists every issue group with its affected pages.
	verbose bool

	// maxGroups caps the listed issue groups when not verbose.
	maxGroups int
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithMaxGroups sets the number of issue groups listed.
func WithMaxGroups(n int) SimpleWriterOption {
	return func(w *SimpleWriter) {
		if n > 0 {
			w.maxGroups = n
		}
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		maxGroups:  DefaultMaxGroups,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the result in human-readable format.
func (w *SimpleWriter) Write(result *model.AuditResult) (int, error) {
	var sb strings.Builder
	summary := NewSummary(result)

	w.writeHeader(&sb, summary)
	w.writeScores(&sb, summary)
	w.writeStructure(&sb, result)
	w.writeIssueGroups(&sb, result)
	w.writeWorstPages(&sb, result)
	w.writeSkipped(&sb, result)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// WriteHistory outputs the audit history of a site.
func (w *SimpleWriter) WriteHistory(history *History) (int, error) {
	var sb strings.Builder

	section(&sb, "AUDIT HISTORY: "+history.Site)
	if len(history.Entries) == 0 {
		sb.WriteString("  No audits stored\n\n")
		return w.output.Write([]byte(sb.String()))
	}

	sb.WriteString(fmt.Sprintf("  %-36s  %-16s  %6s  %-10s  %5s  %6s\n",
		"JOB", "DATE", "SCORE", "CATEGORY", "PAGES", "GROUPS"))
	for _, e := range history.Entries {
		mark := ""
		if e.Incomplete {
			mark = " *"
		}
		sb.WriteString(fmt.Sprintf("  %-36s  %-16s  %6.1f  %-10s  %5d  %6d%s\n",
			e.JobID, e.StartedAt.Format("2006-01-02 15:04"), e.Score, e.Category,
			e.PageCount, e.IssueGroups, mark))
	}
	sb.WriteString("\n")
	if history.Delta != nil {
		sb.WriteString(fmt.Sprintf("  Change since previous audit: %+.1f\n", *history.Delta))
	}
	if hasIncomplete(history) {
		sb.WriteString("  * analysis may be incomplete\n")
	}
	sb.WriteString("\n")
	return w.output.Write([]byte(sb.String()))
}

func hasIncomplete(h *History) bool {
	for _, e := range h.Entries {
		if e.Incomplete {
			return true
		}
	}
	return false
}

func section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// writeHeader writes the report header with audit information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, s *Summary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                          SITE AUDIT REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Site:           %s\n", s.Site))
	sb.WriteString(fmt.Sprintf("Job:            %s\n", s.JobID))
	sb.WriteString(fmt.Sprintf("Audit Date:     %s\n", s.Date.Format("2006-01-02 15:04:05 MST")))
	if s.Platform != "" {
		sb.WriteString(fmt.Sprintf("Platform:       %s\n", s.Platform))
	}
	sb.WriteString(fmt.Sprintf("Pages Analyzed: %d\n", s.PagesAnalyzed))
	if s.PagesSkipped > 0 {
		sb.WriteString(fmt.Sprintf("Pages Skipped:  %d\n", s.PagesSkipped))
	}

	if s.Incomplete {
		sb.WriteString("Status:         INCOMPLETE (analysis may be incomplete)\n")
		for _, reason := range s.IncompleteReasons {
			sb.WriteString(fmt.Sprintf("                - %s\n", reason))
		}
	} else {
		sb.WriteString("Status:         Complete\n")
	}
	sb.WriteString("\n")
}

// writeScores writes the score summary section.
func (w *SimpleWriter) writeScores(sb *strings.Builder, s *Summary) {
	section(sb, "SCORE SUMMARY")

	sb.WriteString(fmt.Sprintf("  OVERALL:  %5.1f / 100  (%s)\n\n", s.Score, s.Category))
	for _, a := range s.AnalyzerScores {
		sb.WriteString(fmt.Sprintf("  %-9s %5.1f\n", strings.ToUpper(a.Name)+":", a.Score))
	}
	sb.WriteString("\n")

	for _, sev := range severityOrder {
		sb.WriteString(fmt.Sprintf("  %-9s %d\n", sev.String()+":", s.Count(sev)))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  TOTAL:    %d issue groups (%d issues)\n\n", s.IssueGroups, s.Issues))
}

// writeStructure writes the discovered site structure.
func (w *SimpleWriter) writeStructure(sb *strings.Builder, result *model.AuditResult) {
	st := result.Structure
	if st.Count() == 0 && !w.showEmpty {
		return
	}
	section(sb, "SITE STRUCTURE")

	homepage, contact := st.Homepage, st.ContactPage
	if homepage == "" {
		homepage = "(not found)"
	}
	if contact == "" {
		contact = "(not found)"
	}
	sb.WriteString(fmt.Sprintf("  Homepage:      %s\n", homepage))
	sb.WriteString(fmt.Sprintf("  Contact page:  %s\n", contact))
	sb.WriteString(fmt.Sprintf("  Services:      %d\n", len(st.ServicePages)))
	sb.WriteString(fmt.Sprintf("  Locations:     %d\n", len(st.LocationPages)))
	sb.WriteString(fmt.Sprintf("  Service areas: %d\n", len(st.ServiceAreaPages)))
	sb.WriteString(fmt.Sprintf("  Other:         %d\n", len(st.OtherPages)))
	sitemap := "not found"
	if st.SitemapFound {
		sitemap = strings.Join(st.SitemapURLs, ", ")
	}
	sb.WriteString(fmt.Sprintf("  Sitemap:       %s\n\n", sitemap))
}

// writeIssueGroups writes the issue groups in priority order.
func (w *SimpleWriter) writeIssueGroups(sb *strings.Builder, result *model.AuditResult) {
	if len(result.IssueGroups) == 0 && !w.showEmpty {
		return
	}
	section(sb, "PRIORITIZED ISSUES")

	if len(result.IssueGroups) == 0 {
		sb.WriteString("  No issues found\n\n")
		return
	}

	groups := result.IssueGroups
	if !w.verbose && len(groups) > w.maxGroups {
		groups = groups[:w.maxGroups]
	}
	for i, g := range groups {
		sb.WriteString(fmt.Sprintf("%2d. [%s] %s\n", i+1, getSeverityIndicator(g.Severity), g.Message))
		sb.WriteString(fmt.Sprintf("    %s, %s, %d page(s), priority %.2f\n",
			g.Severity, g.Context, g.AffectedPageCount, g.Priority))
		if g.Suggestion != "" {
			sb.WriteString(fmt.Sprintf("    Fix: %s\n", g.Suggestion))
		}
		if w.verbose {
			for _, u := range g.AffectedPages {
				sb.WriteString(fmt.Sprintf("      - %s\n", u))
			}
		}
	}
	if rest := len(result.IssueGroups) - len(groups); rest > 0 {
		sb.WriteString(fmt.Sprintf("\n  ... %d more (use --verbose to list all)\n", rest))
	}
	sb.WriteString("\n")
}

// writeWorstPages lists the lowest scoring pages.
func (w *SimpleWriter) writeWorstPages(sb *strings.Builder, result *model.AuditResult) {
	if len(result.Pages) == 0 {
		return
	}
	section(sb, "PAGES")

	for _, p := range score.Worst(result.Pages, 10) {
		dup := ""
		if p.Duplicate {
			dup = " (duplicate)"
		}
		sb.WriteString(fmt.Sprintf("  %5.1f  %-12s %s%s\n", p.Score, p.Role, p.URL, dup))
	}
	sb.WriteString("\n")
}

// writeSkipped lists pages that were not analyzed.
func (w *SimpleWriter) writeSkipped(sb *strings.Builder, result *model.AuditResult) {
	if len(result.SkippedPages) == 0 || !(w.verbose || w.showEmpty) {
		return
	}
	section(sb, "SKIPPED PAGES")
	for _, p := range result.SkippedPages {
		sb.WriteString(fmt.Sprintf("  %s\n    %s\n", p.URL, p.Reason))
	}
	sb.WriteString("\n")
}

// getSeverityIndicator returns a visual indicator for the severity level.
func getSeverityIndicator(severity model.Severity) string {
	switch severity {
	case model.SeverityCritical:
		return "!!!"
	case model.SeverityHigh:
		return "!!"
	case model.SeverityMedium:
		return "!"
	case model.SeverityLow:
		return "-"
	case model.SeverityInfo:
		return "i"
	default:
		return "?"
	}
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by siteaudit\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
