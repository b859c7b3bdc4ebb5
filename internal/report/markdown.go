package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/siteaudit/internal/model"
	"github.com/nao1215/siteaudit/internal/score"
)

// MarkdownWriter outputs results in Markdown format for documentation and
// sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the result in Markdown format.
func (w *MarkdownWriter) Write(result *model.AuditResult) (int, error) {
	md := markdown.NewMarkdown(w.output)
	summary := NewSummary(result)

	w.writeHeader(md, summary)
	w.writeScores(md, summary)
	w.writeIssueGroups(md, result)
	w.writePages(md, result)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteHistory outputs the audit history in Markdown format.
func (w *MarkdownWriter) WriteHistory(history *History) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Audit History")
	md.PlainText("")
	md.PlainTextf("Site: `%s`", history.Site)
	md.PlainText("")

	if len(history.Entries) == 0 {
		md.PlainText("No audits stored.")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, len(history.Entries))
	for i, e := range history.Entries {
		status := "complete"
		if e.Incomplete {
			status = "incomplete"
		}
		rows[i] = []string{
			"`" + e.JobID + "`",
			e.StartedAt.Format("2006-01-02 15:04"),
			strconv.FormatFloat(e.Score, 'f', 1, 64),
			string(e.Category),
			strconv.Itoa(e.PageCount),
			strconv.Itoa(e.IssueGroups),
			status,
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Job", "Date", "Score", "Category", "Pages", "Issue Groups", "Status"},
		Rows:   rows,
	})
	md.PlainText("")

	if history.Delta != nil {
		md.PlainTextf("Change since previous audit: **%+.1f**", *history.Delta)
	}
	return len(md.String()), md.Build()
}

// writeHeader writes the report header with audit information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *Summary) {
	md.H1("Site Audit Report")
	md.PlainText("")

	rows := [][]string{
		{"Site", "`" + s.Site + "`"},
		{"Job", "`" + s.JobID + "`"},
		{"Audit Date", s.Date.Format("2006-01-02 15:04:05 MST")},
		{"Pages Analyzed", strconv.Itoa(s.PagesAnalyzed)},
		{"Pages Skipped", strconv.Itoa(s.PagesSkipped)},
		{"Status", statusText(s)},
	}
	if s.Platform != "" {
		rows = append(rows, []string{"Platform", s.Platform})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	if s.Incomplete {
		md.Warningf("Analysis may be incomplete: %s.", strings.Join(s.IncompleteReasons, "; "))
		md.PlainText("")
	}
}

func statusText(s *Summary) string {
	if s.Incomplete {
		return "⚠️ Incomplete"
	}
	return "✅ Complete"
}

// writeScores writes the score and severity summary.
func (w *MarkdownWriter) writeScores(md *markdown.Markdown, s *Summary) {
	md.H2("Scores")
	md.PlainText("")

	rows := [][]string{{"**Overall**", "**" + strconv.FormatFloat(s.Score, 'f', 1, 64) + "**", string(s.Category)}}
	for _, a := range s.AnalyzerScores {
		rows = append(rows, []string{a.Name, strconv.FormatFloat(a.Score, 'f', 1, 64), string(model.CategoryFor(a.Score))})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Analyzer", "Score", "Category"},
		Rows:   rows,
	})
	md.PlainText("")

	md.H2("Severity Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Issue Groups"},
		Rows: [][]string{
			{"🔴 Critical", strconv.Itoa(s.Count(model.SeverityCritical))},
			{"🟠 High", strconv.Itoa(s.Count(model.SeverityHigh))},
			{"🟡 Medium", strconv.Itoa(s.Count(model.SeverityMedium))},
			{"🔵 Low", strconv.Itoa(s.Count(model.SeverityLow))},
			{"⚪ Info", strconv.Itoa(s.Count(model.SeverityInfo))},
			{"**Total**", "**" + strconv.Itoa(s.IssueGroups) + "**"},
		},
	})
	md.PlainText("")

	if s.IssueGroups > 0 {
		w.writePieChart(md, s)
	}
	w.writeAlert(md, s)
}

// writePieChart writes a mermaid pie chart of the severity distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s *Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Issue Severity Distribution"),
		piechart.WithShowData(true),
	)
	for _, sev := range severityOrder {
		if n := s.Count(sev); n > 0 {
			chart.LabelAndIntValue(sev.String(), uint64(n))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert matching the overall state of the site.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s *Summary) {
	switch {
	case s.Count(model.SeverityCritical) > 0:
		md.Cautionf("%d critical issue group(s) keep pages out of search results.", s.Count(model.SeverityCritical))
	case s.Count(model.SeverityHigh) > 0:
		md.Warningf("%d high severity issue group(s) should be fixed first.", s.Count(model.SeverityHigh))
	case s.Category == model.ScoreExcellent:
		md.Tip("The site is in excellent shape.")
	case s.IssueGroups > 0:
		md.Note("Only medium and low severity issues found.")
	default:
		md.Tip("No issues found.")
	}
	md.PlainText("")
}

// writeIssueGroups writes the issue groups per severity.
func (w *MarkdownWriter) writeIssueGroups(md *markdown.Markdown, result *model.AuditResult) {
	md.H2("Prioritized Issues")
	md.PlainText("")

	if len(result.IssueGroups) == 0 {
		md.PlainText("No issues found.")
		md.PlainText("")
		return
	}

	headers := map[model.Severity]string{
		model.SeverityCritical: "### 🔴 Critical",
		model.SeverityHigh:     "### 🟠 High",
		model.SeverityMedium:   "### 🟡 Medium",
		model.SeverityLow:      "### 🔵 Low",
		model.SeverityInfo:     "### ⚪ Info",
	}
	for _, sev := range severityOrder {
		groups := groupsBySeverity(result, sev)
		if len(groups) == 0 {
			continue
		}
		md.PlainText(headers[sev])
		md.PlainText("")
		w.writeGroupTable(md, groups)
	}
}

// writeGroupTable writes a table of issue groups with their affected pages.
func (w *MarkdownWriter) writeGroupTable(md *markdown.Markdown, groups []model.IssueGroup) {
	rows := make([][]string, len(groups))
	for i, g := range groups {
		suggestion := g.Suggestion
		if suggestion == "" {
			suggestion = "-"
		}
		rows[i] = []string{
			truncateString(g.Message, 70),
			strconv.Itoa(g.AffectedPageCount),
			string(g.Context),
			strconv.FormatFloat(g.Priority, 'f', 2, 64),
			truncateString(suggestion, 70),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Issue", "Pages", "Context", "Priority", "Fix"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, g := range groups {
		md.Details(truncateString(g.Message, 70), g.Context.Description()+"\n\n- "+strings.Join(g.AffectedPages, "\n- "))
	}
	md.PlainText("")
}

// writePages writes the lowest scoring pages and the skipped pages.
func (w *MarkdownWriter) writePages(md *markdown.Markdown, result *model.AuditResult) {
	if len(result.Pages) > 0 {
		md.H2("Lowest Scoring Pages")
		md.PlainText("")
		worst := score.Worst(result.Pages, 10)
		rows := make([][]string, len(worst))
		for i, p := range worst {
			rows[i] = []string{p.URL, string(p.Role), strconv.FormatFloat(p.Score, 'f', 1, 64), string(p.Category)}
		}
		md.Table(markdown.TableSet{
			Header: []string{"URL", "Role", "Score", "Category"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if len(result.SkippedPages) > 0 {
		md.H2("Skipped Pages")
		md.PlainText("")
		items := make([]string, len(result.SkippedPages))
		for i, p := range result.SkippedPages {
			items[i] = p.URL + ": " + p.Reason
		}
		md.BulletList(items...)
		md.PlainText("")
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by siteaudit*")
}
