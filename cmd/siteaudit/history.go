package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/siteaudit/internal/report"
)

// defaultHistoryLimit is the number of audits listed by default.
const defaultHistoryLimit = 10

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [url]",
		Short: "List stored audits of a site",
		Long: `History lists the stored audits of a site, most recent first, together
with the score change between the two most recent audits.

Use 'siteaudit show <job-id>' to print the full report of a listed audit.

Examples:
  # List the last audits of a site
  siteaudit history https://example.com

  # List every stored audit as JSON
  siteaudit history --limit 0 --json https://example.com`,
		Args: cobra.ExactArgs(1),
		RunE: runHistoryCmd,
	}
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of audits to list (0 for all)")
	addReportFlags(cmd)
	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	opts, err := getReportOptions(cmd)
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	db, err := openExistingDB(opts.dbDir)
	if err != nil {
		return err
	}
	defer db.Close()

	site := normalizeTarget(args[0])
	audits, err := db.ListAudits(cmd.Context(), site, limit)
	if err != nil {
		return fmt.Errorf("failed to list audits of %s: %w", site, err)
	}

	entries := make([]report.HistoryEntry, len(audits))
	for i, a := range audits {
		entries[i] = report.HistoryEntry{
			JobID:       a.JobID,
			StartedAt:   a.StartedAt,
			Score:       a.Score,
			Category:    a.Category,
			Incomplete:  a.Incomplete,
			PageCount:   a.PageCount,
			IssueGroups: a.IssueGroups,
		}
	}

	out, closeOut, err := openOutput(cmd, opts.output)
	if err != nil {
		return err
	}
	defer closeOut() //nolint:errcheck // the report is flushed by the writers

	_, err = newReportWriter(out, opts).WriteHistory(report.NewHistory(site, entries))
	return err
}
