package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewShowCmd creates the show command.
func NewShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [job-id]",
		Short: "Print a stored audit report",
		Long: `Show loads an audit result from the database and prints its report.

The job ID is printed in every report and listed by 'siteaudit history'.

Examples:
  # Print a stored report
  siteaudit show 6f1c2a9e-3b7d-4e43-9a51-0c2f6f0e8d11

  # Export it as JSON
  siteaudit show --json -o audit.json 6f1c2a9e-3b7d-4e43-9a51-0c2f6f0e8d11`,
		Args: cobra.ExactArgs(1),
		RunE: runShowCmd,
	}
	addReportFlags(cmd)
	return cmd
}

// runShowCmd executes the show command.
func runShowCmd(cmd *cobra.Command, args []string) error {
	opts, err := getReportOptions(cmd)
	if err != nil {
		return err
	}

	db, err := openExistingDB(opts.dbDir)
	if err != nil {
		return err
	}
	defer db.Close()

	result, err := db.GetAuditResult(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to load audit %s: %w", args[0], err)
	}
	if result == nil {
		return fmt.Errorf("no audit with job ID %s", args[0])
	}

	out, closeOut, err := openOutput(cmd, opts.output)
	if err != nil {
		return err
	}
	defer closeOut() //nolint:errcheck // the report is flushed by the writers

	_, err = newReportWriter(out, opts).Write(result)
	return err
}
