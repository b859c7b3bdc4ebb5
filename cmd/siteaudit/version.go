package main

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X main.version=... -X main.commit=... -X main.date=...".
var (
	version = ""
	commit  = ""
	date    = ""
)

const shortCommitLen = 7

// readBuild returns the module version and VCS settings embedded by the
// go tool. The map is empty for binaries built without VCS stamping.
func readBuild() (string, map[string]string) {
	settings := map[string]string{}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", settings
	}
	for _, s := range info.Settings {
		settings[s.Key] = s.Value
	}
	return info.Main.Version, settings
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func getVersion() string {
	if version != "" {
		return version
	}
	if v, _ := readBuild(); v != "" {
		return v
	}
	return "(devel)"
}

func getCommit() string {
	if commit != "" {
		return commit
	}
	_, settings := readBuild()
	rev := settings["vcs.revision"]
	if len(rev) > shortCommitLen {
		rev = rev[:shortCommitLen]
	}
	return orUnknown(rev)
}

func getDate() string {
	if date != "" {
		return date
	}
	_, settings := readBuild()
	return orUnknown(settings["vcs.time"])
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the siteaudit release, the commit it was built from, the build time and the Go runtime.`,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "siteaudit version %s\n", getVersion())
			fmt.Fprintf(out, "  commit: %s\n", getCommit())
			fmt.Fprintf(out, "  built:  %s\n", getDate())
			fmt.Fprintf(out, "  go:     %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
