package cli

import (
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	version string // semantic version (e.g., "v1.2.3")
	commit  string // git commit SHA
	date    string // build timestamp
)

// SetVersion sets the version information displayed by --version.
// Typically called by the main package with values injected via ldflags.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// RootCommand builds the depsentry command tree. The logger is attached
// to the command context and accessible to all commands via
// loggerFromContext.
func RootCommand() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:          "depsentry",
		Short:        "DepSentry scans project dependencies for known vulnerabilities",
		Long:         `DepSentry extracts the dependency closure of a project from its manifest and lock files, cross-references every package against the OSV and GitHub advisory databases, and reports the merged advisory set.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("depsentry %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newScanCmd())
	root.AddCommand(newManifestsCmd())

	return root
}
