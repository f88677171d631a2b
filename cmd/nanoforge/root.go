// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/nanoservicesforge/nanoforge/internal/issue"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the nanoforge command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "nanoforge",
		Short: "Resolve nanoservice dependencies shipped in container images",
		Long: TitleStyle.Render("nanoforge") + SubtitleStyle.Render(" - nanoservice dependency resolver") + `

nanoforge scans a workspace for Cargo.toml manifests, fetches the container
images their nanoservice declarations name, unpacks them into a local cache,
and rewrites each manifest so Cargo builds against the unpacked sources.
Fetched nanoservices may declare nanoservices of their own; resolution repeats
until no new manifest appears.

` + SubtitleStyle.Render("Examples:") + `
  nanoforge prep                   Fetch everything and rewrite manifests
  nanoforge install                Fetch everything, leave manifests alone
  nanoforge config                 Rewrite manifests from the existing cache
  nanoforge pull org/auth:latest   Fetch a single image
  nanoforge graph                  Write the dependency graph as DOT
  nanoforge new billing            Create a nanoservice from the template
  nanoforge watch --mode config    Rewrite manifests whenever one changes`,
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&app.flags.verbose, "verbose", "v", false, "enable verbose output")
	flags.StringVar(&app.flags.configPath, "config", "", "config file (default is <config dir>/nanoforge/nanoforge.cue)")
	flags.StringVarP(&app.flags.workdir, "workdir", "C", "", "workspace root (default is the current directory)")
	flags.StringVar(&app.flags.engine, "engine", "", "container engine: docker or podman (overrides config)")
	flags.IntVar(&app.flags.parallel, "parallel", 0, "maximum concurrent fetches per pass (overrides config)")

	rootCmd.AddCommand(newPrepCommand(app))
	rootCmd.AddCommand(newInstallCommand(app))
	rootCmd.AddCommand(newConfigCommand(app))
	rootCmd.AddCommand(newPullCommand(app))
	rootCmd.AddCommand(newGraphCommand(app))
	rootCmd.AddCommand(newNewCommand(app))
	rootCmd.AddCommand(newWatchCommand(app))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute builds the production App and runs the command tree.
// This is called by main.main().
func Execute() {
	rootCmd := NewRootCommand(NewApp(Dependencies{}))
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
