// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/nanoservicesforge/nanoforge/internal/app/fixpoint"
	"github.com/nanoservicesforge/nanoforge/internal/issue"

	"github.com/spf13/cobra"
)

func newPrepCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "prep",
		Short: "Fetch all nanoservices and rewrite manifests to use them",
		Long: `Fetch all nanoservices and rewrite manifests to use them.

The cache is wiped first. Every manifest in the workspace is scanned, the
images its nanoservice declarations name are fetched and unpacked, and the
manifest is rewritten with path dependencies into the cache. Manifests found
inside fetched nanoservices are processed the same way until nothing new
appears.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd.Context(), app, fixpoint.ModePrep)
		},
	}
}

func newInstallCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Fetch all nanoservices without touching manifests",
		Long: `Fetch all nanoservices without touching manifests.

Runs the same resolution as prep, including the cache wipe, but never writes
a manifest. Use config afterwards to point the manifests at the cache.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd.Context(), app, fixpoint.ModeInstall)
		},
	}
}

// runResolve runs the fixpoint in mode and prints a one-line summary.
func runResolve(ctx context.Context, app *App, mode fixpoint.Mode) error {
	sess, err := app.newSession(ctx, mode != fixpoint.ModeConfig)
	if err != nil {
		return app.report(err, app.flags.verbose)
	}

	result, err := sess.orch.Run(ctx, mode)
	if err != nil {
		return app.report(err, sess.verbose)
	}

	sess.logger.Debug("resolution finished", "mode", mode, "passes", result.Passes)
	if len(result.Manifests) == 0 {
		fmt.Fprintf(app.stderr, "%s no %s found under %s\n", WarningStyle.Render("Warning:"), sess.cfg.ManifestName, sess.root)
		if sess.verbose {
			renderIssue(app.stderr, issue.ManifestNotFoundId)
		}
	}
	fmt.Fprintf(app.stdout, "%s %s: %d manifest(s) in %d pass(es), %d nanoservice(s) fetched\n",
		SuccessStyle.Render("✓"), mode, len(result.Manifests), result.Passes, len(result.Fetched))
	if sess.verbose {
		for _, id := range result.Fetched {
			fmt.Fprintf(app.stdout, "  %s %s\n", SubtitleStyle.Render("fetched"), CmdStyle.Render(string(id)))
		}
	}
	return nil
}
