// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/nanoservicesforge/nanoforge/internal/app/fixpoint"
	"github.com/nanoservicesforge/nanoforge/internal/watch"

	"github.com/spf13/cobra"
)

func newWatchCommand(app *App) *cobra.Command {
	var (
		mode     string
		debounce time.Duration
	)

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-resolve whenever a manifest changes",
		Long: `Re-resolve whenever a manifest changes.

Runs resolution once, then watches every manifest in the workspace and runs
it again after one of them changes. The cache directory and Cargo build
output are not watched, and rewrites that leave a manifest byte-identical do
not count as changes. Stop with Ctrl+C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			m := fixpoint.Mode(mode)
			if ok, errs := m.IsValid(); !ok {
				return app.report(errs[0], app.flags.verbose)
			}

			sess, err := app.newSession(ctx, m != fixpoint.ModeConfig)
			if err != nil {
				return app.report(err, app.flags.verbose)
			}

			resolve := func(ctx context.Context) error {
				result, err := sess.orch.Run(ctx, m)
				if err != nil {
					fmt.Fprintln(app.stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, sess.verbose))
					return err
				}
				fmt.Fprintf(app.stdout, "%s %s: %d manifest(s) in %d pass(es), %d nanoservice(s) fetched\n",
					SuccessStyle.Render("✓"), m, len(result.Manifests), result.Passes, len(result.Fetched))
				return nil
			}

			// A failed first run is reported, but watching continues so the
			// user can fix the manifest.
			_ = resolve(ctx)

			w, err := watch.New(watch.Config{
				BaseDir:  sess.root,
				Patterns: []string{"**/" + sess.cfg.ManifestName},
				Ignore:   cacheIgnores(sess.root, sess.orch.Layout.Root),
				Debounce: debounce,
				Logger:   sess.logger,
				OnChange: func(ctx context.Context, _ []string) error {
					return resolve(ctx)
				},
			})
			if err != nil {
				return app.report(err, sess.verbose)
			}

			fmt.Fprintf(app.stdout, "%s watching %s for manifest changes\n", SubtitleStyle.Render("…"), CmdStyle.Render(sess.root))
			return app.report(w.Run(ctx), sess.verbose)
		},
	}

	watchCmd.Flags().StringVar(&mode, "mode", string(fixpoint.ModePrep), "resolution to run on change: prep, install or config")
	watchCmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "quiet period before re-running")

	return watchCmd
}

// cacheIgnores returns the watch ignore pattern for a cache inside root.
func cacheIgnores(root, cacheRoot string) []string {
	rel, err := filepath.Rel(root, cacheRoot)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil
	}
	return []string{filepath.ToSlash(rel) + "/**"}
}
