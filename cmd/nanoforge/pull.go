// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/nanoservicesforge/nanoforge/pkg/manifest"

	"github.com/spf13/cobra"
)

func newPullCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "pull <image>",
		Short: "Fetch a single nanoservice into the cache",
		Long: `Fetch a single nanoservice into the cache.

The image is pulled, saved and unpacked exactly as prep would, without wiping
the cache and without touching any manifest.`,
		Example: "  nanoforge pull ghcr.io/acme/auth:1.2.0",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := app.newSession(ctx, true)
			if err != nil {
				return app.report(err, app.flags.verbose)
			}

			dir, err := sess.orch.PullOne(ctx, manifest.ArtifactID(args[0]))
			if err != nil {
				return app.report(err, sess.verbose)
			}

			fmt.Fprintf(app.stdout, "%s %s unpacked to %s\n",
				SuccessStyle.Render("✓"), CmdStyle.Render(args[0]), displayPath(sess.root, dir))
			return nil
		},
	}
}
