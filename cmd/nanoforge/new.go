// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/nanoservicesforge/nanoforge/internal/scaffold"

	"github.com/spf13/cobra"
)

func newNewCommand(app *App) *cobra.Command {
	var template string

	newCmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Create a nanoservice from the template",
		Long: `Create a nanoservice from the template.

Clones the configured template repository into a new directory named after
the nanoservice, under the workspace root, and removes its git history.`,
		Example: "  nanoforge new billing\n  nanoforge new billing --template https://example.com/acme/template.git",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := app.loadConfig(ctx)
			if err != nil {
				return app.report(err, app.flags.verbose)
			}
			verbose := app.flags.verbose || cfg.UI.Verbose
			root, err := app.workingRoot()
			if err != nil {
				return app.report(err, verbose)
			}

			url := template
			if url == "" {
				url = cfg.Scaffold.TemplateURL
			}
			newLogger(app.stderr, verbose).Debug("cloning template", "url", url, "name", args[0])

			dir, err := scaffold.New(ctx, scaffold.Options{
				Name:        args[0],
				Dir:         root,
				TemplateURL: url,
			})
			if err != nil {
				return app.report(err, verbose)
			}

			fmt.Fprintf(app.stdout, "%s created nanoservice %s in %s\n",
				SuccessStyle.Render("✓"), CmdStyle.Render(args[0]), displayPath(root, dir))
			return nil
		},
	}

	newCmd.Flags().StringVar(&template, "template", "", "template repository URL (default from config)")

	return newCmd
}
