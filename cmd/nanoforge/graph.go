// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nanoservicesforge/nanoforge/internal/config"
	"github.com/nanoservicesforge/nanoforge/internal/dag"
	"github.com/nanoservicesforge/nanoforge/internal/issue"

	"github.com/spf13/cobra"
)

// stdoutPath selects standard output as the graph destination.
const stdoutPath = "-"

func newGraphCommand(app *App) *cobra.Command {
	var (
		format string
		output string
	)

	graphCmd := &cobra.Command{
		Use:   "graph",
		Short: "Render the nanoservice dependency graph",
		Long: `Render the nanoservice dependency graph.

Scans the workspace and the cache and links every manifest to the
nanoservices it declares, and every declaration to the image that provides
it. The graph is written as Graphviz DOT (render it with "dot -Tpng") or as
YAML. Without --output it goes to the configured graph.output file, or to
standard output when --format is given explicitly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := app.newSession(ctx, false)
			if err != nil {
				return app.report(err, app.flags.verbose)
			}

			f := config.GraphFormat(format)
			if f == "" {
				f = sess.cfg.Graph.Format
			}
			if ok, errs := f.IsValid(); !ok {
				return app.report(errs[0], sess.verbose)
			}

			g, err := sess.orch.Graph(ctx)
			if err != nil {
				return app.report(err, sess.verbose)
			}
			order, err := g.TopologicalSort()
			if err != nil {
				return app.report(issue.NewErrorContext().
					WithOperation("order dependency graph").
					WithIssue(issue.DependencyCycleId).
					WithSuggestion("Remove one of the declarations on the reported cycle").
					Wrap(err).
					BuildError(), sess.verbose)
			}

			data, err := renderGraph(g, f)
			if err != nil {
				return app.report(err, sess.verbose)
			}

			dest := output
			if dest == "" {
				dest = sess.cfg.Graph.Output
				if cmd.Flags().Changed("format") {
					dest = stdoutPath
				}
			}
			if dest == stdoutPath {
				_, err := app.stdout.Write(data)
				return err
			}
			if !filepath.IsAbs(dest) {
				dest = filepath.Join(sess.root, dest)
			}
			if err := os.WriteFile(dest, data, 0o644); err != nil {
				return app.report(issue.NewErrorContext().
					WithOperation("write dependency graph").
					WithResource(dest).
					WithSuggestion("Choose another location with --output").
					Wrap(err).
					BuildError(), sess.verbose)
			}

			fmt.Fprintf(app.stdout, "%s dependency graph written to %s (%d nodes, %d edges)\n",
				SuccessStyle.Render("✓"), CmdStyle.Render(displayPath(sess.root, dest)), len(g.Nodes()), len(g.Edges()))
			if sess.verbose {
				fmt.Fprintln(app.stdout, SubtitleStyle.Render("Build order:"))
				for i, name := range order {
					fmt.Fprintf(app.stdout, "  %d. %s\n", i+1, name)
				}
			}
			return nil
		},
	}

	graphCmd.Flags().StringVar(&format, "format", "", "output format: dot or yaml (default from config)")
	graphCmd.Flags().StringVarP(&output, "output", "o", "", `output file, "-" for standard output (default from config)`)

	return graphCmd
}

func renderGraph(g *dag.Graph, format config.GraphFormat) ([]byte, error) {
	if format == config.GraphFormatYAML {
		return g.Export()
	}
	return []byte(g.DOT()), nil
}
