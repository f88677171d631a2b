// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/nanoservicesforge/nanoforge/internal/app/fixpoint"
	"github.com/nanoservicesforge/nanoforge/internal/config"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `nanoforge config` command tree. Without a
// subcommand it rewrites manifests from the existing cache.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Rewrite manifests from the existing cache",
		Long: `Rewrite manifests from the existing cache.

Runs resolution without fetching and without wiping the cache: manifests are
rewritten to point at nanoservices already unpacked by install or pull.

The show and path subcommands inspect nanoforge's own configuration, stored in:
  - Linux: ~/.config/nanoforge/nanoforge.cue
  - macOS: ~/Library/Application Support/nanoforge/nanoforge.cue
  - Windows: %APPDATA%\nanoforge\nanoforge.cue
or in nanoforge.cue in the current directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd.Context(), app, fixpoint.ModeConfig)
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context(), app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigPath(cmd.Context(), app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return app.report(err, app.flags.verbose)
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	return cfgCmd
}

// loadConfig loads configuration and applies flag overrides.
func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{
		ConfigFilePath: a.flags.configPath,
		WorkingDir:     a.flags.workdir,
	})
	if err != nil {
		return nil, err
	}
	if err := a.applyFlags(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func showConfig(ctx context.Context, app *App) error {
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return app.report(err, app.flags.verbose)
	}

	keyStyle := CmdStyle
	valueStyle := SuccessStyle
	w := app.stdout

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)

	if cfg.Path != "" {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), cfg.Path)
	} else {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("container_engine"), valueStyle.Render(string(cfg.ContainerEngine)))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("manifest_name"), valueStyle.Render(cfg.ManifestName))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("cache"))
	fmt.Fprintf(w, "  dir: %s\n", valueStyle.Render(cfg.Cache.Dir))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("fetch"))
	fmt.Fprintf(w, "  parallelism: %s\n", valueStyle.Render(strconv.Itoa(cfg.Fetch.Parallelism)))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("scaffold"))
	fmt.Fprintf(w, "  template_url: %s\n", valueStyle.Render(cfg.Scaffold.TemplateURL))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("graph"))
	fmt.Fprintf(w, "  output: %s\n", valueStyle.Render(cfg.Graph.Output))
	fmt.Fprintf(w, "  format: %s\n", valueStyle.Render(string(cfg.Graph.Format)))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("ui"))
	fmt.Fprintf(w, "  verbose: %s\n", valueStyle.Render(strconv.FormatBool(cfg.UI.Verbose)))

	return nil
}

func showConfigPath(ctx context.Context, app *App) error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return app.report(err, app.flags.verbose)
	}
	fileName := config.ConfigFileName + "." + config.ConfigFileExt

	fmt.Fprintf(app.stdout, "Config directory: %s\n", cfgDir)
	fmt.Fprintf(app.stdout, "Config file: %s\n", filepath.Join(cfgDir, fileName))

	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return app.report(err, app.flags.verbose)
	}
	if cfg.Path != "" {
		fmt.Fprintf(app.stdout, "Loaded from: %s\n", cfg.Path)
	} else {
		fmt.Fprintf(app.stdout, "Loaded from: %s\n", SubtitleStyle.Render("(defaults, no file found)"))
	}
	return nil
}
