// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nanoservicesforge/nanoforge/internal/app/fixpoint"
	"github.com/nanoservicesforge/nanoforge/internal/artifact"
	"github.com/nanoservicesforge/nanoforge/internal/cache"
	"github.com/nanoservicesforge/nanoforge/internal/config"
	"github.com/nanoservicesforge/nanoforge/internal/container"
	"github.com/nanoservicesforge/nanoforge/internal/issue"

	"github.com/charmbracelet/log"
)

type (
	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// EngineFactory returns the artifact source backed by the named container
	// engine. Engine progress output goes to progress.
	EngineFactory func(engine config.ContainerEngine, progress io.Writer) (artifact.Source, error)

	// App wires CLI services and shared dependencies. All command handlers
	// receive an App and reach configuration and engines through it.
	App struct {
		Config  ConfigProvider
		Engines EngineFactory
		stdout  io.Writer
		stderr  io.Writer
		flags   globalFlags
	}

	// Dependencies defines the injection points for building an App. Nil fields
	// are replaced with production defaults by NewApp.
	Dependencies struct {
		Config  ConfigProvider
		Engines EngineFactory
		Stdout  io.Writer
		Stderr  io.Writer
	}

	// globalFlags holds the persistent flag values of the root command.
	globalFlags struct {
		verbose    bool
		configPath string
		workdir    string
		engine     string
		parallel   int
	}

	// versionedSource is an artifact source that can report its engine
	// version; container.Engine implementations do.
	versionedSource interface {
		Version(ctx context.Context) (string, error)
	}

	// session is the per-command state derived from configuration and flags.
	session struct {
		cfg     *config.Config
		root    string
		verbose bool
		logger  *log.Logger
		orch    *fixpoint.Orchestrator
	}
)

// NewApp creates an App, filling nil dependencies with production defaults.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config:  deps.Config,
		Engines: deps.Engines,
		stdout:  deps.Stdout,
		stderr:  deps.Stderr,
	}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.Engines == nil {
		app.Engines = newContainerSource
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	return app
}

// newContainerSource selects a docker or podman engine, falling back to the
// other one when the preferred engine is not installed.
func newContainerSource(engine config.ContainerEngine, progress io.Writer) (artifact.Source, error) {
	return container.NewEngine(container.EngineType(engine), container.WithProgress(progress))
}

// newSession loads configuration, applies flag overrides, and builds the
// orchestrator. The container engine is only resolved when withEngine is set,
// so commands that never fetch work without docker or podman installed.
func (a *App) newSession(ctx context.Context, withEngine bool) (*session, error) {
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	root, err := a.workingRoot()
	if err != nil {
		return nil, err
	}

	verbose := a.flags.verbose || cfg.UI.Verbose
	logger := newLogger(a.stderr, verbose)
	layout := cache.NewLayout(root, cfg.Cache.Dir)
	if err := layout.CheckWorkspace(root); err != nil {
		return nil, err
	}

	orch := &fixpoint.Orchestrator{
		Layout:       layout,
		Logger:       logger,
		WorkingRoot:  root,
		ManifestName: cfg.ManifestName,
		Parallelism:  cfg.Fetch.Parallelism,
	}
	engineVersion := "-"
	if withEngine {
		source, err := a.Engines(cfg.ContainerEngine, a.stderr)
		if err != nil {
			return nil, err
		}
		orch.Fetcher = artifact.NewFetcher(layout, source, artifact.WithLogger(logger))
		if v, ok := source.(versionedSource); ok && verbose {
			if engineVersion, err = v.Version(ctx); err != nil {
				logger.Debug("engine version unavailable", "err", err)
				engineVersion = "unknown"
			}
		}
	}

	logger.Debug("session ready", "root", root, "cache", layout.Root, "engine", cfg.ContainerEngine,
		"engine_version", engineVersion, "parallelism", cfg.Fetch.Parallelism)

	return &session{cfg: cfg, root: root, verbose: verbose, logger: logger, orch: orch}, nil
}

// applyFlags overlays the --engine and --parallel flags on cfg and revalidates it.
func (a *App) applyFlags(cfg *config.Config) error {
	if a.flags.engine != "" {
		cfg.ContainerEngine = config.ContainerEngine(a.flags.engine)
	}
	if a.flags.parallel != 0 {
		cfg.Fetch.Parallelism = a.flags.parallel
	}
	if ok, errs := cfg.IsValid(); !ok {
		return issue.NewErrorContext().
			WithOperation("apply command-line flags").
			WithSuggestion("Use --engine docker or --engine podman").
			WithSuggestion(fmt.Sprintf("Use a --parallel value between 1 and %d", config.MaxParallelism)).
			Wrap(errs[0]).
			BuildError()
	}
	return nil
}

// workingRoot returns the absolute --workdir, or the current directory.
func (a *App) workingRoot() (string, error) {
	dir := a.flags.workdir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve working directory %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", issue.NewErrorContext().
			WithOperation("open working directory").
			WithResource(abs).
			WithSuggestion("Pass an existing directory with --workdir").
			Wrap(err).
			BuildError()
	}
	if !info.IsDir() {
		return "", issue.NewErrorContext().
			WithOperation("open working directory").
			WithResource(abs).
			Wrap(fmt.Errorf("not a directory")).
			BuildError()
	}
	return abs, nil
}

func newLogger(w io.Writer, verbose bool) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{Prefix: config.AppName})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// displayPath renders path relative to root when possible.
func displayPath(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}
