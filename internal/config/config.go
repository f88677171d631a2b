// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
	"mvdan.cc/sh/v3/shell"

	"github.com/nanoservicesforge/nanoforge/internal/issue"
)

const (
	// AppName is the application name.
	AppName = "nanoforge"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "nanoforge"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment variable overrides.
	EnvPrefix = "NANOFORGE"

	defaultManifestName = "Cargo.toml"
	defaultCacheDir     = ".nanoservices_cache"
	defaultTemplateURL  = "https://github.com/nanoservicesforge/nanoservice-template.git"
	defaultGraphOutput  = "nanoserve_dep_graph.dot"
)

//go:embed config_schema.cue
var configSchema string

// DefaultConfig returns the configuration used when no file or environment
// variable overrides a value.
func DefaultConfig() *Config {
	return &Config{
		ContainerEngine: ContainerEngineDocker,
		ManifestName:    defaultManifestName,
		Cache:           CacheConfig{Dir: defaultCacheDir},
		Fetch:           FetchConfig{Parallelism: 1},
		Scaffold:        ScaffoldConfig{TemplateURL: defaultTemplateURL},
		Graph:           GraphConfig{Output: defaultGraphOutput, Format: GraphFormatDOT},
	}
}

// ConfigDir returns the nanoforge configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// loadWithOptions builds a Config from defaults, the first config file found,
// and NANOFORGE_* environment variables, in increasing precedence.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("container_engine", defaults.ContainerEngine)
	v.SetDefault("manifest_name", defaults.ManifestName)
	v.SetDefault("cache.dir", defaults.Cache.Dir)
	v.SetDefault("fetch.parallelism", defaults.Fetch.Parallelism)
	v.SetDefault("scaffold.template_url", defaults.Scaffold.TemplateURL)
	v.SetDefault("graph.output", defaults.Graph.Output)
	v.SetDefault("graph.format", defaults.Graph.Format)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path, err := resolveConfigFile(opts)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithIssue(issue.ConfigLoadFailedId).
				WithResource(path).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("Use 'nanoforge config show' to see the effective configuration").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Path = path

	if cfg.Cache.Dir, err = expand(cfg.Cache.Dir); err != nil {
		return nil, fmt.Errorf("expand cache.dir: %w", err)
	}
	if cfg.Graph.Output, err = expand(cfg.Graph.Output); err != nil {
		return nil, fmt.Errorf("expand graph.output: %w", err)
	}

	if valid, errs := cfg.IsValid(); !valid {
		return nil, issue.NewErrorContext().
			WithOperation("validate configuration").
			WithIssue(issue.ConfigLoadFailedId).
			WithResource(path).
			WithSuggestion("Check NANOFORGE_* environment variables for typos").
			WithSuggestion("Valid container engines are docker and podman").
			Wrap(errs[0]).
			BuildError()
	}
	return &cfg, nil
}

// resolveConfigFile returns the config file to load, or "" when none exists.
// An explicit path must exist; otherwise the config directory is tried before
// the working directory.
func resolveConfigFile(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithIssue(issue.ConfigLoadFailedId).
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Check that the file exists and is readable").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}

	cfgDir := opts.ConfigDirPath
	if cfgDir == "" {
		dir, err := ConfigDir()
		if err != nil {
			return "", err
		}
		cfgDir = dir
	}

	name := ConfigFileName + "." + ConfigFileExt
	for _, candidate := range []string{filepath.Join(cfgDir, name), filepath.Join(opts.WorkingDir, name)} {
		if fileExists(candidate) {
			return candidate, nil
		}
	}
	return "", nil
}

// loadCUEIntoViper validates a CUE file against #Config and merges it into v.
// Fields are optional, so values are decoded without requiring concreteness.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	values, err := decodeConfigFile(path, data)
	if err != nil {
		return err
	}

	// Merge into Viper (preserves defaults, allows env overrides)
	if err := v.MergeConfigMap(values); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// expand resolves $VAR and ${VAR} references in s.
func expand(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	out, err := shell.Expand(s, os.Getenv)
	if err != nil {
		return "", err
	}
	return out, nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// GenerateCUE renders cfg in the config file format.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// nanoforge configuration\n\n")
	fmt.Fprintf(&sb, "container_engine: %q\n", cfg.ContainerEngine)
	fmt.Fprintf(&sb, "manifest_name: %q\n", cfg.ManifestName)

	sb.WriteString("\ncache: {\n")
	fmt.Fprintf(&sb, "\tdir: %q\n", cfg.Cache.Dir)
	sb.WriteString("}\n")

	sb.WriteString("\nfetch: {\n")
	fmt.Fprintf(&sb, "\tparallelism: %d\n", cfg.Fetch.Parallelism)
	sb.WriteString("}\n")

	sb.WriteString("\nscaffold: {\n")
	fmt.Fprintf(&sb, "\ttemplate_url: %q\n", cfg.Scaffold.TemplateURL)
	sb.WriteString("}\n")

	sb.WriteString("\ngraph: {\n")
	fmt.Fprintf(&sb, "\toutput: %q\n", cfg.Graph.Output)
	fmt.Fprintf(&sb, "\tformat: %q\n", cfg.Graph.Format)
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	return sb.String()
}
