// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// ContainerEnginePodman uses Podman to pull and save images.
	ContainerEnginePodman ContainerEngine = "podman"
	// ContainerEngineDocker uses Docker to pull and save images.
	ContainerEngineDocker ContainerEngine = "docker"

	// GraphFormatDOT renders the dependency graph as Graphviz DOT.
	GraphFormatDOT GraphFormat = "dot"
	// GraphFormatYAML renders the dependency graph as a YAML node/edge list.
	GraphFormatYAML GraphFormat = "yaml"

	// MaxParallelism bounds fetch.parallelism.
	MaxParallelism = 64
)

var (
	// ErrInvalidContainerEngine is returned when a ContainerEngine value is not recognized.
	ErrInvalidContainerEngine = errors.New("invalid container engine")
	// ErrInvalidGraphFormat is returned when a GraphFormat value is not recognized.
	ErrInvalidGraphFormat = errors.New("invalid graph format")
	// ErrInvalidManifestName is returned when manifest_name is empty or contains a path separator.
	ErrInvalidManifestName = errors.New("invalid manifest name")
	// ErrInvalidParallelism is returned when fetch.parallelism is out of range.
	ErrInvalidParallelism = errors.New("invalid fetch parallelism")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ContainerEngine specifies which container CLI fetches artifacts.
	ContainerEngine string

	// InvalidContainerEngineError is returned when a ContainerEngine value is not recognized.
	// It wraps ErrInvalidContainerEngine for errors.Is() compatibility.
	InvalidContainerEngineError struct {
		Value ContainerEngine
	}

	// GraphFormat selects the rendering of `nanoforge graph`.
	GraphFormat string

	// InvalidGraphFormatError is returned when a GraphFormat value is not recognized.
	InvalidGraphFormatError struct {
		Value GraphFormat
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// ContainerEngine specifies whether to use "docker" or "podman".
		ContainerEngine ContainerEngine `json:"container_engine" mapstructure:"container_engine"`
		// ManifestName is the base name of the build manifests.
		ManifestName string `json:"manifest_name" mapstructure:"manifest_name"`
		// Cache configures the artifact cache.
		Cache CacheConfig `json:"cache" mapstructure:"cache"`
		// Fetch configures artifact fetching.
		Fetch FetchConfig `json:"fetch" mapstructure:"fetch"`
		// Scaffold configures `nanoforge new`.
		Scaffold ScaffoldConfig `json:"scaffold" mapstructure:"scaffold"`
		// Graph configures `nanoforge graph`.
		Graph GraphConfig `json:"graph" mapstructure:"graph"`
		// UI configures the user interface.
		UI UIConfig `json:"ui" mapstructure:"ui"`

		// Path is the file the configuration was loaded from; empty when only
		// defaults and environment variables applied.
		Path string `json:"-" mapstructure:"-"`
	}

	// CacheConfig configures the artifact cache.
	CacheConfig struct {
		// Dir is the cache directory, relative to the workspace root unless absolute.
		Dir string `json:"dir" mapstructure:"dir"`
	}

	// FetchConfig configures artifact fetching.
	FetchConfig struct {
		// Parallelism bounds concurrent fetches within one pass.
		Parallelism int `json:"parallelism" mapstructure:"parallelism"`
	}

	// ScaffoldConfig configures template scaffolding.
	ScaffoldConfig struct {
		// TemplateURL is the git repository cloned for new nanoservices.
		TemplateURL string `json:"template_url" mapstructure:"template_url"`
	}

	// GraphConfig configures dependency graph output.
	GraphConfig struct {
		// Output is the default output file.
		Output string `json:"output" mapstructure:"output"`
		// Format is the default rendering.
		Format GraphFormat `json:"format" mapstructure:"format"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// Verbose enables debug logging and verbose error output.
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// String returns the string representation of the ContainerEngine.
func (ce ContainerEngine) String() string { return string(ce) }

// IsValid returns whether the ContainerEngine is one of the defined engine types,
// and a list of validation errors if it is not.
func (ce ContainerEngine) IsValid() (bool, []error) {
	switch ce {
	case ContainerEnginePodman, ContainerEngineDocker:
		return true, nil
	default:
		return false, []error{&InvalidContainerEngineError{Value: ce}}
	}
}

// Error implements the error interface.
func (e *InvalidContainerEngineError) Error() string {
	return fmt.Sprintf("invalid container engine %q (valid: podman, docker)", e.Value)
}

// Unwrap returns ErrInvalidContainerEngine so callers can use errors.Is for programmatic detection.
func (e *InvalidContainerEngineError) Unwrap() error { return ErrInvalidContainerEngine }

// IsValid returns whether the GraphFormat is one of the defined formats.
func (f GraphFormat) IsValid() (bool, []error) {
	switch f {
	case GraphFormatDOT, GraphFormatYAML:
		return true, nil
	default:
		return false, []error{&InvalidGraphFormatError{Value: f}}
	}
}

// Error implements the error interface.
func (e *InvalidGraphFormatError) Error() string {
	return fmt.Sprintf("invalid graph format %q (valid: dot, yaml)", e.Value)
}

// Unwrap returns ErrInvalidGraphFormat for errors.Is() compatibility.
func (e *InvalidGraphFormatError) Unwrap() error { return ErrInvalidGraphFormat }

// IsValid returns whether the Config has valid fields. Values from the CUE
// file are already schema-checked; this also covers environment overrides.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.ContainerEngine.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if strings.TrimSpace(c.ManifestName) == "" || strings.ContainsAny(c.ManifestName, `/\`) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidManifestName, c.ManifestName))
	}
	if c.Fetch.Parallelism < 1 || c.Fetch.Parallelism > MaxParallelism {
		errs = append(errs, fmt.Errorf("%w: %d (must be between 1 and %d)", ErrInvalidParallelism, c.Fetch.Parallelism, MaxParallelism))
	}
	if valid, fieldErrs := c.Graph.Format.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

// Unwrap returns ErrInvalidConfig and every field error for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}
