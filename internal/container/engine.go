// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"fmt"
)

const (
	EngineTypePodman EngineType = "podman"
	EngineTypeDocker EngineType = "docker"
)

var (
	// ErrEngineNotAvailable is the sentinel error wrapped by EngineNotAvailableError.
	ErrEngineNotAvailable = errors.New("container engine not available")

	// ErrInvalidEngineType is the sentinel error wrapped by InvalidEngineTypeError.
	ErrInvalidEngineType = errors.New("invalid container engine type")
)

type (
	// Engine defines the container operations needed to materialize artifacts.
	Engine interface {
		// Name returns the engine name (docker or podman)
		Name() string
		// Available checks if the engine is available on the system
		Available() bool
		// Version returns the engine version
		Version(ctx context.Context) (string, error)
		// Pull fetches an image from its registry
		Pull(ctx context.Context, image string) error
		// Save writes an image as a docker-save archive to dest
		Save(ctx context.Context, image, dest string) error
	}

	// EngineType identifies the container engine type
	EngineType string

	// EngineNotAvailableError is returned when no usable container engine is found.
	EngineNotAvailableError struct {
		Engine EngineType
		Reason string
	}

	// InvalidEngineTypeError is returned when an EngineType is not docker or podman.
	InvalidEngineTypeError struct {
		Value EngineType
	}
)

// String returns the string representation of the EngineType.
func (t EngineType) String() string { return string(t) }

// Validate returns an error if the EngineType is not a supported engine.
func (t EngineType) Validate() error {
	switch t {
	case EngineTypeDocker, EngineTypePodman:
		return nil
	default:
		return &InvalidEngineTypeError{Value: t}
	}
}

// Error implements the error interface.
func (e *EngineNotAvailableError) Error() string {
	return fmt.Sprintf("container engine '%s' is not available: %s", e.Engine, e.Reason)
}

// Unwrap returns ErrEngineNotAvailable for errors.Is() compatibility.
func (e *EngineNotAvailableError) Unwrap() error { return ErrEngineNotAvailable }

// Error implements the error interface.
func (e *InvalidEngineTypeError) Error() string {
	return fmt.Sprintf("invalid container engine %q (must be docker or podman)", e.Value)
}

// Unwrap returns ErrInvalidEngineType for errors.Is() compatibility.
func (e *InvalidEngineTypeError) Unwrap() error { return ErrInvalidEngineType }

// NewEngine creates a new container engine based on preference.
// If the preferred engine is unavailable the other one is tried.
func NewEngine(preferredType EngineType, opts ...BaseCLIEngineOption) (Engine, error) {
	if err := preferredType.Validate(); err != nil {
		return nil, err
	}

	docker := func() Engine { return NewDockerEngine(opts...) }
	podman := func() Engine { return NewPodmanEngine(opts...) }

	order := []func() Engine{docker, podman}
	fallback := EngineTypePodman
	if preferredType == EngineTypePodman {
		order = []func() Engine{podman, docker}
		fallback = EngineTypeDocker
	}

	for _, candidate := range order {
		if engine := candidate(); engine.Available() {
			return engine, nil
		}
	}

	return nil, &EngineNotAvailableError{
		Engine: preferredType,
		Reason: fmt.Sprintf("%s is not installed or not accessible, and %s fallback is also not available", preferredType, fallback),
	}
}
