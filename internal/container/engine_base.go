// SPDX-License-Identifier: MPL-2.0

package container

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/nanoservicesforge/nanoforge/internal/issue"
)

type (
	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// BaseCLIEngineOption configures a BaseCLIEngine.
	BaseCLIEngineOption func(*BaseCLIEngine)

	// BaseCLIEngine provides common implementation for CLI-based container engines.
	// Docker and Podman engines embed this struct. Pull and Save are
	// identical across both CLIs and live here; Available and Version remain on the
	// concrete types.
	BaseCLIEngine struct {
		name        string // Engine name for error messages (e.g., "docker", "podman")
		binaryPath  string
		execCommand ExecCommandFunc
		progress    io.Writer // Receives pull progress output; nil discards it
	}
)

// --- Option Functions ---

// WithName sets the engine name used in error messages.
func WithName(name string) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.name = name
	}
}

// WithExecCommand sets a custom exec command function for testing.
func WithExecCommand(fn ExecCommandFunc) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.execCommand = fn
	}
}

// WithBinaryPath overrides the engine binary found on PATH.
func WithBinaryPath(path string) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.binaryPath = path
	}
}

// WithProgress streams pull progress output to w.
func WithProgress(w io.Writer) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.progress = w
	}
}

// --- Constructor ---

// NewBaseCLIEngine creates a new base engine with the given binary path.
func NewBaseCLIEngine(binaryPath string, opts ...BaseCLIEngineOption) *BaseCLIEngine {
	e := &BaseCLIEngine{
		binaryPath:  binaryPath,
		execCommand: exec.CommandContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// --- Accessor Methods ---

// BinaryPath returns the path to the container engine binary.
func (e *BaseCLIEngine) BinaryPath() string {
	return e.binaryPath
}

// --- Argument Builders ---

// PullArgs constructs arguments for a pull command.
//
// Generated command: <binary> pull <image>
func (e *BaseCLIEngine) PullArgs(image string) []string {
	return []string{"pull", image}
}

// SaveArgs constructs arguments for a save command.
//
// Generated command: <binary> save -o <dest> <image>
func (e *BaseCLIEngine) SaveArgs(image, dest string) []string {
	return []string{"save", "-o", dest, image}
}

// --- Command Execution ---

// RunCommand executes a command and returns its output.
func (e *BaseCLIEngine) RunCommand(ctx context.Context, args ...string) ([]byte, error) {
	cmd := e.CreateCommand(ctx, args...)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("command %s %v failed: %w", e.binaryPath, args, err)
	}
	return out, nil
}

// RunCommandStatus executes a command and returns only the error status.
// Stderr is captured and included in the error.
func (e *BaseCLIEngine) RunCommandStatus(ctx context.Context, args ...string) error {
	cmd := e.CreateCommand(ctx, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if e.progress != nil {
		cmd.Stdout = e.progress
	}
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("command %s %v failed: %w: %s", e.binaryPath, args, err, msg)
		}
		return fmt.Errorf("command %s %v failed: %w", e.binaryPath, args, err)
	}
	return nil
}

// RunCommandWithOutput executes a command with stdout captured to a buffer.
func (e *BaseCLIEngine) RunCommandWithOutput(ctx context.Context, args ...string) (string, error) {
	cmd := e.CreateCommand(ctx, args...)
	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("command %s %v failed: %w", e.binaryPath, args, err)
	}

	return out.String(), nil
}

// CreateCommand creates an exec.Cmd for the given arguments.
func (e *BaseCLIEngine) CreateCommand(ctx context.Context, args ...string) *exec.Cmd {
	return e.execCommand(ctx, e.binaryPath, args...)
}

// --- Promoted Engine Methods (shared by Docker and Podman) ---

// Pull fetches image from its registry.
func (e *BaseCLIEngine) Pull(ctx context.Context, image string) error {
	if err := e.RunCommandStatus(ctx, e.PullArgs(image)...); err != nil {
		return pullError(e.name, image, err)
	}
	return nil
}

// Save writes image as a docker-save archive to dest.
func (e *BaseCLIEngine) Save(ctx context.Context, image, dest string) error {
	if err := e.RunCommandStatus(ctx, e.SaveArgs(image, dest)...); err != nil {
		return saveError(e.name, image, dest, err)
	}
	return nil
}

// --- Actionable Error Helpers ---

// pullError creates an actionable error for image pull failures.
func pullError(engine, image string, cause error) error {
	return issue.NewErrorContext().
		WithOperation("pull image").
		WithIssue(issue.ArtifactFetchFailedId).
		WithResource(image).
		WithSuggestion("Verify the image name and tag are correct").
		WithSuggestion("Log in to the registry if the image is private (try: " + engine + " login)").
		WithSuggestion("Check your network connection").
		Wrap(cause).
		BuildError()
}

// saveError creates an actionable error for image save failures.
func saveError(engine, image, dest string, cause error) error {
	return issue.NewErrorContext().
		WithOperation("save image").
		WithIssue(issue.ArtifactFetchFailedId).
		WithResource(image + " -> " + dest).
		WithSuggestion("Check that the cache staging directory is writable").
		WithSuggestion("Check free disk space").
		WithSuggestion("Verify the image was pulled (try: " + engine + " images)").
		Wrap(cause).
		BuildError()
}
