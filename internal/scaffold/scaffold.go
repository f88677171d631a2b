// SPDX-License-Identifier: MPL-2.0

// Package scaffold creates a new nanoservice from a git template.
package scaffold

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/nanoservicesforge/nanoforge/internal/issue"
)

// DefaultTemplateURL is the template cloned when none is configured.
const DefaultTemplateURL = "https://github.com/nanoservicesforge/nanoservice-template.git"

var (
	// ErrTargetExists is returned when the target directory already exists.
	ErrTargetExists = errors.New("target already exists")

	// ErrClone is wrapped by template clone failures.
	ErrClone = errors.New("template clone failed")

	// ErrInvalidName is the sentinel error wrapped by InvalidNameError.
	ErrInvalidName = errors.New("invalid nanoservice name")
)

type (
	// Options configures New.
	Options struct {
		// Name is the nanoservice name and the directory created for it.
		Name string
		// Dir is the parent directory; empty means the current directory.
		Dir string
		// TemplateURL is the git repository cloned; empty means DefaultTemplateURL.
		TemplateURL string
		// FullHistory clones every commit instead of only the latest one.
		FullHistory bool
	}

	// InvalidNameError is returned when a nanoservice name cannot be used as a directory name.
	InvalidNameError struct {
		Name   string
		Reason string
	}
)

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid nanoservice name %q: %s", e.Name, e.Reason)
}

// Unwrap returns ErrInvalidName for errors.Is() compatibility.
func (e *InvalidNameError) Unwrap() error { return ErrInvalidName }

// New clones the template into Dir/Name and drops its git metadata, leaving a
// plain source tree. It refuses to touch an existing path.
func New(ctx context.Context, opts Options) (string, error) {
	if err := validateName(opts.Name); err != nil {
		return "", err
	}

	dir := opts.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
		dir = wd
	}
	target := filepath.Join(dir, opts.Name)

	if _, err := os.Lstat(target); err == nil {
		return "", issue.NewErrorContext().
			WithOperation("create nanoservice").
			WithIssue(issue.TemplateCloneFailedId).
			WithResource(target).
			WithSuggestion("Choose another name or remove the existing directory").
			Wrap(ErrTargetExists).
			BuildError()
	}

	url := opts.TemplateURL
	if url == "" {
		url = DefaultTemplateURL
	}
	cloneOpts := &git.CloneOptions{
		URL:  url,
		Auth: httpAuth(url),
	}
	if !opts.FullHistory {
		cloneOpts.Depth = 1
		cloneOpts.SingleBranch = true
	}

	if _, err := git.PlainCloneContext(ctx, target, false, cloneOpts); err != nil {
		// Clean up failed attempt (best-effort)
		_ = os.RemoveAll(target)
		return "", issue.NewErrorContext().
			WithOperation("clone template").
			WithIssue(issue.TemplateCloneFailedId).
			WithResource(url).
			WithSuggestion("Check the template URL and your network connection").
			WithSuggestion("Set GITHUB_TOKEN or GIT_TOKEN for private templates").
			Wrap(fmt.Errorf("%w: %w", ErrClone, err)).
			BuildError()
	}

	if err := os.RemoveAll(filepath.Join(target, git.GitDirName)); err != nil {
		return "", fmt.Errorf("remove template git metadata: %w", err)
	}
	return target, nil
}

func validateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return &InvalidNameError{Name: name, Reason: "must not be empty"}
	case name == "." || name == "..":
		return &InvalidNameError{Name: name, Reason: "must name a new directory"}
	case strings.ContainsAny(name, `/\`):
		return &InvalidNameError{Name: name, Reason: "must not contain path separators"}
	}
	return nil
}

// httpAuth returns token credentials from the environment for HTTP(S) URLs.
func httpAuth(url string) transport.AuthMethod {
	if !strings.HasPrefix(url, "https://") && !strings.HasPrefix(url, "http://") {
		return nil
	}
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return &http.BasicAuth{Username: "x-access-token", Password: token}
	}
	if token := os.Getenv("GIT_TOKEN"); token != "" {
		return &http.BasicAuth{Username: "git", Password: token}
	}
	return nil
}
