// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nanoservicesforge/nanoforge/internal/artifact"
	"github.com/nanoservicesforge/nanoforge/internal/cache"
	"github.com/nanoservicesforge/nanoforge/internal/config"
	"github.com/nanoservicesforge/nanoforge/internal/container"
	"github.com/nanoservicesforge/nanoforge/internal/dag"
	"github.com/nanoservicesforge/nanoforge/internal/issue"
	"github.com/nanoservicesforge/nanoforge/internal/relpath"
	"github.com/nanoservicesforge/nanoforge/internal/scaffold"
	"github.com/nanoservicesforge/nanoforge/pkg/manifest"
)

// exitFailure is the exit code of every failed command.
const exitFailure = 1

// issueFor maps an error chain to the issue catalog entry explaining it: the
// entry linked by the error itself if any, else one chosen by sentinel.
// Zero means no entry applies.
func issueFor(err error) issue.Id {
	if id := issue.IssueOf(err); id != 0 {
		return id
	}
	switch {
	case errors.Is(err, container.ErrEngineNotAvailable):
		return issue.ContainerEngineNotFoundId
	case errors.Is(err, manifest.ErrParse), errors.Is(err, manifest.ErrInvalidDeclaration):
		return issue.ManifestParseErrorId
	case errors.Is(err, manifest.ErrInvalidArtifactID), errors.Is(err, cache.ErrInvalidArtifactID):
		return issue.InvalidArtifactIdId
	case errors.Is(err, artifact.ErrUnsafeEntry):
		return issue.UnsafeLayerEntryId
	case errors.Is(err, artifact.ErrFetch):
		return issue.ArtifactFetchFailedId
	case errors.Is(err, cache.ErrProvision):
		return issue.CacheProvisionFailedId
	case errors.Is(err, relpath.ErrNoRelativePath):
		return issue.RelativePathFailedId
	case errors.Is(err, config.ErrInvalidConfig):
		return issue.ConfigLoadFailedId
	case errors.Is(err, scaffold.ErrTargetExists), errors.Is(err, scaffold.ErrClone):
		return issue.TemplateCloneFailedId
	case errors.Is(err, dag.ErrCycle):
		return issue.DependencyCycleId
	case errors.Is(err, os.ErrPermission):
		return issue.PermissionDeniedId
	default:
		return 0
	}
}

// report renders err for the user and converts it into an ExitError. fang
// prints the concise message; suggestions, the error chain and the catalog
// entry are written to stderr first, the latter two only in verbose mode.
func (a *App) report(err error, verbose bool) error {
	if err == nil {
		return nil
	}

	var ae *issue.ActionableError
	if verbose || (errors.As(err, &ae) && ae.HasSuggestions()) {
		fmt.Fprintln(a.stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
	}
	if verbose {
		renderIssue(a.stderr, issueFor(err))
	}

	return &ExitError{Code: exitFailure, Err: err}
}

// renderIssue writes the Markdown catalog entry for id, if any.
func renderIssue(w io.Writer, id issue.Id) {
	if id == 0 {
		return
	}
	entry := issue.Get(id)
	if entry == nil {
		return
	}
	rendered, err := entry.Render("dark")
	if err != nil {
		fmt.Fprintln(w, WarningStyle.Render("Warning: ")+"failed to render help: "+err.Error())
		return
	}
	fmt.Fprint(w, rendered)
}
