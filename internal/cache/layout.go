// SPDX-License-Identifier: MPL-2.0

package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nanoservicesforge/nanoforge/internal/issue"
	"github.com/nanoservicesforge/nanoforge/pkg/manifest"
)

var (
	// ErrProvision is wrapped by errors from Provision.
	ErrProvision = errors.New("cache provisioning failed")
	// ErrOutsideWorkspace is wrapped by errors from CheckWorkspace.
	ErrOutsideWorkspace = errors.New("cache directory is not inside the workspace")
)

const (
	// DefaultDirName is the cache directory created next to the workspace root.
	DefaultDirName = ".nanoservices_cache"

	artifactsSubdir = "domain_services/nanoservices"
	stagingSubdir   = "domain_services_tar/nanoservices_tar"

	archiveExt = ".tar"
	digestExt  = ".blake3"
)

// Layout holds the derived cache locations for one workspace.
// It is constructed once per process and passed to every component that touches the cache.
type Layout struct {
	// Root is the cache root directory.
	Root string
	// ArtifactsDir holds one extracted directory per artifact.
	ArtifactsDir string
	// StagingDir holds saved archives and their unpacked form.
	StagingDir string
}

// NewLayout derives the cache layout. A relative dir is resolved against
// workingRoot; an empty dir selects DefaultDirName.
func NewLayout(workingRoot, dir string) Layout {
	if dir == "" {
		dir = DefaultDirName
	}
	root := dir
	if !filepath.IsAbs(root) {
		root = filepath.Join(workingRoot, dir)
	}
	root = filepath.Clean(root)
	return Layout{
		Root:         root,
		ArtifactsDir: filepath.Join(root, filepath.FromSlash(artifactsSubdir)),
		StagingDir:   filepath.Join(root, filepath.FromSlash(stagingSubdir)),
	}
}

// Provision prepares the cache. With wipe set the whole root is removed first;
// a failed removal is returned and never retried. The subdirectories are then
// created if absent, so repeated calls without wipe are no-ops.
func (l Layout) Provision(wipe bool) error {
	if wipe {
		if err := os.RemoveAll(l.Root); err != nil {
			return issue.NewErrorContext().
				WithOperation("wipe cache").
				WithIssue(issue.CacheProvisionFailedId).
				WithResource(l.Root).
				WithSuggestion("Check that no other process holds files in the cache directory").
				WithSuggestion("Check the permissions of the cache directory").
				Wrap(fmt.Errorf("%w: %w", ErrProvision, err)).
				BuildError()
		}
	}

	for _, dir := range []string{l.ArtifactsDir, l.StagingDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return issue.NewErrorContext().
				WithOperation("create cache directory").
				WithIssue(issue.CacheProvisionFailedId).
				WithResource(dir).
				WithSuggestion("Set cache.dir in your config to a writable location").
				Wrap(fmt.Errorf("%w: %w", ErrProvision, err)).
				BuildError()
		}
	}
	return nil
}

// ArtifactDir returns the extraction target for id.
func (l Layout) ArtifactDir(id manifest.ArtifactID) string {
	return filepath.Join(l.ArtifactsDir, Sanitize(id))
}

// ArchivePath returns where the saved image archive for id is staged.
func (l Layout) ArchivePath(id manifest.ArtifactID) string {
	return filepath.Join(l.StagingDir, Sanitize(id)+archiveExt)
}

// UnpackedDir returns where the saved archive for id is untarred.
func (l Layout) UnpackedDir(id manifest.ArtifactID) string {
	return filepath.Join(l.StagingDir, Sanitize(id))
}

// DigestPath returns where the archive digest record for id is written.
func (l Layout) DigestPath(id manifest.ArtifactID) string {
	return filepath.Join(l.StagingDir, Sanitize(id)+digestExt)
}

// Sentinel returns the slash-separated path tail that marks dependency
// entries pointing into the cache: the cache directory's base name followed by
// the artifacts subdirectory.
func (l Layout) Sentinel() string {
	return filepath.Base(l.Root) + "/" + artifactsSubdir
}

// CheckWorkspace returns an error unless the cache root lies strictly inside
// workingRoot. Manifests reach the cache through relative paths and the
// scanner only walks the workspace; a cache equal to the workspace root would
// be wiped together with it.
func (l Layout) CheckWorkspace(workingRoot string) error {
	rel, err := filepath.Rel(filepath.Clean(workingRoot), l.Root)
	if err == nil && rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil
	}
	return issue.NewErrorContext().
		WithOperation("locate cache").
		WithIssue(issue.ConfigLoadFailedId).
		WithResource(l.Root).
		WithSuggestion("Set cache.dir to a directory inside the workspace, for example " + DefaultDirName).
		Wrap(fmt.Errorf("%w: %s", ErrOutsideWorkspace, workingRoot)).
		BuildError()
}

// ArtifactFor maps a path inside ArtifactsDir back to the artifact it belongs to.
func (l Layout) ArtifactFor(path string) (manifest.ArtifactID, bool) {
	rel, err := filepath.Rel(l.ArtifactsDir, filepath.Clean(path))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	first, _, _ := strings.Cut(filepath.ToSlash(rel), "/")
	id, err := Desanitize(first)
	if err != nil {
		return "", false
	}
	return id, true
}

// String returns the cache root.
func (l Layout) String() string {
	return fmt.Sprintf("cache(%s)", l.Root)
}
