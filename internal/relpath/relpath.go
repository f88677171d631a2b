// SPDX-License-Identifier: MPL-2.0

// Package relpath computes the dependency path written into a manifest for an
// extracted artifact. The computation is purely lexical and never touches the
// filesystem.
package relpath

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/nanoservicesforge/nanoforge/internal/cache"
	"github.com/nanoservicesforge/nanoforge/pkg/manifest"
)

// ErrNoRelativePath is the sentinel error wrapped by NoRelativePathError.
var ErrNoRelativePath = errors.New("no relative path")

type (
	// Request describes one path resolution.
	Request struct {
		// WorkingRoot is the workspace root; stripped from both sides before diffing.
		WorkingRoot string
		// ManifestPath is the manifest that will carry the dependency entry.
		ManifestPath string
		// Artifact selects the extracted directory below ArtifactsRoot.
		Artifact manifest.ArtifactID
		// Entrypoint is appended verbatim to the result.
		Entrypoint string
		// ArtifactsRoot is the directory holding extracted artifacts.
		ArtifactsRoot string
	}

	// NoRelativePathError is returned when From and To share no common base,
	// e.g. one is relative and the other absolute, or they live on different volumes.
	NoRelativePathError struct {
		From string
		To   string
	}
)

// Error implements the error interface.
func (e *NoRelativePathError) Error() string {
	return fmt.Sprintf("cannot express %s relative to %s", e.To, e.From)
}

// Unwrap returns ErrNoRelativePath for errors.Is() compatibility.
func (e *NoRelativePathError) Unwrap() error { return ErrNoRelativePath }

// Resolve returns the slash-separated path from the manifest's directory to
// the artifact's entrypoint, e.g. "../../.cache/domain/nanoservices/x_y/.".
func Resolve(req Request) (string, error) {
	from := stripRoot(req.WorkingRoot, filepath.Dir(req.ManifestPath))
	to := filepath.Join(stripRoot(req.WorkingRoot, req.ArtifactsRoot), cache.Sanitize(req.Artifact))

	rel, err := filepath.Rel(from, to)
	if err != nil {
		return "", &NoRelativePathError{From: from, To: to}
	}
	if filepath.VolumeName(from) != filepath.VolumeName(to) {
		return "", &NoRelativePathError{From: from, To: to}
	}

	return filepath.ToSlash(rel) + "/" + req.Entrypoint, nil
}

// stripRoot removes root as a leading path prefix. Paths outside root, and
// all paths when root is empty, are returned cleaned but otherwise unchanged.
func stripRoot(root, path string) string {
	path = filepath.Clean(path)
	if root == "" {
		return path
	}
	root = filepath.Clean(root)
	if path == root {
		return "."
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	if rest, ok := strings.CutPrefix(path, prefix); ok {
		return rest
	}
	return path
}
