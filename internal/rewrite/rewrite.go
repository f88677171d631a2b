// SPDX-License-Identifier: MPL-2.0

// Package rewrite patches a manifest's [dependencies] table with path
// dependencies pointing at extracted artifacts.
//
// Rewriting always starts by stripping every entry whose path contains the
// cache sentinel as whole path segments, so previously injected entries never accumulate and entries
// for removed declarations disappear. Running Apply twice with the same
// declarations yields the same document.
package rewrite

import (
	"sort"
	"strings"

	"github.com/nanoservicesforge/nanoforge/internal/issue"
	"github.com/nanoservicesforge/nanoforge/internal/relpath"
	"github.com/nanoservicesforge/nanoforge/pkg/manifest"
)

// Options carries the locations needed to resolve dependency paths.
type Options struct {
	// WorkingRoot is the workspace root.
	WorkingRoot string
	// ArtifactsRoot is the directory holding extracted artifacts.
	ArtifactsRoot string
	// Sentinel marks dependency paths that point into the cache.
	Sentinel string
}

// Strip removes every dependency whose table carries a path containing the
// slash-separated sentinel as a run of whole segments, and returns the removed
// names in sorted order. Entries in any other shape (version strings, git or
// registry tables) are left alone.
func Strip(m *manifest.Manifest, sentinel string) []string {
	if sentinel == "" || m.Dependencies == nil {
		return nil
	}

	var removed []string
	for name, spec := range m.Dependencies {
		table, ok := spec.(map[string]any)
		if !ok {
			continue
		}
		path, ok := table["path"].(string)
		if !ok || !containsSegments(path, sentinel) {
			continue
		}
		delete(m.Dependencies, name)
		removed = append(removed, name)
	}
	sort.Strings(removed)
	return removed
}

// containsSegments reports whether path holds sentinel as whole segments.
// Backslashes count as separators.
func containsSegments(path, sentinel string) bool {
	path = "/" + strings.ReplaceAll(path, `\`, "/") + "/"
	return strings.Contains(path, "/"+strings.Trim(sentinel, "/")+"/")
}

// Apply strips stale entries from m and inserts one path dependency per
// declaration, plus one for each declared kernel. The mutated manifest is
// returned for the caller to persist.
func Apply(m *manifest.Manifest, decls []manifest.NamedDeclaration, opts Options) (*manifest.Manifest, error) {
	Strip(m, opts.Sentinel)
	if m.Dependencies == nil {
		m.Dependencies = map[string]any{}
	}

	for _, d := range decls {
		entry, err := dependencyEntry(m.Path, d.DevImage, d.Entrypoint, d.Features, d.Package, opts)
		if err != nil {
			return nil, resolveError(m.Path, d.Name, err)
		}
		m.Dependencies[d.Name] = entry

		if k := d.Kernel; k != nil {
			entry, err := dependencyEntry(m.Path, d.DevImage, k.Entrypoint, k.Features, k.Package, opts)
			if err != nil {
				return nil, resolveError(m.Path, k.Name, err)
			}
			m.Dependencies[k.Name] = entry
		}
	}
	return m, nil
}

func dependencyEntry(manifestPath string, artifact manifest.ArtifactID, entrypoint string, features []string, pkg string, opts Options) (map[string]any, error) {
	path, err := relpath.Resolve(relpath.Request{
		WorkingRoot:   opts.WorkingRoot,
		ManifestPath:  manifestPath,
		Artifact:      artifact,
		Entrypoint:    entrypoint,
		ArtifactsRoot: opts.ArtifactsRoot,
	})
	if err != nil {
		return nil, err
	}

	entry := map[string]any{"path": path}
	if len(features) > 0 {
		list := make([]any, len(features))
		for i, f := range features {
			list[i] = f
		}
		entry["features"] = list
	}
	if pkg != "" {
		entry["package"] = pkg
	}
	return entry, nil
}

func resolveError(manifestPath, name string, cause error) error {
	return issue.NewErrorContext().
		WithOperation("resolve path for dependency " + name).
		WithIssue(issue.RelativePathFailedId).
		WithResource(manifestPath).
		WithSuggestion("Keep the cache directory on the same volume as the workspace").
		Wrap(cause).
		BuildError()
}
