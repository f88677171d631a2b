// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/nanoservicesforge/nanoforge/internal/issue"
	"github.com/nanoservicesforge/nanoforge/pkg/manifest"
)

// Declarations is the declaration data gathered from a set of manifests.
// Map keys are the manifest paths as passed to ExtractDeclarations.
type Declarations struct {
	// ByManifest holds the declarations of every manifest that has at least one.
	ByManifest map[string][]manifest.NamedDeclaration
	// All holds every declaration in the workspace, deduplicated by
	// structural identity and sorted by name.
	All []manifest.NamedDeclaration
	// Manifests holds every buildable manifest read, with or without declarations.
	Manifests map[string]*manifest.Manifest
}

// ExtractDeclarations reads the manifests at paths (relative to root) and
// collects their declarations. Manifests that are not buildable are skipped.
// A read or parse failure aborts the extraction.
func ExtractDeclarations(root string, paths []string) (Declarations, error) {
	out := Declarations{
		ByManifest: map[string][]manifest.NamedDeclaration{},
		Manifests:  map[string]*manifest.Manifest{},
	}

	var all []manifest.NamedDeclaration
	for _, p := range paths {
		full := p
		if !filepath.IsAbs(full) {
			full = filepath.Join(root, p)
		}

		m, err := manifest.Read(full)
		if err != nil {
			return Declarations{}, readError(p, err)
		}
		if !m.Buildable() {
			continue
		}

		out.Manifests[p] = m
		decls := m.Declarations()
		if len(decls) == 0 {
			continue
		}
		out.ByManifest[p] = decls
		all = append(all, decls...)
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	seen := map[string]bool{}
	for _, d := range all {
		key := d.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		out.All = append(out.All, d)
	}
	return out, nil
}

// Artifacts returns the distinct development artifacts that need fetching,
// in the order of All. Local declarations are excluded.
func (d Declarations) Artifacts() []manifest.ArtifactID {
	var ids []manifest.ArtifactID
	seen := map[manifest.ArtifactID]bool{}
	for _, decl := range d.All {
		if decl.Local || seen[decl.DevImage] {
			continue
		}
		seen[decl.DevImage] = true
		ids = append(ids, decl.DevImage)
	}
	return ids
}

// ManifestPaths returns the keys of Manifests in sorted order.
func (d Declarations) ManifestPaths() []string {
	paths := make([]string, 0, len(d.Manifests))
	for p := range d.Manifests {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func readError(path string, cause error) error {
	ctx := issue.NewErrorContext().WithOperation("read manifest").WithResource(path)
	if errors.Is(cause, fs.ErrNotExist) {
		return ctx.
			WithIssue(issue.ManifestNotFoundId).
			WithSuggestion("The manifest was removed after the scan; run the command again").
			Wrap(cause).
			BuildError()
	}
	return ctx.
		WithIssue(issue.ManifestParseErrorId).
		WithSuggestion("Check the TOML syntax of the manifest").
		WithSuggestion("Every [nanoservices.<name>] table needs dev_image, prod_image and entrypoint").
		Wrap(cause).
		BuildError()
}
