// SPDX-License-Identifier: MPL-2.0

package fixpoint

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/nanoservicesforge/nanoforge/internal/dag"
	"github.com/nanoservicesforge/nanoforge/internal/discovery"
	"github.com/nanoservicesforge/nanoforge/pkg/manifest"
)

const nanoservicePrefix = "nanoservice:"

// Graph builds the dependency graph of the workspace and the cache as they
// are on disk. Nothing is fetched or written. Manifests inside the cache are
// labelled by the artifact they were extracted from. Every declared name has
// an edge to the manifest declaring it, and every fetched artifact an edge to
// the names that reference it.
func (o *Orchestrator) Graph(ctx context.Context) (*dag.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	paths, err := discovery.Scan(o.WorkingRoot, discovery.Options{
		ManifestName: o.ManifestName,
		CacheRoot:    o.Layout.Root,
		IncludeCache: true,
	})
	if err != nil {
		return nil, err
	}
	decls, err := discovery.ExtractDeclarations(o.WorkingRoot, paths)
	if err != nil {
		return nil, err
	}

	g := dag.New()
	for _, p := range decls.ManifestPaths() {
		label, kind := o.manifestLabel(p)
		g.AddNode(label, kind)

		for _, d := range decls.ByManifest[p] {
			o.addDeclaration(g, d.Name, d.Declaration, label)
			if d.Kernel != nil {
				o.addDeclaration(g, d.Kernel.Name, d.Declaration, label)
			}
		}
	}
	return g, nil
}

func (o *Orchestrator) addDeclaration(g *dag.Graph, name string, d manifest.Declaration, owner string) {
	g.AddNode(name, dag.KindDeclaration)
	g.AddEdge(name, owner)
	if d.Local {
		return
	}
	artifact := nanoservicePrefix + string(d.DevImage)
	g.AddNode(artifact, dag.KindNanoservice)
	g.AddEdge(artifact, name)
}

// manifestLabel names a manifest node. A manifest at the top of an extracted
// artifact is the artifact itself; nested ones keep their path within it.
func (o *Orchestrator) manifestLabel(path string) (string, dag.Kind) {
	full := filepath.Join(o.WorkingRoot, path)
	id, ok := o.Layout.ArtifactFor(full)
	if !ok {
		return filepath.ToSlash(path), dag.KindManifest
	}

	rel, err := filepath.Rel(o.Layout.ArtifactDir(id), filepath.Dir(full))
	if err != nil || rel == "." {
		return nanoservicePrefix + string(id), dag.KindNanoservice
	}
	return nanoservicePrefix + string(id) + "/" + strings.TrimPrefix(filepath.ToSlash(rel), "./"), dag.KindNanoservice
}
