// SPDX-License-Identifier: MPL-2.0

package fixpoint

import (
	"maps"
	"slices"

	"github.com/nanoservicesforge/nanoforge/pkg/manifest"
)

type (
	// State is the set of manifests processed and artifacts fetched so far in
	// one run. The zero value is the empty state. A State is never mutated;
	// Union returns a new one.
	State struct {
		manifests map[string]struct{}
		artifacts map[manifest.ArtifactID]struct{}
	}

	// PassResult holds what a single pass newly processed.
	PassResult struct {
		// Manifests are the workspace-relative manifest paths the pass took on,
		// buildable or not.
		Manifests []string
		// Fetched are the artifacts the pass materialized, sorted.
		Fetched []manifest.ArtifactID
	}
)

// HasManifest reports whether path was processed by an earlier pass.
func (s State) HasManifest(path string) bool {
	_, ok := s.manifests[path]
	return ok
}

// HasArtifact reports whether id was fetched by an earlier pass.
func (s State) HasArtifact(id manifest.ArtifactID) bool {
	_, ok := s.artifacts[id]
	return ok
}

// Union returns a new State holding s plus everything in r.
func (s State) Union(r PassResult) State {
	out := State{
		manifests: make(map[string]struct{}, len(s.manifests)+len(r.Manifests)),
		artifacts: make(map[manifest.ArtifactID]struct{}, len(s.artifacts)+len(r.Fetched)),
	}
	maps.Copy(out.manifests, s.manifests)
	maps.Copy(out.artifacts, s.artifacts)
	for _, p := range r.Manifests {
		out.manifests[p] = struct{}{}
	}
	for _, id := range r.Fetched {
		out.artifacts[id] = struct{}{}
	}
	return out
}

// Manifests returns the processed manifest paths, sorted.
func (s State) Manifests() []string {
	return slices.Sorted(maps.Keys(s.manifests))
}

// Artifacts returns the fetched artifact identifiers, sorted.
func (s State) Artifacts() []manifest.ArtifactID {
	return slices.Sorted(maps.Keys(s.artifacts))
}
