// SPDX-License-Identifier: MPL-2.0

package fixpoint

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/nanoservicesforge/nanoforge/internal/cache"
	"github.com/nanoservicesforge/nanoforge/internal/discovery"
	"github.com/nanoservicesforge/nanoforge/internal/issue"
	"github.com/nanoservicesforge/nanoforge/internal/rewrite"
	"github.com/nanoservicesforge/nanoforge/pkg/manifest"
)

type (
	// Fetcher materializes one artifact into the cache and returns its directory.
	// *artifact.Fetcher satisfies it.
	Fetcher interface {
		Fetch(ctx context.Context, id manifest.ArtifactID) (string, error)
	}

	// Orchestrator runs resolve passes over one workspace.
	Orchestrator struct {
		// Layout is the cache the artifacts are extracted into.
		Layout cache.Layout
		// Fetcher materializes artifacts. It is not used in ModeConfig.
		Fetcher Fetcher
		// Logger receives progress messages; nil discards them.
		Logger *log.Logger
		// WorkingRoot is the absolute workspace root.
		WorkingRoot string
		// ManifestName is the manifest base name; empty means Cargo.toml.
		ManifestName string
		// Parallelism bounds concurrent fetches within a pass. Values below 2
		// fetch sequentially in declaration order.
		Parallelism int
	}

	// PassOptions controls a single pass.
	PassOptions struct {
		// Wipe removes the cache before scanning.
		Wipe bool
		// IncludeCache scans inside the cache as well as the workspace.
		IncludeCache bool
	}

	// Result summarizes a run.
	Result struct {
		// Passes counts the passes that processed at least one manifest.
		Passes int
		// Manifests are all manifest paths processed, sorted.
		Manifests []string
		// Fetched are all artifacts fetched, sorted.
		Fetched []manifest.ArtifactID
	}
)

// Run executes passes until one finds no unseen manifest. The first pass
// scans the workspace without the cache, wiping it first when mode fetches;
// later passes include the cache. Any error aborts the run. Manifests already
// written stay written.
func (o *Orchestrator) Run(ctx context.Context, mode Mode) (Result, error) {
	if ok, errs := mode.IsValid(); !ok {
		return Result{}, errs[0]
	}
	if err := o.Layout.CheckWorkspace(o.WorkingRoot); err != nil {
		return Result{}, err
	}

	var (
		state  State
		result Result
	)
	for pass := 1; ; pass++ {
		opts := PassOptions{Wipe: pass == 1 && mode.wipes(), IncludeCache: pass > 1}
		o.logger().Debug("starting pass", "pass", pass, "mode", mode, "wipe", opts.Wipe, "include_cache", opts.IncludeCache)

		pr, err := o.Pass(ctx, mode, opts, state)
		if err != nil {
			return result, fmt.Errorf("pass %d: %w", pass, err)
		}
		if len(pr.Manifests) == 0 {
			break
		}
		result.Passes++
		state = state.Union(pr)
		o.logger().Info("pass complete", "pass", pass, "manifests", len(pr.Manifests), "fetched", len(pr.Fetched))
	}

	result.Manifests = state.Manifests()
	result.Fetched = state.Artifacts()
	return result, nil
}

// Pass runs one scan, extract, fetch and rewrite cycle over the manifests not
// in state and reports what it processed. Every buildable manifest of the
// remainder is rewritten, including ones without declarations, so stale cache
// entries are dropped.
func (o *Orchestrator) Pass(ctx context.Context, mode Mode, opts PassOptions, state State) (PassResult, error) {
	if err := ctx.Err(); err != nil {
		return PassResult{}, err
	}
	if mode.fetches() {
		if err := o.Layout.Provision(opts.Wipe); err != nil {
			return PassResult{}, err
		}
	}

	paths, err := discovery.Scan(o.WorkingRoot, discovery.Options{
		ManifestName: o.ManifestName,
		CacheRoot:    o.Layout.Root,
		IncludeCache: opts.IncludeCache,
	})
	if err != nil {
		return PassResult{}, err
	}

	var fresh []string
	for _, p := range paths {
		if !state.HasManifest(p) {
			fresh = append(fresh, p)
		}
	}
	if len(fresh) == 0 {
		return PassResult{}, nil
	}

	decls, err := discovery.ExtractDeclarations(o.WorkingRoot, fresh)
	if err != nil {
		return PassResult{}, err
	}
	result := PassResult{Manifests: fresh}

	if mode.fetches() {
		fetched, err := o.fetchAll(ctx, decls.Artifacts(), state)
		if err != nil {
			return PassResult{}, err
		}
		result.Fetched = fetched
	}

	if mode.writes() {
		for _, p := range decls.ManifestPaths() {
			if err := o.rewrite(decls.Manifests[p], decls.ByManifest[p]); err != nil {
				return PassResult{}, err
			}
		}
	}
	return result, nil
}

// PullOne fetches a single artifact into the cache without wiping it.
func (o *Orchestrator) PullOne(ctx context.Context, id manifest.ArtifactID) (string, error) {
	if ok, errs := id.IsValid(); !ok {
		return "", issue.NewErrorContext().
			WithOperation("pull artifact").
			WithIssue(issue.InvalidArtifactIdId).
			WithResource(string(id)).
			WithSuggestion("Use a container image reference such as nanoservices/auth:latest").
			Wrap(errs[0]).
			BuildError()
	}
	if err := o.Layout.Provision(false); err != nil {
		return "", err
	}
	return o.Fetcher.Fetch(ctx, id)
}

// fetchAll fetches every id not yet in state. Each identifier is claimed in a
// mutex-guarded set before its fetch starts, so it is fetched at most once per
// run even when fetches overlap.
func (o *Orchestrator) fetchAll(ctx context.Context, ids []manifest.ArtifactID, state State) ([]manifest.ArtifactID, error) {
	var (
		mu      sync.Mutex
		claimed = map[manifest.ArtifactID]bool{}
		fetched []manifest.ArtifactID
	)
	claim := func(id manifest.ArtifactID) bool {
		mu.Lock()
		defer mu.Unlock()
		if state.HasArtifact(id) || claimed[id] {
			return false
		}
		claimed[id] = true
		return true
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(o.Parallelism, 1))
	for _, id := range ids {
		if !claim(id) {
			o.logger().Debug("artifact already fetched", "id", id)
			continue
		}
		g.Go(func() error {
			if _, err := o.Fetcher.Fetch(gctx, id); err != nil {
				return err
			}
			mu.Lock()
			fetched = append(fetched, id)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.Sort(fetched)
	return fetched, nil
}

func (o *Orchestrator) rewrite(m *manifest.Manifest, decls []manifest.NamedDeclaration) error {
	if removed := rewrite.Strip(m, o.Layout.Sentinel()); len(removed) > 0 {
		o.logger().Debug("dropped stale dependencies", "manifest", m.Path, "names", removed)
	}
	if _, err := rewrite.Apply(m, decls, rewrite.Options{
		WorkingRoot:   o.WorkingRoot,
		ArtifactsRoot: o.Layout.ArtifactsDir,
		Sentinel:      o.Layout.Sentinel(),
	}); err != nil {
		return err
	}
	if err := m.Write(); err != nil {
		return issue.NewErrorContext().
			WithOperation("write manifest").
			WithResource(m.Path).
			WithSuggestion("Check the permissions of the manifest file").
			Wrap(err).
			BuildError()
	}
	o.logger().Debug("rewrote manifest", "manifest", relTo(o.WorkingRoot, m.Path), "declarations", len(decls))
	return nil
}

func (o *Orchestrator) logger() *log.Logger {
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	return o.Logger
}

func relTo(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}
