// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/zeebo/blake3"

	"github.com/nanoservicesforge/nanoforge/internal/cache"
	"github.com/nanoservicesforge/nanoforge/internal/issue"
	"github.com/nanoservicesforge/nanoforge/pkg/manifest"
)

// ErrFetch is wrapped by every error Fetch returns except cancellation.
var ErrFetch = errors.New("artifact fetch failed")

type (
	// Source retrieves an image and saves it as a docker-save archive.
	// container.Engine satisfies it.
	Source interface {
		Pull(ctx context.Context, image string) error
		Save(ctx context.Context, image, dest string) error
	}

	// Fetcher materializes artifacts into a cache layout.
	Fetcher struct {
		layout cache.Layout
		source Source
		logger *log.Logger
	}

	// FetcherOption configures a Fetcher.
	FetcherOption func(*Fetcher)
)

// WithLogger sets the logger used for progress messages.
func WithLogger(l *log.Logger) FetcherOption {
	return func(f *Fetcher) {
		f.logger = l
	}
}

// NewFetcher creates a Fetcher writing into layout.
func NewFetcher(layout cache.Layout, source Source, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		layout: layout,
		source: source,
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Layout returns the cache layout the fetcher writes into.
func (f *Fetcher) Layout() cache.Layout {
	return f.layout
}

// Fetch pulls id, saves and unpacks it, and returns the extracted directory.
// Any failure aborts the whole fetch. Fetching the same immutable image again
// rewrites the same directory with the same content.
func (f *Fetcher) Fetch(ctx context.Context, id manifest.ArtifactID) (string, error) {
	archive := f.layout.ArchivePath(id)
	unpacked := f.layout.UnpackedDir(id)
	target := f.layout.ArtifactDir(id)

	f.logger.Info("fetching artifact", "id", id)

	if err := f.source.Pull(ctx, string(id)); err != nil {
		return "", fetchError(id, "pull image", err)
	}
	if err := os.MkdirAll(filepath.Dir(archive), 0o755); err != nil {
		return "", fetchError(id, "create staging directory", err)
	}
	if err := f.source.Save(ctx, string(id), archive); err != nil {
		return "", fetchError(id, "save image", err)
	}

	sum, err := writeDigest(archive, f.layout.DigestPath(id))
	if err != nil {
		return "", fetchError(id, "record archive digest", err)
	}
	f.logger.Debug("saved archive", "id", id, "path", archive, "blake3", sum)

	if err := untarFile(archive, unpacked); err != nil {
		return "", fetchError(id, "unpack image archive", err)
	}

	layers, err := readLayers(unpacked)
	if err != nil {
		return "", fetchError(id, "read image manifest", err)
	}

	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", fetchError(id, "create artifact directory", err)
	}
	for i, layer := range layers {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		f.logger.Debug("applying layer", "id", id, "layer", layer, "index", i)
		if err := applyLayer(unpacked, layer, target); err != nil {
			return "", fetchError(id, "apply layer "+layer, err)
		}
	}

	f.logger.Info("artifact ready", "id", id, "layers", len(layers), "path", target)
	return target, nil
}

// writeDigest stores the BLAKE3 sum of archive at dest in "<hex>  <name>" form.
func writeDigest(archive, dest string) (string, error) {
	file, err := os.Open(archive)
	if err != nil {
		return "", err
	}
	defer file.Close()

	h := blake3.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", err
	}
	sum := hex.EncodeToString(h.Sum(nil))

	line := sum + "  " + filepath.Base(archive) + "\n"
	if err := os.WriteFile(dest, []byte(line), 0o644); err != nil {
		return "", err
	}
	return sum, nil
}

func fetchError(id manifest.ArtifactID, operation string, cause error) error {
	catalog := issue.ArtifactFetchFailedId
	if errors.Is(cause, ErrUnsafeEntry) {
		catalog = issue.UnsafeLayerEntryId
	}
	return issue.NewErrorContext().
		WithOperation(operation).
		WithIssue(catalog).
		WithResource(string(id)).
		WithSuggestion("Re-run the fetch; a half-unpacked artifact is rewritten from scratch").
		WithSuggestion("Check free disk space and the permissions of the cache directory").
		Wrap(fmt.Errorf("%w: %w", ErrFetch, cause)).
		BuildError()
}
