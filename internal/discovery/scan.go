// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nanoservicesforge/nanoforge/pkg/manifest"
)

// Options controls a manifest scan.
type Options struct {
	// ManifestName is the exact base name matched; defaults to Cargo.toml.
	ManifestName string
	// CacheRoot is the artifact cache directory. Relative values are resolved against the scan root.
	CacheRoot string
	// IncludeCache descends into CacheRoot when set; otherwise the subtree is pruned.
	IncludeCache bool
}

// Scan returns the paths, relative to root, of every manifest below root.
// The order is the lexical walk order and is stable for a given tree.
// Unreadable subdirectories are skipped.
func Scan(root string, opts Options) ([]string, error) {
	name := opts.ManifestName
	if name == "" {
		name = manifest.DefaultFileName
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan %s: not a directory", root)
	}

	cacheRoot := opts.CacheRoot
	if cacheRoot != "" && !filepath.IsAbs(cacheRoot) {
		cacheRoot = filepath.Join(root, cacheRoot)
	}
	cacheRoot = filepath.Clean(cacheRoot)

	var found []string
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil // Skip unreadable entries
		}

		if d.IsDir() {
			if !opts.IncludeCache && opts.CacheRoot != "" && filepath.Clean(path) == cacheRoot {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Name() != name {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		found = append(found, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	return found, nil
}
