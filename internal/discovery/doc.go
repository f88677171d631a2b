// SPDX-License-Identifier: MPL-2.0

// Package discovery finds manifests in a workspace and collects their nanoservice declarations.
//
// Scan walks a directory tree for files named like the manifest (Cargo.toml by
// default), optionally pruning the artifact cache. ExtractDeclarations reads the
// found manifests, keeps the buildable ones and gathers their declarations both
// per manifest and deduplicated across the whole workspace.
package discovery
