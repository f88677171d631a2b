// SPDX-License-Identifier: MPL-2.0

// Package artifact fetches nanoservice artifacts and unpacks them into the cache.
//
// An artifact is a container image. Fetching pulls it through a Source (the
// container engine), saves it as a docker-save archive in the cache staging area,
// records a BLAKE3 digest of the archive, untars it, reads its manifest.json and
// applies every listed layer, in order, onto a single target directory. Later
// layers overwrite earlier ones path for path. Layers may be plain tar, gzip or
// zstd compressed; the format is detected from the first bytes of the blob.
package artifact
