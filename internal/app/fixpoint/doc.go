// SPDX-License-Identifier: MPL-2.0

// Package fixpoint drives the resolve loop: scan the workspace for manifests,
// extract their nanoservice declarations, fetch the referenced artifacts into
// the cache, and rewrite every manifest with path dependencies. Extracted
// artifacts may carry manifests of their own, so passes repeat over the
// workspace and the cache until a pass finds no manifest it has not seen.
//
// Each pass is a function from an immutable State to a PassResult; Run
// composes them with State.Union.
package fixpoint
