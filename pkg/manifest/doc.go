// SPDX-License-Identifier: MPL-2.0

// Package manifest reads, models and writes Cargo.toml manifests.
//
// The recognized parts are strongly typed: the [package] identity and the
// [nanoservices] section, whose entries declare dependencies shipped inside
// container images. Everything else is kept as the open value tree produced by
// go-toml (string, int64, float64, bool, []any, map[string]any, date/time), so a
// read-modify-write cycle never loses unknown sections.
//
// Writing normalizes the layout: comments are not preserved, and tables and
// keys are emitted in sorted order, so [dependencies] precedes [package]. The
// first rewrite of a hand-written manifest therefore produces a layout-only
// diff; every later rewrite of unchanged content is byte-identical.
package manifest
