// SPDX-License-Identifier: MPL-2.0

// Package benchmark provides benchmarks for PGO profile generation.
// They cover the hot paths of a resolve run on a large synthetic workspace:
//   - manifest parsing
//   - manifest scanning and declaration extraction
//   - a full rewrite-only fixpoint run
//   - dependency graph construction and DOT rendering
//
// To generate a PGO profile, run:
//
//	go test -run '^$' -bench . -cpuprofile default.pgo ./internal/benchmark
package benchmark
