// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the nanoforge CLI commands.
//
// Every command is built from an App, the composition root that owns the
// configuration provider, the container engine factory, and the output
// streams. Commands load configuration once, derive the cache layout from it,
// and delegate to the fixpoint orchestrator, the graph builder, or the
// template scaffolder.
package cmd
