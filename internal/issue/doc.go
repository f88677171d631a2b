// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the operation that failed, the manifest path or artifact
// identifier involved, and remediation hints. The issue catalog holds Markdown
// guidance for the failure classes users hit most often (missing container engine,
// malformed Cargo.toml, unwritable cache), rendered in verbose mode.
package issue
