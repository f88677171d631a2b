// SPDX-License-Identifier: MPL-2.0

// Package config handles nanoforge configuration using Viper with CUE as the file format.
//
// Configuration is loaded from nanoforge.cue in the platform config directory
// ($XDG_CONFIG_HOME/nanoforge on Linux, ~/Library/Application Support/nanoforge on
// macOS, %APPDATA%\nanoforge on Windows), falling back to the working directory.
// Files are validated against an embedded CUE schema (config_schema.cue); NANOFORGE_*
// environment variables override file values, e.g. NANOFORGE_CACHE_DIR for cache.dir.
//
// A Config is built once per process and passed explicitly to every component
// that needs it; there is no package-level configuration state.
package config
