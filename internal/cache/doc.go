// SPDX-License-Identifier: MPL-2.0

// Package cache derives and provisions the on-disk artifact cache.
//
// The cache lives in a single root directory next to the workspace (by default
// ".nanoservices_cache") with two areas:
//
//	<root>/domain_services/nanoservices/<sanitized>          extracted artifact content
//	<root>/domain_services_tar/nanoservices_tar/<sanitized>  staging (archive, unpacked archive, digest)
//
// Every subpath is a pure function of the sanitized artifact identifier. Sanitize
// maps a container reference onto a single path segment and Desanitize inverts it.
package cache
