// SPDX-License-Identifier: MPL-2.0

package cache

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nanoservicesforge/nanoforge/pkg/manifest"
)

// ErrInvalidArtifactID is the sentinel error wrapped by InvalidSanitizedNameError.
var ErrInvalidArtifactID = errors.New("invalid artifact identifier")

// InvalidSanitizedNameError is returned when a cache directory name cannot be
// mapped back to an artifact identifier.
type InvalidSanitizedNameError struct {
	Value  string
	Reason string
}

// Error implements the error interface.
func (e *InvalidSanitizedNameError) Error() string {
	return fmt.Sprintf("invalid sanitized artifact name %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidArtifactID for errors.Is() compatibility.
func (e *InvalidSanitizedNameError) Unwrap() error { return ErrInvalidArtifactID }

// Sanitize maps an artifact identifier to a filesystem-safe path segment.
// '_' becomes "__", '/' becomes '_' and ':' becomes "_.". All other characters
// are kept, so "nanoservices/auth:latest" becomes "nanoservices_auth_.latest".
func Sanitize(id manifest.ArtifactID) string {
	var b strings.Builder
	b.Grow(len(id) + 4)
	for _, r := range string(id) {
		switch r {
		case '_':
			b.WriteString("__")
		case '/':
			b.WriteByte('_')
		case ':':
			b.WriteString("_.")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Desanitize inverts Sanitize for every valid container reference. A path
// component in a reference never starts with '_' or '.', which keeps the
// single-underscore escape unambiguous.
func Desanitize(name string) (manifest.ArtifactID, error) {
	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c != '_' {
			b.WriteByte(c)
			continue
		}
		if i+1 == len(name) {
			return "", &InvalidSanitizedNameError{Value: name, Reason: "dangling escape at end"}
		}
		switch name[i+1] {
		case '_':
			b.WriteByte('_')
			i++
		case '.':
			b.WriteByte(':')
			i++
		default:
			b.WriteByte('/')
		}
	}
	return manifest.ArtifactID(b.String()), nil
}
