// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"errors"
	"fmt"

	"github.com/distribution/reference"
)

// ErrInvalidArtifactID is the sentinel error wrapped by InvalidArtifactIDError.
var ErrInvalidArtifactID = errors.New("invalid artifact identifier")

type (
	// ArtifactID identifies a packaged artifact: a container image reference
	// such as "nanoservices/auth:latest".
	ArtifactID string

	// InvalidArtifactIDError is returned when an ArtifactID is not a valid
	// container image reference.
	InvalidArtifactIDError struct {
		Value ArtifactID
		Err   error
	}
)

// String returns the string representation of the ArtifactID.
func (id ArtifactID) String() string { return string(id) }

// IsValid returns whether the ArtifactID follows the container reference grammar,
// and a list of validation errors if it does not.
func (id ArtifactID) IsValid() (bool, []error) {
	if id == "" {
		return false, []error{&InvalidArtifactIDError{Value: id, Err: errors.New("must not be empty")}}
	}
	if _, err := reference.Parse(string(id)); err != nil {
		return false, []error{&InvalidArtifactIDError{Value: id, Err: err}}
	}
	return true, nil
}

// Error implements the error interface for InvalidArtifactIDError.
func (e *InvalidArtifactIDError) Error() string {
	return fmt.Sprintf("invalid artifact identifier %q: %v", e.Value, e.Err)
}

// Unwrap returns ErrInvalidArtifactID for errors.Is() compatibility.
func (e *InvalidArtifactIDError) Unwrap() error { return ErrInvalidArtifactID }
