// SPDX-License-Identifier: MPL-2.0

package fixpoint

import (
	"errors"
	"fmt"
)

const (
	// ModePrep fetches artifacts and rewrites manifests. The cache is wiped
	// before the first pass.
	ModePrep Mode = "prep"
	// ModeInstall fetches artifacts without touching any manifest. The cache is
	// wiped before the first pass.
	ModeInstall Mode = "install"
	// ModeConfig rewrites manifests against artifacts fetched by an earlier run.
	// Nothing is fetched and the cache is left as is.
	ModeConfig Mode = "config"
)

// ErrInvalidMode is the sentinel error wrapped by InvalidModeError.
var ErrInvalidMode = errors.New("invalid mode")

type (
	// Mode selects which side effects a run performs.
	Mode string

	// InvalidModeError is returned when a Mode is not one of the known values.
	InvalidModeError struct {
		Value Mode
	}
)

func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("invalid mode %q (expected prep, install, or config)", e.Value)
}

// Unwrap returns ErrInvalidMode for errors.Is() compatibility.
func (e *InvalidModeError) Unwrap() error { return ErrInvalidMode }

// IsValid returns whether the Mode is one of the defined modes,
// and a list of validation errors if it is not.
func (m Mode) IsValid() (bool, []error) {
	switch m {
	case ModePrep, ModeInstall, ModeConfig:
		return true, nil
	default:
		return false, []error{&InvalidModeError{Value: m}}
	}
}

func (m Mode) fetches() bool { return m == ModePrep || m == ModeInstall }

// writes is false for install: it fetches only and leaves manifests byte-identical.
func (m Mode) writes() bool { return m == ModePrep || m == ModeConfig }

func (m Mode) wipes() bool { return m.fetches() }
