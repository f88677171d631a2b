// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidDeclaration is the sentinel error wrapped by InvalidDeclarationError.
var ErrInvalidDeclaration = errors.New("invalid nanoservice declaration")

type (
	// Declaration is one entry of the [nanoservices] section.
	//
	//	[nanoservices.auth]
	//	dev_image = "nanoservices/auth:latest"
	//	prod_image = "nanoservices/auth:1.2.0"
	//	entrypoint = "."
	//	features = ["server"]
	Declaration struct {
		// DevImage is the artifact fetched and linked during development.
		DevImage ArtifactID `toml:"dev_image"`
		// ProdImage is the artifact used for production builds.
		ProdImage ArtifactID `toml:"prod_image"`
		// Entrypoint is the subpath inside the extracted artifact holding the crate.
		Entrypoint string `toml:"entrypoint"`
		// Features are passed through to the generated dependency entry.
		Features []string `toml:"features,omitempty"`
		// Local marks an artifact that is already extracted and must not be fetched.
		Local bool `toml:"local,omitempty"`
		// Package overrides the crate name of the generated dependency entry.
		Package string `toml:"package,omitempty"`
		// Kernel is an optional second crate shipped in the same artifact.
		Kernel *Kernel `toml:"kernel,omitempty"`
	}

	// Kernel is a sub-dependency nested in a Declaration. It is inserted as its
	// own top-level dependency named Name and shares the parent's artifact.
	Kernel struct {
		Entrypoint string   `toml:"entrypoint"`
		Features   []string `toml:"features,omitempty"`
		Package    string   `toml:"package,omitempty"`
		Name       string   `toml:"name"`
	}

	// NamedDeclaration pairs a Declaration with its declared name.
	NamedDeclaration struct {
		Name string
		Declaration
	}

	// InvalidDeclarationError is returned when a declaration lacks a required
	// field or carries an invalid artifact identifier.
	InvalidDeclarationError struct {
		Name   string
		Field  string
		Reason string
	}
)

// Validate checks required fields and artifact identifiers.
func (d Declaration) Validate(name string) error {
	var errs []error
	if d.DevImage == "" {
		errs = append(errs, &InvalidDeclarationError{Name: name, Field: "dev_image", Reason: "is required"})
	} else if ok, verrs := d.DevImage.IsValid(); !ok {
		errs = append(errs, &InvalidDeclarationError{Name: name, Field: "dev_image", Reason: errors.Join(verrs...).Error()})
	}
	if d.ProdImage == "" {
		errs = append(errs, &InvalidDeclarationError{Name: name, Field: "prod_image", Reason: "is required"})
	} else if ok, verrs := d.ProdImage.IsValid(); !ok {
		errs = append(errs, &InvalidDeclarationError{Name: name, Field: "prod_image", Reason: errors.Join(verrs...).Error()})
	}
	if d.Entrypoint == "" {
		errs = append(errs, &InvalidDeclarationError{Name: name, Field: "entrypoint", Reason: "is required"})
	}
	if d.Kernel != nil {
		if d.Kernel.Name == "" {
			errs = append(errs, &InvalidDeclarationError{Name: name, Field: "kernel.name", Reason: "is required"})
		}
		if d.Kernel.Entrypoint == "" {
			errs = append(errs, &InvalidDeclarationError{Name: name, Field: "kernel.entrypoint", Reason: "is required"})
		}
	}
	return errors.Join(errs...)
}

// Key returns the structural identity of the declaration. Two declarations with
// equal keys describe the same artifact content and are fetched once.
func (d Declaration) Key() string {
	var b strings.Builder
	field := func(s string) {
		b.WriteString(strconv.Quote(s))
		b.WriteByte(';')
	}
	field(string(d.DevImage))
	field(string(d.ProdImage))
	field(d.Entrypoint)
	field(strings.Join(d.Features, ","))
	field(strconv.FormatBool(d.Local))
	field(d.Package)
	if d.Kernel != nil {
		b.WriteString("kernel:")
		field(d.Kernel.Name)
		field(d.Kernel.Entrypoint)
		field(strings.Join(d.Kernel.Features, ","))
		field(d.Kernel.Package)
	}
	return b.String()
}

// Error implements the error interface for InvalidDeclarationError.
func (e *InvalidDeclarationError) Error() string {
	return fmt.Sprintf("nanoservice %q: %s %s", e.Name, e.Field, e.Reason)
}

// Unwrap returns ErrInvalidDeclaration for errors.Is() compatibility.
func (e *InvalidDeclarationError) Unwrap() error { return ErrInvalidDeclaration }
