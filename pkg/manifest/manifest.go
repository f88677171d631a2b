// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/pelletier/go-toml/v2"
)

const (
	// DefaultFileName is the manifest file name looked for during scans.
	DefaultFileName = "Cargo.toml"

	packageKey      = "package"
	dependenciesKey = "dependencies"
	nanoservicesKey = "nanoservices"
)

// ErrParse is the sentinel error wrapped by ParseError.
var ErrParse = errors.New("manifest parse failure")

type (
	// Manifest is a parsed Cargo.toml.
	Manifest struct {
		// Path is the location the manifest was read from and is written back to.
		Path string
		// Package is the [package] identity; nil for virtual workspace manifests.
		Package *Package
		// Dependencies is the [dependencies] table, shared with the underlying
		// document so edits are persisted by Encode. Nil when the table is absent.
		Dependencies map[string]any
		// Nanoservices holds the typed [nanoservices] section.
		Nanoservices map[string]Declaration

		doc map[string]any
	}

	// Package is the [package] identity of a manifest. Fields not given as plain
	// strings (e.g. `version.workspace = true`) are left empty.
	Package struct {
		Name    string
		Version string
		Edition string
	}

	// ParseError is returned when a manifest cannot be decoded.
	ParseError struct {
		Path string
		Err  error
	}

	nanoservicesSection struct {
		Nanoservices map[string]Declaration `toml:"nanoservices"`
	}
)

// Read loads and parses the manifest at path.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	return Parse(path, data)
}

// Parse decodes manifest content. path is recorded for later writes and errors.
func Parse(path string, data []byte) (*Manifest, error) {
	doc := map[string]any{}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	var section nanoservicesSection
	if err := toml.Unmarshal(data, &section); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	for _, name := range slices.Sorted(maps.Keys(section.Nanoservices)) {
		if err := section.Nanoservices[name].Validate(name); err != nil {
			return nil, &ParseError{Path: path, Err: err}
		}
	}

	m := &Manifest{
		Path:         path,
		Nanoservices: section.Nanoservices,
		doc:          doc,
	}
	if pkg, ok := doc[packageKey].(map[string]any); ok {
		m.Package = &Package{
			Name:    stringValue(pkg["name"]),
			Version: stringValue(pkg["version"]),
			Edition: stringValue(pkg["edition"]),
		}
	}
	if deps, ok := doc[dependenciesKey].(map[string]any); ok {
		m.Dependencies = deps
	}
	return m, nil
}

// Buildable reports whether the manifest describes a package with a dependency
// table. Manifests that are not buildable are never rewritten.
func (m *Manifest) Buildable() bool {
	return m.Package != nil && m.Dependencies != nil
}

// Declarations returns the nanoservice declarations sorted by name.
func (m *Manifest) Declarations() []NamedDeclaration {
	out := make([]NamedDeclaration, 0, len(m.Nanoservices))
	for _, name := range slices.Sorted(maps.Keys(m.Nanoservices)) {
		out = append(out, NamedDeclaration{Name: name, Declaration: m.Nanoservices[name]})
	}
	return out
}

// Document returns the full decoded document.
func (m *Manifest) Document() map[string]any {
	return m.doc
}

// Encode serializes the manifest. Keys are emitted in sorted order, so encoding
// the same content always yields the same bytes.
func (m *Manifest) Encode() ([]byte, error) {
	if m.doc == nil {
		m.doc = map[string]any{}
	}
	if m.Dependencies != nil {
		m.doc[dependenciesKey] = m.Dependencies
	}
	data, err := toml.Marshal(m.doc)
	if err != nil {
		return nil, fmt.Errorf("encode manifest %s: %w", m.Path, err)
	}
	return data, nil
}

// Write encodes the manifest and writes it back to Path.
func (m *Manifest) Write() error {
	data, err := m.Encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(m.Path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest %s: %w", m.Path, err)
	}
	return nil
}

// Error implements the error interface for ParseError.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse manifest %s: %v", e.Path, e.Err)
}

// Unwrap exposes both ErrParse and the decoder's error to errors.Is/As.
func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}
