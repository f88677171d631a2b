// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

const (
	// maxConfigFileSize bounds the config files nanoforge will parse.
	maxConfigFileSize = 1 << 20

	schemaDefinition = "#Config"
)

type (
	// SchemaError is returned when a config file does not compile or does not
	// satisfy the configuration schema. It wraps ErrInvalidConfig.
	SchemaError struct {
		// File is the config file path.
		File string
		// Violations lists every problem CUE reported, in report order.
		Violations []Violation
	}

	// Violation is a single schema problem. Field is the dotted path of the
	// offending field and is empty for syntax errors.
	Violation struct {
		Field   string
		Message string
	}
)

// Error implements the error interface.
func (e *SchemaError) Error() string {
	if len(e.Violations) == 1 {
		return e.File + ": " + e.Violations[0].String()
	}
	lines := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		lines[i] = v.String()
	}
	return fmt.Sprintf("%s: %d schema violations:\n  %s", e.File, len(e.Violations), strings.Join(lines, "\n  "))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *SchemaError) Unwrap() error { return ErrInvalidConfig }

func (v Violation) String() string {
	if v.Field == "" {
		return v.Message
	}
	return v.Field + ": " + v.Message
}

// decodeConfigFile validates data, the contents of the config file at path,
// against #Config and decodes it into a generic map suitable for merging into
// viper. Every field is optional, so absent values are fine.
func decodeConfigFile(path string, data []byte) (map[string]any, error) {
	if len(data) > maxConfigFileSize {
		return nil, fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes", path, len(data), maxConfigFileSize)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(configSchema).LookupPath(cue.ParsePath(schemaDefinition))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile embedded config schema: %w", err)
	}

	user := ctx.CompileBytes(data, cue.Filename(path))
	if err := user.Err(); err != nil {
		return nil, newSchemaError(path, err)
	}

	unified := schema.Unify(user)
	if err := unified.Validate(); err != nil {
		return nil, newSchemaError(path, err)
	}

	var out map[string]any
	if err := unified.Decode(&out); err != nil {
		return nil, newSchemaError(path, err)
	}
	return out, nil
}

func newSchemaError(path string, err error) *SchemaError {
	se := &SchemaError{File: path}
	for _, e := range cueerrors.Errors(err) {
		segs := cueerrors.Path(e)
		se.Violations = append(se.Violations, Violation{
			Field:   violationField(segs),
			Message: trimPathPrefix(e.Error(), strings.Join(segs, ".")),
		})
	}
	if len(se.Violations) == 0 {
		se.Violations = []Violation{{Message: err.Error()}}
	}
	return se
}

// violationField renders a CUE error path as the user-facing dotted field,
// dropping the schema definition the file was unified with.
func violationField(path []string) string {
	if len(path) > 0 && path[0] == schemaDefinition {
		path = path[1:]
	}
	return strings.Join(path, ".")
}

// trimPathPrefix removes the "<path>:" CUE puts at the start of most messages.
func trimPathPrefix(msg, path string) string {
	if path == "" || !strings.HasPrefix(msg, path) {
		return msg
	}
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, path), ":"))
}
