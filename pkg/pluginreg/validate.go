package pluginreg

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidationFailed indicates the manifest failed validation.
var ErrValidationFailed = errors.New("plugin manifest validation failed")

// parameterTypes is the set of accepted parameter type names.
var parameterTypes = map[string]bool{
	"artifact":  true,
	"boolean":   true,
	"choice":    true,
	"float":     true,
	"integer":   true,
	"reference": true,
	"string":    true,
}

// ValidationError represents a single validation issue.
type ValidationError struct {
	// Path is the JSON pointer to the problematic field
	// (e.g., "/commands/0/name").
	Path string

	// Message describes the validation failure.
	Message string
}

// Error implements error interface.
func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var b strings.Builder
	b.WriteString("plugin manifest validation failed with ")
	b.WriteString(fmt.Sprintf("%d errors:\n", len(e)))
	for i, err := range e {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("  - ")
		b.WriteString(err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error type.
func (e ValidationErrors) Unwrap() error {
	return ErrValidationFailed
}

// Validate checks a parsed manifest structurally: required identity fields,
// a known format version, at least one uniquely named command, declared
// parameter types, and merging-scheme parameters that reference a declared
// parameter.
//
// Returns nil if validation succeeds, or a ValidationErrors with details
// about all validation failures.
func Validate(m *Manifest) error {
	var errs ValidationErrors

	if m.Version != "" && m.Version != DefaultVersion {
		errs = append(errs, ValidationError{
			Path:    "/version",
			Message: fmt.Sprintf("unsupported manifest version %q (want %q)", m.Version, DefaultVersion),
		})
	}

	if m.Software.Name == "" {
		errs = append(errs, ValidationError{Path: "/software/name", Message: "software name is required"})
	}
	if m.Software.Version == "" {
		errs = append(errs, ValidationError{Path: "/software/version", Message: "software version is required"})
	}

	if len(m.Commands) == 0 {
		errs = append(errs, ValidationError{Path: "/commands", Message: "at least one command is required"})
	}

	seenCommands := map[string]bool{}
	for i, cmd := range m.Commands {
		base := fmt.Sprintf("/commands/%d", i)

		if cmd.Name == "" {
			errs = append(errs, ValidationError{Path: base + "/name", Message: "command name is required"})
		} else if seenCommands[cmd.Name] {
			errs = append(errs, ValidationError{Path: base + "/name", Message: fmt.Sprintf("duplicate command %q", cmd.Name)})
		}
		seenCommands[cmd.Name] = true

		seenParams := map[string]bool{}
		for j, param := range cmd.Parameters {
			paramBase := fmt.Sprintf("%s/parameters/%d", base, j)

			if param.Name == "" {
				errs = append(errs, ValidationError{Path: paramBase + "/name", Message: "parameter name is required"})
			} else if seenParams[param.Name] {
				errs = append(errs, ValidationError{Path: paramBase + "/name", Message: fmt.Sprintf("duplicate parameter %q", param.Name)})
			}
			seenParams[param.Name] = true

			if !parameterTypes[param.Type] {
				errs = append(errs, ValidationError{
					Path:    paramBase + "/type",
					Message: fmt.Sprintf("unknown parameter type %q", param.Type),
				})
			}
		}

		if cmd.MergingScheme != nil && cmd.MergingScheme.Parameter != "" && !seenParams[cmd.MergingScheme.Parameter] {
			errs = append(errs, ValidationError{
				Path:    base + "/merging_scheme/parameter",
				Message: fmt.Sprintf("merging scheme references undeclared parameter %q", cmd.MergingScheme.Parameter),
			})
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
