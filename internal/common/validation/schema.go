// Package validation checks job variables against JSON Schemas before a worker decodes them.
package validation

import (
	"fmt"
	"strings"

	"gigbook-workers/internal/common/errors"

	"github.com/xeipuuv/gojsonschema"
)

// Schema is a compiled JSON Schema for one task type's input.
type Schema struct {
	name   string
	schema *gojsonschema.Schema
}

// MustCompile panics if schemaJSON is not a valid schema. Use it for package-level schemas.
func MustCompile(name, schemaJSON string) *Schema {
	s, err := Compile(name, schemaJSON)
	if err != nil {
		panic(err)
	}
	return s
}

func Compile(name, schemaJSON string) (*Schema, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &Schema{name: name, schema: compiled}, nil
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Validate checks raw job variables. Undecodable JSON is reported as a single root error.
func (s *Schema) Validate(variables []byte) *ValidationResult {
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(variables))
	if err != nil {
		return &ValidationResult{
			Errors: []ValidationError{{Field: "(root)", Message: err.Error(), Code: "INVALID_JSON"}},
		}
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   fieldOf(desc),
			Message: desc.Description(),
			Code:    codeOf(desc.Type()),
		})
	}
	return out
}

// fieldOf resolves root-level "required" errors to the missing property.
func fieldOf(desc gojsonschema.ResultError) string {
	field := desc.Field()
	if field != "(root)" {
		return field
	}
	if p, ok := desc.Details()["property"].(string); ok {
		return p
	}
	return field
}

func codeOf(errType string) string {
	switch errType {
	case "required":
		return "REQUIRED_FIELD_MISSING"
	case "invalid_type":
		return "INVALID_TYPE"
	case "enum":
		return "INVALID_ENUM_VALUE"
	case "pattern":
		return "PATTERN_MISMATCH"
	default:
		return strings.ToUpper(errType)
	}
}

func (vr *ValidationResult) GetErrorMessages() []string {
	msgs := make([]string, 0, len(vr.Errors))
	for _, e := range vr.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return msgs
}

func (vr *ValidationResult) HasErrors(field string) bool {
	for _, e := range vr.Errors {
		if e.Field == field {
			return true
		}
	}
	return false
}

// Err is nil for a valid result and a VALIDATION_FAILED error otherwise.
func (vr *ValidationResult) Err() error {
	if vr.Valid {
		return nil
	}
	return errors.NewValidationFailedError(strings.Join(vr.GetErrorMessages(), "; ")).
		WithMetadata("validationErrors", vr.Errors)
}
