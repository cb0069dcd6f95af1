// Package validation checks firing contexts against a trigger's declared
// context schema and validates recipient identifiers.
package validation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// JSONSchema is the subset of JSON Schema a trigger may declare for its context.
type JSONSchema struct {
	Type                 string              `json:"type"`
	Properties           map[string]Property `json:"properties"`
	Required             []string            `json:"required,omitempty"`
	AdditionalProperties bool                `json:"additionalProperties,omitempty"`
}

type Property struct {
	Type        string              `json:"type"`
	Description string              `json:"description,omitempty"`
	Enum        []string            `json:"enum,omitempty"`
	Pattern     *string             `json:"pattern,omitempty"`
	MinLength   *int                `json:"minLength,omitempty"`
	Minimum     *float64            `json:"minimum,omitempty"`
	Maximum     *float64            `json:"maximum,omitempty"`
	Items       *Property           `json:"items,omitempty"`
	Properties  map[string]Property `json:"properties,omitempty"`
	Required    []string            `json:"required,omitempty"`
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

// IsEmpty reports a schema that declares nothing to check.
func (s JSONSchema) IsEmpty() bool {
	return s.Type == "" && len(s.Properties) == 0 && len(s.Required) == 0
}

// ValidateInput checks input against schema. Fields are visited in sorted order
// so the error list is deterministic.
func ValidateInput(input map[string]interface{}, schema JSONSchema) *ValidationResult {
	var errs []ValidationError

	for _, field := range schema.Required {
		if _, ok := input[field]; !ok {
			errs = append(errs, ValidationError{Field: field, Message: "required field missing", Code: "REQUIRED_FIELD_MISSING"})
		}
	}

	keys := make([]string, 0, len(input))
	for k := range input {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, field := range keys {
		prop, ok := schema.Properties[field]
		if !ok {
			if !schema.AdditionalProperties && len(schema.Properties) > 0 {
				errs = append(errs, ValidationError{Field: field, Message: "field not allowed in schema", Code: "EXTRA_FIELD"})
			}
			continue
		}
		errs = append(errs, validateField(field, input[field], prop)...)
	}

	return &ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func validateField(name string, value interface{}, prop Property) []ValidationError {
	if err := checkType(value, prop.Type); err != nil {
		return []ValidationError{{Field: name, Message: err.Error(), Code: "INVALID_TYPE"}}
	}

	var errs []ValidationError
	switch v := value.(type) {
	case string:
		if prop.MinLength != nil && len(v) < *prop.MinLength {
			errs = append(errs, ValidationError{Field: name, Message: fmt.Sprintf("value must be at least %d characters", *prop.MinLength), Code: "MIN_LENGTH_VIOLATION"})
		}
		if prop.Pattern != nil {
			if matched, err := regexp.MatchString(*prop.Pattern, v); err != nil || !matched {
				errs = append(errs, ValidationError{Field: name, Message: fmt.Sprintf("value must match pattern %s", *prop.Pattern), Code: "PATTERN_MISMATCH"})
			}
		}
		if len(prop.Enum) > 0 && !contains(prop.Enum, v) {
			errs = append(errs, ValidationError{Field: name, Message: fmt.Sprintf("value must be one of %v", prop.Enum), Code: "INVALID_ENUM_VALUE"})
		}
	case float64:
		if prop.Minimum != nil && v < *prop.Minimum {
			errs = append(errs, ValidationError{Field: name, Message: fmt.Sprintf("value must be >= %g", *prop.Minimum), Code: "MINIMUM_VIOLATION"})
		}
		if prop.Maximum != nil && v > *prop.Maximum {
			errs = append(errs, ValidationError{Field: name, Message: fmt.Sprintf("value must be <= %g", *prop.Maximum), Code: "MAXIMUM_VIOLATION"})
		}
	case []interface{}:
		if prop.Items != nil {
			for i, item := range v {
				errs = append(errs, validateField(fmt.Sprintf("%s[%d]", name, i), item, *prop.Items)...)
			}
		}
	case map[string]interface{}:
		if prop.Properties != nil {
			nested := ValidateInput(v, JSONSchema{Type: "object", Properties: prop.Properties, Required: prop.Required, AdditionalProperties: true})
			for _, e := range nested.Errors {
				e.Field = name + "." + e.Field
				errs = append(errs, e)
			}
		}
	}
	return errs
}

func checkType(value interface{}, expected string) error {
	ok := true
	switch expected {
	case "":
		return nil
	case "string":
		_, ok = value.(string)
	case "number":
		switch value.(type) {
		case float64, float32, int, int32, int64:
		default:
			ok = false
		}
	case "integer":
		switch v := value.(type) {
		case int, int32, int64:
		case float64:
			ok = v == float64(int64(v))
		default:
			ok = false
		}
	case "boolean":
		_, ok = value.(bool)
	case "object":
		_, ok = value.(map[string]interface{})
	case "array":
		_, ok = value.([]interface{})
	case "null":
		ok = value == nil
	}
	if !ok {
		return fmt.Errorf("expected %s, got %T", expected, value)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// GetSchemaFromJSON parses a schema stored as JSON text.
func GetSchemaFromJSON(schemaJSON string) (JSONSchema, error) {
	var schema JSONSchema
	if strings.TrimSpace(schemaJSON) == "" {
		return schema, nil
	}
	err := json.Unmarshal([]byte(schemaJSON), &schema)
	return schema, err
}

// GetErrorMessages flattens the result into "field: message" strings.
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern = regexp.MustCompile(`^\+?[\d\s\-\(\)]{7,}$`)
	urlPattern   = regexp.MustCompile(`^https?://[^\s/$.?#].[^\s]*$`)
)

func ValidateEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

func ValidatePhone(phone string) bool {
	return phonePattern.MatchString(strings.TrimSpace(phone))
}

func ValidateURL(url string) bool {
	return urlPattern.MatchString(url)
}
