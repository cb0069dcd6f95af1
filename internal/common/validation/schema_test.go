package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateInput(t *testing.T) {
	schema, err := GetSchemaFromJSON(`{
		"type": "object",
		"required": ["merchantName", "signatureUrl"],
		"additionalProperties": true,
		"properties": {
			"merchantName": {"type": "string", "minLength": 1},
			"signatureUrl": {"type": "string", "pattern": "^https://"},
			"amount": {"type": "number", "minimum": 0},
			"status": {"type": "string", "enum": ["pending", "approved"]}
		}
	}`)
	require.NoError(t, err)

	tests := []struct {
		name       string
		input      map[string]interface{}
		wantValid  bool
		wantFields []string
	}{
		{
			name: "valid context",
			input: map[string]interface{}{
				"merchantName": "Acme",
				"signatureUrl": "https://sign.example.com/abc",
				"amount":       12.5,
				"extra":        true,
			},
			wantValid: true,
		},
		{
			name:       "missing required",
			input:      map[string]interface{}{"merchantName": "Acme"},
			wantFields: []string{"signatureUrl"},
		},
		{
			name: "type and constraint violations",
			input: map[string]interface{}{
				"merchantName": 42.0,
				"signatureUrl": "http://insecure",
				"amount":       -1.0,
				"status":       "rejected",
			},
			wantFields: []string{"amount", "merchantName", "signatureUrl", "status"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateInput(tt.input, schema)
			assert.Equal(t, tt.wantValid, result.Valid)
			var fields []string
			for _, e := range result.Errors {
				fields = append(fields, e.Field)
			}
			assert.ElementsMatch(t, tt.wantFields, fields)
		})
	}
}

func TestValidateInput_NestedAndArrays(t *testing.T) {
	schema := JSONSchema{
		Type: "object",
		Properties: map[string]Property{
			"owner": {Type: "object", Required: []string{"email"}, Properties: map[string]Property{
				"email": {Type: "string"},
			}},
			"tags": {Type: "array", Items: &Property{Type: "string"}},
		},
	}

	result := ValidateInput(map[string]interface{}{
		"owner": map[string]interface{}{},
		"tags":  []interface{}{"a", 2.0},
	}, schema)

	assert.False(t, result.Valid)
	assert.ElementsMatch(t, []string{"owner.email: required field missing", "tags[1]: expected string, got float64"}, result.GetErrorMessages())
}

func TestSchema_IsEmpty(t *testing.T) {
	empty, err := GetSchemaFromJSON("")
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())
	assert.False(t, JSONSchema{Required: []string{"x"}}.IsEmpty())
}

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("jane@acme.com"))
	assert.True(t, ValidateEmail(" jane@acme.com "))
	assert.False(t, ValidateEmail("jane@"))
	assert.False(t, ValidateEmail(""))
}

func TestValidatePhoneAndURL(t *testing.T) {
	assert.True(t, ValidatePhone("+1 (555) 010-2030"))
	assert.False(t, ValidatePhone("abc"))
	assert.True(t, ValidateURL("https://hooks.example.com/x"))
	assert.False(t, ValidateURL("ftp://example.com"))
}
