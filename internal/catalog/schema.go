// internal/catalog/schema.go
package catalog

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"merchant-triggers/internal/models"
)

var configSchemas = map[models.ActionKind]string{
	models.ActionEmail: `{
		"type": "object",
		"required": ["subject"],
		"properties": {
			"subject":     {"type": "string", "minLength": 1},
			"htmlContent": {"type": "string"},
			"textContent": {"type": "string"},
			"fromAddress": {"type": "string"},
			"fromName":    {"type": "string"},
			"replyTo":     {"type": "string"}
		},
		"anyOf": [
			{"required": ["htmlContent"]},
			{"required": ["textContent"]}
		]
	}`,
	models.ActionSMS: `{
		"type": "object",
		"required": ["message"],
		"properties": {
			"message": {"type": "string", "minLength": 1}
		}
	}`,
	models.ActionWebhook: `{
		"type": "object",
		"required": ["url"],
		"properties": {
			"url":     {"type": "string", "minLength": 1},
			"method":  {"type": "string", "pattern": "^\\s*(?i:get|head|post|put|patch|delete)?\\s*$"},
			"headers": {"type": "object", "additionalProperties": {"type": "string"}},
			"authentication": {
				"type": "object",
				"required": ["type"],
				"properties": {
					"type":        {"type": "string", "enum": ["bearer", "basic", "api_key"]},
					"credentials": {"type": "object"}
				}
			}
		}
	}`,
	models.ActionNotification: `{
		"type": "object",
		"required": ["title", "message"],
		"properties": {
			"title":     {"type": "string", "minLength": 1},
			"message":   {"type": "string", "minLength": 1},
			"type":      {"type": "string"},
			"actionUrl": {"type": "string"}
		}
	}`,
	models.ActionSlack: `{
		"type": "object",
		"required": ["message"],
		"properties": {
			"channel":   {"type": "string"},
			"message":   {"type": "string", "minLength": 1},
			"username":  {"type": "string"},
			"iconEmoji": {"type": "string"}
		}
	}`,
}

// ValidateConfig checks a raw template config against the JSON schema for kind.
func ValidateConfig(kind models.ActionKind, raw json.RawMessage) error {
	schema, ok := configSchemas[kind]
	if !ok {
		return fmt.Errorf("unknown action type %q", kind)
	}
	if len(raw) == 0 {
		return fmt.Errorf("%s config is empty", kind)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return fmt.Errorf("validate %s config: %w", kind, err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("%s config failed validation: %s", kind, strings.Join(errs, "; "))
	}
	return nil
}

// PrepareTemplate validates tmpl's raw config and decodes it into tmpl.Config.
func PrepareTemplate(tmpl *models.ActionTemplate) error {
	if err := ValidateConfig(tmpl.ActionType, tmpl.RawConfig); err != nil {
		return err
	}
	return tmpl.Decode()
}
