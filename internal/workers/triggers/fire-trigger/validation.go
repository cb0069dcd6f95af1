package firetrigger

import "merchant-triggers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	minLength := 1
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"triggerKey": {
				Type:        "string",
				Description: "Key of the trigger to fire",
				MinLength:   &minLength,
			},
			"context": {
				Type:        "object",
				Description: "Firing context used for conditions and templates",
			},
			"recipientUserId": {Type: "string"},
			"triggerSource":   {Type: "string"},
			"triggeredBy":     {Type: "string"},
		},
		Required: []string{"triggerKey"},
		// process variables beyond the ones above are passed through by Zeebe
		AdditionalProperties: true,
	}
}
