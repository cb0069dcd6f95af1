// internal/models/trigger.go
package models

import (
	"encoding/json"
	"time"

	"merchant-triggers/internal/common/validation"
)

// TriggerDefinition names a business event that can fire actions.
type TriggerDefinition struct {
	ID            int64                 `json:"id"`
	TriggerKey    string                `json:"triggerKey"`
	Name          string                `json:"name"`
	Description   string                `json:"description,omitempty"`
	Category      string                `json:"category,omitempty"`
	ContextSchema validation.JSONSchema `json:"contextSchema,omitempty"`
	IsActive      bool                  `json:"isActive"`
	CreatedAt     time.Time             `json:"createdAt"`
	UpdatedAt     time.Time             `json:"updatedAt"`
}

// TriggerAction binds a template to a trigger with per-link policy.
type TriggerAction struct {
	ID                      int64           `json:"id"`
	TriggerID               int64           `json:"triggerId"`
	ActionTemplateID        int64           `json:"actionTemplateId"`
	SequenceOrder           int             `json:"sequenceOrder"`
	Conditions              json.RawMessage `json:"conditions,omitempty"`
	RequiresEmailPreference bool            `json:"requiresEmailPreference"`
	RequiresSMSPreference   bool            `json:"requiresSmsPreference"`
	DelaySeconds            int             `json:"delaySeconds"`
	RetryOnFailure          bool            `json:"retryOnFailure"`
	MaxRetries              int             `json:"maxRetries"`
	IsActive                bool            `json:"isActive"`
	CreatedAt               time.Time       `json:"createdAt"`
}

// BoundAction is an active binding joined with its active template.
type BoundAction struct {
	Trigger  *TriggerDefinition
	Binding  TriggerAction
	Template ActionTemplate
}
