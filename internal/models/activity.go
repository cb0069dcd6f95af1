// internal/models/activity.go
package models

import "time"

type ActivityStatus string

const (
	StatusSent      ActivityStatus = "sent"
	StatusFailed    ActivityStatus = "failed"
	StatusPending   ActivityStatus = "pending"
	StatusDelivered ActivityStatus = "delivered"
)

// ActionActivity is one row of the append-only dispatch audit trail.
type ActionActivity struct {
	ID               int64                  `json:"id"`
	FiringID         string                 `json:"firingId"`
	TriggerActionID  int64                  `json:"triggerActionId"`
	TriggerID        int64                  `json:"triggerId"`
	TriggerKey       string                 `json:"triggerKey"`
	ActionTemplateID int64                  `json:"actionTemplateId"`
	TemplateVersion  int                    `json:"templateVersion"`
	ActionType       ActionKind             `json:"actionType"`
	SequenceOrder    int                    `json:"sequenceOrder"`
	Attempt          int                    `json:"attempt"`
	RetryOf          *int64                 `json:"retryOf,omitempty"`
	Recipient        string                 `json:"recipient"`
	RecipientName    string                 `json:"recipientName,omitempty"`
	Status           ActivityStatus         `json:"status"`
	StatusMessage    string                 `json:"statusMessage,omitempty"`
	TriggerSource    string                 `json:"triggerSource,omitempty"`
	TriggeredBy      string                 `json:"triggeredBy,omitempty"`
	ContextData      map[string]interface{} `json:"contextData,omitempty"`
	ResponseData     map[string]interface{} `json:"responseData,omitempty"`
	ExecutedAt       time.Time              `json:"executedAt"`
	DeliveredAt      *time.Time             `json:"deliveredAt,omitempty"`
	FailedAt         *time.Time             `json:"failedAt,omitempty"`
	CreatedAt        time.Time              `json:"createdAt"`
}

// ActivityFilter narrows activity listings. Zero values mean "any".
type ActivityFilter struct {
	TriggerKey string
	Status     ActivityStatus
	FiringID   string
	Limit      int
}
