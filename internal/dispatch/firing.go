// internal/dispatch/firing.go
package dispatch

import "merchant-triggers/internal/models"

type OutcomeStatus string

const (
	OutcomeSent    OutcomeStatus = "sent"
	OutcomeFailed  OutcomeStatus = "failed"
	OutcomeSkipped OutcomeStatus = "skipped"
)

// Skip reasons, also used as the reason label on the skip metric.
const (
	SkipPreference  = "preference"
	SkipCondition   = "condition"
	SkipNoRecipient = "no_recipient"
)

// Options carries caller metadata for a firing.
type Options struct {
	RecipientUserID string `json:"recipientUserId,omitempty"`
	TriggerSource   string `json:"triggerSource,omitempty"`
	TriggeredBy     string `json:"triggeredBy,omitempty"`
}

// Outcome summarises what happened to one binding during a firing.
type Outcome struct {
	BindingID     int64             `json:"bindingId"`
	TemplateID    int64             `json:"templateId"`
	ActionType    models.ActionKind `json:"actionType"`
	SequenceOrder int               `json:"sequenceOrder"`
	Status        OutcomeStatus     `json:"status"`
	SkipReason    string            `json:"skipReason,omitempty"`
	Recipient     string            `json:"recipient,omitempty"`
	Message       string            `json:"message,omitempty"`
	ActivityID    int64             `json:"activityId,omitempty"`
}

// Firing is the informational result of FireTrigger.
type Firing struct {
	FiringID     string    `json:"firingId"`
	TriggerKey   string    `json:"triggerKey"`
	TriggerFound bool      `json:"triggerFound"`
	Outcomes     []Outcome `json:"outcomes"`
}

func (f *Firing) Count(status OutcomeStatus) int {
	if f == nil {
		return 0
	}
	n := 0
	for _, o := range f.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Attempted counts bindings that reached an executor.
func (f *Firing) Attempted() int {
	return f.Count(OutcomeSent) + f.Count(OutcomeFailed)
}
