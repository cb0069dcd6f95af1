package firetrigger

// Input is read from the job variables.
type Input struct {
	TriggerKey      string                 `json:"triggerKey"`
	Context         map[string]interface{} `json:"context"`
	RecipientUserID string                 `json:"recipientUserId,omitempty"`
	TriggerSource   string                 `json:"triggerSource,omitempty"`
	TriggeredBy     string                 `json:"triggeredBy,omitempty"`
}

// Output is written back to the process instance.
type Output struct {
	FiringID     string `json:"firingId"`
	TriggerFound bool   `json:"triggerFound"`
	Attempted    int    `json:"attempted"`
	Sent         int    `json:"sent"`
	Failed       int    `json:"failed"`
	Skipped      int    `json:"skipped"`
}
