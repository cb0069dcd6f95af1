package retryfailedactions

// Input is optional; a BPMN timer usually starts the job without variables.
type Input struct {
	Limit int `json:"limit,omitempty"`
}

type Output struct {
	RetryExamined  int `json:"retryExamined"`
	RetrySucceeded int `json:"retrySucceeded"`
	RetryFailed    int `json:"retryFailed"`
	RetrySkipped   int `json:"retrySkipped"`
}
