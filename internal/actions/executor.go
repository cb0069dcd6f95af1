// Package actions defines the executor contract shared by every delivery
// channel and the registry the dispatcher resolves executors from.
package actions

import (
	"context"

	"merchant-triggers/internal/models"
)

// Executor delivers one rendered action. Implementations never return errors;
// every failure is reported through a failed Result.
type Executor interface {
	Kind() models.ActionKind
	Execute(ctx context.Context, tmpl *models.ActionTemplate, recipient string, data map[string]interface{}, profile *models.RecipientProfile) Result
}

// Result is the outcome of a single delivery attempt.
type Result struct {
	Success       bool
	Status        models.ActivityStatus
	StatusMessage string
	ResponseData  map[string]interface{}
}

func Sent(message string, response map[string]interface{}) Result {
	return Result{Success: true, Status: models.StatusSent, StatusMessage: message, ResponseData: response}
}

func Failed(message string, response map[string]interface{}) Result {
	return Result{Success: false, Status: models.StatusFailed, StatusMessage: message, ResponseData: response}
}
