package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"merchant-triggers/internal/actions"
	apperrors "merchant-triggers/internal/common/errors"
	"merchant-triggers/internal/models"
)

func failedRow(id, bindingID int64, attempt int) models.ActionActivity {
	return models.ActionActivity{
		ID:              id,
		FiringID:        "f-1",
		TriggerActionID: bindingID,
		TriggerID:       1,
		TriggerKey:      testTriggerKey,
		ActionType:      models.ActionSMS,
		Attempt:         attempt,
		Recipient:       "+15550102030",
		RecipientName:   "Jane Doe",
		Status:          models.StatusFailed,
		TriggeredBy:     "agent-7",
		ContextData:     map[string]interface{}{"dealId": "d-1"},
	}
}

func retrySeed() *seedBuilder {
	return newSeed().
		template(12, models.ActionSMS, `{"message":"deal {{dealId}}"}`).
		bind(models.TriggerAction{ID: 1, ActionTemplateID: 12, SequenceOrder: 1, RetryOnFailure: true, MaxRetries: 2}).
		bind(models.TriggerAction{ID: 2, ActionTemplateID: 12, SequenceOrder: 2, RetryOnFailure: false})
}

func TestRetrier_RetryFailed(t *testing.T) {
	smsExec := &recordingExecutor{kind: models.ActionSMS, fn: func(ctx context.Context, tmpl *models.ActionTemplate, recipient string) actions.Result {
		return actions.Sent("ok", nil)
	}}
	env := newTestEnv(t, retrySeed(), Config{}, smsExec)
	env.activity.retryable = []models.ActionActivity{
		failedRow(500, 1, 1),
		failedRow(501, 1, 3),
		failedRow(502, 2, 1),
		failedRow(503, 99, 1),
	}

	sum, err := NewRetrier(env.svc).RetryFailed(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, RetrySummary{Examined: 4, Retried: 1, Succeeded: 1, Skipped: 3}, sum)
	require.Len(t, env.activity.rows, 1)

	row := env.activity.rows[0]
	assert.Equal(t, 2, row.Attempt)
	require.NotNil(t, row.RetryOf)
	assert.Equal(t, int64(500), *row.RetryOf)
	assert.Equal(t, "f-1", row.FiringID)
	assert.Equal(t, "+15550102030", row.Recipient)
	assert.Equal(t, "retry", row.TriggerSource)
	assert.Equal(t, "agent-7", row.TriggeredBy)
	assert.Equal(t, models.StatusSent, row.Status)

	require.Equal(t, 1, smsExec.callCount())
	assert.Equal(t, "d-1", smsExec.calls[0].data["dealId"])
}

func TestRetrier_RetryStillFailing(t *testing.T) {
	smsExec := &recordingExecutor{kind: models.ActionSMS, fn: func(ctx context.Context, tmpl *models.ActionTemplate, recipient string) actions.Result {
		return actions.Failed("still down", nil)
	}}
	env := newTestEnv(t, retrySeed(), Config{}, smsExec)
	env.activity.retryable = []models.ActionActivity{failedRow(500, 1, 2)}

	sum, err := NewRetrier(env.svc).RetryFailed(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Failed)
	require.Len(t, env.activity.rows, 1)
	assert.Equal(t, 3, env.activity.rows[0].Attempt)
	assert.Equal(t, models.StatusFailed, env.activity.rows[0].Status)
	assert.NotNil(t, env.activity.rows[0].FailedAt)
}

type failingRetryLog struct{ memActivity }

func (f *failingRetryLog) ListRetryable(ctx context.Context, limit int) ([]models.ActionActivity, error) {
	return nil, errors.New("query failed")
}

func TestRetrier_ListFailure(t *testing.T) {
	env := newTestEnv(t, retrySeed(), Config{})
	env.svc.activity = &failingRetryLog{}

	_, err := NewRetrier(env.svc).RetryFailed(context.Background(), 10)
	assert.Error(t, err)
}

func TestRetrier_StopsWhenRetryIsNotRecorded(t *testing.T) {
	smsExec := &recordingExecutor{kind: models.ActionSMS, fn: func(ctx context.Context, tmpl *models.ActionTemplate, recipient string) actions.Result {
		return actions.Sent("ok", nil)
	}}
	env := newTestEnv(t, retrySeed(), Config{}, smsExec)
	env.activity.failWhen = func(row *models.ActionActivity) bool { return row.RetryOf != nil }
	env.activity.retryable = []models.ActionActivity{
		failedRow(500, 1, 1),
		failedRow(504, 1, 1),
	}

	sum, err := NewRetrier(env.svc).RetryFailed(context.Background(), 10)
	require.Error(t, err)

	stdErr := apperrors.AsStandardError(err)
	assert.Equal(t, apperrors.ErrCodeActivityWriteFailed, stdErr.Code)
	assert.Equal(t, int64(500), stdErr.Metadata["retryOf"])
	assert.Equal(t, RetrySummary{Examined: 1, Retried: 1, Succeeded: 1}, sum)
	assert.Equal(t, 1, smsExec.callCount())
	assert.Empty(t, env.activity.rows)
}
