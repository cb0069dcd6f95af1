// internal/dispatch/retry.go
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"merchant-triggers/internal/catalog"
	apperrors "merchant-triggers/internal/common/errors"
	"merchant-triggers/internal/common/logger"
	"merchant-triggers/internal/common/metrics"
	"merchant-triggers/internal/models"
)

const retryTriggerSource = "retry"

// RetrySummary reports one RetryFailed pass.
type RetrySummary struct {
	Examined  int `json:"examined"`
	Retried   int `json:"retried"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Retrier re-executes failed activity rows whose binding allows it. Each retry
// inserts a new row pointing at the failed one; the failed row is untouched.
type Retrier struct {
	svc    *Service
	logger logger.Logger
}

func NewRetrier(svc *Service) *Retrier {
	return &Retrier{svc: svc, logger: svc.logger.WithFields(map[string]interface{}{"job": "retry"})}
}

// RetryFailed processes up to limit retryable rows. Failed deliveries are
// reported through the summary. Listing the rows or recording a retry can fail
// the pass: a retry without its row would be picked up and sent again.
func (r *Retrier) RetryFailed(ctx context.Context, limit int) (RetrySummary, error) {
	var sum RetrySummary
	start := time.Now()

	rows, err := r.svc.activity.ListRetryable(ctx, limit)
	if err != nil {
		return sum, err
	}

	for i := range rows {
		if ctx.Err() != nil {
			break
		}
		sum.Examined++
		status, err := r.retryRow(ctx, &rows[i])
		switch status {
		case OutcomeSent:
			sum.Retried++
			sum.Succeeded++
		case OutcomeFailed:
			sum.Retried++
			sum.Failed++
		default:
			sum.Skipped++
		}
		if err != nil {
			r.logger.Error("retry pass stopped, retry was not recorded", map[string]interface{}{
				"activityId": rows[i].ID,
				"examined":   sum.Examined,
				"error":      err.Error(),
			})
			return sum, notRecorded(rows[i].ID, err)
		}
	}

	r.logger.Info("retry pass finished", map[string]interface{}{
		"examined":  sum.Examined,
		"succeeded": sum.Succeeded,
		"failed":    sum.Failed,
		"skipped":   sum.Skipped,
		"duration":  time.Since(start).String(),
	})
	return sum, nil
}

func (r *Retrier) retryRow(ctx context.Context, prev *models.ActionActivity) (OutcomeStatus, error) {
	log := r.logger.WithFields(map[string]interface{}{
		"activityId": prev.ID,
		"bindingId":  prev.TriggerActionID,
		"firingId":   prev.FiringID,
	})

	ba, err := r.svc.catalog.GetBinding(ctx, prev.TriggerActionID)
	if err != nil {
		if errors.Is(err, catalog.ErrBindingNotFound) {
			log.Debug("binding no longer active, not retrying", nil)
		} else {
			log.Error("failed to load binding for retry", map[string]interface{}{"error": err.Error()})
		}
		return OutcomeSkipped, nil
	}
	if !ba.Binding.RetryOnFailure || prev.Attempt > ba.Binding.MaxRetries {
		return OutcomeSkipped, nil
	}

	data := prev.ContextData
	if data == nil {
		data = map[string]interface{}{}
	}

	res := r.svc.execute(ctx, log, ba, prev.Recipient, data, nil)
	row := r.svc.newActivity(prev.FiringID, ba, prev.Recipient, prev.RecipientName, data, Options{
		TriggerSource: retryTriggerSource,
		TriggeredBy:   prev.TriggeredBy,
	}, res)
	row.Attempt = prev.Attempt + 1
	retryOf := prev.ID
	row.RetryOf = &retryOf
	_, err = r.svc.record(ctx, log, row)

	status := OutcomeSent
	if !res.Success {
		status = OutcomeFailed
	}
	metrics.ActionRetries.WithLabelValues(string(ba.Template.ActionType), string(status)).Inc()
	return status, err
}

func notRecorded(activityID int64, err error) error {
	var stdErr *apperrors.StandardError
	if errors.As(err, &stdErr) {
		return stdErr.WithMetadata("retryOf", activityID)
	}
	return apperrors.NewActivityWriteFailedError(fmt.Errorf("retry of activity %d: %w", activityID, err)).
		WithMetadata("retryOf", activityID)
}
