// Package activity persists the append-only audit trail of dispatch attempts.
package activity

import (
	"context"

	"merchant-triggers/internal/models"
)

// Log records and reads activity rows. Rows are never updated.
type Log interface {
	// Record inserts row and fills in its ID and CreatedAt.
	Record(ctx context.Context, row *models.ActionActivity) error
	List(ctx context.Context, filter models.ActivityFilter) ([]models.ActionActivity, error)
	// ListRetryable returns failed rows whose binding allows another attempt
	// and that have not been retried yet, oldest first.
	ListRetryable(ctx context.Context, limit int) ([]models.ActionActivity, error)
}

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
