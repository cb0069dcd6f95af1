// internal/activity/postgres.go
package activity

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "merchant-triggers/internal/common/errors"
	"merchant-triggers/internal/models"
)

const activityColumns = `
	a.id, a.firing_id, a.trigger_action_id, a.trigger_id, a.trigger_key, a.action_template_id,
	a.template_version, a.action_type, a.sequence_order, a.attempt, a.retry_of, a.recipient,
	a.recipient_name, a.status, a.status_message, a.trigger_source, a.triggered_by,
	a.context_data, a.response_data, a.executed_at, a.delivered_at, a.failed_at, a.created_at`

const insertActivityQuery = `
	INSERT INTO action_activities (
		firing_id, trigger_action_id, trigger_id, trigger_key, action_template_id,
		template_version, action_type, sequence_order, attempt, retry_of, recipient,
		recipient_name, status, status_message, trigger_source, triggered_by,
		context_data, response_data, executed_at, delivered_at, failed_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	RETURNING id, created_at`

var listRetryableQuery = `SELECT` + activityColumns + `
	FROM action_activities a
	JOIN trigger_actions ta ON ta.id = a.trigger_action_id
	WHERE a.status = 'failed'
		AND ta.retry_on_failure = true
		AND ta.is_active = true
		AND a.attempt <= ta.max_retries
		AND NOT EXISTS (SELECT 1 FROM action_activities r WHERE r.retry_of = a.id)
	ORDER BY a.created_at ASC, a.id ASC
	LIMIT $1`

type PostgresLog struct {
	db *sql.DB
}

func NewPostgresLog(db *sql.DB) *PostgresLog {
	return &PostgresLog{db: db}
}

func (l *PostgresLog) Record(ctx context.Context, row *models.ActionActivity) error {
	contextData, err := encodeJSON(row.ContextData)
	if err != nil {
		return apperrors.NewActivityWriteFailedError(fmt.Errorf("encode context: %w", err))
	}
	responseData, err := encodeJSON(row.ResponseData)
	if err != nil {
		return apperrors.NewActivityWriteFailedError(fmt.Errorf("encode response: %w", err))
	}

	err = l.db.QueryRowContext(ctx, insertActivityQuery,
		row.FiringID, row.TriggerActionID, row.TriggerID, row.TriggerKey, row.ActionTemplateID,
		row.TemplateVersion, string(row.ActionType), row.SequenceOrder, row.Attempt, row.RetryOf, row.Recipient,
		row.RecipientName, string(row.Status), row.StatusMessage, row.TriggerSource, row.TriggeredBy,
		contextData, responseData, row.ExecutedAt, row.DeliveredAt, row.FailedAt,
	).Scan(&row.ID, &row.CreatedAt)
	if err != nil {
		return apperrors.NewActivityWriteFailedError(err)
	}
	return nil
}

func (l *PostgresLog) List(ctx context.Context, filter models.ActivityFilter) ([]models.ActionActivity, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(clause string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.TriggerKey != "" {
		add("a.trigger_key = $%d", filter.TriggerKey)
	}
	if filter.Status != "" {
		add("a.status = $%d", string(filter.Status))
	}
	if filter.FiringID != "" {
		add("a.firing_id = $%d", filter.FiringID)
	}

	var b strings.Builder
	b.WriteString("SELECT" + activityColumns + "\n\tFROM action_activities a")
	if len(where) > 0 {
		b.WriteString("\n\tWHERE " + strings.Join(where, " AND "))
	}
	args = append(args, clampLimit(filter.Limit))
	fmt.Fprintf(&b, "\n\tORDER BY a.created_at DESC, a.id DESC\n\tLIMIT $%d", len(args))

	return l.query(ctx, b.String(), args...)
}

func (l *PostgresLog) ListRetryable(ctx context.Context, limit int) ([]models.ActionActivity, error) {
	return l.query(ctx, listRetryableQuery, clampLimit(limit))
}

func (l *PostgresLog) query(ctx context.Context, query string, args ...interface{}) ([]models.ActionActivity, error) {
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewActivityQueryFailedError(err)
	}
	defer rows.Close()

	var out []models.ActionActivity
	for rows.Next() {
		row, err := scanActivity(rows)
		if err != nil {
			return nil, apperrors.NewActivityQueryFailedError(err)
		}
		out = append(out, *row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewActivityQueryFailedError(err)
	}
	return out, nil
}

func scanActivity(rows *sql.Rows) (*models.ActionActivity, error) {
	var (
		a                            models.ActionActivity
		actionType, status           string
		retryOf                      sql.NullInt64
		recipientName, statusMessage sql.NullString
		triggerSource, triggeredBy   sql.NullString
		contextData, responseData    []byte
		deliveredAt, failedAt        sql.NullTime
	)
	err := rows.Scan(
		&a.ID, &a.FiringID, &a.TriggerActionID, &a.TriggerID, &a.TriggerKey, &a.ActionTemplateID,
		&a.TemplateVersion, &actionType, &a.SequenceOrder, &a.Attempt, &retryOf, &a.Recipient,
		&recipientName, &status, &statusMessage, &triggerSource, &triggeredBy,
		&contextData, &responseData, &a.ExecutedAt, &deliveredAt, &failedAt, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.ActionType = models.ActionKind(actionType)
	a.Status = models.ActivityStatus(status)
	if retryOf.Valid {
		a.RetryOf = &retryOf.Int64
	}
	a.RecipientName = recipientName.String
	a.StatusMessage = statusMessage.String
	a.TriggerSource = triggerSource.String
	a.TriggeredBy = triggeredBy.String
	a.DeliveredAt = nullTime(deliveredAt)
	a.FailedAt = nullTime(failedAt)

	if len(contextData) > 0 {
		if err := json.Unmarshal(contextData, &a.ContextData); err != nil {
			return nil, fmt.Errorf("decode context_data: %w", err)
		}
	}
	if len(responseData) > 0 {
		if err := json.Unmarshal(responseData, &a.ResponseData); err != nil {
			return nil, fmt.Errorf("decode response_data: %w", err)
		}
	}
	return &a, nil
}

func encodeJSON(m map[string]interface{}) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
