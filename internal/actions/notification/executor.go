// Package notification writes in-app alerts for CRM users.
package notification

import (
	"context"
	"database/sql"
	"fmt"

	"merchant-triggers/internal/actions"
	"merchant-triggers/internal/common/logger"
	"merchant-triggers/internal/models"
)

const defaultNotificationType = "info"

const insertNotificationQuery = `
	INSERT INTO notifications (user_id, title, message, type, action_url)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id, created_at`

type Executor struct {
	db     *sql.DB
	logger logger.Logger
}

func NewExecutor(db *sql.DB, log logger.Logger) *Executor {
	return &Executor{db: db, logger: logger.ForComponent(log, "notification-executor")}
}

func (e *Executor) Kind() models.ActionKind { return models.ActionNotification }

func (e *Executor) Execute(ctx context.Context, tmpl *models.ActionTemplate, recipient string, data map[string]interface{}, _ *models.RecipientProfile) actions.Result {
	cfg, ok := tmpl.Config.(models.NotificationConfig)
	if !ok {
		return actions.Failed(fmt.Sprintf("template %d has no notification config", tmpl.ID), nil)
	}
	if recipient == "" {
		return actions.Failed("notification recipient user id is empty", nil)
	}

	n := models.Notification{
		UserID:           recipient,
		Title:            actions.Render(cfg.Title, data),
		Message:          actions.Render(cfg.Message, data),
		NotificationType: cfg.NotificationType,
		ActionURL:        actions.Render(cfg.ActionURL, data),
	}
	if n.NotificationType == "" {
		n.NotificationType = defaultNotificationType
	}

	var actionURL sql.NullString
	if n.ActionURL != "" {
		actionURL = sql.NullString{String: n.ActionURL, Valid: true}
	}

	err := e.db.QueryRowContext(ctx, insertNotificationQuery,
		n.UserID, n.Title, n.Message, n.NotificationType, actionURL,
	).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		e.logger.Error("failed to insert notification", map[string]interface{}{
			"templateId": tmpl.ID,
			"userId":     recipient,
			"error":      err.Error(),
		})
		return actions.Failed(fmt.Sprintf("notification insert failed: %v", err), nil)
	}

	return actions.Sent(fmt.Sprintf("Notification created for user %s", recipient), map[string]interface{}{
		"notificationId": n.ID,
		"title":          n.Title,
	})
}
