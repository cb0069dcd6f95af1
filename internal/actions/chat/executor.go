// Package chat posts actions to team chat channels.
package chat

import (
	"context"
	"fmt"

	"merchant-triggers/internal/actions"
	"merchant-triggers/internal/common/logger"
	"merchant-triggers/internal/models"
)

type Executor struct {
	transport Transport
	logger    logger.Logger
}

func NewExecutor(transport Transport, log logger.Logger) *Executor {
	return &Executor{transport: transport, logger: logger.ForComponent(log, "chat-executor")}
}

func (e *Executor) Kind() models.ActionKind { return models.ActionSlack }

// Execute posts to recipient, which is the already resolved channel.
func (e *Executor) Execute(ctx context.Context, tmpl *models.ActionTemplate, recipient string, data map[string]interface{}, _ *models.RecipientProfile) actions.Result {
	cfg, ok := tmpl.Config.(models.SlackConfig)
	if !ok {
		return actions.Failed(fmt.Sprintf("template %d has no slack config", tmpl.ID), nil)
	}

	msg := Message{
		Channel:   recipient,
		Text:      actions.Render(cfg.Message, data),
		Username:  cfg.Username,
		IconEmoji: cfg.IconEmoji,
	}
	receipt, err := e.transport.Send(ctx, msg)
	if err != nil {
		e.logger.Warn("chat delivery failed", map[string]interface{}{
			"templateId": tmpl.ID,
			"channel":    recipient,
			"provider":   receipt.Provider,
			"error":      err.Error(),
		})
		return actions.Failed(fmt.Sprintf("chat delivery failed: %v", err), map[string]interface{}{"provider": receipt.Provider})
	}

	return actions.Sent(fmt.Sprintf("Chat message posted to %s", recipient), map[string]interface{}{
		"messageId": receipt.MessageID,
		"provider":  receipt.Provider,
	})
}
