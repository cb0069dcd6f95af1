// Package sms delivers text-message actions.
package sms

import (
	"context"
	"fmt"

	"merchant-triggers/internal/actions"
	"merchant-triggers/internal/common/logger"
	"merchant-triggers/internal/common/validation"
	"merchant-triggers/internal/models"
)

type Executor struct {
	transport Transport
	logger    logger.Logger
}

func NewExecutor(transport Transport, log logger.Logger) *Executor {
	return &Executor{transport: transport, logger: logger.ForComponent(log, "sms-executor")}
}

func (e *Executor) Kind() models.ActionKind { return models.ActionSMS }

func (e *Executor) Execute(ctx context.Context, tmpl *models.ActionTemplate, recipient string, data map[string]interface{}, _ *models.RecipientProfile) actions.Result {
	cfg, ok := tmpl.Config.(models.SMSConfig)
	if !ok {
		return actions.Failed(fmt.Sprintf("template %d has no sms config", tmpl.ID), nil)
	}
	if !validation.ValidatePhone(recipient) {
		return actions.Failed(fmt.Sprintf("invalid recipient phone number %q", recipient), nil)
	}

	body := actions.Render(cfg.Message, data)
	receipt, err := e.transport.Send(ctx, recipient, body)
	if err != nil {
		e.logger.Warn("sms delivery failed", map[string]interface{}{
			"templateId": tmpl.ID,
			"provider":   receipt.Provider,
			"error":      err.Error(),
		})
		return actions.Failed(fmt.Sprintf("sms delivery failed: %v", err), map[string]interface{}{"provider": receipt.Provider})
	}

	return actions.Sent(fmt.Sprintf("SMS sent to %s", recipient), map[string]interface{}{
		"messageId": receipt.MessageID,
		"provider":  receipt.Provider,
	})
}
