// Package email delivers email actions through a pluggable mail Transport.
package email

import (
	"context"
	"fmt"

	"merchant-triggers/internal/actions"
	"merchant-triggers/internal/common/logger"
	"merchant-triggers/internal/common/validation"
	"merchant-triggers/internal/models"
)

// Config holds sender defaults applied when a template does not set its own.
type Config struct {
	FromAddress string
	FromName    string
	BrandName   string
}

type Executor struct {
	config    Config
	transport Transport
	logger    logger.Logger
}

func NewExecutor(cfg Config, transport Transport, log logger.Logger) *Executor {
	return &Executor{
		config:    cfg,
		transport: transport,
		logger:    logger.ForComponent(log, "email-executor"),
	}
}

func (e *Executor) Kind() models.ActionKind { return models.ActionEmail }

func (e *Executor) Execute(ctx context.Context, tmpl *models.ActionTemplate, recipient string, data map[string]interface{}, _ *models.RecipientProfile) actions.Result {
	cfg, ok := tmpl.Config.(models.EmailConfig)
	if !ok {
		return actions.Failed(fmt.Sprintf("template %d has no email config", tmpl.ID), nil)
	}
	if !validation.ValidateEmail(recipient) {
		return actions.Failed(fmt.Sprintf("invalid recipient email address %q", recipient), nil)
	}

	msg := e.buildMessage(cfg, recipient, data)

	receipt, err := e.transport.Send(ctx, msg)
	if err != nil {
		e.logger.Warn("email delivery failed", map[string]interface{}{
			"templateId": tmpl.ID,
			"to":         recipient,
			"provider":   receipt.Provider,
			"error":      err.Error(),
		})
		return actions.Failed(fmt.Sprintf("email delivery failed: %v", err), map[string]interface{}{
			"provider": receipt.Provider,
		})
	}
	if !receipt.Accepted {
		return actions.Failed("email rejected by provider", map[string]interface{}{"provider": receipt.Provider})
	}

	return actions.Sent(fmt.Sprintf("Email sent to %s", recipient), map[string]interface{}{
		"messageId": receipt.MessageID,
		"provider":  receipt.Provider,
		"subject":   msg.Subject,
	})
}

func (e *Executor) buildMessage(cfg models.EmailConfig, to string, data map[string]interface{}) Message {
	subject := actions.Render(cfg.Subject, data)
	htmlBody := actions.Render(cfg.HTMLContent, data)
	text := actions.Render(cfg.TextContent, data)

	if htmlBody != "" && !HasLayout(htmlBody) {
		htmlBody = WrapLayout(htmlBody, subject, e.config.BrandName)
	}
	if text == "" && htmlBody != "" {
		text = PlainText(htmlBody)
	}

	from := e.config.FromAddress
	if cfg.FromAddress != "" {
		from = actions.Render(cfg.FromAddress, data)
	}
	fromName := e.config.FromName
	if cfg.FromName != "" {
		fromName = actions.Render(cfg.FromName, data)
	}

	return Message{
		To:       to,
		From:     from,
		FromName: fromName,
		ReplyTo:  actions.Render(cfg.ReplyTo, data),
		Subject:  subject,
		HTML:     htmlBody,
		Text:     text,
	}
}
