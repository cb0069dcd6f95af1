// internal/dispatch/recipient.go
package dispatch

import (
	"strings"

	"merchant-triggers/internal/actions"
	"merchant-triggers/internal/models"
)

// Context keys that override profile-derived recipients.
const (
	ctxRecipientEmail  = "recipientEmail"
	ctxRecipientPhone  = "recipientPhone"
	ctxRecipientUserID = "recipientUserId"
	ctxRecipientName   = "recipientName"
	ctxSlackChannel    = "slackChannel"
)

// resolveRecipient picks the delivery address for a binding. An empty result
// means the binding is skipped.
func resolveRecipient(tmpl *models.ActionTemplate, data map[string]interface{}, profile *models.RecipientProfile, opts Options, defaultChannel string) string {
	switch tmpl.ActionType {
	case models.ActionEmail:
		return firstNonEmpty(contextString(data, ctxRecipientEmail), profileField(profile, func(p *models.RecipientProfile) string { return p.Email }))
	case models.ActionSMS:
		return firstNonEmpty(contextString(data, ctxRecipientPhone), profileField(profile, func(p *models.RecipientProfile) string { return p.Phone }))
	case models.ActionWebhook:
		if cfg, ok := tmpl.Config.(models.WebhookConfig); ok {
			return strings.TrimSpace(actions.Render(cfg.URL, data))
		}
	case models.ActionNotification:
		return firstNonEmpty(
			contextString(data, ctxRecipientUserID),
			opts.RecipientUserID,
			profileField(profile, func(p *models.RecipientProfile) string { return p.ID }),
		)
	case models.ActionSlack:
		var channel string
		if cfg, ok := tmpl.Config.(models.SlackConfig); ok {
			channel = strings.TrimSpace(actions.Render(cfg.Channel, data))
		}
		return firstNonEmpty(channel, contextString(data, ctxSlackChannel), defaultChannel)
	}
	return ""
}

func resolveRecipientName(data map[string]interface{}, profile *models.RecipientProfile) string {
	return firstNonEmpty(contextString(data, ctxRecipientName), profile.FullName())
}

func contextString(data map[string]interface{}, key string) string {
	v, ok := data[key]
	if !ok {
		return ""
	}
	return strings.TrimSpace(actions.Stringify(v))
}

func profileField(p *models.RecipientProfile, get func(*models.RecipientProfile) string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(get(p))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
