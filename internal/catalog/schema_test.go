package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"merchant-triggers/internal/models"
)

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		kind    models.ActionKind
		raw     string
		wantErr string
	}{
		{name: "valid email", kind: models.ActionEmail, raw: `{"subject":"Hi","htmlContent":"<p>x</p>"}`},
		{name: "email text only", kind: models.ActionEmail, raw: `{"subject":"Hi","textContent":"x"}`},
		{name: "email without body", kind: models.ActionEmail, raw: `{"subject":"Hi"}`, wantErr: "email config failed validation"},
		{name: "email empty subject", kind: models.ActionEmail, raw: `{"subject":"","htmlContent":"x"}`, wantErr: "subject"},
		{name: "valid sms", kind: models.ActionSMS, raw: `{"message":"hello"}`},
		{name: "sms wrong type", kind: models.ActionSMS, raw: `{"message":5}`, wantErr: "message"},
		{name: "valid webhook", kind: models.ActionWebhook, raw: `{"url":"https://x.example.com","method":"PUT","authentication":{"type":"bearer","credentials":{"token":"t"}}}`},
		{name: "webhook bad auth", kind: models.ActionWebhook, raw: `{"url":"https://x","authentication":{"type":"oauth"}}`, wantErr: "webhook config failed validation"},
		{name: "webhook method is case insensitive", kind: models.ActionWebhook, raw: `{"url":"https://x.example.com","method":"Post"}`},
		{name: "webhook head method", kind: models.ActionWebhook, raw: `{"url":"https://x.example.com","method":"HEAD"}`},
		{name: "webhook unknown method", kind: models.ActionWebhook, raw: `{"url":"https://x.example.com","method":"TRACE"}`, wantErr: "method"},
		{name: "webhook missing url", kind: models.ActionWebhook, raw: `{"method":"POST"}`, wantErr: "url"},
		{name: "valid notification", kind: models.ActionNotification, raw: `{"title":"t","message":"m","type":"deal"}`},
		{name: "notification missing title", kind: models.ActionNotification, raw: `{"message":"m"}`, wantErr: "title"},
		{name: "valid slack", kind: models.ActionSlack, raw: `{"message":"m","channel":"#ops"}`},
		{name: "unknown kind", kind: models.ActionKind("fax"), raw: `{}`, wantErr: "unknown action type"},
		{name: "empty config", kind: models.ActionSMS, raw: ``, wantErr: "config is empty"},
		{name: "not json", kind: models.ActionSMS, raw: `{`, wantErr: "validate sms config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfig(tt.kind, json.RawMessage(tt.raw))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPrepareTemplate_DecodesConfig(t *testing.T) {
	tmpl := &models.ActionTemplate{
		ID:         1,
		ActionType: models.ActionWebhook,
		RawConfig:  json.RawMessage(`{"url":"https://hooks.example.com/{{dealId}}","body":{"id":"{{dealId}}"}}`),
	}
	require.NoError(t, PrepareTemplate(tmpl))

	cfg, ok := tmpl.Config.(models.WebhookConfig)
	require.True(t, ok)
	assert.Equal(t, "https://hooks.example.com/{{dealId}}", cfg.URL)
	assert.Equal(t, map[string]interface{}{"id": "{{dealId}}"}, cfg.Body)
}

func TestSortBindings(t *testing.T) {
	bound := []models.BoundAction{
		{Binding: models.TriggerAction{ID: 7, SequenceOrder: 3}},
		{Binding: models.TriggerAction{ID: 9, SequenceOrder: 1}},
		{Binding: models.TriggerAction{ID: 4, SequenceOrder: 2}},
		{Binding: models.TriggerAction{ID: 2, SequenceOrder: 1}},
	}
	SortBindings(bound)

	var ids []int64
	for _, b := range bound {
		ids = append(ids, b.Binding.ID)
	}
	assert.Equal(t, []int64{2, 9, 4, 7}, ids)
}
