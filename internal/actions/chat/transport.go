// internal/actions/chat/transport.go
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	httpclient "merchant-triggers/internal/common/http"
	"merchant-triggers/internal/common/logger"
)

const slackPostMessageURL = "https://slack.com/api/chat.postMessage"

type Message struct {
	Channel   string `json:"channel,omitempty"`
	Text      string `json:"text"`
	Username  string `json:"username,omitempty"`
	IconEmoji string `json:"icon_emoji,omitempty"`
}

type Receipt struct {
	MessageID string
	Provider  string
}

// Transport posts a single chat message.
type Transport interface {
	Send(ctx context.Context, msg Message) (Receipt, error)
}

// SlackWebhookTransport posts to a Slack incoming webhook. The webhook is bound
// to a channel on the Slack side, so the channel field is only a hint.
type SlackWebhookTransport struct {
	client     *httpclient.Client
	webhookURL string
}

func NewSlackWebhookTransport(client *httpclient.Client, webhookURL string) *SlackWebhookTransport {
	return &SlackWebhookTransport{client: client, webhookURL: webhookURL}
}

func (t *SlackWebhookTransport) Send(ctx context.Context, msg Message) (Receipt, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return Receipt{Provider: "slack-webhook"}, fmt.Errorf("encode slack message: %w", err)
	}

	resp, err := t.client.Send(ctx, httpclient.Request{
		Method:  http.MethodPost,
		URL:     t.webhookURL,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
	})
	if err != nil {
		return Receipt{Provider: "slack-webhook"}, err
	}
	if !resp.Success() {
		return Receipt{Provider: "slack-webhook"}, fmt.Errorf("slack webhook returned HTTP %d: %s", resp.StatusCode, string(resp.Body))
	}
	return Receipt{Provider: "slack-webhook"}, nil
}

// SlackAPITransport calls chat.postMessage with a bot token.
type SlackAPITransport struct {
	client   *httpclient.Client
	botToken string
	endpoint string
}

func NewSlackAPITransport(client *httpclient.Client, botToken string) *SlackAPITransport {
	return &SlackAPITransport{client: client, botToken: botToken, endpoint: slackPostMessageURL}
}

type postMessageResponse struct {
	OK    bool   `json:"ok"`
	TS    string `json:"ts"`
	Error string `json:"error"`
}

func (t *SlackAPITransport) Send(ctx context.Context, msg Message) (Receipt, error) {
	if msg.Channel == "" {
		return Receipt{Provider: "slack-api"}, fmt.Errorf("slack channel is required")
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return Receipt{Provider: "slack-api"}, fmt.Errorf("encode slack message: %w", err)
	}

	resp, err := t.client.Send(ctx, httpclient.Request{
		Method: http.MethodPost,
		URL:    t.endpoint,
		Headers: map[string]string{
			"Content-Type":  "application/json; charset=utf-8",
			"Authorization": "Bearer " + t.botToken,
		},
		Body: body,
	})
	if err != nil {
		return Receipt{Provider: "slack-api"}, err
	}
	if !resp.Success() {
		return Receipt{Provider: "slack-api"}, fmt.Errorf("slack api returned HTTP %d", resp.StatusCode)
	}

	var out postMessageResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return Receipt{Provider: "slack-api"}, fmt.Errorf("decode slack response: %w", err)
	}
	if !out.OK {
		return Receipt{Provider: "slack-api"}, fmt.Errorf("slack api error: %s", out.Error)
	}
	return Receipt{MessageID: out.TS, Provider: "slack-api"}, nil
}

// SimulatedTransport logs instead of posting.
type SimulatedTransport struct {
	logger logger.Logger
}

func NewSimulatedTransport(log logger.Logger) *SimulatedTransport {
	return &SimulatedTransport{logger: log}
}

func (t *SimulatedTransport) Send(ctx context.Context, msg Message) (Receipt, error) {
	id := "sim-" + uuid.New().String()
	t.logger.Info("simulated chat message", map[string]interface{}{
		"channel":   msg.Channel,
		"length":    len(msg.Text),
		"messageId": id,
	})
	return Receipt{MessageID: id, Provider: "simulated"}, nil
}
