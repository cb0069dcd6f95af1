// Package webhook delivers actions as HTTP calls to external endpoints.
package webhook

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"merchant-triggers/internal/actions"
	httpclient "merchant-triggers/internal/common/http"
	"merchant-triggers/internal/common/logger"
	"merchant-triggers/internal/models"
)

const defaultAPIKeyHeader = "X-API-Key"

var errServerStatus = errors.New("server error status")

type Config struct {
	BreakerFailures int
	BreakerTimeout  time.Duration
}

type Executor struct {
	client   *httpclient.Client
	breakers *breakers
	logger   logger.Logger
}

func NewExecutor(cfg Config, client *httpclient.Client, log logger.Logger) *Executor {
	log = logger.ForComponent(log, "webhook-executor")
	return &Executor{
		client:   client,
		breakers: newBreakers(cfg.BreakerFailures, cfg.BreakerTimeout, log),
		logger:   log,
	}
}

func (e *Executor) Kind() models.ActionKind { return models.ActionWebhook }

func (e *Executor) Execute(ctx context.Context, tmpl *models.ActionTemplate, recipient string, data map[string]interface{}, _ *models.RecipientProfile) actions.Result {
	cfg, ok := tmpl.Config.(models.WebhookConfig)
	if !ok {
		return actions.Failed(fmt.Sprintf("template %d has no webhook config", tmpl.ID), nil)
	}

	req, err := BuildRequest(cfg, recipient, data)
	if err != nil {
		return actions.Failed(err.Error(), nil)
	}

	out, err := e.breakers.forURL(req.URL).Execute(func() (interface{}, error) {
		resp, err := e.client.Send(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return resp, errServerStatus
		}
		return resp, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return actions.Failed(fmt.Sprintf("webhook circuit open for %s", req.URL), nil)
	}

	resp, _ := out.(*httpclient.Response)
	if resp == nil {
		e.logger.Warn("webhook call failed", map[string]interface{}{
			"templateId": tmpl.ID,
			"url":        req.URL,
			"error":      err.Error(),
		})
		return actions.Failed(fmt.Sprintf("webhook request failed: %v", err), nil)
	}

	response := map[string]interface{}{
		"statusCode": resp.StatusCode,
		"body":       decodeBody(resp.Body),
	}
	if resp.Truncated {
		response["truncated"] = true
	}

	if !resp.Success() {
		return actions.Failed(fmt.Sprintf("webhook returned HTTP %d", resp.StatusCode), response)
	}
	return actions.Sent(fmt.Sprintf("Webhook delivered to %s", req.URL), response)
}

// BuildRequest renders the URL, headers, authentication and body for a call.
// An empty target falls back to the configured URL.
func BuildRequest(cfg models.WebhookConfig, target string, data map[string]interface{}) (httpclient.Request, error) {
	url := target
	if url == "" {
		url = actions.Render(cfg.URL, data)
	}
	if url == "" {
		return httpclient.Request{}, fmt.Errorf("webhook url is empty")
	}

	method := strings.ToUpper(strings.TrimSpace(cfg.Method))
	if method == "" {
		method = http.MethodPost
	}

	// Keys are canonical so a configured header and an auth header of the same
	// name collapse to one entry; the JSON content type always wins.
	headers := make(map[string]string, len(cfg.Headers)+2)
	for k, v := range cfg.Headers {
		headers[http.CanonicalHeaderKey(strings.TrimSpace(k))] = actions.Render(v, data)
	}
	applyAuth(headers, cfg.Authentication, data)
	headers["Content-Type"] = "application/json"

	req := httpclient.Request{Method: method, URL: url, Headers: headers}
	if method == http.MethodGet || method == http.MethodHead {
		return req, nil
	}

	var payload interface{} = data
	if cfg.Body != nil {
		payload = actions.RenderValue(cfg.Body, data)
	}
	if s, ok := payload.(string); ok {
		req.Body = []byte(s)
		return req, nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return httpclient.Request{}, fmt.Errorf("encode webhook body: %w", err)
	}
	req.Body = body
	return req, nil
}

func applyAuth(headers map[string]string, auth *models.WebhookAuth, data map[string]interface{}) {
	if auth == nil {
		return
	}
	creds := auth.Credentials
	switch auth.Type {
	case models.AuthBearer:
		headers["Authorization"] = "Bearer " + actions.Render(creds.Token, data)
	case models.AuthBasic:
		pair := actions.Render(creds.Username, data) + ":" + actions.Render(creds.Password, data)
		headers["Authorization"] = "Basic " + base64.StdEncoding.EncodeToString([]byte(pair))
	case models.AuthAPIKey:
		name := creds.HeaderName
		if name == "" {
			name = defaultAPIKeyHeader
		}
		headers[http.CanonicalHeaderKey(name)] = actions.Render(creds.Key, data)
	}
}

func decodeBody(body []byte) interface{} {
	if len(body) == 0 {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(body, &v); err == nil {
		return v
	}
	return string(body)
}
