// internal/models/action.go
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ActionKind is the closed set of delivery channels an action template can target.
type ActionKind string

const (
	ActionEmail        ActionKind = "email"
	ActionSMS          ActionKind = "sms"
	ActionWebhook      ActionKind = "webhook"
	ActionNotification ActionKind = "notification"
	ActionSlack        ActionKind = "slack"
)

// AllActionKinds lists every kind the executor registry must cover.
func AllActionKinds() []ActionKind {
	return []ActionKind{ActionEmail, ActionSMS, ActionWebhook, ActionNotification, ActionSlack}
}

func (k ActionKind) Valid() bool {
	switch k {
	case ActionEmail, ActionSMS, ActionWebhook, ActionNotification, ActionSlack:
		return true
	}
	return false
}

func ParseActionKind(s string) (ActionKind, error) {
	k := ActionKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("unknown action type %q", s)
	}
	return k, nil
}

// ActionConfig is the per-kind configuration carried by an ActionTemplate.
type ActionConfig interface {
	Kind() ActionKind
	Validate() error
}

type EmailConfig struct {
	Subject     string `json:"subject"`
	HTMLContent string `json:"htmlContent"`
	TextContent string `json:"textContent,omitempty"`
	FromAddress string `json:"fromAddress,omitempty"`
	FromName    string `json:"fromName,omitempty"`
	ReplyTo     string `json:"replyTo,omitempty"`
}

func (EmailConfig) Kind() ActionKind { return ActionEmail }

func (c EmailConfig) Validate() error {
	if strings.TrimSpace(c.Subject) == "" {
		return fmt.Errorf("email subject is required")
	}
	if strings.TrimSpace(c.HTMLContent) == "" && strings.TrimSpace(c.TextContent) == "" {
		return fmt.Errorf("email htmlContent or textContent is required")
	}
	return nil
}

type SMSConfig struct {
	Message string `json:"message"`
}

func (SMSConfig) Kind() ActionKind { return ActionSMS }

func (c SMSConfig) Validate() error {
	if strings.TrimSpace(c.Message) == "" {
		return fmt.Errorf("sms message is required")
	}
	return nil
}

// Webhook authentication types.
const (
	AuthBearer = "bearer"
	AuthBasic  = "basic"
	AuthAPIKey = "api_key"
)

type WebhookCredentials struct {
	Token      string `json:"token,omitempty"`
	Username   string `json:"username,omitempty"`
	Password   string `json:"password,omitempty"`
	Key        string `json:"key,omitempty"`
	HeaderName string `json:"headerName,omitempty"`
}

type WebhookAuth struct {
	Type        string             `json:"type"`
	Credentials WebhookCredentials `json:"credentials"`
}

type WebhookConfig struct {
	URL            string            `json:"url"`
	Method         string            `json:"method,omitempty"`
	Headers        map[string]string `json:"headers,omitempty"`
	Authentication *WebhookAuth      `json:"authentication,omitempty"`
	// Body is a JSON template; nil sends the firing context as-is.
	Body interface{} `json:"body,omitempty"`
}

func (WebhookConfig) Kind() ActionKind { return ActionWebhook }

func (c WebhookConfig) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return fmt.Errorf("webhook url is required")
	}
	switch strings.ToUpper(strings.TrimSpace(c.Method)) {
	case "", "GET", "HEAD", "POST", "PUT", "PATCH", "DELETE":
	default:
		return fmt.Errorf("unsupported webhook method %q", c.Method)
	}
	if c.Authentication != nil {
		switch c.Authentication.Type {
		case AuthBearer, AuthBasic, AuthAPIKey, "":
		default:
			return fmt.Errorf("unsupported webhook authentication type %q", c.Authentication.Type)
		}
	}
	return nil
}

type NotificationConfig struct {
	Title            string `json:"title"`
	Message          string `json:"message"`
	NotificationType string `json:"type,omitempty"`
	ActionURL        string `json:"actionUrl,omitempty"`
}

func (NotificationConfig) Kind() ActionKind { return ActionNotification }

func (c NotificationConfig) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("notification title is required")
	}
	if strings.TrimSpace(c.Message) == "" {
		return fmt.Errorf("notification message is required")
	}
	return nil
}

type SlackConfig struct {
	Channel   string `json:"channel,omitempty"`
	Message   string `json:"message"`
	Username  string `json:"username,omitempty"`
	IconEmoji string `json:"iconEmoji,omitempty"`
}

func (SlackConfig) Kind() ActionKind { return ActionSlack }

func (c SlackConfig) Validate() error {
	if strings.TrimSpace(c.Message) == "" {
		return fmt.Errorf("slack message is required")
	}
	return nil
}

// DecodeActionConfig decodes raw into the config type for kind and validates it.
func DecodeActionConfig(kind ActionKind, raw json.RawMessage) (ActionConfig, error) {
	var cfg ActionConfig
	var err error
	switch kind {
	case ActionEmail:
		var c EmailConfig
		err = json.Unmarshal(raw, &c)
		cfg = c
	case ActionSMS:
		var c SMSConfig
		err = json.Unmarshal(raw, &c)
		cfg = c
	case ActionWebhook:
		var c WebhookConfig
		err = json.Unmarshal(raw, &c)
		cfg = c
	case ActionNotification:
		var c NotificationConfig
		err = json.Unmarshal(raw, &c)
		cfg = c
	case ActionSlack:
		var c SlackConfig
		err = json.Unmarshal(raw, &c)
		cfg = c
	default:
		return nil, fmt.Errorf("unknown action type %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s config: %w", kind, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type TemplateVariable struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
	Example     string `json:"example,omitempty"`
}

// ActionTemplate is a reusable, versioned action configuration. Config is
// decoded from RawConfig when the catalog loads the template.
type ActionTemplate struct {
	ID          int64              `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	ActionType  ActionKind         `json:"actionType"`
	Category    string             `json:"category,omitempty"`
	RawConfig   json.RawMessage    `json:"config"`
	Config      ActionConfig       `json:"-"`
	Variables   []TemplateVariable `json:"variables,omitempty"`
	IsActive    bool               `json:"isActive"`
	Version     int                `json:"version"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// Decode populates Config from RawConfig.
func (t *ActionTemplate) Decode() error {
	cfg, err := DecodeActionConfig(t.ActionType, t.RawConfig)
	if err != nil {
		return err
	}
	t.Config = cfg
	return nil
}
