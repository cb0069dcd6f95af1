package email

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"merchant-triggers/internal/common/logger"
	"merchant-triggers/internal/models"
)

type MockTransport struct {
	SendFunc func(ctx context.Context, msg Message) (Receipt, error)
	sent     []Message
}

func (m *MockTransport) Send(ctx context.Context, msg Message) (Receipt, error) {
	m.sent = append(m.sent, msg)
	return m.SendFunc(ctx, msg)
}

type MockSESService struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return m.SendEmailFunc(ctx, params, optFns...)
}

func acceptAll() *MockTransport {
	return &MockTransport{SendFunc: func(ctx context.Context, msg Message) (Receipt, error) {
		return Receipt{Accepted: true, MessageID: "msg-1", Provider: "mock"}, nil
	}}
}

func emailTemplate(cfg models.EmailConfig) *models.ActionTemplate {
	return &models.ActionTemplate{ID: 7, ActionType: models.ActionEmail, Config: cfg, Version: 2, IsActive: true}
}

func newTestExecutor(t *testing.T, transport Transport) *Executor {
	return NewExecutor(Config{FromAddress: "onboarding@merchantco.com", FromName: "Onboarding", BrandName: "MerchantCo"}, transport, logger.NewTestLogger(t))
}

func TestExecutor_Execute(t *testing.T) {
	data := map[string]interface{}{
		"merchantName": "Acme",
		"signerName":   "Jane",
		"signatureUrl": "https://sign.example.com/abc",
	}

	tests := []struct {
		name           string
		config         models.EmailConfig
		recipient      string
		transport      *MockTransport
		validateOutput func(t *testing.T, res Message, status models.ActivityStatus, message string)
	}{
		{
			name: "signature requested renders subject and wraps fragment",
			config: models.EmailConfig{
				Subject:     "Signature Required - {{merchantName}}",
				HTMLContent: "<p>Hi {{signerName}},</p><p>Please sign <a href=\"{{signatureUrl}}\">here</a>.</p>",
			},
			recipient: "jane@acme.com",
			transport: acceptAll(),
			validateOutput: func(t *testing.T, msg Message, status models.ActivityStatus, message string) {
				assert.Equal(t, models.StatusSent, status)
				assert.Equal(t, "Signature Required - Acme", msg.Subject)
				assert.Equal(t, "jane@acme.com", msg.To)
				assert.Equal(t, "onboarding@merchantco.com", msg.From)
				assert.True(t, strings.HasPrefix(msg.HTML, "<!DOCTYPE html>"))
				assert.Contains(t, msg.HTML, `href="https://sign.example.com/abc"`)
				assert.Contains(t, msg.Text, "Hi Jane,")
				assert.NotContains(t, msg.Text, "<p>")
				assert.Equal(t, "Email sent to jane@acme.com", message)
			},
		},
		{
			name: "full document is not wrapped and explicit text is kept",
			config: models.EmailConfig{
				Subject:     "Welcome",
				HTMLContent: "<html><body>Welcome {{merchantName}}</body></html>",
				TextContent: "Welcome {{merchantName}}",
				FromAddress: "sales@merchantco.com",
				FromName:    "{{merchantName}} Team",
			},
			recipient: "ops@acme.com",
			transport: acceptAll(),
			validateOutput: func(t *testing.T, msg Message, status models.ActivityStatus, message string) {
				assert.Equal(t, models.StatusSent, status)
				assert.Equal(t, "<html><body>Welcome Acme</body></html>", msg.HTML)
				assert.Equal(t, "Welcome Acme", msg.Text)
				assert.Equal(t, "sales@merchantco.com", msg.From)
				assert.Equal(t, "Acme Team", msg.FromName)
			},
		},
		{
			name:      "transport failure becomes failed result",
			config:    models.EmailConfig{Subject: "x", TextContent: "y"},
			recipient: "jane@acme.com",
			transport: &MockTransport{SendFunc: func(ctx context.Context, msg Message) (Receipt, error) {
				return Receipt{Provider: "ses"}, errors.New("throttled")
			}},
			validateOutput: func(t *testing.T, msg Message, status models.ActivityStatus, message string) {
				assert.Equal(t, models.StatusFailed, status)
				assert.Contains(t, message, "throttled")
			},
		},
		{
			name:      "provider rejection",
			config:    models.EmailConfig{Subject: "x", TextContent: "y"},
			recipient: "jane@acme.com",
			transport: &MockTransport{SendFunc: func(ctx context.Context, msg Message) (Receipt, error) {
				return Receipt{Accepted: false, Provider: "smtp"}, nil
			}},
			validateOutput: func(t *testing.T, msg Message, status models.ActivityStatus, message string) {
				assert.Equal(t, models.StatusFailed, status)
				assert.Equal(t, "email rejected by provider", message)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := newTestExecutor(t, tt.transport)
			res := exec.Execute(context.Background(), emailTemplate(tt.config), tt.recipient, data, nil)
			require.Len(t, tt.transport.sent, 1)
			tt.validateOutput(t, tt.transport.sent[0], res.Status, res.StatusMessage)
		})
	}
}

func TestExecutor_Execute_InvalidRecipient(t *testing.T) {
	transport := acceptAll()
	exec := newTestExecutor(t, transport)

	res := exec.Execute(context.Background(), emailTemplate(models.EmailConfig{Subject: "x", TextContent: "y"}), "not-an-email", nil, nil)

	assert.False(t, res.Success)
	assert.Contains(t, res.StatusMessage, "invalid recipient email address")
	assert.Empty(t, transport.sent)
}

func TestExecutor_Execute_WrongConfigType(t *testing.T) {
	exec := newTestExecutor(t, acceptAll())
	tmpl := &models.ActionTemplate{ID: 3, ActionType: models.ActionEmail, Config: models.SMSConfig{Message: "x"}}

	res := exec.Execute(context.Background(), tmpl, "jane@acme.com", nil, nil)
	assert.False(t, res.Success)
	assert.Contains(t, res.StatusMessage, "no email config")
}

func TestSESTransport_Send(t *testing.T) {
	mockSES := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			assert.Equal(t, []string{"jane@acme.com"}, params.Destination.ToAddresses)
			assert.Equal(t, `"Onboarding" <onboarding@merchantco.com>`, *params.Source)
			assert.Equal(t, "Hello", *params.Message.Subject.Data)
			assert.Equal(t, "<p>hi</p>", *params.Message.Body.Html.Data)
			assert.Nil(t, params.Message.Body.Text)
			assert.Equal(t, []string{"reply@merchantco.com"}, params.ReplyToAddresses)
			id := "ses-123"
			return &ses.SendEmailOutput{MessageId: &id}, nil
		},
	}

	receipt, err := NewSESTransport(mockSES).Send(context.Background(), Message{
		To: "jane@acme.com", From: "onboarding@merchantco.com", FromName: "Onboarding",
		ReplyTo: "reply@merchantco.com", Subject: "Hello", HTML: "<p>hi</p>",
	})
	require.NoError(t, err)
	assert.True(t, receipt.Accepted)
	assert.Equal(t, "ses-123", receipt.MessageID)
	assert.Equal(t, "ses", receipt.Provider)
}

func TestSESTransport_Send_Error(t *testing.T) {
	mockSES := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return nil, errors.New("MessageRejected")
		},
	}
	receipt, err := NewSESTransport(mockSES).Send(context.Background(), Message{To: "a@b.com", Subject: "s", Text: "t"})
	require.Error(t, err)
	assert.False(t, receipt.Accepted)
}

func TestSMTPTransport_Send(t *testing.T) {
	transport := NewSMTPTransport(SMTPConfig{Host: "smtp.example.com", Port: 2525, Username: "u", Password: "p"})

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg string
	transport.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, string(msg)
		assert.NotNil(t, a)
		return nil
	}

	receipt, err := transport.Send(context.Background(), Message{
		To: "jane@acme.com", From: "onboarding@merchantco.com", Subject: "Hi", HTML: "<b>x</b>", Text: "x",
	})
	require.NoError(t, err)
	assert.True(t, receipt.Accepted)
	assert.Equal(t, "smtp", receipt.Provider)
	assert.Equal(t, "smtp.example.com:2525", gotAddr)
	assert.Equal(t, "onboarding@merchantco.com", gotFrom)
	assert.Equal(t, []string{"jane@acme.com"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Hi\r\n")
	assert.Contains(t, gotMsg, "multipart/alternative")
	assert.Contains(t, gotMsg, "Content-Type: text/plain; charset=UTF-8")
	assert.Contains(t, gotMsg, "<b>x</b>")
	assert.Contains(t, gotMsg, "Message-ID: "+receipt.MessageID)
}

func TestSMTPTransport_Send_CancelledContext(t *testing.T) {
	transport := NewSMTPTransport(SMTPConfig{Host: "smtp.example.com", Port: 25})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := transport.Send(ctx, Message{To: "a@b.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context cancelled")
}
