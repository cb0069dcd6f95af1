package email

import (
	"context"
	"net/smtp"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"merchant-triggers/internal/models"
)

func headerLines(raw string) []string {
	head, _, _ := strings.Cut(raw, "\r\n\r\n")
	return strings.Split(head, "\r\n")
}

func TestSMTPTransport_RenderedValuesCannotAddHeaders(t *testing.T) {
	transport := NewSMTPTransport(SMTPConfig{Host: "smtp.example.com", Port: 25})
	var gotMsg string
	transport.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotMsg = string(msg)
		return nil
	}

	exec := newTestExecutor(t, transport)
	res := exec.Execute(context.Background(), emailTemplate(models.EmailConfig{
		Subject:     "Signature Required - {{merchantName}}",
		FromName:    "{{merchantName}} Team",
		TextContent: "Hi",
	}), "jane@acme.com", map[string]interface{}{
		"merchantName": "Acme\r\nBcc: attacker@evil.test",
	}, nil)
	require.True(t, res.Success, res.StatusMessage)

	lines := headerLines(gotMsg)
	for _, line := range lines {
		assert.False(t, strings.HasPrefix(strings.ToLower(line), "bcc:"), "unexpected header line %q", line)
	}

	var subject, from string
	for _, line := range lines {
		if v, ok := strings.CutPrefix(line, "Subject: "); ok {
			subject = v
		}
		if v, ok := strings.CutPrefix(line, "From: "); ok {
			from = v
		}
	}
	assert.Equal(t, "Signature Required - Acme Bcc: attacker@evil.test", subject)
	assert.Equal(t, `"Acme Bcc: attacker@evil.test Team" <onboarding@merchantco.com>`, from)
}

func TestBuildMIME_EncodesNonASCIIHeaders(t *testing.T) {
	raw := string(buildMIME(Message{
		To:       "jane@acme.com",
		From:     "onboarding@merchantco.com",
		FromName: "Café Équipe",
		Subject:  "Contrat signé",
		Text:     "merci",
	}, "<id@smtp.example.com>"))

	lines := headerLines(raw)
	assert.Contains(t, lines, "Subject: =?utf-8?q?Contrat_sign=C3=A9?=")

	var from string
	for _, line := range lines {
		if v, ok := strings.CutPrefix(line, "From: "); ok {
			from = v
		}
	}
	assert.True(t, strings.HasPrefix(from, "=?utf-8?q?"), from)
	assert.True(t, strings.HasSuffix(from, " <onboarding@merchantco.com>"), from)
}

func TestSESTransport_FoldsLineBreaksInSubject(t *testing.T) {
	var subject string
	mockSES := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			subject = *params.Message.Subject.Data
			return &ses.SendEmailOutput{}, nil
		},
	}

	_, err := NewSESTransport(mockSES).Send(context.Background(), Message{
		To: "a@b.com", From: "onboarding@merchantco.com", Subject: "Hello\r\nBcc: x@evil.test", Text: "t",
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello Bcc: x@evil.test", subject)
}
