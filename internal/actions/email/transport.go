// internal/actions/email/transport.go
package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/google/uuid"

	"merchant-triggers/internal/common/aws"
)

// Message is a fully rendered email.
type Message struct {
	To       string
	From     string
	FromName string
	ReplyTo  string
	Subject  string
	HTML     string
	Text     string
}

// Receipt reports whether the provider accepted the message.
type Receipt struct {
	Accepted  bool
	MessageID string
	Provider  string
}

// Transport hands a message to a mail provider.
type Transport interface {
	Send(ctx context.Context, msg Message) (Receipt, error)
}

var headerBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// headerValue folds line breaks out of v so rendered text cannot start a new header.
func headerValue(v string) string {
	return strings.TrimSpace(headerBreaks.Replace(v))
}

func formatAddress(name, addr string) string {
	addr = headerValue(addr)
	if name = headerValue(name); name == "" {
		return addr
	}
	return (&mail.Address{Name: name, Address: addr}).String()
}

// SESTransport sends through Amazon SES.
type SESTransport struct {
	client aws.SESAPI
}

func NewSESTransport(client aws.SESAPI) *SESTransport {
	return &SESTransport{client: client}
}

func (t *SESTransport) Send(ctx context.Context, msg Message) (Receipt, error) {
	body := &types.Body{}
	if msg.HTML != "" {
		body.Html = &types.Content{Data: awssdk.String(msg.HTML), Charset: awssdk.String("UTF-8")}
	}
	if msg.Text != "" {
		body.Text = &types.Content{Data: awssdk.String(msg.Text), Charset: awssdk.String("UTF-8")}
	}

	input := &ses.SendEmailInput{
		Destination: &types.Destination{ToAddresses: []string{headerValue(msg.To)}},
		Message: &types.Message{
			Subject: &types.Content{Data: awssdk.String(headerValue(msg.Subject)), Charset: awssdk.String("UTF-8")},
			Body:    body,
		},
		Source: awssdk.String(formatAddress(msg.FromName, msg.From)),
	}
	if msg.ReplyTo != "" {
		input.ReplyToAddresses = []string{headerValue(msg.ReplyTo)}
	}

	out, err := t.client.SendEmail(ctx, input)
	if err != nil {
		return Receipt{Provider: "ses"}, err
	}
	return Receipt{Accepted: true, MessageID: awssdk.ToString(out.MessageId), Provider: "ses"}, nil
}

// SMTPConfig holds the relay settings for SMTPTransport.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	UseTLS   bool
}

// SMTPTransport sends a multipart/alternative message through an SMTP relay.
type SMTPTransport struct {
	config SMTPConfig
	// sendMail is swapped in tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPTransport(cfg SMTPConfig) *SMTPTransport {
	t := &SMTPTransport{config: cfg}
	if cfg.UseTLS {
		t.sendMail = t.sendWithTLS
	} else {
		t.sendMail = smtp.SendMail
	}
	return t
}

func (t *SMTPTransport) Send(ctx context.Context, msg Message) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{Provider: "smtp"}, fmt.Errorf("context cancelled before sending email: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", t.config.Host, t.config.Port)

	var auth smtp.Auth
	if t.config.Username != "" && t.config.Password != "" {
		auth = smtp.PlainAuth("", t.config.Username, t.config.Password, t.config.Host)
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.New().String(), t.config.Host)
	raw := buildMIME(msg, messageID)

	if err := t.sendMail(addr, auth, msg.From, []string{msg.To}, raw); err != nil {
		return Receipt{Provider: "smtp"}, err
	}
	return Receipt{Accepted: true, MessageID: messageID, Provider: "smtp"}, nil
}

func (t *SMTPTransport) sendWithTLS(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	if err = client.StartTLS(&tls.Config{ServerName: t.config.Host}); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}
	if auth != nil {
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}
	if err = client.Mail(from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, rcpt := range to {
		if err = client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data writer: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}
	return client.Quit()
}

func buildMIME(msg Message, messageID string) []byte {
	boundary := "alt-" + strings.ReplaceAll(uuid.New().String(), "-", "")

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", formatAddress(msg.FromName, msg.From))
	fmt.Fprintf(&b, "To: %s\r\n", headerValue(msg.To))
	if msg.ReplyTo != "" {
		fmt.Fprintf(&b, "Reply-To: %s\r\n", headerValue(msg.ReplyTo))
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", headerValue(msg.Subject)))
	fmt.Fprintf(&b, "Message-ID: %s\r\n", messageID)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)

	if msg.Text != "" {
		fmt.Fprintf(&b, "--%s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n", boundary, msg.Text)
	}
	if msg.HTML != "" {
		fmt.Fprintf(&b, "--%s\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s\r\n", boundary, msg.HTML)
	}
	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return []byte(b.String())
}
