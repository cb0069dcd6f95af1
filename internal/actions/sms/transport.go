// internal/actions/sms/transport.go
package sms

import (
	"context"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/google/uuid"

	"merchant-triggers/internal/common/aws"
	"merchant-triggers/internal/common/logger"
)

type Receipt struct {
	MessageID string
	Provider  string
}

// Transport sends a single text message.
type Transport interface {
	Send(ctx context.Context, to, body string) (Receipt, error)
}

// SNSTransport publishes directly to a phone number through Amazon SNS.
type SNSTransport struct {
	client   aws.SNSAPI
	senderID string
}

func NewSNSTransport(client aws.SNSAPI, senderID string) *SNSTransport {
	return &SNSTransport{client: client, senderID: senderID}
}

func (t *SNSTransport) Send(ctx context.Context, to, body string) (Receipt, error) {
	input := &sns.PublishInput{
		PhoneNumber: awssdk.String(to),
		Message:     awssdk.String(body),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SMSType": {DataType: awssdk.String("String"), StringValue: awssdk.String("Transactional")},
		},
	}
	if t.senderID != "" {
		input.MessageAttributes["AWS.SNS.SMS.SenderID"] = snstypes.MessageAttributeValue{
			DataType: awssdk.String("String"), StringValue: awssdk.String(t.senderID),
		}
	}

	out, err := t.client.Publish(ctx, input)
	if err != nil {
		return Receipt{Provider: "sns"}, err
	}
	return Receipt{MessageID: awssdk.ToString(out.MessageId), Provider: "sns"}, nil
}

// SimulatedTransport logs the message instead of sending it. Used when no SMS
// provider is configured.
type SimulatedTransport struct {
	logger logger.Logger
}

func NewSimulatedTransport(log logger.Logger) *SimulatedTransport {
	return &SimulatedTransport{logger: log}
}

func (t *SimulatedTransport) Send(ctx context.Context, to, body string) (Receipt, error) {
	id := "sim-" + uuid.New().String()
	t.logger.Info("simulated sms", map[string]interface{}{
		"to":        to,
		"length":    len(body),
		"messageId": id,
	})
	return Receipt{MessageID: id, Provider: "simulated"}, nil
}
