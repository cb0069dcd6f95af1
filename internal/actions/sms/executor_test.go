package sms

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"merchant-triggers/internal/common/logger"
	"merchant-triggers/internal/models"
)

type MockSNSService struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	return m.PublishFunc(ctx, params, optFns...)
}

func smsTemplate(message string) *models.ActionTemplate {
	return &models.ActionTemplate{ID: 11, ActionType: models.ActionSMS, Config: models.SMSConfig{Message: message}}
}

func TestExecutor_Execute_SNS(t *testing.T) {
	var published *sns.PublishInput
	mockSNS := &MockSNSService{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			published = params
			id := "sns-1"
			return &sns.PublishOutput{MessageId: &id}, nil
		},
	}
	exec := NewExecutor(NewSNSTransport(mockSNS, "MERCHCO"), logger.NewTestLogger(t))

	res := exec.Execute(context.Background(), smsTemplate("{{merchantName}}: your deal is {{status}}"), "+15550102030",
		map[string]interface{}{"merchantName": "Acme", "status": "approved"}, nil)

	require.True(t, res.Success, res.StatusMessage)
	assert.Equal(t, models.StatusSent, res.Status)
	assert.Equal(t, "sns-1", res.ResponseData["messageId"])
	require.NotNil(t, published)
	assert.Equal(t, "+15550102030", *published.PhoneNumber)
	assert.Equal(t, "Acme: your deal is approved", *published.Message)
	assert.Equal(t, "MERCHCO", *published.MessageAttributes["AWS.SNS.SMS.SenderID"].StringValue)
}

func TestExecutor_Execute_SNSFailure(t *testing.T) {
	mockSNS := &MockSNSService{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			return nil, errors.New("opted out")
		},
	}
	exec := NewExecutor(NewSNSTransport(mockSNS, ""), logger.NewTestLogger(t))

	res := exec.Execute(context.Background(), smsTemplate("hi"), "+15550102030", nil, nil)

	assert.False(t, res.Success)
	assert.Equal(t, models.StatusFailed, res.Status)
	assert.Contains(t, res.StatusMessage, "opted out")
}

func TestExecutor_Execute_Simulated(t *testing.T) {
	exec := NewExecutor(NewSimulatedTransport(logger.NewTestLogger(t)), logger.NewTestLogger(t))

	res := exec.Execute(context.Background(), smsTemplate("hello"), "+15550102030", nil, nil)

	assert.True(t, res.Success)
	assert.Equal(t, "simulated", res.ResponseData["provider"])
}

func TestExecutor_Execute_InvalidPhone(t *testing.T) {
	exec := NewExecutor(NewSimulatedTransport(logger.NewNoOpLogger()), logger.NewNoOpLogger())

	res := exec.Execute(context.Background(), smsTemplate("hello"), "call me", nil, nil)

	assert.False(t, res.Success)
	assert.Contains(t, res.StatusMessage, "invalid recipient phone number")
}
