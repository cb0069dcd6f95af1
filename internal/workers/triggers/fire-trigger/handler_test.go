package firetrigger

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"merchant-triggers/internal/common/config"
	"merchant-triggers/internal/common/errors"
	"merchant-triggers/internal/common/logger"
	"merchant-triggers/internal/dispatch"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockFirer struct {
	FireTriggerFunc func(ctx context.Context, triggerKey string, data map[string]interface{}, opts dispatch.Options) *dispatch.Firing
}

func (m *MockFirer) FireTrigger(ctx context.Context, triggerKey string, data map[string]interface{}, opts dispatch.Options) *dispatch.Firing {
	return m.FireTriggerFunc(ctx, triggerKey, data, opts)
}

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               TaskType,
		ProcessInstanceKey: key * 10,
		BpmnProcessId:      "deal-lifecycle",
		ElementId:          "Activity_FireTrigger",
		CustomHeaders:      "{}",
		Worker:             "test-worker",
		Retries:            3,
		Variables:          string(variablesJSON),
	}}
}

func createTestHandler(t *testing.T, firer Firer) *Handler {
	t.Helper()
	h, err := NewHandler(HandlerOptions{
		Service:      firer,
		CustomConfig: DefaultConfig(),
		Logger:       logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	return h
}

func TestNewHandler(t *testing.T) {
	tests := []struct {
		name    string
		opts    HandlerOptions
		wantErr string
	}{
		{
			name: "defaults from app config",
			opts: HandlerOptions{
				AppConfig: &config.Config{Workers: map[string]config.WorkerConfig{
					TaskType: {Enabled: true, MaxJobsActive: 8, Timeout: 5000},
				}},
				Service: &MockFirer{},
			},
		},
		{
			name:    "missing service",
			opts:    HandlerOptions{CustomConfig: DefaultConfig()},
			wantErr: "dispatch service is required",
		},
		{
			name:    "invalid timeout",
			opts:    HandlerOptions{CustomConfig: &Config{MaxJobsActive: 1}, Service: &MockFirer{}},
			wantErr: "timeout must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewHandler(tt.opts)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 8, h.config.MaxJobsActive)
			assert.Equal(t, 5*time.Second, h.config.Timeout)
		})
	}
}

func TestHandler_ParseInput(t *testing.T) {
	h := createTestHandler(t, &MockFirer{})

	tests := []struct {
		name           string
		variables      map[string]interface{}
		wantErr        bool
		validateOutput func(t *testing.T, input *Input)
	}{
		{
			name: "full input",
			variables: map[string]interface{}{
				"triggerKey":      "deal_approved",
				"context":         map[string]interface{}{"dealId": "d-1", "amount": 2500},
				"recipientUserId": "u-1",
				"triggerSource":   "deal-process",
				"triggeredBy":     "agent-7",
				"unrelatedVar":    true,
			},
			validateOutput: func(t *testing.T, input *Input) {
				assert.Equal(t, "deal_approved", input.TriggerKey)
				assert.Equal(t, "d-1", input.Context["dealId"])
				assert.Equal(t, float64(2500), input.Context["amount"])
				assert.Equal(t, "u-1", input.RecipientUserID)
				assert.Equal(t, "deal-process", input.TriggerSource)
				assert.Equal(t, "agent-7", input.TriggeredBy)
			},
		},
		{
			name:      "context defaults to empty map",
			variables: map[string]interface{}{"triggerKey": "deal_approved"},
			validateOutput: func(t *testing.T, input *Input) {
				assert.NotNil(t, input.Context)
				assert.Empty(t, input.Context)
			},
		},
		{
			name:      "missing trigger key",
			variables: map[string]interface{}{"context": map[string]interface{}{}},
			wantErr:   true,
		},
		{
			name:      "blank trigger key",
			variables: map[string]interface{}{"triggerKey": "   "},
			wantErr:   true,
		},
		{
			name:      "context of wrong type",
			variables: map[string]interface{}{"triggerKey": "deal_approved", "context": "nope"},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input, err := h.parseInput(createMockJob(1, tt.variables))
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errors.ErrCodeInvalidInput, errors.AsStandardError(err).Code)
				return
			}
			require.NoError(t, err)
			tt.validateOutput(t, input)
		})
	}
}

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name           string
		input          *Input
		firing         *dispatch.Firing
		validateOutput func(t *testing.T, out *Output, opts dispatch.Options)
	}{
		{
			name:  "summarises outcomes",
			input: &Input{TriggerKey: "deal_approved", Context: map[string]interface{}{"dealId": "d-1"}, RecipientUserID: "u-1", TriggeredBy: "agent-7"},
			firing: &dispatch.Firing{
				FiringID:     "f-1",
				TriggerKey:   "deal_approved",
				TriggerFound: true,
				Outcomes: []dispatch.Outcome{
					{Status: dispatch.OutcomeSent},
					{Status: dispatch.OutcomeSent},
					{Status: dispatch.OutcomeFailed},
					{Status: dispatch.OutcomeSkipped},
				},
			},
			validateOutput: func(t *testing.T, out *Output, opts dispatch.Options) {
				assert.Equal(t, &Output{FiringID: "f-1", TriggerFound: true, Attempted: 3, Sent: 2, Failed: 1, Skipped: 1}, out)
				assert.Equal(t, "bpmn", opts.TriggerSource)
				assert.Equal(t, "u-1", opts.RecipientUserID)
				assert.Equal(t, "agent-7", opts.TriggeredBy)
			},
		},
		{
			name:   "unknown trigger completes with triggerFound false",
			input:  &Input{TriggerKey: "nope", TriggerSource: "manual"},
			firing: &dispatch.Firing{FiringID: "f-2", TriggerKey: "nope"},
			validateOutput: func(t *testing.T, out *Output, opts dispatch.Options) {
				assert.False(t, out.TriggerFound)
				assert.Zero(t, out.Attempted)
				assert.Equal(t, "manual", opts.TriggerSource)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotOpts dispatch.Options
			h := createTestHandler(t, &MockFirer{
				FireTriggerFunc: func(ctx context.Context, triggerKey string, data map[string]interface{}, opts dispatch.Options) *dispatch.Firing {
					assert.Equal(t, tt.input.TriggerKey, triggerKey)
					gotOpts = opts
					return tt.firing
				},
			})

			out := h.Execute(context.Background(), tt.input)
			require.NotNil(t, out)
			tt.validateOutput(t, out, gotOpts)
		})
	}
}
