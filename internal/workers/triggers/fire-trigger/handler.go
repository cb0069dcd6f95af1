package firetrigger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"merchant-triggers/internal/common/config"
	"merchant-triggers/internal/common/errors"
	"merchant-triggers/internal/common/logger"
	"merchant-triggers/internal/common/metrics"
	"merchant-triggers/internal/common/validation"
	"merchant-triggers/internal/dispatch"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "fire-trigger"

// Firer is the part of dispatch.Service the worker needs.
type Firer interface {
	FireTrigger(ctx context.Context, triggerKey string, data map[string]interface{}, opts dispatch.Options) *dispatch.Firing
}

type Handler struct {
	config       *Config
	firer        Firer
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

type HandlerOptions struct {
	AppConfig    *config.Config
	Service      Firer
	CustomConfig *Config
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Service == nil {
		return nil, fmt.Errorf("dispatch service is required for %s", TaskType)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config:       cfg,
		firer:        opts.Service,
		logger:       log,
		errorHandler: errors.NewErrorHandler(log),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	input, err := h.parseInput(job)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.AsStandardError(err).Code)).Inc()
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	output := h.Execute(ctx, input)

	if err := h.completeJob(ctx, client, job, output); err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, "COMPLETE_FAILED").Inc()
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

// Execute fires the trigger and summarises the firing. A missing trigger is
// reported through TriggerFound rather than as a job error.
func (h *Handler) Execute(ctx context.Context, input *Input) *Output {
	source := input.TriggerSource
	if source == "" {
		source = h.config.DefaultSource
	}

	firing := h.firer.FireTrigger(ctx, input.TriggerKey, input.Context, dispatch.Options{
		RecipientUserID: input.RecipientUserID,
		TriggerSource:   source,
		TriggeredBy:     input.TriggeredBy,
	})
	if firing == nil {
		return &Output{}
	}

	return &Output{
		FiringID:     firing.FiringID,
		TriggerFound: firing.TriggerFound,
		Attempted:    firing.Attempted(),
		Sent:         firing.Count(dispatch.OutcomeSent),
		Failed:       firing.Count(dispatch.OutcomeFailed),
		Skipped:      firing.Count(dispatch.OutcomeSkipped),
	}
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("failed to parse job variables: %v", err))
	}

	result := validation.ValidateInput(variables, GetInputSchema())
	if !result.Valid {
		return nil, errors.NewInvalidInputError(strings.Join(result.GetErrorMessages(), "; "))
	}

	input := &Input{
		TriggerKey: strings.TrimSpace(variables["triggerKey"].(string)),
	}
	if input.TriggerKey == "" {
		return nil, errors.NewInvalidInputError("triggerKey: value must not be blank")
	}
	if data, ok := variables["context"].(map[string]interface{}); ok {
		input.Context = data
	} else {
		input.Context = map[string]interface{}{}
	}
	if v, ok := variables["recipientUserId"].(string); ok {
		input.RecipientUserID = v
	}
	if v, ok := variables["triggerSource"].(string); ok {
		input.TriggerSource = v
	}
	if v, ok := variables["triggeredBy"].(string); ok {
		input.TriggeredBy = v
	}
	return input, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) error {
	cmd, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return err
	}

	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return err
	}

	h.logger.Info("job completed", map[string]interface{}{
		"jobKey":       job.GetKey(),
		"firingId":     output.FiringID,
		"triggerFound": output.TriggerFound,
		"sent":         output.Sent,
		"failed":       output.Failed,
		"skipped":      output.Skipped,
	})
	return nil
}
