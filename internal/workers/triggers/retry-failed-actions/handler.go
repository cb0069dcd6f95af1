package retryfailedactions

import (
	"context"
	"fmt"
	"time"

	"merchant-triggers/internal/common/config"
	"merchant-triggers/internal/common/errors"
	"merchant-triggers/internal/common/logger"
	"merchant-triggers/internal/common/metrics"
	"merchant-triggers/internal/dispatch"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "retry-failed-actions"

type Retrier interface {
	RetryFailed(ctx context.Context, limit int) (dispatch.RetrySummary, error)
}

type Handler struct {
	config       *Config
	retrier      Retrier
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

type HandlerOptions struct {
	AppConfig    *config.Config
	Retrier      Retrier
	CustomConfig *Config
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Retrier == nil {
		return nil, fmt.Errorf("retrier is required for %s", TaskType)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config:       cfg,
		retrier:      opts.Retrier,
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

	input, err := h.parseInput(job)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.AsStandardError(err).Code)).Inc()
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.AsStandardError(err).Code)).Inc()
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"jobKey": job.GetKey(), "error": err.Error()})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{"jobKey": job.GetKey(), "error": err.Error()})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

// Execute runs one retry pass. Failing to list candidates or to record a
// retry fails the job; failed deliveries only show up in the output.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	limit := h.config.BatchSize
	if input != nil && input.Limit > 0 && input.Limit < limit {
		limit = input.Limit
	}

	sum, err := h.retrier.RetryFailed(ctx, limit)
	if err != nil {
		var stdErr *errors.StandardError
		if errors.As(err, &stdErr) {
			return nil, stdErr
		}
		return nil, errors.NewActivityQueryFailedError(err)
	}

	return &Output{
		RetryExamined:  sum.Examined,
		RetrySucceeded: sum.Succeeded,
		RetryFailed:    sum.Failed,
		RetrySkipped:   sum.Skipped,
	}, nil
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("failed to parse job variables: %v", err))
	}

	input := &Input{}
	raw, ok := variables["limit"]
	if !ok || raw == nil {
		return input, nil
	}
	n, ok := raw.(float64)
	if !ok || n < 0 || n != float64(int(n)) {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("limit: expected a non-negative integer, got %v", raw))
	}
	input.Limit = int(n)
	return input, nil
}
