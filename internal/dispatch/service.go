// Package dispatch fires triggers: it resolves a trigger's bindings, gates
// them on preferences, conditions and recipients, runs the executors and
// records one activity row per attempt.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"merchant-triggers/internal/actions"
	"merchant-triggers/internal/activity"
	"merchant-triggers/internal/catalog"
	apperrors "merchant-triggers/internal/common/errors"
	"merchant-triggers/internal/common/logger"
	"merchant-triggers/internal/common/metrics"
	"merchant-triggers/internal/common/observability"
	"merchant-triggers/internal/common/validation"
	"merchant-triggers/internal/models"
	"merchant-triggers/internal/recipients"
)

const (
	ModeSequential = "sequential"
	ModeParallel   = "parallel"

	defaultExecutorTimeout = 15 * time.Second
	defaultMaxParallel     = 4
	activityWriteTimeout   = 5 * time.Second
)

type Config struct {
	Mode                string
	MaxParallel         int
	ExecutorTimeout     time.Duration
	DefaultSlackChannel string
}

// Dependencies are the collaborators a Service is built from. Profiles and
// Observability may be nil.
type Dependencies struct {
	Catalog       catalog.Catalog
	Profiles      recipients.Store
	Registry      *actions.Registry
	Activity      activity.Log
	Observability *observability.Observability
	Logger        logger.Logger
}

type Service struct {
	cfg      Config
	catalog  catalog.Catalog
	profiles recipients.Store
	registry *actions.Registry
	activity activity.Log
	obs      *observability.Observability
	logger   logger.Logger
	now      func() time.Time
}

func NewService(cfg Config, deps Dependencies) *Service {
	if cfg.Mode == "" {
		cfg.Mode = ModeSequential
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = defaultMaxParallel
	}
	if cfg.ExecutorTimeout <= 0 {
		cfg.ExecutorTimeout = defaultExecutorTimeout
	}
	return &Service{
		cfg:      cfg,
		catalog:  deps.Catalog,
		profiles: deps.Profiles,
		registry: deps.Registry,
		activity: deps.Activity,
		obs:      deps.Observability,
		logger:   logger.ForComponent(deps.Logger, "dispatch"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// step is one binding's path through a firing.
type step struct {
	bound         *models.BoundAction
	recipient     string
	recipientName string
	skip          string
	result        actions.Result
}

// FireTrigger runs every active binding of triggerKey against data. It never
// returns an error and never panics; the returned Firing is informational.
func (s *Service) FireTrigger(ctx context.Context, triggerKey string, data map[string]interface{}, opts Options) (firing *Firing) {
	// Caller cancellation must not cut a firing short; each executor call and
	// activity write carries its own deadline instead.
	ctx = context.WithoutCancel(ctx)
	start := time.Now()
	firing = &Firing{FiringID: uuid.New().String(), TriggerKey: triggerKey, Outcomes: []Outcome{}}
	log := s.logger.WithFields(map[string]interface{}{
		"triggerKey": triggerKey,
		"firingId":   firing.FiringID,
	})

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("recovered panic while firing trigger", map[string]interface{}{
				"panic": fmt.Sprint(rec),
			})
		}
		s.obs.RecordFiring(ctx, triggerKey, firing.Attempted(), time.Since(start))
	}()

	trigger, err := s.catalog.GetActiveTrigger(ctx, triggerKey)
	if err != nil {
		metrics.TriggerFirings.WithLabelValues(triggerKey, "false").Inc()
		if errors.Is(err, catalog.ErrTriggerNotFound) {
			log.Debug("no active trigger for key", nil)
		} else {
			log.Error("failed to load trigger", map[string]interface{}{"error": err.Error()})
		}
		return firing
	}
	firing.TriggerFound = true
	metrics.TriggerFirings.WithLabelValues(triggerKey, "true").Inc()

	if data == nil {
		data = map[string]interface{}{}
	}
	s.checkContext(log, trigger, data)
	profile := s.loadProfile(ctx, log, opts.RecipientUserID)

	bound, err := s.catalog.ListActiveBindings(ctx, trigger)
	if err != nil {
		log.Error("failed to load trigger bindings", map[string]interface{}{"error": err.Error()})
		return firing
	}
	if len(bound) == 0 {
		log.Debug("trigger has no active bindings", nil)
		return firing
	}

	steps := make([]step, len(bound))
	for i := range bound {
		steps[i] = s.gate(log, &bound[i], data, profile, opts)
	}

	if s.cfg.Mode == ModeParallel {
		s.runParallel(ctx, log, firing, steps, data, profile, opts)
	} else {
		s.runSequential(ctx, log, firing, steps, data, profile, opts)
	}

	log.Info("trigger fired", map[string]interface{}{
		"attempted": firing.Attempted(),
		"sent":      firing.Count(OutcomeSent),
		"failed":    firing.Count(OutcomeFailed),
		"skipped":   firing.Count(OutcomeSkipped),
		"duration":  time.Since(start).String(),
	})
	return firing
}

func (s *Service) runSequential(ctx context.Context, log logger.Logger, firing *Firing, steps []step, data map[string]interface{}, profile *models.RecipientProfile, opts Options) {
	for i := range steps {
		st := &steps[i]
		if st.skip != "" {
			firing.Outcomes = append(firing.Outcomes, skippedOutcome(st))
			continue
		}
		firing.Outcomes = append(firing.Outcomes, s.runStep(ctx, log, firing.FiringID, st, data, profile, opts, true))
	}
}

// runParallel executes the gated bindings concurrently, then writes their
// activity rows in sequence order.
func (s *Service) runParallel(ctx context.Context, log logger.Logger, firing *Firing, steps []step, data map[string]interface{}, profile *models.RecipientProfile, opts Options) {
	var g errgroup.Group
	g.SetLimit(s.cfg.MaxParallel)
	for i := range steps {
		st := &steps[i]
		if st.skip != "" {
			continue
		}
		g.Go(func() error {
			defer func() {
				if rec := recover(); rec != nil {
					st.result = actions.Failed(apperrors.NewExecutorPanicError(string(st.bound.Template.ActionType), rec).Error(), nil)
				}
			}()
			st.result = s.execute(ctx, log, st.bound, st.recipient, data, profile)
			return nil
		})
	}
	_ = g.Wait()

	for i := range steps {
		st := &steps[i]
		if st.skip != "" {
			firing.Outcomes = append(firing.Outcomes, skippedOutcome(st))
			continue
		}
		firing.Outcomes = append(firing.Outcomes, s.runStep(ctx, log, firing.FiringID, st, data, profile, opts, false))
	}
}

// runStep executes st when execute is set and records its activity row. A
// panic anywhere in the step becomes a failed outcome.
func (s *Service) runStep(ctx context.Context, log logger.Logger, firingID string, st *step, data map[string]interface{}, profile *models.RecipientProfile, opts Options, execute bool) (out Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("recovered panic while dispatching binding", map[string]interface{}{
				"bindingId": st.bound.Binding.ID,
				"panic":     fmt.Sprint(rec),
			})
			out = Outcome{
				BindingID:     st.bound.Binding.ID,
				TemplateID:    st.bound.Template.ID,
				ActionType:    st.bound.Template.ActionType,
				SequenceOrder: st.bound.Binding.SequenceOrder,
				Status:        OutcomeFailed,
				Recipient:     st.recipient,
				Message:       fmt.Sprintf("internal error: %v", rec),
			}
		}
	}()

	if execute {
		st.result = s.execute(ctx, log, st.bound, st.recipient, data, profile)
	}
	row := s.newActivity(firingID, st.bound, st.recipient, st.recipientName, data, opts, st.result)
	activityID, _ := s.record(ctx, log, row)
	return outcomeFor(st.bound, st.recipient, st.result, activityID)
}

// gate applies the preference, condition and recipient checks in that order.
func (s *Service) gate(log logger.Logger, ba *models.BoundAction, data map[string]interface{}, profile *models.RecipientProfile, opts Options) step {
	st := step{bound: ba}
	b := ba.Binding

	switch {
	case profile != nil && b.RequiresEmailPreference && !profile.AllowsEmail(),
		profile != nil && b.RequiresSMSPreference && !profile.AllowsSMS():
		st.skip = SkipPreference
	case !ConditionsMatch(b.Conditions, data):
		st.skip = SkipCondition
	default:
		st.recipient = resolveRecipient(&ba.Template, data, profile, opts, s.cfg.DefaultSlackChannel)
		if st.recipient == "" {
			st.skip = SkipNoRecipient
		}
	}

	if st.skip != "" {
		metrics.ActionSkips.WithLabelValues(string(ba.Template.ActionType), st.skip).Inc()
		log.Debug("binding skipped", map[string]interface{}{
			"bindingId":  b.ID,
			"actionType": string(ba.Template.ActionType),
			"reason":     st.skip,
		})
		return st
	}
	st.recipientName = resolveRecipientName(data, profile)
	return st
}

// execute runs one executor under the configured timeout. An executor that
// ignores cancellation is abandoned when the timeout fires.
func (s *Service) execute(ctx context.Context, log logger.Logger, ba *models.BoundAction, recipient string, data map[string]interface{}, profile *models.RecipientProfile) actions.Result {
	kind := string(ba.Template.ActionType)
	if ba.Binding.DelaySeconds > 0 {
		log.Debug("binding delay is not scheduled, executing immediately", map[string]interface{}{
			"bindingId":    ba.Binding.ID,
			"delaySeconds": ba.Binding.DelaySeconds,
		})
	}

	execCtx, cancel := context.WithTimeout(ctx, s.cfg.ExecutorTimeout)
	defer cancel()

	start := time.Now()
	done := make(chan actions.Result, 1)
	go func() {
		done <- s.registry.Execute(execCtx, &ba.Template, recipient, data, profile)
	}()

	var res actions.Result
	select {
	case res = <-done:
	case <-execCtx.Done():
		res = actions.Failed(apperrors.NewDeliveryTimeoutError(kind, execCtx.Err()).Error(), nil)
	}
	if res.Status == "" {
		if res.Success {
			res.Status = models.StatusSent
		} else {
			res.Status = models.StatusFailed
		}
	}

	metrics.ActionDispatchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	metrics.ActionDispatches.WithLabelValues(kind, string(res.Status)).Inc()
	if !res.Success {
		log.Warn("action failed", map[string]interface{}{
			"bindingId":  ba.Binding.ID,
			"actionType": kind,
			"message":    res.StatusMessage,
		})
	}
	return res
}

func (s *Service) newActivity(firingID string, ba *models.BoundAction, recipient, recipientName string, data map[string]interface{}, opts Options, res actions.Result) *models.ActionActivity {
	now := s.now()
	row := &models.ActionActivity{
		FiringID:         firingID,
		TriggerActionID:  ba.Binding.ID,
		TriggerID:        ba.Binding.TriggerID,
		ActionTemplateID: ba.Template.ID,
		TemplateVersion:  ba.Template.Version,
		ActionType:       ba.Template.ActionType,
		SequenceOrder:    ba.Binding.SequenceOrder,
		Attempt:          1,
		Recipient:        recipient,
		RecipientName:    recipientName,
		Status:           res.Status,
		StatusMessage:    res.StatusMessage,
		TriggerSource:    opts.TriggerSource,
		TriggeredBy:      opts.TriggeredBy,
		ContextData:      data,
		ResponseData:     res.ResponseData,
		ExecutedAt:       now,
	}
	if ba.Trigger != nil {
		row.TriggerKey = ba.Trigger.TriggerKey
	}
	switch res.Status {
	case models.StatusFailed:
		row.FailedAt = &now
	case models.StatusDelivered:
		row.DeliveredAt = &now
	}
	return row
}

// record writes row under its own deadline, detached from ctx cancellation,
// and returns the new id.
func (s *Service) record(ctx context.Context, log logger.Logger, row *models.ActionActivity) (int64, error) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), activityWriteTimeout)
	defer cancel()

	if err := s.activity.Record(writeCtx, row); err != nil {
		metrics.ActivityWriteFailures.Inc()
		log.Error("failed to record action activity", map[string]interface{}{
			"bindingId": row.TriggerActionID,
			"status":    string(row.Status),
			"error":     err.Error(),
		})
		return 0, err
	}
	return row.ID, nil
}

func (s *Service) checkContext(log logger.Logger, trigger *models.TriggerDefinition, data map[string]interface{}) {
	if trigger.ContextSchema.IsEmpty() {
		return
	}
	if res := validation.ValidateInput(data, trigger.ContextSchema); !res.Valid {
		log.Warn("firing context does not match trigger schema", map[string]interface{}{
			"violations": res.GetErrorMessages(),
		})
	}
}

func (s *Service) loadProfile(ctx context.Context, log logger.Logger, userID string) *models.RecipientProfile {
	if userID == "" || s.profiles == nil {
		return nil
	}
	p, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		fields := map[string]interface{}{"userId": userID, "error": err.Error()}
		if errors.Is(err, recipients.ErrProfileNotFound) {
			log.Warn("recipient profile not found, continuing without it", fields)
		} else {
			log.Error("recipient profile lookup failed, continuing without it", fields)
		}
		return nil
	}
	return p
}

func skippedOutcome(st *step) Outcome {
	return Outcome{
		BindingID:     st.bound.Binding.ID,
		TemplateID:    st.bound.Template.ID,
		ActionType:    st.bound.Template.ActionType,
		SequenceOrder: st.bound.Binding.SequenceOrder,
		Status:        OutcomeSkipped,
		SkipReason:    st.skip,
	}
}

func outcomeFor(ba *models.BoundAction, recipient string, res actions.Result, activityID int64) Outcome {
	status := OutcomeSent
	if !res.Success {
		status = OutcomeFailed
	}
	return Outcome{
		BindingID:     ba.Binding.ID,
		TemplateID:    ba.Template.ID,
		ActionType:    ba.Template.ActionType,
		SequenceOrder: ba.Binding.SequenceOrder,
		Status:        status,
		Recipient:     recipient,
		Message:       res.StatusMessage,
		ActivityID:    activityID,
	}
}
