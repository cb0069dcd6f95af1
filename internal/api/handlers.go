// Package api exposes trigger firing and activity lookups over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"merchant-triggers/internal/activity"
	"merchant-triggers/internal/common/logger"
	"merchant-triggers/internal/dispatch"
	"merchant-triggers/internal/models"
)

const (
	maxRequestBytes  = 1 << 20
	defaultAPISource = "api"
	readyTimeout     = 3 * time.Second
)

// Firer is the part of dispatch.Service the API needs.
type Firer interface {
	FireTrigger(ctx context.Context, triggerKey string, data map[string]interface{}, opts dispatch.Options) *dispatch.Firing
}

// ReadinessCheck reports whether a dependency is usable.
type ReadinessCheck func(ctx context.Context) error

type Handlers struct {
	firer    Firer
	activity activity.Log
	checks   map[string]ReadinessCheck
	logger   logger.Logger
	now      func() time.Time
}

func New(firer Firer, act activity.Log, checks map[string]ReadinessCheck, log logger.Logger) *Handlers {
	return &Handlers{
		firer:    firer,
		activity: act,
		checks:   checks,
		logger:   log.WithFields(map[string]interface{}{"component": "api"}),
		now:      time.Now,
	}
}

// FireRequest is the body of POST /api/v1/triggers/{key}/fire.
type FireRequest struct {
	Context         map[string]interface{} `json:"context"`
	RecipientUserID string                 `json:"recipientUserId,omitempty"`
	TriggerSource   string                 `json:"triggerSource,omitempty"`
	TriggeredBy     string                 `json:"triggeredBy,omitempty"`
}

// FireTrigger runs the firing synchronously and answers 202 with its summary,
// including firings of unknown or inactive triggers.
func (h *Handlers) FireTrigger(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(mux.Vars(r)["key"])
	if key == "" {
		writeError(w, http.StatusBadRequest, "trigger key is required")
		return
	}

	var req FireRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Context == nil {
		req.Context = map[string]interface{}{}
	}
	if req.TriggerSource == "" {
		req.TriggerSource = defaultAPISource
	}

	firing := h.firer.FireTrigger(r.Context(), key, req.Context, dispatch.Options{
		RecipientUserID: req.RecipientUserID,
		TriggerSource:   req.TriggerSource,
		TriggeredBy:     req.TriggeredBy,
	})
	if firing == nil {
		writeError(w, http.StatusInternalServerError, "trigger firing produced no result")
		return
	}
	outcomes := firing.Outcomes
	if outcomes == nil {
		outcomes = []dispatch.Outcome{}
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"firingId":     firing.FiringID,
		"triggerKey":   key,
		"triggerFound": firing.TriggerFound,
		"attempted":    firing.Attempted(),
		"sent":         firing.Count(dispatch.OutcomeSent),
		"failed":       firing.Count(dispatch.OutcomeFailed),
		"skipped":      firing.Count(dispatch.OutcomeSkipped),
		"outcomes":     outcomes,
	})
}

// ListActivities returns recent activity rows, newest first.
func (h *Handlers) ListActivities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.ActivityFilter{
		TriggerKey: q.Get("triggerKey"),
		FiringID:   q.Get("firingId"),
	}

	if s := q.Get("status"); s != "" {
		status := models.ActivityStatus(s)
		switch status {
		case models.StatusSent, models.StatusFailed, models.StatusPending, models.StatusDelivered:
			filter.Status = status
		default:
			writeError(w, http.StatusBadRequest, "unknown status "+strconv.Quote(s))
			return
		}
	}

	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = n
	}

	rows, err := h.activity.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list activities", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "failed to list activities")
		return
	}
	if rows == nil {
		rows = []models.ActionActivity{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"activities": rows,
		"count":      len(rows),
	})
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   h.now().Format(time.RFC3339),
	})
}

// Ready runs every readiness check and answers 503 when any fails.
func (h *Handlers) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	failures := map[string]string{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			failures[name] = err.Error()
		}
	}

	if len(failures) > 0 {
		h.logger.Warn("readiness check failed", map[string]interface{}{"failures": failures})
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "not_ready",
			"checks": failures,
			"time":   h.now().Format(time.RFC3339),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"time":   h.now().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
