package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"merchant-triggers/internal/actions"
	"merchant-triggers/internal/catalog"
	"merchant-triggers/internal/common/logger"
	"merchant-triggers/internal/models"
	"merchant-triggers/pkg/registry"
)

// memActivity is an in-memory activity.Log.
type memActivity struct {
	mu        sync.Mutex
	rows      []models.ActionActivity
	nextID    int64
	failWhen  func(row *models.ActionActivity) bool
	retryable []models.ActionActivity
}

func (m *memActivity) Record(ctx context.Context, row *models.ActionActivity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWhen != nil && m.failWhen(row) {
		return errors.New("insert failed")
	}
	m.nextID++
	row.ID = m.nextID
	row.CreatedAt = time.Now()
	m.rows = append(m.rows, *row)
	return nil
}

func (m *memActivity) List(ctx context.Context, filter models.ActivityFilter) ([]models.ActionActivity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ActionActivity(nil), m.rows...), nil
}

func (m *memActivity) ListRetryable(ctx context.Context, limit int) ([]models.ActionActivity, error) {
	return m.retryable, nil
}

func (m *memActivity) sequence() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, r.SequenceOrder)
	}
	return out
}

type executorCall struct {
	templateID int64
	recipient  string
	data       map[string]interface{}
}

// recordingExecutor records every call and answers with fn, or Sent when fn is nil.
type recordingExecutor struct {
	kind  models.ActionKind
	fn    func(ctx context.Context, tmpl *models.ActionTemplate, recipient string) actions.Result
	mu    sync.Mutex
	calls []executorCall
}

func (r *recordingExecutor) Kind() models.ActionKind { return r.kind }

func (r *recordingExecutor) Execute(ctx context.Context, tmpl *models.ActionTemplate, recipient string, data map[string]interface{}, profile *models.RecipientProfile) actions.Result {
	r.mu.Lock()
	r.calls = append(r.calls, executorCall{templateID: tmpl.ID, recipient: recipient, data: data})
	r.mu.Unlock()
	if r.fn != nil {
		return r.fn(ctx, tmpl, recipient)
	}
	return actions.Sent(fmt.Sprintf("%s sent to %s", r.kind, recipient), nil)
}

func (r *recordingExecutor) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type MockProfiles struct {
	GetProfileFunc func(ctx context.Context, userID string) (*models.RecipientProfile, error)
}

func (m *MockProfiles) GetProfile(ctx context.Context, userID string) (*models.RecipientProfile, error) {
	return m.GetProfileFunc(ctx, userID)
}

const testTriggerKey = "deal_approved"

// seedBuilder assembles a one-trigger catalog.
type seedBuilder struct {
	cat *registry.Catalog
}

func newSeed() *seedBuilder {
	return &seedBuilder{cat: &registry.Catalog{
		Version:  "test",
		Triggers: []models.TriggerDefinition{{ID: 1, TriggerKey: testTriggerKey, Name: "Deal Approved", IsActive: true}},
	}}
}

func (b *seedBuilder) template(id int64, kind models.ActionKind, config string) *seedBuilder {
	b.cat.Templates = append(b.cat.Templates, models.ActionTemplate{
		ID: id, Name: fmt.Sprintf("tmpl-%d", id), ActionType: kind,
		RawConfig: json.RawMessage(config), IsActive: true, Version: 1,
	})
	return b
}

func (b *seedBuilder) bind(binding models.TriggerAction) *seedBuilder {
	if binding.TriggerID == 0 {
		binding.TriggerID = 1
	}
	binding.IsActive = true
	b.cat.Bindings = append(b.cat.Bindings, binding)
	return b
}

// smsBinding binds an sms template whose message is its own sequence number.
func (b *seedBuilder) smsBinding(id int64, seq int) *seedBuilder {
	return b.template(id+1000, models.ActionSMS, fmt.Sprintf(`{"message":"step %d"}`, seq)).
		bind(models.TriggerAction{ID: id, ActionTemplateID: id + 1000, SequenceOrder: seq})
}

type testEnv struct {
	svc       *Service
	activity  *memActivity
	executors map[models.ActionKind]*recordingExecutor
}

func newTestEnv(t *testing.T, seed *seedBuilder, cfg Config, overrides ...actions.Executor) *testEnv {
	t.Helper()
	env := &testEnv{activity: &memActivity{}, executors: map[models.ActionKind]*recordingExecutor{}}

	byKind := map[models.ActionKind]actions.Executor{}
	for _, k := range models.AllActionKinds() {
		rec := &recordingExecutor{kind: k}
		env.executors[k] = rec
		byKind[k] = rec
	}
	for _, o := range overrides {
		byKind[o.Kind()] = o
	}
	var execs []actions.Executor
	for _, e := range byKind {
		execs = append(execs, e)
	}
	reg, err := actions.NewRegistry(execs...)
	require.NoError(t, err)

	log := logger.NewTestLogger(t)
	env.svc = NewService(cfg, Dependencies{
		Catalog:  catalog.NewMemoryStore(seed.cat, log),
		Registry: reg,
		Activity: env.activity,
		Logger:   log,
	})
	return env
}

func (e *testEnv) withProfiles(p *MockProfiles) *testEnv {
	e.svc.profiles = p
	return e
}

var phoneContext = map[string]interface{}{"recipientPhone": "+15550102030"}
