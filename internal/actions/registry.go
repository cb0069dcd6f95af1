// internal/actions/registry.go
package actions

import (
	"context"
	"fmt"
	"sort"
	"strings"

	apperrors "merchant-triggers/internal/common/errors"
	"merchant-triggers/internal/models"
)

// Registry maps every ActionKind to exactly one executor. It is read-only once built.
type Registry struct {
	executors map[models.ActionKind]Executor
}

// NewRegistry fails when a kind is registered twice or any kind is left uncovered.
func NewRegistry(execs ...Executor) (*Registry, error) {
	m := make(map[models.ActionKind]Executor, len(execs))
	for _, e := range execs {
		if e == nil {
			return nil, fmt.Errorf("nil executor")
		}
		kind := e.Kind()
		if !kind.Valid() {
			return nil, fmt.Errorf("executor reports unknown action type %q", kind)
		}
		if _, dup := m[kind]; dup {
			return nil, fmt.Errorf("duplicate executor for action type %q", kind)
		}
		m[kind] = e
	}

	var missing []string
	for _, kind := range models.AllActionKinds() {
		if _, ok := m[kind]; !ok {
			missing = append(missing, string(kind))
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("no executor registered for: %s", strings.Join(missing, ", "))
	}

	return &Registry{executors: m}, nil
}

// Kinds lists the registered action types in sorted order.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.executors))
	for k := range r.executors {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	return kinds
}

func (r *Registry) Get(kind models.ActionKind) (Executor, bool) {
	e, ok := r.executors[kind]
	return e, ok
}

// Execute runs the executor for tmpl's kind. A missing executor or a panic
// inside the executor becomes a failed Result.
func (r *Registry) Execute(ctx context.Context, tmpl *models.ActionTemplate, recipient string, data map[string]interface{}, profile *models.RecipientProfile) (res Result) {
	exec, ok := r.executors[tmpl.ActionType]
	if !ok {
		return Failed(apperrors.NewExecutorMissingError(string(tmpl.ActionType)).Error(), nil)
	}

	defer func() {
		if rec := recover(); rec != nil {
			res = Failed(apperrors.NewExecutorPanicError(string(tmpl.ActionType), rec).Error(), nil)
		}
	}()
	return exec.Execute(ctx, tmpl, recipient, data, profile)
}
