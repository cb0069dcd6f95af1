// Package catalog resolves trigger keys to their active, ordered action
// bindings. Templates are schema-checked and decoded when they are loaded, so
// the dispatcher only ever sees valid configs.
package catalog

import (
	"context"
	"errors"
	"sort"

	"merchant-triggers/internal/models"
)

var (
	ErrTriggerNotFound = errors.New("trigger not found")
	ErrBindingNotFound = errors.New("binding not found")
)

// Catalog is the read side of trigger definitions, templates and bindings.
type Catalog interface {
	// GetActiveTrigger returns ErrTriggerNotFound when the key is unknown or inactive.
	GetActiveTrigger(ctx context.Context, triggerKey string) (*models.TriggerDefinition, error)
	// ListActiveBindings returns bindings whose own flag and template flag are
	// both active, ordered by sequence order then id.
	ListActiveBindings(ctx context.Context, trigger *models.TriggerDefinition) ([]models.BoundAction, error)
	// GetBinding returns ErrBindingNotFound unless the binding, its template and
	// its trigger are all active.
	GetBinding(ctx context.Context, bindingID int64) (*models.BoundAction, error)
}

// SortBindings orders bound actions by SequenceOrder, breaking ties by binding id.
func SortBindings(bound []models.BoundAction) {
	sort.SliceStable(bound, func(i, j int) bool {
		a, b := bound[i].Binding, bound[j].Binding
		if a.SequenceOrder != b.SequenceOrder {
			return a.SequenceOrder < b.SequenceOrder
		}
		return a.ID < b.ID
	})
}
