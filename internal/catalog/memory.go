// internal/catalog/memory.go
package catalog

import (
	"context"
	"fmt"

	"merchant-triggers/internal/common/logger"
	"merchant-triggers/internal/models"
	"merchant-triggers/pkg/registry"
)

// MemoryStore serves the catalog from a seed file loaded once at startup.
// It is read-only after construction.
type MemoryStore struct {
	triggers    map[string]*models.TriggerDefinition
	byID        map[int64]*models.TriggerDefinition
	templates   map[int64]models.ActionTemplate
	bindings    map[int64][]models.TriggerAction
	bindingByID map[int64]models.TriggerAction
}

// LoadMemoryStore reads a seed catalog file and builds a MemoryStore from it.
func LoadMemoryStore(path string, log logger.Logger) (*MemoryStore, error) {
	seed, err := registry.LoadCatalog(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog seed: %w", err)
	}
	return NewMemoryStore(seed, log), nil
}

// NewMemoryStore indexes seed. Templates whose config fails validation are
// dropped with an error log; bindings pointing at them never fire.
func NewMemoryStore(seed *registry.Catalog, log logger.Logger) *MemoryStore {
	log = logger.ForComponent(log, "catalog")
	s := &MemoryStore{
		triggers:    make(map[string]*models.TriggerDefinition),
		byID:        make(map[int64]*models.TriggerDefinition),
		templates:   make(map[int64]models.ActionTemplate),
		bindings:    make(map[int64][]models.TriggerAction),
		bindingByID: make(map[int64]models.TriggerAction),
	}

	for i := range seed.Triggers {
		def := seed.Triggers[i]
		s.triggers[def.TriggerKey] = &def
		s.byID[def.ID] = &def
	}

	for _, tmpl := range seed.Templates {
		if err := PrepareTemplate(&tmpl); err != nil {
			log.Error("dropping action template with invalid config", map[string]interface{}{
				"templateId": tmpl.ID,
				"actionType": string(tmpl.ActionType),
				"error":      err.Error(),
			})
			continue
		}
		s.templates[tmpl.ID] = tmpl
	}

	for _, b := range seed.Bindings {
		s.bindings[b.TriggerID] = append(s.bindings[b.TriggerID], b)
		s.bindingByID[b.ID] = b
	}
	return s
}

func (s *MemoryStore) GetActiveTrigger(ctx context.Context, triggerKey string) (*models.TriggerDefinition, error) {
	def, ok := s.triggers[triggerKey]
	if !ok || !def.IsActive {
		return nil, fmt.Errorf("%w: %s", ErrTriggerNotFound, triggerKey)
	}
	return def, nil
}

func (s *MemoryStore) ListActiveBindings(ctx context.Context, trigger *models.TriggerDefinition) ([]models.BoundAction, error) {
	var bound []models.BoundAction
	for _, b := range s.bindings[trigger.ID] {
		tmpl, ok := s.templates[b.ActionTemplateID]
		if !b.IsActive || !ok || !tmpl.IsActive {
			continue
		}
		bound = append(bound, models.BoundAction{Trigger: trigger, Binding: b, Template: tmpl})
	}
	SortBindings(bound)
	return bound, nil
}

func (s *MemoryStore) GetBinding(ctx context.Context, bindingID int64) (*models.BoundAction, error) {
	b, ok := s.bindingByID[bindingID]
	if !ok || !b.IsActive {
		return nil, fmt.Errorf("%w: %d", ErrBindingNotFound, bindingID)
	}
	tmpl, ok := s.templates[b.ActionTemplateID]
	if !ok || !tmpl.IsActive {
		return nil, fmt.Errorf("%w: %d (template inactive)", ErrBindingNotFound, bindingID)
	}
	def, ok := s.byID[b.TriggerID]
	if !ok || !def.IsActive {
		return nil, fmt.Errorf("%w: %d (trigger inactive)", ErrBindingNotFound, bindingID)
	}
	return &models.BoundAction{Trigger: def, Binding: b, Template: tmpl}, nil
}
