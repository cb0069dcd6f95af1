// pkg/registry/schema.go
package registry

import (
	"fmt"
	"strconv"

	"merchant-triggers/internal/models"
)

// Catalog is the seed-file form of the trigger catalog: trigger definitions,
// action templates and the bindings between them.
type Catalog struct {
	Version     string                     `json:"version"`
	LastUpdated string                     `json:"lastUpdated"`
	Triggers    []models.TriggerDefinition `json:"triggers"`
	Templates   []models.ActionTemplate    `json:"templates"`
	Bindings    []models.TriggerAction     `json:"bindings"`
}

func (c *Catalog) FindTrigger(key string) *models.TriggerDefinition {
	for i := range c.Triggers {
		if c.Triggers[i].TriggerKey == key {
			return &c.Triggers[i]
		}
	}
	return nil
}

func (c *Catalog) FindTemplate(id int64) *models.ActionTemplate {
	for i := range c.Templates {
		if c.Templates[i].ID == id {
			return &c.Templates[i]
		}
	}
	return nil
}

// NextTriggerID returns one past the highest trigger id in the file.
func (c *Catalog) NextTriggerID() int64 {
	var max int64
	for _, t := range c.Triggers {
		if t.ID > max {
			max = t.ID
		}
	}
	return max + 1
}

// AddTrigger appends def, assigning the next id when def.ID is zero.
func (c *Catalog) AddTrigger(def models.TriggerDefinition) (*models.TriggerDefinition, error) {
	if def.TriggerKey == "" {
		return nil, fmt.Errorf("trigger key is required")
	}
	if c.FindTrigger(def.TriggerKey) != nil {
		return nil, fmt.Errorf("trigger %q already exists", def.TriggerKey)
	}
	if def.ID == 0 {
		def.ID = c.NextTriggerID()
	}
	c.Triggers = append(c.Triggers, def)
	return &c.Triggers[len(c.Triggers)-1], nil
}

// SetActive flips the IsActive flag of a trigger (by key), template or
// binding (by id).
func (c *Catalog) SetActive(kind, ref string, active bool) error {
	switch kind {
	case "trigger":
		t := c.FindTrigger(ref)
		if t == nil {
			return fmt.Errorf("trigger %q not found", ref)
		}
		t.IsActive = active
		return nil
	case "template", "binding":
		id, err := strconv.ParseInt(ref, 10, 64)
		if err != nil {
			return fmt.Errorf("%s id must be numeric: %w", kind, err)
		}
		if kind == "template" {
			tmpl := c.FindTemplate(id)
			if tmpl == nil {
				return fmt.Errorf("template %d not found", id)
			}
			tmpl.IsActive = active
			return nil
		}
		for i := range c.Bindings {
			if c.Bindings[i].ID == id {
				c.Bindings[i].IsActive = active
				return nil
			}
		}
		return fmt.Errorf("binding %d not found", id)
	default:
		return fmt.Errorf("unknown catalog entry kind %q", kind)
	}
}
