package catalog

import (
	"fmt"
	"strings"

	"merchant-triggers/pkg/registry"
)

// ValidateSeed reports every problem in a seed catalog: duplicate ids or keys,
// template configs that fail their schema, and bindings that point at missing
// triggers or templates. A nil result means the file is loadable as-is.
func ValidateSeed(c *registry.Catalog) []error {
	var errs []error
	add := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	triggerIDs := make(map[int64]bool, len(c.Triggers))
	triggerKeys := make(map[string]bool, len(c.Triggers))
	for _, t := range c.Triggers {
		key := strings.TrimSpace(t.TriggerKey)
		switch {
		case key == "":
			add("trigger %d: triggerKey is empty", t.ID)
		case triggerKeys[key]:
			add("trigger %d: duplicate triggerKey %q", t.ID, key)
		}
		if triggerIDs[t.ID] {
			add("trigger %d: duplicate id", t.ID)
		}
		triggerIDs[t.ID] = true
		triggerKeys[key] = true
	}

	templateIDs := make(map[int64]bool, len(c.Templates))
	for _, tmpl := range c.Templates {
		if templateIDs[tmpl.ID] {
			add("template %d: duplicate id", tmpl.ID)
		}
		templateIDs[tmpl.ID] = true
		if err := PrepareTemplate(&tmpl); err != nil {
			add("template %d (%s): %v", tmpl.ID, tmpl.Name, err)
		}
	}

	bindingIDs := make(map[int64]bool, len(c.Bindings))
	for _, b := range c.Bindings {
		if bindingIDs[b.ID] {
			add("binding %d: duplicate id", b.ID)
		}
		bindingIDs[b.ID] = true
		if !triggerIDs[b.TriggerID] {
			add("binding %d: unknown trigger %d", b.ID, b.TriggerID)
		}
		if !templateIDs[b.ActionTemplateID] {
			add("binding %d: unknown template %d", b.ID, b.ActionTemplateID)
		}
		if b.MaxRetries < 0 {
			add("binding %d: maxRetries must not be negative", b.ID)
		}
		if b.DelaySeconds < 0 {
			add("binding %d: delaySeconds must not be negative", b.ID)
		}
	}
	return errs
}
