// cmd/tools/catalog-tool/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"merchant-triggers/internal/catalog"
	"merchant-triggers/internal/models"
	"merchant-triggers/pkg/registry"
)

const defaultCatalogPath = "configs/trigger-catalog.json"

func main() {
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	addCmd := flag.NewFlagSet("add-trigger", flag.ExitOnError)
	activeCmd := flag.NewFlagSet("set-active", flag.ExitOnError)

	validatePath := validateCmd.String("path", defaultCatalogPath, "Path to catalog file")

	addPath := addCmd.String("path", defaultCatalogPath, "Path to catalog file")
	key := addCmd.String("key", "", "Trigger key (e.g., deal_approved)")
	name := addCmd.String("name", "", "Display name (e.g., Deal Approved)")
	description := addCmd.String("description", "", "Description")
	category := addCmd.String("category", "", "Category (e.g., deals)")
	inactive := addCmd.Bool("inactive", false, "Create the trigger switched off")

	activePath := activeCmd.String("path", defaultCatalogPath, "Path to catalog file")
	kind := activeCmd.String("kind", "trigger", "Entry kind: trigger, template or binding")
	ref := activeCmd.String("ref", "", "Trigger key, or template/binding id")
	value := activeCmd.Bool("value", true, "New active state")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "validate":
		validateCmd.Parse(os.Args[2:])
		if err := validate(*validatePath); err != nil {
			fmt.Printf("Catalog validation failed: %v\n", err)
			os.Exit(1)
		}

	case "add-trigger":
		addCmd.Parse(os.Args[2:])
		if *key == "" || *name == "" {
			fmt.Println("Error: key and name are required for add-trigger.")
			addCmd.Usage()
			os.Exit(1)
		}
		def := models.TriggerDefinition{
			TriggerKey:  strings.TrimSpace(*key),
			Name:        *name,
			Description: *description,
			Category:    *category,
			IsActive:    !*inactive,
		}
		if err := addTrigger(*addPath, def); err != nil {
			fmt.Printf("Error adding trigger: %v\n", err)
			os.Exit(1)
		}

	case "set-active":
		activeCmd.Parse(os.Args[2:])
		if *ref == "" {
			fmt.Println("Error: ref is required for set-active.")
			activeCmd.Usage()
			os.Exit(1)
		}
		if err := setActive(*activePath, *kind, *ref, *value); err != nil {
			fmt.Printf("Error updating catalog: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Set %s %s active=%t\n", *kind, *ref, *value)

	case "help":
		help()
	default:
		help()
		os.Exit(1)
	}
}

func validate(path string) error {
	c, err := registry.LoadCatalog(path)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	if errs := catalog.ValidateSeed(c); len(errs) > 0 {
		for _, e := range errs {
			fmt.Printf("  - %v\n", e)
		}
		return fmt.Errorf("%d problem(s) found", len(errs))
	}

	fmt.Printf("Catalog validation passed. Found %d triggers, %d templates, %d bindings.\n",
		len(c.Triggers), len(c.Templates), len(c.Bindings))
	return nil
}

func addTrigger(path string, def models.TriggerDefinition) error {
	c, err := registry.LoadCatalog(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to load catalog: %w", err)
		}
		c = &registry.Catalog{Version: "1.0.0"}
	}

	added, err := c.AddTrigger(def)
	if err != nil {
		return err
	}
	if err := registry.SaveCatalog(path, c); err != nil {
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	fmt.Printf("Added trigger %s (id %d)\n", added.TriggerKey, added.ID)
	return nil
}

func setActive(path, kind, ref string, active bool) error {
	c, err := registry.LoadCatalog(path)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	if err := c.SetActive(kind, ref, active); err != nil {
		return err
	}
	return registry.SaveCatalog(path, c)
}

func help() {
	fmt.Println(`
Usage: catalog-tool <command> [flags]

Commands:
  validate     Check template configs and binding references in the catalog file
  add-trigger  Add a trigger definition
  set-active   Switch a trigger, template or binding on or off
  help         Show this help message

Examples:
  catalog-tool validate -path configs/trigger-catalog.json
  catalog-tool add-trigger -key deal_funded -name "Deal Funded" -category deals
  catalog-tool set-active -kind binding -ref 12 -value=false`)
}
