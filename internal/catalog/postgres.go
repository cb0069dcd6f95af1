// internal/catalog/postgres.go
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	apperrors "merchant-triggers/internal/common/errors"
	"merchant-triggers/internal/common/logger"
	"merchant-triggers/internal/models"
)

const triggerColumns = `
	id, trigger_key, name, description, category, context_schema, is_active, created_at, updated_at`

const boundColumns = `
	ta.id, ta.trigger_id, ta.action_template_id, ta.sequence_order, ta.conditions,
	ta.requires_email_preference, ta.requires_sms_preference, ta.delay_seconds,
	ta.retry_on_failure, ta.max_retries, ta.is_active, ta.created_at,
	t.id, t.name, t.description, t.action_type, t.category, t.config, t.variables,
	t.is_active, t.version, t.created_at, t.updated_at`

var (
	getActiveTriggerQuery = `SELECT` + triggerColumns + `
	FROM trigger_definitions
	WHERE trigger_key = $1 AND is_active = true`

	getActiveTriggerByIDQuery = `SELECT` + triggerColumns + `
	FROM trigger_definitions
	WHERE id = $1 AND is_active = true`

	listActiveBindingsQuery = `SELECT` + boundColumns + `
	FROM trigger_actions ta
	JOIN action_templates t ON t.id = ta.action_template_id
	WHERE ta.trigger_id = $1 AND ta.is_active = true AND t.is_active = true
	ORDER BY ta.sequence_order ASC, ta.id ASC`

	getBindingQuery = `SELECT` + boundColumns + `
	FROM trigger_actions ta
	JOIN action_templates t ON t.id = ta.action_template_id
	WHERE ta.id = $1 AND ta.is_active = true AND t.is_active = true`
)

// PostgresStore reads the catalog tables on every call, so catalog edits
// apply to the next firing.
type PostgresStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresStore(db *sql.DB, log logger.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger.ForComponent(log, "catalog")}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *PostgresStore) GetActiveTrigger(ctx context.Context, triggerKey string) (*models.TriggerDefinition, error) {
	return s.getTrigger(ctx, getActiveTriggerQuery, triggerKey, triggerKey)
}

func (s *PostgresStore) getTrigger(ctx context.Context, query string, arg interface{}, label string) (*models.TriggerDefinition, error) {
	def, err := scanTrigger(s.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrTriggerNotFound, label)
	}
	if err != nil {
		return nil, apperrors.NewCatalogLoadFailedError("trigger "+label, err)
	}
	return def, nil
}

func scanTrigger(row rowScanner) (*models.TriggerDefinition, error) {
	var (
		def                   models.TriggerDefinition
		description, category sql.NullString
		schema                []byte
	)
	if err := row.Scan(&def.ID, &def.TriggerKey, &def.Name, &description, &category,
		&schema, &def.IsActive, &def.CreatedAt, &def.UpdatedAt); err != nil {
		return nil, err
	}
	def.Description = description.String
	def.Category = category.String
	if len(schema) > 0 {
		if err := json.Unmarshal(schema, &def.ContextSchema); err != nil {
			return nil, fmt.Errorf("decode context schema: %w", err)
		}
	}
	return &def, nil
}

func (s *PostgresStore) ListActiveBindings(ctx context.Context, trigger *models.TriggerDefinition) ([]models.BoundAction, error) {
	rows, err := s.db.QueryContext(ctx, listActiveBindingsQuery, trigger.ID)
	if err != nil {
		return nil, apperrors.NewCatalogLoadFailedError("bindings for "+trigger.TriggerKey, err)
	}
	defer rows.Close()

	var bound []models.BoundAction
	for rows.Next() {
		ba, err := scanBound(rows)
		if err != nil {
			return nil, apperrors.NewCatalogLoadFailedError("scan binding", err)
		}
		if err := PrepareTemplate(&ba.Template); err != nil {
			s.logger.Error("dropping binding with invalid template config", map[string]interface{}{
				"triggerKey": trigger.TriggerKey,
				"bindingId":  ba.Binding.ID,
				"templateId": ba.Template.ID,
				"error":      err.Error(),
			})
			continue
		}
		ba.Trigger = trigger
		bound = append(bound, *ba)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewCatalogLoadFailedError("iterate bindings", err)
	}

	SortBindings(bound)
	return bound, nil
}

func (s *PostgresStore) GetBinding(ctx context.Context, bindingID int64) (*models.BoundAction, error) {
	ba, err := scanBound(s.db.QueryRowContext(ctx, getBindingQuery, bindingID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrBindingNotFound, bindingID)
	}
	if err != nil {
		return nil, apperrors.NewCatalogLoadFailedError(fmt.Sprintf("binding %d", bindingID), err)
	}
	if err := PrepareTemplate(&ba.Template); err != nil {
		return nil, apperrors.NewTemplateConfigInvalidError(ba.Template.ID, err.Error())
	}

	trigger, err := s.getTrigger(ctx, getActiveTriggerByIDQuery, ba.Binding.TriggerID, fmt.Sprintf("id %d", ba.Binding.TriggerID))
	if errors.Is(err, ErrTriggerNotFound) {
		return nil, fmt.Errorf("%w: %d (trigger inactive)", ErrBindingNotFound, bindingID)
	}
	if err != nil {
		return nil, err
	}
	ba.Trigger = trigger
	return ba, nil
}

func scanBound(row rowScanner) (*models.BoundAction, error) {
	var (
		ba                            models.BoundAction
		conditions, variables         []byte
		tmplDescription, tmplCategory sql.NullString
		actionType                    string
		rawConfig                     []byte
	)
	b := &ba.Binding
	t := &ba.Template
	err := row.Scan(
		&b.ID, &b.TriggerID, &b.ActionTemplateID, &b.SequenceOrder, &conditions,
		&b.RequiresEmailPreference, &b.RequiresSMSPreference, &b.DelaySeconds,
		&b.RetryOnFailure, &b.MaxRetries, &b.IsActive, &b.CreatedAt,
		&t.ID, &t.Name, &tmplDescription, &actionType, &tmplCategory, &rawConfig, &variables,
		&t.IsActive, &t.Version, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(conditions) > 0 {
		b.Conditions = json.RawMessage(conditions)
	}
	t.Description = tmplDescription.String
	t.Category = tmplCategory.String
	t.ActionType = models.ActionKind(actionType)
	t.RawConfig = json.RawMessage(rawConfig)
	if len(variables) > 0 {
		if err := json.Unmarshal(variables, &t.Variables); err != nil {
			return nil, fmt.Errorf("decode template variables: %w", err)
		}
	}
	return &ba, nil
}
