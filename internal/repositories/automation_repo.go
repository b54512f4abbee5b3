package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/estate-crm/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AutomationRepo struct {
	pool *pgxpool.Pool
}

func NewAutomationRepo(pool *pgxpool.Pool) *AutomationRepo {
	return &AutomationRepo{pool: pool}
}

const automationColumns = `id, name, description, trigger_type, is_active, created_at, updated_at`

func scanAutomation(row pgx.Row) (*models.Automation, error) {
	var a models.Automation
	err := row.Scan(&a.ID, &a.Name, &a.Description, &a.TriggerType, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Actions = []models.AutomationAction{}
	return &a, nil
}

// List returns every automation, newest first, with actions in position
// order. Actions are loaded with one query for the whole page.
func (r *AutomationRepo) List(ctx context.Context) ([]models.Automation, error) {
	return r.list(ctx, `SELECT `+automationColumns+` FROM automations ORDER BY created_at DESC`)
}

// ListActiveByTrigger returns active automations for one trigger type,
// oldest first so that firing order is stable.
func (r *AutomationRepo) ListActiveByTrigger(ctx context.Context, trigger models.TriggerType) ([]models.Automation, error) {
	return r.list(ctx, `
		SELECT `+automationColumns+`
		FROM automations WHERE is_active AND trigger_type = $1
		ORDER BY created_at ASC
	`, trigger)
}

func (r *AutomationRepo) list(ctx context.Context, query string, args ...any) ([]models.Automation, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	automations := []models.Automation{}
	for rows.Next() {
		a, err := scanAutomation(rows)
		if err != nil {
			return nil, err
		}
		automations = append(automations, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(automations) == 0 {
		return automations, nil
	}

	ids := make([]uuid.UUID, len(automations))
	index := make(map[uuid.UUID]int, len(automations))
	for i, a := range automations {
		ids[i] = a.ID
		index[a.ID] = i
	}

	actions, err := r.actionsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, act := range actions {
		i := index[act.AutomationID]
		automations[i].Actions = append(automations[i].Actions, act)
	}
	return automations, nil
}

func (r *AutomationRepo) actionsFor(ctx context.Context, ids []uuid.UUID) ([]models.AutomationAction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, automation_id, position, action_type, config, created_at
		FROM automation_actions WHERE automation_id = ANY($1)
		ORDER BY automation_id, position
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []models.AutomationAction
	for rows.Next() {
		var act models.AutomationAction
		if err := rows.Scan(&act.ID, &act.AutomationID, &act.Position, &act.ActionType, &act.Config, &act.CreatedAt); err != nil {
			return nil, err
		}
		actions = append(actions, act)
	}
	return actions, rows.Err()
}

func (r *AutomationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Automation, error) {
	a, err := scanAutomation(r.pool.QueryRow(ctx, `
		SELECT `+automationColumns+` FROM automations WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	actions, err := r.actionsFor(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if actions != nil {
		a.Actions = actions
	}
	return a, nil
}

// Create inserts the automation and its actions in one transaction. IDs,
// positions and timestamps are filled in on a.
func (r *AutomationRepo) Create(ctx context.Context, a *models.Automation) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	err = tx.QueryRow(ctx, `
		INSERT INTO automations (name, description, trigger_type, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, a.Name, a.Description, a.TriggerType, a.IsActive,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert automation: %w", err)
	}

	if err := insertActions(ctx, tx, a); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Update replaces name, description, trigger and the full action list.
// The active flag is only changed through SetActive.
func (r *AutomationRepo) Update(ctx context.Context, a *models.Automation) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	err = tx.QueryRow(ctx, `
		UPDATE automations SET name = $1, description = $2, trigger_type = $3, updated_at = now()
		WHERE id = $4
		RETURNING is_active, created_at, updated_at
	`, a.Name, a.Description, a.TriggerType, a.ID,
	).Scan(&a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update automation: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM automation_actions WHERE automation_id = $1`, a.ID); err != nil {
		return fmt.Errorf("clear actions: %w", err)
	}
	if err := insertActions(ctx, tx, a); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertActions(ctx context.Context, tx pgx.Tx, a *models.Automation) error {
	for i := range a.Actions {
		act := &a.Actions[i]
		act.AutomationID = a.ID
		act.Position = i
		if act.Config == nil {
			act.Config = models.ActionConfig{}
		}
		err := tx.QueryRow(ctx, `
			INSERT INTO automation_actions (automation_id, position, action_type, config)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at
		`, act.AutomationID, act.Position, act.ActionType, act.Config,
		).Scan(&act.ID, &act.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert action %d: %w", i, err)
		}
	}
	return nil
}

func (r *AutomationRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE automations SET is_active = $1, updated_at = now() WHERE id = $2
	`, active, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the automation; actions and logs cascade.
func (r *AutomationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM automations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
