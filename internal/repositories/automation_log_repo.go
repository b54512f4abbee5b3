package repositories

import (
	"context"

	"github.com/estate-crm/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AutomationLogRepo struct {
	pool *pgxpool.Pool
}

func NewAutomationLogRepo(pool *pgxpool.Pool) *AutomationLogRepo {
	return &AutomationLogRepo{pool: pool}
}

func (r *AutomationLogRepo) Log(ctx context.Context, entry models.AutomationLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO automation_logs (automation_id, status, message)
		VALUES ($1, $2, $3)
	`, entry.AutomationID, entry.Status, entry.Message)
	return err
}

// ListByAutomation returns the most recent logs first.
func (r *AutomationLogRepo) ListByAutomation(ctx context.Context, automationID uuid.UUID, limit, offset int) ([]models.AutomationLog, error) {
	limit, offset = pageBounds(limit, offset)
	rows, err := r.pool.Query(ctx, `
		SELECT id, automation_id, status, message, created_at
		FROM automation_logs WHERE automation_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, automationID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []models.AutomationLog{}
	for rows.Next() {
		var l models.AutomationLog
		if err := rows.Scan(&l.ID, &l.AutomationID, &l.Status, &l.Message, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
