package queries

import (
	"context"
	"database/sql"

	"github.com/forgeci/runner-autoscaler/pkg/models"
)

type ScalingEventRepository struct {
	db *sql.DB
}

func NewScalingEventRepository(db *sql.DB) *ScalingEventRepository {
	return &ScalingEventRepository{db: db}
}

func (r *ScalingEventRepository) Insert(ctx context.Context, event *models.ScalingEvent) error {
	query := `
		INSERT INTO scaling_events (timestamp, action, instances_before, instances_after, trigger_reason, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	return r.db.QueryRowContext(ctx, query,
		event.Timestamp, string(event.Action),
		event.InstancesBefore, event.InstancesAfter,
		event.TriggerReason, string(event.Status),
	).Scan(&event.ID)
}

func (r *ScalingEventRepository) GetRecent(ctx context.Context, limit int) ([]models.ScalingEvent, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, timestamp, action, instances_before, instances_after, trigger_reason, status
		FROM scaling_events
		ORDER BY timestamp DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.ScalingEvent
	for rows.Next() {
		var e models.ScalingEvent
		err := rows.Scan(
			&e.ID, &e.Timestamp, &e.Action,
			&e.InstancesBefore, &e.InstancesAfter,
			&e.TriggerReason, &e.Status,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	return events, rows.Err()
}
