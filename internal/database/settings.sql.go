package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getSettings = `
SELECT id, manual_override, scheduled_open, scheduled_close, next_pickup_date, current_batch_id, updated_at
FROM settings
WHERE id = 1
`

func (q *Queries) GetSettings(ctx context.Context) (Setting, error) {
	row := q.db.QueryRow(ctx, getSettings)
	var s Setting
	err := row.Scan(
		&s.ID,
		&s.ManualOverride,
		&s.ScheduledOpen,
		&s.ScheduledClose,
		&s.NextPickupDate,
		&s.CurrentBatchID,
		&s.UpdatedAt,
	)
	return s, err
}

const getSettingsForUpdate = `
SELECT id, manual_override, scheduled_open, scheduled_close, next_pickup_date, current_batch_id, updated_at
FROM settings
WHERE id = 1
FOR UPDATE
`

// GetSettingsForUpdate locks the singleton row for the duration of the
// enclosing transaction. All settings mutations go through this lock so the
// batch-creation side effect cannot race with a concurrent save.
func (q *Queries) GetSettingsForUpdate(ctx context.Context) (Setting, error) {
	row := q.db.QueryRow(ctx, getSettingsForUpdate)
	var s Setting
	err := row.Scan(
		&s.ID,
		&s.ManualOverride,
		&s.ScheduledOpen,
		&s.ScheduledClose,
		&s.NextPickupDate,
		&s.CurrentBatchID,
		&s.UpdatedAt,
	)
	return s, err
}

const updateSettings = `
UPDATE settings
SET manual_override = $1,
    scheduled_open = $2,
    scheduled_close = $3,
    next_pickup_date = $4,
    current_batch_id = $5,
    updated_at = now()
WHERE id = 1
RETURNING id, manual_override, scheduled_open, scheduled_close, next_pickup_date, current_batch_id, updated_at
`

type UpdateSettingsParams struct {
	ManualOverride string
	ScheduledOpen  pgtype.Text
	ScheduledClose pgtype.Text
	NextPickupDate pgtype.Text
	CurrentBatchID pgtype.Text
}

func (q *Queries) UpdateSettings(ctx context.Context, arg UpdateSettingsParams) (Setting, error) {
	row := q.db.QueryRow(ctx, updateSettings,
		arg.ManualOverride,
		arg.ScheduledOpen,
		arg.ScheduledClose,
		arg.NextPickupDate,
		arg.CurrentBatchID,
	)
	var s Setting
	err := row.Scan(
		&s.ID,
		&s.ManualOverride,
		&s.ScheduledOpen,
		&s.ScheduledClose,
		&s.NextPickupDate,
		&s.CurrentBatchID,
		&s.UpdatedAt,
	)
	return s, err
}

const updateCurrentBatch = `
UPDATE settings
SET current_batch_id = $1,
    updated_at = now()
WHERE id = 1
`

func (q *Queries) UpdateCurrentBatch(ctx context.Context, currentBatchID pgtype.Text) error {
	_, err := q.db.Exec(ctx, updateCurrentBatch, currentBatchID)
	return err
}
