package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pantrybridge/api/internal/database"
	"github.com/pantrybridge/api/internal/enum"
)

// Errors returned by the batch service.
var (
	ErrInvalidOverride = errors.New("invalid manual_override")
	ErrSchedulePartial = errors.New("scheduled_open and scheduled_close must be set together")
	ErrScheduleInvalid = errors.New("schedule bounds must be RFC3339 timestamps")
	ErrScheduleOrder   = errors.New("scheduled_close must be after scheduled_open")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// SettingsStore defines the DB methods needed to save settings and open
// batches. Satisfied by *database.Queries (and its WithTx variant).
type SettingsStore interface {
	GetSettingsForUpdate(ctx context.Context) (database.Setting, error)
	UpdateSettings(ctx context.Context, arg database.UpdateSettingsParams) (database.Setting, error)
	UpdateCurrentBatch(ctx context.Context, currentBatchID pgtype.Text) error
	CreateBatch(ctx context.Context, arg database.CreateBatchParams) (database.Batch, error)
}

// NewSettingsStore creates a SettingsStore from a DBTX (pool or tx).
type NewSettingsStore func(db database.DBTX) SettingsStore

// BatchService owns every settings mutation. Funneling all writes through
// here means the batch-creation side effect cannot be bypassed.
type BatchService struct {
	pool     TxBeginner
	newStore NewSettingsStore
	loc      *time.Location
	now      func() time.Time
}

// NewBatchService creates a new BatchService. loc is used for batch display
// names only; all stored instants are UTC.
func NewBatchService(pool TxBeginner, newStore NewSettingsStore, loc *time.Location) *BatchService {
	return &BatchService{pool: pool, newStore: newStore, loc: loc, now: time.Now}
}

// SaveSettingsRequest is the validated admin input. Empty schedule strings
// mean "no schedule".
type SaveSettingsRequest struct {
	ManualOverride string
	ScheduledOpen  string
	ScheduledClose string
	NextPickupDate string
}

// SaveSettingsResult reports the persisted settings and, when a trigger
// fired, the batch that was opened in the same transaction.
type SaveSettingsResult struct {
	Settings database.Setting
	NewBatch *database.Batch
}

// SaveSettings persists the admin settings and opens a new batch when one of
// the two trigger rules fires, comparing against the previously persisted
// row (never against client state):
//
//   - the override transitions into OPEN -> MANUAL batch starting now
//   - scheduled_open changes to a new non-empty value -> SCHEDULED batch
//     starting at that instant
//
// At most one batch is created per save; the manual-open trigger wins when
// both fire. Re-saving an unchanged scheduled_open, closing the form, or
// switching to follow-schedule never creates a batch. The batch row and the
// current-batch pointer are written in one transaction.
func (s *BatchService) SaveSettings(ctx context.Context, req SaveSettingsRequest) (*SaveSettingsResult, error) {
	switch req.ManualOverride {
	case enum.OverrideOpen, enum.OverrideClosed, enum.OverrideSchedule:
	default:
		return nil, ErrInvalidOverride
	}

	var scheduledOpenAt time.Time
	if (req.ScheduledOpen == "") != (req.ScheduledClose == "") {
		return nil, ErrSchedulePartial
	}
	if req.ScheduledOpen != "" {
		openAt, err := time.Parse(time.RFC3339, req.ScheduledOpen)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScheduleInvalid, err)
		}
		closeAt, err := time.Parse(time.RFC3339, req.ScheduledClose)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScheduleInvalid, err)
		}
		if !closeAt.After(openAt) {
			return nil, ErrScheduleOrder
		}
		scheduledOpenAt = openAt
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	cur, err := store.GetSettingsForUpdate(ctx)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}

	manualOpen := req.ManualOverride == enum.OverrideOpen && cur.ManualOverride != enum.OverrideOpen
	scheduleChanged := req.ScheduledOpen != "" && req.ScheduledOpen != cur.ScheduledOpen.String

	var newBatch *database.Batch
	currentBatchID := cur.CurrentBatchID
	switch {
	case manualOpen:
		b, err := s.createBatch(ctx, store, enum.BatchOriginManual, s.now().UTC())
		if err != nil {
			return nil, err
		}
		newBatch = &b
		currentBatchID = pgtype.Text{String: b.ID, Valid: true}
	case scheduleChanged:
		b, err := s.createBatch(ctx, store, enum.BatchOriginScheduled, scheduledOpenAt)
		if err != nil {
			return nil, err
		}
		newBatch = &b
		currentBatchID = pgtype.Text{String: b.ID, Valid: true}
	}

	updated, err := store.UpdateSettings(ctx, database.UpdateSettingsParams{
		ManualOverride: req.ManualOverride,
		ScheduledOpen:  textOrNull(req.ScheduledOpen),
		ScheduledClose: textOrNull(req.ScheduledClose),
		NextPickupDate: textOrNull(req.NextPickupDate),
		CurrentBatchID: currentBatchID,
	})
	if err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &SaveSettingsResult{Settings: updated, NewBatch: newBatch}, nil
}

// StartNewBatch opens a batch outside the settings-save flow and points the
// settings row at it, as a single transaction.
func (s *BatchService) StartNewBatch(ctx context.Context, origin string, startDate time.Time) (database.Batch, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Batch{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	b, err := s.createBatch(ctx, store, origin, startDate)
	if err != nil {
		return database.Batch{}, err
	}
	if err := store.UpdateCurrentBatch(ctx, pgtype.Text{String: b.ID, Valid: true}); err != nil {
		return database.Batch{}, fmt.Errorf("update current batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Batch{}, fmt.Errorf("commit tx: %w", err)
	}
	return b, nil
}

func (s *BatchService) createBatch(ctx context.Context, store SettingsStore, origin string, startDate time.Time) (database.Batch, error) {
	id := batchID(s.now().UTC())
	name := fmt.Sprintf("Batch %s (%s)", startDate.In(s.loc).Format("2006-01-02"), origin)
	b, err := store.CreateBatch(ctx, database.CreateBatchParams{
		ID:        id,
		Name:      name,
		StartDate: startDate,
		Origin:    origin,
	})
	if err != nil {
		return database.Batch{}, fmt.Errorf("create batch: %w", err)
	}
	return b, nil
}

// batchID derives a time-ordered identifier, e.g.
// BATCH_2024-03-01T09-00-00Z.
func batchID(t time.Time) string {
	ts := t.Format(time.RFC3339)
	ts = strings.NewReplacer(":", "-", ".", "-").Replace(ts)
	return "BATCH_" + ts
}

func textOrNull(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
