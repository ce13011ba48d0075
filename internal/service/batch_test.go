package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pantrybridge/api/internal/database"
	"github.com/pantrybridge/api/internal/enum"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr   error
	rollbackErr error
	committed   bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	m.committed = true
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error { return m.rollbackErr }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

// mockSettingsStore implements SettingsStore with configurable behavior.
type mockSettingsStore struct {
	getSettingsForUpdateFn func(ctx context.Context) (database.Setting, error)
	updateSettingsFn       func(ctx context.Context, arg database.UpdateSettingsParams) (database.Setting, error)
	updateCurrentBatchFn   func(ctx context.Context, id pgtype.Text) error
	createBatchFn          func(ctx context.Context, arg database.CreateBatchParams) (database.Batch, error)
}

func (m *mockSettingsStore) GetSettingsForUpdate(ctx context.Context) (database.Setting, error) {
	return m.getSettingsForUpdateFn(ctx)
}
func (m *mockSettingsStore) UpdateSettings(ctx context.Context, arg database.UpdateSettingsParams) (database.Setting, error) {
	return m.updateSettingsFn(ctx, arg)
}
func (m *mockSettingsStore) UpdateCurrentBatch(ctx context.Context, id pgtype.Text) error {
	return m.updateCurrentBatchFn(ctx, id)
}
func (m *mockSettingsStore) CreateBatch(ctx context.Context, arg database.CreateBatchParams) (database.Batch, error) {
	return m.createBatchFn(ctx, arg)
}

// --- Test helpers ---

var fixedNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// newTestBatchService wires a BatchService to a mock store behind a mock
// transaction and pins the clock.
func newTestBatchService(store *mockSettingsStore) (*BatchService, *mockTx) {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	newStore := func(db database.DBTX) SettingsStore { return store }
	svc := NewBatchService(pool, newStore, time.UTC)
	svc.now = func() time.Time { return fixedNow }
	return svc, tx
}

// defaultSettingsStore returns a store holding a closed form with no
// schedule. Individual tests override what they care about.
func defaultSettingsStore() *mockSettingsStore {
	return &mockSettingsStore{
		getSettingsForUpdateFn: func(ctx context.Context) (database.Setting, error) {
			return database.Setting{ID: 1, ManualOverride: enum.OverrideClosed}, nil
		},
		updateSettingsFn: func(ctx context.Context, arg database.UpdateSettingsParams) (database.Setting, error) {
			return database.Setting{
				ID:             1,
				ManualOverride: arg.ManualOverride,
				ScheduledOpen:  arg.ScheduledOpen,
				ScheduledClose: arg.ScheduledClose,
				NextPickupDate: arg.NextPickupDate,
				CurrentBatchID: arg.CurrentBatchID,
			}, nil
		},
		updateCurrentBatchFn: func(ctx context.Context, id pgtype.Text) error { return nil },
		createBatchFn: func(ctx context.Context, arg database.CreateBatchParams) (database.Batch, error) {
			return database.Batch{
				ID:        arg.ID,
				Name:      arg.Name,
				StartDate: arg.StartDate,
				Origin:    arg.Origin,
				Status:    enum.BatchStatusOpen,
			}, nil
		},
	}
}

// =====================
// Validation tests
// =====================

func TestSaveSettings_InvalidOverride(t *testing.T) {
	svc, _ := newTestBatchService(defaultSettingsStore())

	_, err := svc.SaveSettings(context.Background(), SaveSettingsRequest{
		ManualOverride: "MAYBE",
	})
	if !errors.Is(err, ErrInvalidOverride) {
		t.Fatalf("expected ErrInvalidOverride, got: %v", err)
	}
}

func TestSaveSettings_PartialSchedule(t *testing.T) {
	svc, _ := newTestBatchService(defaultSettingsStore())

	_, err := svc.SaveSettings(context.Background(), SaveSettingsRequest{
		ManualOverride: enum.OverrideSchedule,
		ScheduledOpen:  "2024-03-01T09:00:00Z",
	})
	if !errors.Is(err, ErrSchedulePartial) {
		t.Fatalf("expected ErrSchedulePartial, got: %v", err)
	}
}

func TestSaveSettings_MalformedSchedule(t *testing.T) {
	svc, _ := newTestBatchService(defaultSettingsStore())

	_, err := svc.SaveSettings(context.Background(), SaveSettingsRequest{
		ManualOverride: enum.OverrideSchedule,
		ScheduledOpen:  "next tuesday",
		ScheduledClose: "2024-03-08T09:00:00Z",
	})
	if !errors.Is(err, ErrScheduleInvalid) {
		t.Fatalf("expected ErrScheduleInvalid, got: %v", err)
	}
}

func TestSaveSettings_ScheduleOutOfOrder(t *testing.T) {
	svc, _ := newTestBatchService(defaultSettingsStore())

	_, err := svc.SaveSettings(context.Background(), SaveSettingsRequest{
		ManualOverride: enum.OverrideSchedule,
		ScheduledOpen:  "2024-03-08T09:00:00Z",
		ScheduledClose: "2024-03-01T09:00:00Z",
	})
	if !errors.Is(err, ErrScheduleOrder) {
		t.Fatalf("expected ErrScheduleOrder, got: %v", err)
	}
}

// =====================
// Batch creation trigger tests
// =====================

func TestSaveSettings_ManualOpenCreatesBatch(t *testing.T) {
	store := defaultSettingsStore()

	var captured database.CreateBatchParams
	store.createBatchFn = func(ctx context.Context, arg database.CreateBatchParams) (database.Batch, error) {
		captured = arg
		return database.Batch{ID: arg.ID, Name: arg.Name, StartDate: arg.StartDate, Origin: arg.Origin, Status: enum.BatchStatusOpen}, nil
	}

	svc, tx := newTestBatchService(store)
	res, err := svc.SaveSettings(context.Background(), SaveSettingsRequest{
		ManualOverride: enum.OverrideOpen,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.NewBatch == nil {
		t.Fatal("expected a new batch on manual open")
	}
	if captured.Origin != enum.BatchOriginManual {
		t.Errorf("origin: got %q, want %q", captured.Origin, enum.BatchOriginManual)
	}
	if !captured.StartDate.Equal(fixedNow) {
		t.Errorf("start date: got %v, want %v", captured.StartDate, fixedNow)
	}
	if captured.ID != "BATCH_2024-03-01T09-00-00Z" {
		t.Errorf("batch id: got %q", captured.ID)
	}
	if captured.Name != "Batch 2024-03-01 (MANUAL)" {
		t.Errorf("batch name: got %q", captured.Name)
	}
	if !res.Settings.CurrentBatchID.Valid || res.Settings.CurrentBatchID.String != captured.ID {
		t.Errorf("current batch pointer: got %v, want %q", res.Settings.CurrentBatchID, captured.ID)
	}
	if !tx.committed {
		t.Error("expected transaction commit")
	}
}

func TestSaveSettings_AlreadyOpenNoBatch(t *testing.T) {
	store := defaultSettingsStore()
	store.getSettingsForUpdateFn = func(ctx context.Context) (database.Setting, error) {
		return database.Setting{
			ID:             1,
			ManualOverride: enum.OverrideOpen,
			CurrentBatchID: pgtype.Text{String: "BATCH_old", Valid: true},
		}, nil
	}
	store.createBatchFn = func(ctx context.Context, arg database.CreateBatchParams) (database.Batch, error) {
		t.Fatal("no batch should be created when the form is already open")
		return database.Batch{}, nil
	}

	svc, _ := newTestBatchService(store)
	res, err := svc.SaveSettings(context.Background(), SaveSettingsRequest{
		ManualOverride: enum.OverrideOpen,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.NewBatch != nil {
		t.Fatal("expected no new batch")
	}
	if res.Settings.CurrentBatchID.String != "BATCH_old" {
		t.Errorf("current batch pointer changed: got %v", res.Settings.CurrentBatchID)
	}
}

func TestSaveSettings_ScheduleChangeCreatesBatch(t *testing.T) {
	store := defaultSettingsStore()

	var captured database.CreateBatchParams
	store.createBatchFn = func(ctx context.Context, arg database.CreateBatchParams) (database.Batch, error) {
		captured = arg
		return database.Batch{ID: arg.ID, Origin: arg.Origin, StartDate: arg.StartDate, Status: enum.BatchStatusOpen}, nil
	}

	svc, _ := newTestBatchService(store)
	res, err := svc.SaveSettings(context.Background(), SaveSettingsRequest{
		ManualOverride: enum.OverrideSchedule,
		ScheduledOpen:  "2024-03-05T09:00:00Z",
		ScheduledClose: "2024-03-08T09:00:00Z",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.NewBatch == nil {
		t.Fatal("expected a new batch on schedule change")
	}
	if captured.Origin != enum.BatchOriginScheduled {
		t.Errorf("origin: got %q, want %q", captured.Origin, enum.BatchOriginScheduled)
	}
	want := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	if !captured.StartDate.Equal(want) {
		t.Errorf("start date: got %v, want %v", captured.StartDate, want)
	}
}

func TestSaveSettings_UnchangedScheduleNoBatch(t *testing.T) {
	store := defaultSettingsStore()
	store.getSettingsForUpdateFn = func(ctx context.Context) (database.Setting, error) {
		return database.Setting{
			ID:             1,
			ManualOverride: enum.OverrideSchedule,
			ScheduledOpen:  pgtype.Text{String: "2024-03-05T09:00:00Z", Valid: true},
			ScheduledClose: pgtype.Text{String: "2024-03-08T09:00:00Z", Valid: true},
		}, nil
	}
	store.createBatchFn = func(ctx context.Context, arg database.CreateBatchParams) (database.Batch, error) {
		t.Fatal("re-saving an unchanged schedule must not create a batch")
		return database.Batch{}, nil
	}

	svc, _ := newTestBatchService(store)
	res, err := svc.SaveSettings(context.Background(), SaveSettingsRequest{
		ManualOverride: enum.OverrideSchedule,
		ScheduledOpen:  "2024-03-05T09:00:00Z",
		ScheduledClose: "2024-03-08T09:00:00Z",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.NewBatch != nil {
		t.Fatal("expected no new batch")
	}
}

func TestSaveSettings_CloseNoBatch(t *testing.T) {
	store := defaultSettingsStore()
	store.getSettingsForUpdateFn = func(ctx context.Context) (database.Setting, error) {
		return database.Setting{ID: 1, ManualOverride: enum.OverrideOpen}, nil
	}
	store.createBatchFn = func(ctx context.Context, arg database.CreateBatchParams) (database.Batch, error) {
		t.Fatal("closing the form must not create a batch")
		return database.Batch{}, nil
	}

	svc, _ := newTestBatchService(store)
	res, err := svc.SaveSettings(context.Background(), SaveSettingsRequest{
		ManualOverride: enum.OverrideClosed,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.NewBatch != nil {
		t.Fatal("expected no new batch")
	}
}

func TestSaveSettings_ManualOpenWinsOverScheduleChange(t *testing.T) {
	store := defaultSettingsStore()

	createCalls := 0
	var captured database.CreateBatchParams
	store.createBatchFn = func(ctx context.Context, arg database.CreateBatchParams) (database.Batch, error) {
		createCalls++
		captured = arg
		return database.Batch{ID: arg.ID, Origin: arg.Origin, StartDate: arg.StartDate, Status: enum.BatchStatusOpen}, nil
	}

	svc, _ := newTestBatchService(store)
	_, err := svc.SaveSettings(context.Background(), SaveSettingsRequest{
		ManualOverride: enum.OverrideOpen,
		ScheduledOpen:  "2024-03-05T09:00:00Z",
		ScheduledClose: "2024-03-08T09:00:00Z",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if createCalls != 1 {
		t.Fatalf("expected exactly one batch, got %d", createCalls)
	}
	if captured.Origin != enum.BatchOriginManual {
		t.Errorf("origin: got %q, want %q", captured.Origin, enum.BatchOriginManual)
	}
}

// =====================
// Transaction behavior tests
// =====================

func TestSaveSettings_CreateBatchErrorAborts(t *testing.T) {
	store := defaultSettingsStore()
	store.createBatchFn = func(ctx context.Context, arg database.CreateBatchParams) (database.Batch, error) {
		return database.Batch{}, errors.New("disk on fire")
	}
	store.updateSettingsFn = func(ctx context.Context, arg database.UpdateSettingsParams) (database.Setting, error) {
		t.Fatal("settings must not be written after batch creation failed")
		return database.Setting{}, nil
	}

	svc, tx := newTestBatchService(store)
	_, err := svc.SaveSettings(context.Background(), SaveSettingsRequest{
		ManualOverride: enum.OverrideOpen,
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if tx.committed {
		t.Error("transaction must not commit on failure")
	}
}

func TestStartNewBatch_PointsSettingsAtBatch(t *testing.T) {
	store := defaultSettingsStore()

	var pointed pgtype.Text
	store.updateCurrentBatchFn = func(ctx context.Context, id pgtype.Text) error {
		pointed = id
		return nil
	}

	svc, tx := newTestBatchService(store)
	b, err := svc.StartNewBatch(context.Background(), enum.BatchOriginManual, fixedNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !pointed.Valid || pointed.String != b.ID {
		t.Errorf("current batch pointer: got %v, want %q", pointed, b.ID)
	}
	if !tx.committed {
		t.Error("expected transaction commit")
	}
}
