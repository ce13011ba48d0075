package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pantrybridge/api/internal/availability"
	"github.com/pantrybridge/api/internal/database"
)

// Errors returned by the order service.
var (
	ErrFormClosed          = errors.New("request form is closed")
	ErrNoActiveBatch       = errors.New("no active batch")
	ErrDuplicateSubmission = errors.New("already submitted for this batch")
	ErrEmptySelection      = errors.New("at least one item must be selected")
	ErrPickupNotConfirmed  = errors.New("pickup must be confirmed")
)

// OrderStore defines the DB methods needed for order submission.
type OrderStore interface {
	GetSettings(ctx context.Context) (database.Setting, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CountOrdersByUserAndBatch(ctx context.Context, arg database.CountOrdersByUserAndBatchParams) (int64, error)
}

// OrderService handles request-form submissions. The availability check and
// the insert run without a transaction: the partial unique index on
// (user_id, batch_id) is the duplicate guard, so a racing second submission
// loses at the database and surfaces as ErrDuplicateSubmission.
type OrderService struct {
	store OrderStore
	now   func() time.Time
}

func NewOrderService(store OrderStore) *OrderService {
	return &OrderService{store: store, now: time.Now}
}

// SubmitOrderRequest is a validated form submission.
type SubmitOrderRequest struct {
	UserID          uuid.UUID
	SelectedItems   []string
	DryGoodsItems   []string
	FreshGoodsItems []string
	OtherItems      string
	ConfirmedPickup bool
	Details         map[string]any
}

// Submit records a form submission against the currently active batch. The
// form must resolve open at the moment of submission; client state is never
// trusted.
func (s *OrderService) Submit(ctx context.Context, req SubmitOrderRequest) (database.Order, error) {
	if len(req.SelectedItems) == 0 && len(req.DryGoodsItems) == 0 && len(req.FreshGoodsItems) == 0 {
		return database.Order{}, ErrEmptySelection
	}
	if !req.ConfirmedPickup {
		return database.Order{}, ErrPickupNotConfirmed
	}

	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("get settings: %w", err)
	}

	decision := availability.Resolve(availability.Settings{
		ManualOverride: settings.ManualOverride,
		ScheduledOpen:  settings.ScheduledOpen.String,
		ScheduledClose: settings.ScheduledClose.String,
	}, s.now())
	if !decision.Open {
		return database.Order{}, ErrFormClosed
	}
	if !settings.CurrentBatchID.Valid {
		return database.Order{}, ErrNoActiveBatch
	}

	var details []byte
	if req.Details != nil {
		details, err = json.Marshal(req.Details)
		if err != nil {
			return database.Order{}, fmt.Errorf("marshal details: %w", err)
		}
	}

	order, err := s.store.CreateOrder(ctx, database.CreateOrderParams{
		UserID:          req.UserID,
		BatchID:         settings.CurrentBatchID,
		SelectedItems:   req.SelectedItems,
		DryGoodsItems:   req.DryGoodsItems,
		FreshGoodsItems: req.FreshGoodsItems,
		OtherItems:      textOrNull(req.OtherItems),
		PickupDate:      settings.NextPickupDate,
		ConfirmedPickup: req.ConfirmedPickup,
		Details:         details,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return database.Order{}, ErrDuplicateSubmission
		}
		return database.Order{}, fmt.Errorf("create order: %w", err)
	}
	return order, nil
}

// HasSubmitted reports whether the user already has an order in the given
// batch. An empty batch id means the currently active batch.
func (s *OrderService) HasSubmitted(ctx context.Context, userID uuid.UUID, batchID string) (bool, error) {
	bid := textOrNull(batchID)
	if batchID == "" {
		settings, err := s.store.GetSettings(ctx)
		if err != nil {
			return false, fmt.Errorf("get settings: %w", err)
		}
		if !settings.CurrentBatchID.Valid {
			return false, nil
		}
		bid = settings.CurrentBatchID
	}

	count, err := s.store.CountOrdersByUserAndBatch(ctx, database.CountOrdersByUserAndBatchParams{
		UserID:  userID,
		BatchID: bid,
	})
	if err != nil {
		return false, fmt.Errorf("count orders: %w", err)
	}
	return count > 0, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
