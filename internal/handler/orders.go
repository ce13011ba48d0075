package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pantrybridge/api/internal/database"
	"github.com/pantrybridge/api/internal/enum"
	"github.com/pantrybridge/api/internal/middleware"
	"github.com/pantrybridge/api/internal/service"
	"github.com/pantrybridge/api/internal/ws"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	Submit(ctx context.Context, req service.SubmitOrderRequest) (database.Order, error)
	HasSubmitted(ctx context.Context, userID uuid.UUID, batchID string) (bool, error)
}

// OrderStore defines the database methods needed by order read/update handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.ListOrdersRow, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	UpdateOrderPacking(ctx context.Context, arg database.UpdateOrderPackingParams) (database.Order, error)
}

// Broadcaster pushes order events to connected dashboard clients.
// Satisfied by *ws.Hub.
type Broadcaster interface {
	BroadcastToBatch(batchID string, event ws.Event)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
	hub   Broadcaster
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore, hub Broadcaster) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, hub: hub}
}

// RegisterRoutes registers the household-facing order endpoints. Expected to
// be mounted behind authentication middleware.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/orders", h.Submit)
	r.Get("/orders/check", h.Check)
}

// RegisterAdminRoutes registers the admin order endpoints. Expected to be
// mounted behind admin-only middleware.
func (h *OrderHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/orders", h.List)
	r.Get("/orders/packing-list", h.PackingList)
	r.Get("/orders/{id}", h.Get)
	r.Patch("/orders/{id}/status", h.UpdateStatus)
	r.Patch("/orders/{id}/packing", h.UpdatePacking)
}

// --- Request / Response types ---

type submitOrderRequest struct {
	SelectedItems   []string       `json:"selected_items"`
	DryGoodsItems   []string       `json:"dry_goods_items"`
	FreshGoodsItems []string       `json:"fresh_goods_items"`
	OtherItems      string         `json:"other_items"`
	ConfirmedPickup bool           `json:"confirmed_pickup"`
	Details         map[string]any `json:"details"`
}

type orderResponse struct {
	ID                uuid.UUID `json:"id"`
	UserID            uuid.UUID `json:"user_id"`
	BatchID           *string   `json:"batch_id"`
	Status            string    `json:"status"`
	PackingDryGoods   string    `json:"packing_dry_goods"`
	PackingFreshGoods string    `json:"packing_fresh_goods"`
	SelectedItems     []string  `json:"selected_items"`
	DryGoodsItems     []string  `json:"dry_goods_items"`
	FreshGoodsItems   []string  `json:"fresh_goods_items"`
	OtherItems        *string   `json:"other_items"`
	PickupDate        *string   `json:"pickup_date"`
	ConfirmedPickup   bool      `json:"confirmed_pickup"`
	UserName          string    `json:"user_name,omitempty"`
	UserEmail         string    `json:"user_email,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type checkResponse struct {
	Submitted bool `json:"submitted"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type updatePackingRequest struct {
	Stage  string `json:"stage"`
	Status string `json:"status"`
}

// --- Handlers ---

// Submit handles POST /orders. The availability and duplicate checks live in
// the service; this layer only translates its errors to status codes.
func (h *OrderHandler) Submit(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req submitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	order, err := h.svc.Submit(r.Context(), service.SubmitOrderRequest{
		UserID:          claims.UserID,
		SelectedItems:   req.SelectedItems,
		DryGoodsItems:   req.DryGoodsItems,
		FreshGoodsItems: req.FreshGoodsItems,
		OtherItems:      req.OtherItems,
		ConfirmedPickup: req.ConfirmedPickup,
		Details:         req.Details,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptySelection), errors.Is(err, service.ErrPickupNotConfirmed):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrFormClosed):
			writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error(), "code": "form_closed"})
		case errors.Is(err, service.ErrNoActiveBatch):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error(), "code": "no_active_batch"})
		case errors.Is(err, service.ErrDuplicateSubmission):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error(), "code": "duplicate_submission"})
		default:
			log.Printf("ERROR: submit order: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	h.broadcast("order.created", order)
	writeJSON(w, http.StatusCreated, dbOrderToResponse(order))
}

// Check handles GET /orders/check?batch_id=. Without a batch_id it checks
// against the currently active batch.
func (h *OrderHandler) Check(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	submitted, err := h.svc.HasSubmitted(r.Context(), claims.UserID, r.URL.Query().Get("batch_id"))
	if err != nil {
		log.Printf("ERROR: check submission: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, checkResponse{Submitted: submitted})
}

// List handles GET /admin/orders with optional batch_id and status filters.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	params := database.ListOrdersParams{
		BatchID: textOrNull(r.URL.Query().Get("batch_id")),
		Limit:   int32(limit),
		Offset:  int32(offset),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		if !isValidOrderStatus(s) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status filter"})
			return
		}
		params.Status = textOrNull(s)
	}

	rows, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(rows))
	for i, row := range rows {
		resp[i] = listRowToResponse(row)
	}

	writeJSON(w, http.StatusOK, orderListResponse{Orders: resp, Limit: limit, Offset: offset})
}

// PackingList handles GET /admin/orders/packing-list?batch_id=. It returns
// every order of the batch regardless of pagination so the packing sheet can
// be printed in one pass.
func (h *OrderHandler) PackingList(w http.ResponseWriter, r *http.Request) {
	batchID := r.URL.Query().Get("batch_id")
	if batchID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "batch_id is required"})
		return
	}

	rows, err := h.store.ListOrders(r.Context(), database.ListOrdersParams{
		BatchID: textOrNull(batchID),
		Limit:   10000,
		Offset:  0,
	})
	if err != nil {
		log.Printf("ERROR: packing list: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(rows))
	for i, row := range rows {
		resp[i] = listRowToResponse(row)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"batch_id": batchID,
		"orders":   resp,
	})
}

// Get handles GET /admin/orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(order))
}

// UpdateStatus handles PATCH /admin/orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if !isValidOrderStatus(req.Status) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	// Fetch current order to validate transition
	current, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order for status update: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if err := validateStatusTransition(current.Status, req.Status); err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}

	updated, err := h.store.UpdateOrderStatus(r.Context(), database.UpdateOrderStatusParams{
		ID:       orderID,
		Status:   req.Status,
		Status_2: current.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// No rows updated means the status changed between our read and write.
			writeJSON(w, http.StatusConflict, map[string]string{"error": "order status changed, please retry"})
			return
		}
		log.Printf("ERROR: update order status: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.broadcast("order.updated", updated)
	writeJSON(w, http.StatusOK, dbOrderToResponse(updated))
}

// UpdatePacking handles PATCH /admin/orders/{id}/packing. The dry goods and
// fresh goods stages are tracked independently.
func (h *OrderHandler) UpdatePacking(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updatePackingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Stage != enum.PackingStageDryGoods && req.Stage != enum.PackingStageFreshGoods {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid packing stage"})
		return
	}
	if req.Status != enum.PackingStatusPending && req.Status != enum.PackingStatusPacked {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid packing status"})
		return
	}

	updated, err := h.store.UpdateOrderPacking(r.Context(), database.UpdateOrderPackingParams{
		ID:     orderID,
		Stage:  req.Stage,
		Status: req.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: update order packing: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.broadcast("order.updated", updated)
	writeJSON(w, http.StatusOK, dbOrderToResponse(updated))
}

// --- Helpers ---

// broadcast pushes an order event to the dashboard feed for its batch.
// Orders without a batch have no room to broadcast to.
func (h *OrderHandler) broadcast(eventType string, order database.Order) {
	if h.hub == nil || !order.BatchID.Valid {
		return
	}
	payload, err := json.Marshal(dbOrderToResponse(order))
	if err != nil {
		log.Printf("ERROR: marshal %s event: %v", eventType, err)
		return
	}
	h.hub.BroadcastToBatch(order.BatchID.String, ws.Event{Type: eventType, Payload: payload})
}

func dbOrderToResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:                o.ID,
		UserID:            o.UserID,
		Status:            o.Status,
		PackingDryGoods:   o.PackingDryGoods,
		PackingFreshGoods: o.PackingFreshGoods,
		SelectedItems:     o.SelectedItems,
		DryGoodsItems:     o.DryGoodsItems,
		FreshGoodsItems:   o.FreshGoodsItems,
		ConfirmedPickup:   o.ConfirmedPickup,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
	if o.BatchID.Valid {
		resp.BatchID = &o.BatchID.String
	}
	if o.OtherItems.Valid {
		resp.OtherItems = &o.OtherItems.String
	}
	if o.PickupDate.Valid {
		resp.PickupDate = &o.PickupDate.String
	}
	return resp
}

func listRowToResponse(row database.ListOrdersRow) orderResponse {
	resp := dbOrderToResponse(row.Order)
	resp.UserName = row.UserName
	resp.UserEmail = row.UserEmail
	return resp
}

func isValidOrderStatus(s string) bool {
	return s == enum.OrderStatusPending || s == enum.OrderStatusCompleted
}

// allowedTransitions defines valid status transitions.
// Completion is reversible so a mis-click can be undone.
var allowedTransitions = map[string][]string{
	enum.OrderStatusPending:   {enum.OrderStatusCompleted},
	enum.OrderStatusCompleted: {enum.OrderStatusPending},
}

// validateStatusTransition checks if the transition from current to next is allowed.
func validateStatusTransition(current, next string) error {
	allowed, ok := allowedTransitions[current]
	if !ok {
		return fmt.Errorf("cannot transition from %s", current)
	}
	for _, s := range allowed {
		if s == next {
			return nil
		}
	}
	return fmt.Errorf("cannot transition from %s to %s", current, next)
}
