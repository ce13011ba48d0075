package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pantrybridge/api/internal/availability"
	"github.com/pantrybridge/api/internal/database"
	"github.com/pantrybridge/api/internal/service"
)

// SettingsStore defines the database methods needed by settings read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type SettingsStore interface {
	GetSettings(ctx context.Context) (database.Setting, error)
}

// BatchServicer defines the service methods needed by settings write handlers.
// Satisfied by *service.BatchService; narrow interface for testability.
type BatchServicer interface {
	SaveSettings(ctx context.Context, req service.SaveSettingsRequest) (*service.SaveSettingsResult, error)
}

// SettingsHandler handles the public availability endpoint and the admin
// settings endpoint.
type SettingsHandler struct {
	store SettingsStore
	svc   BatchServicer
	now   func() time.Time
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(store SettingsStore, svc BatchServicer) *SettingsHandler {
	return &SettingsHandler{store: store, svc: svc, now: time.Now}
}

// RegisterPublicRoutes registers the unauthenticated settings endpoint.
func (h *SettingsHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/settings", h.Get)
}

// RegisterAdminRoutes registers the admin settings endpoint. Expected to be
// mounted behind admin-only middleware.
func (h *SettingsHandler) RegisterAdminRoutes(r chi.Router) {
	r.Put("/settings", h.Update)
}

// --- Request / Response types ---

type settingsResponse struct {
	ManualOverride string     `json:"manual_override"`
	ScheduledOpen  *string    `json:"scheduled_open"`
	ScheduledClose *string    `json:"scheduled_close"`
	NextPickupDate *string    `json:"next_pickup_date"`
	CurrentBatchID *string    `json:"current_batch_id"`
	FormOpen       bool       `json:"form_open"`
	StatusReason   string     `json:"status_reason,omitempty"`
	StatusAt       *time.Time `json:"status_at,omitempty"`
}

type updateSettingsRequest struct {
	ManualOverride string `json:"manual_override"`
	ScheduledOpen  string `json:"scheduled_open"`
	ScheduledClose string `json:"scheduled_close"`
	NextPickupDate string `json:"next_pickup_date"`
}

type updateSettingsResponse struct {
	settingsResponse
	NewBatch *batchResponse `json:"new_batch,omitempty"`
}

// --- Handlers ---

// Get handles GET /settings. The decision is resolved server side at
// request time so clients never re-implement the schedule rules.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.GetSettings(r.Context())
	if err != nil {
		log.Printf("ERROR: get settings: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, h.toSettingsResponse(settings))
}

// Update handles PUT /admin/settings.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.svc.SaveSettings(r.Context(), service.SaveSettingsRequest{
		ManualOverride: req.ManualOverride,
		ScheduledOpen:  req.ScheduledOpen,
		ScheduledClose: req.ScheduledClose,
		NextPickupDate: req.NextPickupDate,
	})
	if err != nil {
		if isSettingsValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: save settings: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := updateSettingsResponse{settingsResponse: h.toSettingsResponse(result.Settings)}
	if result.NewBatch != nil {
		b := toBatchResponse(*result.NewBatch)
		resp.NewBatch = &b
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

func isSettingsValidationError(err error) bool {
	return errors.Is(err, service.ErrInvalidOverride) ||
		errors.Is(err, service.ErrSchedulePartial) ||
		errors.Is(err, service.ErrScheduleInvalid) ||
		errors.Is(err, service.ErrScheduleOrder)
}

func (h *SettingsHandler) toSettingsResponse(s database.Setting) settingsResponse {
	decision := availability.Resolve(availability.Settings{
		ManualOverride: s.ManualOverride,
		ScheduledOpen:  s.ScheduledOpen.String,
		ScheduledClose: s.ScheduledClose.String,
	}, h.now())

	resp := settingsResponse{
		ManualOverride: s.ManualOverride,
		FormOpen:       decision.Open,
		StatusReason:   string(decision.Reason),
		StatusAt:       decision.At,
	}
	if s.ScheduledOpen.Valid {
		resp.ScheduledOpen = &s.ScheduledOpen.String
	}
	if s.ScheduledClose.Valid {
		resp.ScheduledClose = &s.ScheduledClose.String
	}
	if s.NextPickupDate.Valid {
		resp.NextPickupDate = &s.NextPickupDate.String
	}
	if s.CurrentBatchID.Valid {
		resp.CurrentBatchID = &s.CurrentBatchID.String
	}
	return resp
}
