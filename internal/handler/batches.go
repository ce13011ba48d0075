package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/pantrybridge/api/internal/database"
)

// BatchStore defines the database methods needed by batch read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type BatchStore interface {
	GetBatch(ctx context.Context, id string) (database.Batch, error)
	ListBatches(ctx context.Context) ([]database.Batch, error)
}

// BatchHandler handles admin batch endpoints.
type BatchHandler struct {
	store BatchStore
}

// NewBatchHandler creates a new BatchHandler.
func NewBatchHandler(store BatchStore) *BatchHandler {
	return &BatchHandler{store: store}
}

// RegisterRoutes registers batch endpoints. Expected to be mounted behind
// admin-only middleware.
func (h *BatchHandler) RegisterRoutes(r chi.Router) {
	r.Get("/batches", h.List)
	r.Get("/batches/{id}", h.Get)
}

// --- Response types ---

type batchResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
	Origin    string    `json:"origin"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// --- Handlers ---

// List handles GET /admin/batches, newest first.
func (h *BatchHandler) List(w http.ResponseWriter, r *http.Request) {
	batches, err := h.store.ListBatches(r.Context())
	if err != nil {
		log.Printf("ERROR: list batches: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]batchResponse, len(batches))
	for i, b := range batches {
		resp[i] = toBatchResponse(b)
	}
	writeJSON(w, http.StatusOK, map[string]any{"batches": resp})
}

// Get handles GET /admin/batches/{id}.
func (h *BatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	batch, err := h.store.GetBatch(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "batch not found"})
			return
		}
		log.Printf("ERROR: get batch: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toBatchResponse(batch))
}

// --- Helpers ---

func toBatchResponse(b database.Batch) batchResponse {
	return batchResponse{
		ID:        b.ID,
		Name:      b.Name,
		StartDate: b.StartDate,
		Origin:    b.Origin,
		Status:    b.Status,
		CreatedAt: b.CreatedAt,
	}
}
