package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pantrybridge/api/internal/service"
)

// StatsServicer defines the service methods needed by the stats handler.
// Satisfied by *service.StatsService; narrow interface for testability.
type StatsServicer interface {
	GetDashboard(ctx context.Context, batchID string) (*service.Dashboard, error)
}

// StatsHandler handles the admin dashboard endpoint.
type StatsHandler struct {
	svc StatsServicer
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(svc StatsServicer) *StatsHandler {
	return &StatsHandler{svc: svc}
}

// RegisterRoutes registers stats endpoints. Expected to be mounted behind
// admin-only middleware.
func (h *StatsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/stats", h.Dashboard)
}

// Dashboard handles GET /admin/stats?batch_id=.
func (h *StatsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.svc.GetDashboard(r.Context(), r.URL.Query().Get("batch_id"))
	if err != nil {
		log.Printf("ERROR: dashboard stats: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dashboard)
}
