package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/pantrybridge/api/internal/enum"
	"github.com/pantrybridge/api/internal/handler"
	"github.com/pantrybridge/api/internal/middleware"
	"github.com/pantrybridge/api/internal/service"
)

type mockStatsService struct {
	getDashboardFn func(ctx context.Context, batchID string) (*service.Dashboard, error)
}

func (m *mockStatsService) GetDashboard(ctx context.Context, batchID string) (*service.Dashboard, error) {
	return m.getDashboardFn(ctx, batchID)
}

func setupStatsRouter(svc *mockStatsService) *chi.Mux {
	h := handler.NewStatsHandler(svc)
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testJWTSecret))
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(enum.UserRoleAdmin))
			h.RegisterRoutes(r)
		})
	})
	return r
}

func TestStatsDashboard_RequiresAdmin(t *testing.T) {
	router := setupStatsRouter(&mockStatsService{})
	rr := doAuthRequest(t, router, "GET", "/admin/stats", nil, householdClaims())

	if rr.Code != http.StatusForbidden {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestStatsDashboard_PassesBatchFilter(t *testing.T) {
	svc := &mockStatsService{
		getDashboardFn: func(ctx context.Context, batchID string) (*service.Dashboard, error) {
			if batchID != "BATCH_x" {
				t.Errorf("batch_id: got %q, want BATCH_x", batchID)
			}
			return &service.Dashboard{
				TotalOrders:     12,
				PendingOrders:   5,
				CompletedOrders: 7,
				WeeklyTrend: []service.WeeklyCount{
					{WeekStart: "2024-03-10", Count: 4},
					{WeekStart: "2024-03-17", Count: 8},
				},
				TotalUsers:       40,
				NewRegistrations: 3,
			}, nil
		},
	}

	router := setupStatsRouter(svc)
	rr := doAuthRequest(t, router, "GET", "/admin/stats?batch_id=BATCH_x", nil, adminClaims())

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	resp := decodeResponse(t, rr)
	if resp["total_orders"] != float64(12) {
		t.Errorf("total_orders: got %v, want 12", resp["total_orders"])
	}
	trend, _ := resp["weekly_trend"].([]interface{})
	if len(trend) != 2 {
		t.Fatalf("weekly_trend: got %d entries, want 2", len(trend))
	}
	first := trend[0].(map[string]interface{})
	if first["week_start"] != "2024-03-10" {
		t.Errorf("first week_start: got %v", first["week_start"])
	}
}
