package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pantrybridge/api/internal/config"
	"github.com/pantrybridge/api/internal/database"
	"github.com/pantrybridge/api/internal/enum"
	"github.com/pantrybridge/api/internal/handler"
	mw "github.com/pantrybridge/api/internal/middleware"
	"github.com/pantrybridge/api/internal/service"
	"github.com/pantrybridge/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication and role-based middleware as needed.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Services
	newSettingsStore := func(db database.DBTX) service.SettingsStore {
		return database.New(db)
	}
	batchService := service.NewBatchService(pool, newSettingsStore, cfg.Location())
	orderService := service.NewOrderService(queries)
	statsService := service.NewStatsService(queries, cfg.Location())

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// Public availability endpoint
	settingsHandler := handler.NewSettingsHandler(queries, batchService)
	settingsHandler.RegisterPublicRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/batches/{bid}/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Household routes
		userHandler := handler.NewUserHandler(queries)
		userHandler.RegisterRoutes(r)

		orderHandler := handler.NewOrderHandler(orderService, queries, hub)
		orderHandler.RegisterRoutes(r)

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleAdmin))

			settingsHandler.RegisterAdminRoutes(r)
			orderHandler.RegisterAdminRoutes(r)

			batchHandler := handler.NewBatchHandler(queries)
			batchHandler.RegisterRoutes(r)

			statsHandler := handler.NewStatsHandler(statsService)
			statsHandler.RegisterRoutes(r)
		})
	})

	return r
}
