package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pantrybridge/api/internal/database"
	"github.com/pantrybridge/api/internal/middleware"
)

// UserStore defines the database methods needed by profile handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type UserStore interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	UpdateUserProfile(ctx context.Context, arg database.UpdateUserProfileParams) (database.User, error)
}

// UserHandler handles the household profile endpoints.
type UserHandler struct {
	store UserStore
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(store UserStore) *UserHandler {
	return &UserHandler{store: store}
}

// RegisterRoutes registers profile endpoints. Expected to be mounted behind
// authentication middleware.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/profile", h.Get)
	r.Put("/profile", h.Update)
}

// --- Request / Response types ---

type profileResponse struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Address    *string   `json:"address"`
	Phone      *string   `json:"phone"`
	County     *string   `json:"county"`
	FoodBankID *string   `json:"food_bank_id"`
	FamilySize *int32    `json:"family_size"`
	Role       string    `json:"role"`
}

type updateProfileRequest struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Address    string `json:"address"`
	Phone      string `json:"phone"`
	County     string `json:"county"`
	FamilySize int32  `json:"family_size"`
}

// --- Handlers ---

// Get handles GET /profile.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	user, err := h.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
			return
		}
		log.Printf("ERROR: get profile: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(user))
}

// Update handles PUT /profile. The food bank id is assigned at registration
// and cannot be edited afterwards.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.FirstName == "" || req.LastName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "first_name and last_name are required"})
		return
	}

	user, err := h.store.UpdateUserProfile(r.Context(), database.UpdateUserProfileParams{
		ID:          claims.UserID,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		DisplayName: req.FirstName + " " + req.LastName,
		Address:     textOrNull(req.Address),
		Phone:       textOrNull(req.Phone),
		County:      textOrNull(req.County),
		FamilySize:  int4OrNull(req.FamilySize),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
			return
		}
		log.Printf("ERROR: update profile: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(user))
}

// --- Helpers ---

func toProfileResponse(u database.User) profileResponse {
	resp := profileResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
	}
	if u.Address.Valid {
		resp.Address = &u.Address.String
	}
	if u.Phone.Valid {
		resp.Phone = &u.Phone.String
	}
	if u.County.Valid {
		resp.County = &u.County.String
	}
	if u.FoodBankID.Valid {
		resp.FoodBankID = &u.FoodBankID.String
	}
	if u.FamilySize.Valid {
		resp.FamilySize = &u.FamilySize.Int32
	}
	return resp
}
