package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pantrybridge/api/internal/auth"
	"github.com/pantrybridge/api/internal/database"
	"github.com/pantrybridge/api/internal/enum"
	"golang.org/x/crypto/bcrypt"
)

// AuthStore defines the database methods needed by auth handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type AuthStore interface {
	GetUserByEmail(ctx context.Context, email string) (database.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error)
	CountUsersByPhone(ctx context.Context, phone pgtype.Text) (int64, error)
	CountUsersByAddress(ctx context.Context, address pgtype.Text) (int64, error)
	CountUsersByFoodBankID(ctx context.Context, foodBankID pgtype.Text) (int64, error)
	CountUsersByName(ctx context.Context, arg database.CountUsersByNameParams) (int64, error)
}

// AuthHandler handles authentication and registration endpoints.
type AuthHandler struct {
	store     AuthStore
	jwtSecret string
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(store AuthStore, jwtSecret string) *AuthHandler {
	return &AuthHandler{store: store, jwtSecret: jwtSecret}
}

// RegisterRoutes registers auth endpoints on the given Chi router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.Login)
	r.Post("/auth/refresh", h.Refresh)
	r.Post("/auth/register", h.Register)
	r.Post("/auth/validate-registration", h.ValidateRegistration)
}

// --- Request / Response types ---

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type registerRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Address    string `json:"address"`
	Phone      string `json:"phone"`
	County     string `json:"county"`
	FoodBankID string `json:"food_bank_id"`
	FamilySize int32  `json:"family_size"`
}

type validateRegistrationRequest struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Address    string `json:"address"`
	Phone      string `json:"phone"`
	FoodBankID string `json:"food_bank_id"`
}

// validateRegistrationResponse lists the fields that collide with an
// existing household.
type validateRegistrationResponse struct {
	Valid     bool     `json:"valid"`
	Conflicts []string `json:"conflicts,omitempty"`
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         userResponse `json:"user"`
}

type userResponse struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Role        string    `json:"role"`
}

// --- Handlers ---

// Login handles email + password authentication.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email and password are required"})
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), strings.ToLower(req.Email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	h.respondWithTokens(w, user)
}

// Refresh exchanges a valid refresh token for a new access + refresh token pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.RefreshToken == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "refresh_token is required"})
		return
	}

	// Parse refresh token -- it uses RegisteredClaims with Subject = user ID.
	token, err := jwt.ParseWithClaims(req.RefreshToken, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(h.jwtSecret), nil
	})
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid refresh token"})
		return
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid refresh token"})
		return
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid refresh token"})
		return
	}

	user, err := h.store.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "user not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.respondWithTokens(w, user)
}

// Register creates a household account. Duplicate phone, address, food bank
// id, or full name are rejected so the same household cannot register twice
// under a fresh email.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Email == "" || req.Password == "" || req.FirstName == "" || req.LastName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email, password, first_name and last_name are required"})
		return
	}
	if len(req.Password) < 8 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "password must be at least 8 characters"})
		return
	}

	conflicts, err := h.registrationConflicts(r.Context(), validateRegistrationRequest{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Address:    req.Address,
		Phone:      req.Phone,
		FoodBankID: req.FoodBankID,
	})
	if err != nil {
		log.Printf("ERROR: registration conflict check: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if len(conflicts) > 0 {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":     "an account already exists for this household",
			"conflicts": conflicts,
		})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("ERROR: hash password: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	user, err := h.store.CreateUser(r.Context(), database.CreateUserParams{
		Email:          strings.ToLower(req.Email),
		HashedPassword: string(hashed),
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		DisplayName:    req.FirstName + " " + req.LastName,
		Address:        textOrNull(req.Address),
		Phone:          textOrNull(req.Phone),
		County:         textOrNull(req.County),
		FoodBankID:     textOrNull(req.FoodBankID),
		FamilySize:     int4OrNull(req.FamilySize),
		Role:           enum.UserRoleUser,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "email is already registered"})
			return
		}
		log.Printf("ERROR: create user: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.respondWithTokens(w, user)
}

// ValidateRegistration runs the household duplicate checks without creating
// anything, so the signup form can flag conflicts before submission.
func (h *AuthHandler) ValidateRegistration(w http.ResponseWriter, r *http.Request) {
	var req validateRegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	conflicts, err := h.registrationConflicts(r.Context(), req)
	if err != nil {
		log.Printf("ERROR: registration conflict check: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, validateRegistrationResponse{
		Valid:     len(conflicts) == 0,
		Conflicts: conflicts,
	})
}

// --- Helpers ---

func (h *AuthHandler) registrationConflicts(ctx context.Context, req validateRegistrationRequest) ([]string, error) {
	var conflicts []string

	if req.Phone != "" {
		n, err := h.store.CountUsersByPhone(ctx, textOrNull(req.Phone))
		if err != nil {
			return nil, fmt.Errorf("count by phone: %w", err)
		}
		if n > 0 {
			conflicts = append(conflicts, "phone")
		}
	}
	if req.Address != "" {
		n, err := h.store.CountUsersByAddress(ctx, textOrNull(req.Address))
		if err != nil {
			return nil, fmt.Errorf("count by address: %w", err)
		}
		if n > 0 {
			conflicts = append(conflicts, "address")
		}
	}
	if req.FoodBankID != "" {
		n, err := h.store.CountUsersByFoodBankID(ctx, textOrNull(req.FoodBankID))
		if err != nil {
			return nil, fmt.Errorf("count by food bank id: %w", err)
		}
		if n > 0 {
			conflicts = append(conflicts, "food_bank_id")
		}
	}
	if req.FirstName != "" && req.LastName != "" {
		n, err := h.store.CountUsersByName(ctx, database.CountUsersByNameParams{
			FirstName: req.FirstName,
			LastName:  req.LastName,
		})
		if err != nil {
			return nil, fmt.Errorf("count by name: %w", err)
		}
		if n > 0 {
			conflicts = append(conflicts, "name")
		}
	}
	return conflicts, nil
}

func (h *AuthHandler) respondWithTokens(w http.ResponseWriter, user database.User) {
	accessToken, err := auth.GenerateToken(h.jwtSecret, user.ID, user.Role)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	refreshToken, err := auth.GenerateRefreshToken(h.jwtSecret, user.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         toUserResponse(user),
	})
}

func toUserResponse(user database.User) userResponse {
	return userResponse{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Role:        user.Role,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

func textOrNull(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func int4OrNull(v int32) pgtype.Int4 {
	if v == 0 {
		return pgtype.Int4{}
	}
	return pgtype.Int4{Int32: v, Valid: true}
}
