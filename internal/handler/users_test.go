package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pantrybridge/api/internal/auth"
	"github.com/pantrybridge/api/internal/database"
	"github.com/pantrybridge/api/internal/enum"
	"github.com/pantrybridge/api/internal/handler"
	"github.com/pantrybridge/api/internal/middleware"
)

type mockUserStore struct {
	getUserByIDFn       func(ctx context.Context, id uuid.UUID) (database.User, error)
	updateUserProfileFn func(ctx context.Context, arg database.UpdateUserProfileParams) (database.User, error)
}

func (m *mockUserStore) GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error) {
	if m.getUserByIDFn != nil {
		return m.getUserByIDFn(ctx, id)
	}
	return database.User{}, pgx.ErrNoRows
}

func (m *mockUserStore) UpdateUserProfile(ctx context.Context, arg database.UpdateUserProfileParams) (database.User, error) {
	if m.updateUserProfileFn != nil {
		return m.updateUserProfileFn(ctx, arg)
	}
	return database.User{}, pgx.ErrNoRows
}

func setupUserRouter(store *mockUserStore) *chi.Mux {
	h := handler.NewUserHandler(store)
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testJWTSecret))
		h.RegisterRoutes(r)
	})
	return r
}

func TestProfileGet_ReturnsOwnProfile(t *testing.T) {
	user := makeTestUser(t)
	claims := &auth.Claims{UserID: user.ID, Role: enum.UserRoleUser}

	store := &mockUserStore{
		getUserByIDFn: func(ctx context.Context, id uuid.UUID) (database.User, error) {
			if id != user.ID {
				t.Errorf("user id: got %v, want %v", id, user.ID)
			}
			return user, nil
		},
	}

	router := setupUserRouter(store)
	rr := doAuthRequest(t, router, "GET", "/profile", nil, claims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	resp := decodeResponse(t, rr)
	if resp["email"] != user.Email {
		t.Errorf("email: got %v, want %v", resp["email"], user.Email)
	}
	if resp["food_bank_id"] != "FB-001" {
		t.Errorf("food_bank_id: got %v, want FB-001", resp["food_bank_id"])
	}
}

func TestProfileGet_Unauthenticated(t *testing.T) {
	router := setupUserRouter(&mockUserStore{})

	req := httptest.NewRequest("GET", "/profile", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestProfileUpdate_RecomputesDisplayName(t *testing.T) {
	user := makeTestUser(t)
	claims := &auth.Claims{UserID: user.ID, Role: enum.UserRoleUser}

	store := &mockUserStore{
		updateUserProfileFn: func(ctx context.Context, arg database.UpdateUserProfileParams) (database.User, error) {
			if arg.DisplayName != "Sam Nguyen" {
				t.Errorf("display_name: got %q, want Sam Nguyen", arg.DisplayName)
			}
			updated := user
			updated.FirstName = arg.FirstName
			updated.LastName = arg.LastName
			updated.DisplayName = arg.DisplayName
			return updated, nil
		},
	}

	router := setupUserRouter(store)
	rr := doAuthRequest(t, router, "PUT", "/profile", map[string]any{
		"first_name":  "Sam",
		"last_name":   "Nguyen",
		"address":     "4 Oak Ave",
		"family_size": 3,
	}, claims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["first_name"] != "Sam" {
		t.Errorf("first_name: got %v, want Sam", resp["first_name"])
	}
}

func TestProfileUpdate_MissingName(t *testing.T) {
	claims := householdClaims()

	router := setupUserRouter(&mockUserStore{})
	rr := doAuthRequest(t, router, "PUT", "/profile", map[string]any{
		"first_name": "",
		"last_name":  "Nguyen",
	}, claims)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}
