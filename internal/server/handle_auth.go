package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/afes-website/manage-back/internal/auth"
	"github.com/afes-website/manage-back/internal/store"
)

// LoginRequest is the request body for POST /auth/login.
type LoginRequest struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

// LoginResponse carries the bearer token for subsequent requests.
type LoginResponse struct {
	Token string `json:"token"`
}

// UserResponse is the response for GET /auth/user.
type UserResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Permissions auth.Permissions `json:"permissions"`
}

func handleLogin(logger *slog.Logger, s *store.Store, tokens *auth.Tokens) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
			return
		}
		req.ID = strings.TrimSpace(req.ID)
		if req.ID == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "id and password are required")
			return
		}

		var user store.User
		err := s.View(r.Context(), func(tx *store.Tx) error {
			var err error
			user, err = tx.Users.ByID(r.Context(), req.ID)
			return err
		})
		if errors.Is(err, store.ErrUserNotFound) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials")
			return
		}
		if err != nil {
			writeFailure(w, logger, err)
			return
		}

		if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials")
			return
		}

		token, err := tokens.Issue(user.ID)
		if err != nil {
			writeFailure(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, LoginResponse{Token: token})
	}
}

func handleUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identityFrom(r)
		writeJSON(w, http.StatusOK, UserResponse{
			ID:          id.ID,
			Name:        id.Name,
			Permissions: id.Permissions,
		})
	}
}
