package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/afes-website/manage-back/internal/auth"
	"github.com/afes-website/manage-back/internal/store"
)

// bearerToken extracts the token from an "Authorization: Bearer ..." header.
// The scheme is matched case-insensitively.
func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// loadIdentity resolves a verified token subject to the user's current
// permissions.
func loadIdentity(ctx context.Context, s *store.Store, userID string) (auth.Identity, error) {
	var id auth.Identity
	err := s.View(ctx, func(tx *store.Tx) error {
		u, err := tx.Users.ByID(ctx, userID)
		if err != nil {
			return err
		}
		id = auth.Identity{ID: u.ID, Name: u.Name, Permissions: u.Permissions}
		return nil
	})
	return id, err
}

func authMiddleware(logger *slog.Logger, tokens *auth.Tokens, s *store.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "not authenticated")
				return
			}

			userID, err := tokens.Verify(raw)
			if errors.Is(err, auth.ErrTokenExpired) {
				writeError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "token expired")
				return
			}
			if err != nil {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "not authenticated")
				return
			}

			id, err := loadIdentity(r.Context(), s, userID)
			if errors.Is(err, store.ErrUserNotFound) {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "not authenticated")
				return
			}
			if err != nil {
				writeFailure(w, logger, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// requirePermission admits callers holding at least one of perms. It must
// run after authMiddleware.
func requirePermission(perms ...auth.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.FromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "not authenticated")
				return
			}
			if !id.Permissions.Any(perms...) {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "permission denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func identityFrom(r *http.Request) auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}
