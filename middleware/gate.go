// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/timecoding/portal/auth"
	"github.com/timecoding/portal/cliparse"
	"github.com/timecoding/portal/models"
)

type contextKey string

const identityKey contextKey = "identity"

// IdentityFrom returns the merged session identity attached by RequireUser
// or RequireAdmin.
func IdentityFrom(ctx context.Context) (models.UserProfile, bool) {
	user, ok := ctx.Value(identityKey).(models.UserProfile)
	return user, ok
}

// RequireUser gates a handler on a valid session. The bearer token names a
// user; the matching profile row is fetched on every request and merged into
// the identity passed down via the request context. A token whose profile
// cannot be fetched is treated exactly like no session (fail closed).
func RequireUser(db *sql.DB, cfg cliparse.Config, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := resolveIdentity(db, cfg, r)
		if !ok {
			ErrorResponse(w, http.StatusUnauthorized, "Sign in required")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), identityKey, user)))
	}
}

// RequireAdmin gates a handler on a valid session with the admin role.
// Non-admin sessions get 403 and never reach the handler, so admin surfaces
// cannot be reached by direct navigation.
func RequireAdmin(db *sql.DB, cfg cliparse.Config, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := resolveIdentity(db, cfg, r)
		if !ok {
			ErrorResponse(w, http.StatusUnauthorized, "Sign in required")
			return
		}
		if user.Role != models.RoleAdmin {
			ErrorResponse(w, http.StatusForbidden, "Admin access required")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), identityKey, user)))
	}
}

// resolveIdentity parses the bearer token and merges the provider identity
// with the stored profile.
func resolveIdentity(db *sql.DB, cfg cliparse.Config, r *http.Request) (models.UserProfile, bool) {
	token := bearerToken(r)
	if token == "" {
		return models.UserProfile{}, false
	}

	claims, err := auth.ParseSessionToken(cfg.SessionSecret, token)
	if err != nil {
		return models.UserProfile{}, false
	}

	user, err := FetchProfile(db, claims.UserID)
	if err == sql.ErrNoRows {
		// Session exists but the profile lookup came back empty. Fail
		// closed: this is "no session", not a partial identity.
		slog.Warn("no profile for session", "user_id", claims.UserID)
		return models.UserProfile{}, false
	}
	if err != nil {
		slog.Error("failed to fetch profile for session", "error", err, "user_id", claims.UserID)
		return models.UserProfile{}, false
	}

	return user, true
}

// FetchProfile reads a single user profile row by id.
func FetchProfile(db *sql.DB, userID string) (models.UserProfile, error) {
	var user models.UserProfile
	var batchID, createdBy sql.NullString
	var lastLogin sql.NullTime

	err := db.QueryRow(`
		SELECT id, username, role, assigned_batch_id, created_at, created_by, last_login
		FROM user_profile
		WHERE id = $1
	`, userID).Scan(
		&user.ID, &user.Username, &user.Role, &batchID,
		&user.CreatedAt, &createdBy, &lastLogin,
	)
	if err != nil {
		return models.UserProfile{}, err
	}

	if batchID.Valid {
		user.AssignedBatchID = batchID.String
	}
	if createdBy.Valid {
		user.CreatedBy = createdBy.String
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		user.LastLogin = &t
	}

	return user, nil
}

// bearerToken extracts the session token from the Authorization header, or
// from the token query parameter for websocket handshakes.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if strings.HasPrefix(h, "Bearer ") {
			return strings.TrimPrefix(h, "Bearer ")
		}
		return ""
	}
	return r.URL.Query().Get("token")
}
