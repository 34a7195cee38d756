// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/timecoding/portal/annotation"
	"github.com/timecoding/portal/auth"
	"github.com/timecoding/portal/cliparse"
	"github.com/timecoding/portal/middleware"
	"github.com/timecoding/portal/models"
	"github.com/timecoding/portal/realtime"
)

type SessionHandler struct {
	db       *sql.DB
	cfg      cliparse.Config
	sessions *annotation.Manager
	hub      *realtime.Hub
}

func NewSessionHandler(db *sql.DB, cfg cliparse.Config, sessions *annotation.Manager, hub *realtime.Hub) *SessionHandler {
	return &SessionHandler{db: db, cfg: cfg, sessions: sessions, hub: hub}
}

// SignIn handles POST /session
// Translates the username into the credential login, checks the password,
// merges the profile into the session identity and stamps last_login.
func (h *SessionHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req models.SignInRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Username == "" || req.Password == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "username and password are required")
		return
	}

	login := auth.CredentialEmail(req.Username, h.cfg.AuthDomain)

	var userID, passwordHash string
	err := h.db.QueryRow(`
		SELECT user_id, password_hash FROM credential WHERE login = $1
	`, login).Scan(&userID, &passwordHash)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	if err != nil {
		slog.Error("failed to query credential", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if err := auth.CheckPassword(passwordHash, req.Password); err != nil {
		slog.Info("sign-in rejected", "username", req.Username, "remote", middleware.GetClientIP(r))
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	user, err := middleware.FetchProfile(h.db, userID)
	if err == sql.ErrNoRows {
		// Credential without a profile: fail closed, same answer as a
		// bad password.
		slog.Warn("no profile for credential", "user_id", userID)
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	if err != nil {
		slog.Error("failed to fetch profile", "error", err, "user_id", userID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	now := time.Now().UTC()
	if _, err := h.db.Exec(`
		UPDATE user_profile SET last_login = $1 WHERE id = $2
	`, now, userID); err != nil {
		// The session is still good; the stamp is best effort.
		slog.Warn("failed to stamp last_login", "error", err, "user_id", userID)
	} else {
		user.LastLogin = &now
		h.hub.Notify(realtime.CollectionUsers, "")
	}

	token, err := auth.NewSessionToken(h.cfg.SessionSecret, h.cfg.SessionTTL, user.ID, user.Role)
	if err != nil {
		slog.Error("failed to mint session token", "error", err, "user_id", userID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to sign in")
		return
	}

	slog.Info("signed in", "user_id", user.ID, "role", user.Role, "remote", middleware.GetClientIP(r))

	middleware.JSONResponse(w, http.StatusOK, models.SignInResponse{
		Token: token,
		User:  user,
	})
}

// SignOut handles DELETE /session
// Tears down the live annotation session. The token itself simply expires.
func (h *SessionHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Sign in required")
		return
	}

	h.sessions.Drop(user.ID)
	slog.Info("signed out", "user_id", user.ID)

	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /session/me
// Returns the merged session identity.
func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Sign in required")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, user)
}
