// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/timecoding/portal/annotation"
	"github.com/timecoding/portal/cliparse"
	"github.com/timecoding/portal/middleware"
	"github.com/timecoding/portal/models"
	"github.com/timecoding/portal/realtime"
)

type AnnotationHandler struct {
	db       *sql.DB
	cfg      cliparse.Config
	sessions *annotation.Manager
	hub      *realtime.Hub
}

func NewAnnotationHandler(db *sql.DB, cfg cliparse.Config, sessions *annotation.Manager, hub *realtime.Hub) *AnnotationHandler {
	return &AnnotationHandler{db: db, cfg: cfg, sessions: sessions, hub: hub}
}

// session returns the caller's live annotation session, loading the batch
// on first use. A coder with no batch assignment gets an empty session,
// which reads as the waiting state.
func (h *AnnotationHandler) session(user models.UserProfile) (*annotation.Session, error) {
	sess, created := h.sessions.GetOrCreate(user.ID, user.AssignedBatchID)
	if !created {
		return sess, nil
	}

	if user.AssignedBatchID != "" {
		items, err := loadBatchItems(h.db, user.AssignedBatchID)
		if err != nil {
			return nil, err
		}
		sess.ReplaceItems(items)
	}

	var prior int
	err := h.db.QueryRow(`
		SELECT COUNT(*) FROM classification WHERE user_id = $1
	`, user.ID).Scan(&prior)
	if err != nil {
		return nil, err
	}
	sess.SetPrior(prior)

	return sess, nil
}

func loadBatchItems(db *sql.DB, batchID string) ([]models.TextItem, error) {
	rows, err := db.Query(`
		SELECT id, body, batch_id FROM text_item
		WHERE batch_id = $1
		ORDER BY created_at, id
	`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.TextItem{}
	for rows.Next() {
		var item models.TextItem
		if err := rows.Scan(&item.ID, &item.Text, &item.BatchID); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// saver appends a classification row with a generated id.
func (h *AnnotationHandler) saver() annotation.Saver {
	return annotation.SaverFunc(func(c models.Classification) (string, error) {
		id := uuid.NewString()
		_, err := h.db.Exec(`
			INSERT INTO classification (id, text_id, user_id, category, recorded_at, flagged, flag_notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, id, c.TextID, c.UserID, c.Category, c.Timestamp, c.Flagged, c.FlagNotes)
		return id, err
	})
}

// withSession resolves the identity and session, or writes the error response.
func (h *AnnotationHandler) withSession(w http.ResponseWriter, r *http.Request) (*annotation.Session, bool) {
	user, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Sign in required")
		return nil, false
	}

	sess, err := h.session(user)
	if err != nil {
		slog.Error("failed to load annotation session", "error", err, "user_id", user.ID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return nil, false
	}
	return sess, true
}

// State handles GET /annotation
func (h *AnnotationHandler) State(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.withSession(w, r)
	if !ok {
		return
	}
	middleware.JSONResponse(w, http.StatusOK, sess.State())
}

// SelectCategory handles POST /annotation/category
func (h *AnnotationHandler) SelectCategory(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.withSession(w, r)
	if !ok {
		return
	}

	var req models.SelectCategoryRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if !sess.SelectCategory(req.Category) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "category must be between 1 and 4")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, sess.State())
}

// ToggleFlag handles POST /annotation/flag
func (h *AnnotationHandler) ToggleFlag(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.withSession(w, r)
	if !ok {
		return
	}
	sess.ToggleFlag()
	middleware.JSONResponse(w, http.StatusOK, sess.State())
}

// SetNotes handles POST /annotation/notes
func (h *AnnotationHandler) SetNotes(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.withSession(w, r)
	if !ok {
		return
	}

	var req models.FlagNotesRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	sess.SetFlagNotes(req.Notes)
	middleware.JSONResponse(w, http.StatusOK, sess.State())
}

// Advance handles POST /annotation/advance
func (h *AnnotationHandler) Advance(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.withSession(w, r)
	if !ok {
		return
	}
	sess.Advance()
	middleware.JSONResponse(w, http.StatusOK, sess.State())
}

// Retreat handles POST /annotation/retreat
func (h *AnnotationHandler) Retreat(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.withSession(w, r)
	if !ok {
		return
	}
	sess.Retreat()
	middleware.JSONResponse(w, http.StatusOK, sess.State())
}

// Commit handles POST /annotation/commit
// A commit with no category selected is a no-op, not an error. A failed
// write is surfaced and the position does not advance.
func (h *AnnotationHandler) Commit(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.withSession(w, r)
	if !ok {
		return
	}

	c, committed, err := sess.Commit(h.saver(), time.Now().UTC())
	if err != nil {
		slog.Error("failed to save classification", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to save classification")
		return
	}

	state := sess.State()
	if !committed {
		middleware.JSONResponse(w, http.StatusOK, models.CommitResponse{
			Committed: false,
			Position:  state.Position,
		})
		return
	}

	h.hub.Notify(realtime.CollectionClassifications, "")
	slog.Info("classification committed", "classification_id", c.ID, "text_id", c.TextID, "user_id", c.UserID)

	middleware.JSONResponse(w, http.StatusCreated, models.CommitResponse{
		ClassificationID: c.ID,
		Position:         state.Position,
		Committed:        true,
	})
}

// HandleKey handles POST /annotation/keys
// The keyboard control surface: 1-4, ArrowLeft, ArrowRight, f, Enter.
func (h *AnnotationHandler) HandleKey(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.withSession(w, r)
	if !ok {
		return
	}

	var req models.KeyRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	c, committed, err := sess.HandleKey(req.Key, h.saver(), time.Now().UTC())
	if err != nil {
		slog.Error("failed to save classification", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to save classification")
		return
	}

	if committed {
		h.hub.Notify(realtime.CollectionClassifications, "")
	}

	middleware.JSONResponse(w, http.StatusOK, models.KeyResponse{
		ClassificationID: c.ID,
		Committed:        committed,
	})
}
