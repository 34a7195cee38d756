// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"encoding/csv"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/timecoding/portal/auth"
	"github.com/timecoding/portal/cliparse"
	"github.com/timecoding/portal/middleware"
	"github.com/timecoding/portal/models"
	"github.com/timecoding/portal/realtime"
)

type AdminHandler struct {
	db  *sql.DB
	cfg cliparse.Config
	hub *realtime.Hub
}

func NewAdminHandler(db *sql.DB, cfg cliparse.Config, hub *realtime.Hub) *AdminHandler {
	return &AdminHandler{db: db, cfg: cfg, hub: hub}
}

// ListUsers handles GET /admin/users
// Every profile with its classification count and a progress percentage
// against the expected batch size, saturated at 100.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Query(`
		SELECT id, username, role, assigned_batch_id, created_at, created_by, last_login
		FROM user_profile
		ORDER BY created_at, id
	`)
	if err != nil {
		slog.Error("failed to query users", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	summaries := []models.UserSummary{}
	for rows.Next() {
		var user models.UserProfile
		var batchID, createdBy sql.NullString
		var lastLogin sql.NullTime
		if err := rows.Scan(&user.ID, &user.Username, &user.Role, &batchID, &user.CreatedAt, &createdBy, &lastLogin); err != nil {
			slog.Error("failed to scan user", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		if batchID.Valid {
			user.AssignedBatchID = batchID.String
		}
		if createdBy.Valid {
			user.CreatedBy = createdBy.String
		}

		summary := models.UserSummary{UserProfile: user}
		if lastLogin.Valid {
			t := lastLogin.Time
			summary.LastLogin = &t
			summary.LastLoginAgo = humanize.Time(t)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to iterate users", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	counts, err := h.progressCounts()
	if err != nil {
		slog.Error("failed to query progress counts", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	for i := range summaries {
		progress := counts[summaries[i].ID]
		summaries[i].Progress = progress
		summaries[i].ProgressPercent = progressPercent(progress, h.cfg.ExpectedBatchSize)
	}

	middleware.JSONResponse(w, http.StatusOK, summaries)
}

// progressCounts groups classification counts by user id. Zero-record users
// simply have no entry, which reads as progress 0.
func (h *AdminHandler) progressCounts() (map[string]int, error) {
	rows, err := h.db.Query(`
		SELECT user_id, COUNT(*) FROM classification GROUP BY user_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var userID string
		var count int
		if err := rows.Scan(&userID, &count); err != nil {
			return nil, err
		}
		counts[userID] = count
	}
	return counts, rows.Err()
}

// progressPercent renders a count against the expected batch size,
// saturating at 100. Counts above the denominator must not break the
// fraction, only cap the display.
func progressPercent(progress, expected int) int {
	if expected <= 0 || progress <= 0 {
		return 0
	}
	percent := progress * 100 / expected
	if percent > 100 {
		return 100
	}
	return percent
}

// CreateUser handles POST /admin/users
// Writes a new profile with a generated id, stamping created_at and
// created_by. Username uniqueness is only enforced on the credential login.
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	admin, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Sign in required")
		return
	}

	var req models.CreateUserRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if len(req.Username) < 2 || len(req.Username) > 50 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "username must be 2-50 characters")
		return
	}
	if req.Password == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "password is required")
		return
	}
	if req.Role == "" {
		req.Role = models.RoleCoder
	}
	if !models.ValidRole(req.Role) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "role must be admin or coder")
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	userID := uuid.NewString()
	login := auth.CredentialEmail(req.Username, h.cfg.AuthDomain)
	now := time.Now().UTC()

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	var batchID interface{}
	if req.AssignedBatchID != "" {
		batchID = req.AssignedBatchID
	}

	_, err = tx.Exec(`
		INSERT INTO user_profile (id, username, role, assigned_batch_id, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, userID, req.Username, req.Role, batchID, now, admin.ID)
	if err != nil {
		slog.Error("failed to insert profile", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	_, err = tx.Exec(`
		INSERT INTO credential (user_id, login, password_hash)
		VALUES ($1, $2, $3)
	`, userID, login, passwordHash)
	if err != nil {
		// Login uniqueness is the provider-side constraint.
		if strings.Contains(err.Error(), "credential.login") ||
			strings.Contains(err.Error(), "credential_login_key") {
			middleware.ErrorResponse(w, http.StatusConflict, "Username already taken")
			return
		}
		slog.Error("failed to insert credential", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	h.hub.Notify(realtime.CollectionUsers, "")
	slog.Info("user created", "user_id", userID, "role", req.Role, "created_by", admin.ID)

	middleware.JSONResponse(w, http.StatusCreated, models.CreateUserResponse{UserID: userID})
}

// ListFlagged handles GET /admin/flagged
// Flagged classifications joined to usernames. A dangling user reference
// falls back to the raw id rather than erroring.
func (h *AdminHandler) ListFlagged(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Query(`
		SELECT c.id, c.text_id, c.user_id, c.flag_notes, c.recorded_at, u.username
		FROM classification c
		LEFT JOIN user_profile u ON u.id = c.user_id
		WHERE c.flagged = $1
		ORDER BY c.recorded_at, c.id
	`, true)
	if err != nil {
		slog.Error("failed to query flagged items", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	items := []models.FlaggedItem{}
	for rows.Next() {
		var item models.FlaggedItem
		var userID string
		var notes, username sql.NullString
		if err := rows.Scan(&item.ClassificationID, &item.TextID, &userID, &notes, &item.Timestamp, &username); err != nil {
			slog.Error("failed to scan flagged item", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}

		item.Coder = userID
		if username.Valid {
			item.Coder = username.String
		}
		if notes.Valid {
			item.Notes = notes.String
		}
		item.When = humanize.Time(item.Timestamp)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to iterate flagged items", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, items)
}

// ExportCSV handles GET /admin/export.csv
// Serializes every classification with a fixed column order. Zero records
// produce a header-only file, deliberately.
func (h *AdminHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Query(`
		SELECT c.text_id, c.user_id, c.category, c.recorded_at, c.flagged, c.flag_notes, t.batch_id
		FROM classification c
		LEFT JOIN text_item t ON t.id = c.text_id
		ORDER BY c.recorded_at, c.id
	`)
	if err != nil {
		slog.Error("failed to query classifications for export", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		`attachment; filename="classifications_export_`+time.Now().UTC().Format("2006-01-02T15-04-05Z")+`.csv"`)

	cw := csv.NewWriter(w)
	cw.Write([]string{"text_id", "coder", "category", "timestamp", "flagged", "flag_notes", "batch_id"})

	for rows.Next() {
		var textID, userID string
		var category int
		var recordedAt time.Time
		var flagged bool
		var notes, batchID sql.NullString
		if err := rows.Scan(&textID, &userID, &category, &recordedAt, &flagged, &notes, &batchID); err != nil {
			slog.Error("failed to scan classification for export", "error", err)
			return
		}

		flaggedStr := "no"
		if flagged {
			flaggedStr = "yes"
		}

		cw.Write([]string{
			textID,
			userID,
			strconv.Itoa(category),
			recordedAt.UTC().Format(time.RFC3339),
			flaggedStr,
			notes.String, // empty when null
			batchID.String,
		})
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to iterate classifications for export", "error", err)
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		slog.Error("failed to write CSV export", "error", err)
	}
}

// AddTexts handles POST /admin/texts
// Bulk-creates text items for a batch. Items are immutable once created.
func (h *AdminHandler) AddTexts(w http.ResponseWriter, r *http.Request) {
	var req models.AddTextsRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.BatchID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "batch_id is required")
		return
	}
	if len(req.Texts) == 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "texts cannot be empty")
		return
	}

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	textIDs := make([]string, 0, len(req.Texts))
	for i, body := range req.Texts {
		id := uuid.NewString()
		// Spread created_at so insertion order survives the snapshot
		// ordering.
		_, err := tx.Exec(`
			INSERT INTO text_item (id, body, batch_id, created_at)
			VALUES ($1, $2, $3, $4)
		`, id, body, req.BatchID, now.Add(time.Duration(i)*time.Microsecond))
		if err != nil {
			slog.Error("failed to insert text item", "error", err, "batch_id", req.BatchID)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to add texts")
			return
		}
		textIDs = append(textIDs, id)
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to add texts")
		return
	}

	h.hub.Notify(realtime.CollectionTexts, req.BatchID)
	slog.Info("texts added", "batch_id", req.BatchID, "count", len(textIDs))

	middleware.JSONResponse(w, http.StatusCreated, models.AddTextsResponse{TextIDs: textIDs})
}
