// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/timecoding/portal/annotation"
	"github.com/timecoding/portal/middleware"
	"github.com/timecoding/portal/models"
	"github.com/timecoding/portal/realtime"
	"github.com/timecoding/portal/testutil"
)

func TestCreateUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	hub := realtime.NewHub(db, annotation.NewManager())
	handler := NewAdminHandler(db, cfg, hub)

	adminID := testutil.CreateTestUser(t, db, cfg, "root", "sup3rsecret", models.RoleAdmin, "")
	adminToken := testutil.SessionToken(t, cfg, adminID, models.RoleAdmin)

	tests := []struct {
		name           string
		body           models.CreateUserRequest
		expectedStatus int
	}{
		{
			name:           "coder with batch",
			body:           models.CreateUserRequest{Username: "carol", Password: "hunter22", AssignedBatchID: "batch-1"},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "explicit admin role",
			body:           models.CreateUserRequest{Username: "root2", Password: "sup3rsecret", Role: models.RoleAdmin},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "username too short",
			body:           models.CreateUserRequest{Username: "c", Password: "hunter22"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "username too long",
			body:           models.CreateUserRequest{Username: strings.Repeat("x", 51), Password: "hunter22"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing password",
			body:           models.CreateUserRequest{Username: "dave"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bogus role",
			body:           models.CreateUserRequest{Username: "eve", Password: "hunter22", Role: "superuser"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "duplicate username",
			body:           models.CreateUserRequest{Username: "carol", Password: "other"},
			expectedStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/admin/users", tt.body, map[string]string{
				"Authorization": "Bearer " + adminToken,
			})
			w := httptest.NewRecorder()
			middleware.RequireAdmin(db, cfg, handler.CreateUser)(w, req)

			testutil.AssertStatus(t, w, tt.expectedStatus)

			if tt.expectedStatus == http.StatusCreated {
				var resp models.CreateUserResponse
				testutil.AssertJSON(t, w, &resp)
				if resp.UserID == "" {
					t.Error("Expected a user id")
				}

				var role, createdBy string
				err := db.QueryRow(`
					SELECT role, created_by FROM user_profile WHERE id = $1
				`, resp.UserID).Scan(&role, &createdBy)
				if err != nil {
					t.Fatalf("Failed to read created profile: %v", err)
				}
				wantRole := tt.body.Role
				if wantRole == "" {
					wantRole = models.RoleCoder
				}
				if role != wantRole {
					t.Errorf("Expected role %q, got %q", wantRole, role)
				}
				if createdBy != adminID {
					t.Errorf("Expected created_by %q, got %q", adminID, createdBy)
				}
			}
		})
	}
}

func TestListUsersProgress(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	cfg.ExpectedBatchSize = 10
	hub := realtime.NewHub(db, annotation.NewManager())
	handler := NewAdminHandler(db, cfg, hub)

	coderID := testutil.CreateTestUser(t, db, cfg, "carol", "hunter22", models.RoleCoder, "batch-1")
	idleID := testutil.CreateTestUser(t, db, cfg, "dave", "hunter22", models.RoleCoder, "batch-1")

	textIDs := testutil.CreateTestTexts(t, db, "batch-1", []string{"a", "b", "c"})
	for _, id := range textIDs {
		testutil.CreateTestClassification(t, db, id, coderID, 1, false, nil)
	}

	req := testutil.MakeRequest("GET", "/admin/users", nil, nil)
	w := httptest.NewRecorder()
	handler.ListUsers(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)

	var summaries []models.UserSummary
	testutil.AssertJSON(t, w, &summaries)

	byID := make(map[string]models.UserSummary)
	for _, s := range summaries {
		byID[s.ID] = s
	}

	if got := byID[coderID]; got.Progress != 3 || got.ProgressPercent != 30 {
		t.Errorf("Expected 3 records at 30%%, got %d at %d%%", got.Progress, got.ProgressPercent)
	}
	if got := byID[idleID]; got.Progress != 0 || got.ProgressPercent != 0 {
		t.Errorf("Expected zero progress for an idle coder, got %d at %d%%", got.Progress, got.ProgressPercent)
	}
}

func TestProgressPercent(t *testing.T) {
	tests := []struct {
		name     string
		progress int
		expected int
		want     int
	}{
		{"zero", 0, 100, 0},
		{"partial", 30, 100, 30},
		{"complete", 100, 100, 100},
		{"over the denominator", 130, 100, 100},
		{"zero denominator", 5, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := progressPercent(tt.progress, tt.expected); got != tt.want {
				t.Errorf("progressPercent(%d, %d) = %d, want %d", tt.progress, tt.expected, got, tt.want)
			}
		})
	}
}

func TestListFlagged(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	hub := realtime.NewHub(db, annotation.NewManager())
	handler := NewAdminHandler(db, cfg, hub)

	coderID := testutil.CreateTestUser(t, db, cfg, "carol", "hunter22", models.RoleCoder, "batch-1")
	textIDs := testutil.CreateTestTexts(t, db, "batch-1", []string{"a", "b", "c"})

	notes := "unclear"
	testutil.CreateTestClassification(t, db, textIDs[0], coderID, 1, true, &notes)
	testutil.CreateTestClassification(t, db, textIDs[1], coderID, 2, false, nil)
	// Flagged record whose coder no longer has a profile row.
	testutil.CreateTestClassification(t, db, textIDs[2], "vanished-user", 3, true, nil)

	req := testutil.MakeRequest("GET", "/admin/flagged", nil, nil)
	w := httptest.NewRecorder()
	handler.ListFlagged(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)

	var items []models.FlaggedItem
	testutil.AssertJSON(t, w, &items)

	if len(items) != 2 {
		t.Fatalf("Expected 2 flagged items, got %d", len(items))
	}
	if items[0].Coder != "carol" || items[0].Notes != "unclear" {
		t.Errorf("Unexpected first item: %+v", items[0])
	}
	if items[1].Coder != "vanished-user" {
		t.Errorf("Expected raw id fallback for a dangling reference, got %q", items[1].Coder)
	}
	if items[1].Notes != "" {
		t.Errorf("Expected empty notes, got %q", items[1].Notes)
	}
	if items[0].When == "" {
		t.Error("Expected a humanized timestamp")
	}
}

func TestExportCSV(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	hub := realtime.NewHub(db, annotation.NewManager())
	handler := NewAdminHandler(db, cfg, hub)

	coderID := testutil.CreateTestUser(t, db, cfg, "carol", "hunter22", models.RoleCoder, "batch-1")
	textIDs := testutil.CreateTestTexts(t, db, "batch-1", []string{"a", "b"})

	notes := "odd"
	testutil.CreateTestClassification(t, db, textIDs[0], coderID, 2, false, nil)
	testutil.CreateTestClassification(t, db, textIDs[1], coderID, 4, true, &notes)

	req := testutil.MakeRequest("GET", "/admin/export.csv", nil, nil)
	w := httptest.NewRecorder()
	handler.ExportCSV(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)
	if ct := w.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Expected text/csv, got %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Errorf("Expected an attachment disposition, got %q", cd)
	}

	records, err := csv.NewReader(w.Body).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected header plus 2 rows, got %d records", len(records))
	}

	header := []string{"text_id", "coder", "category", "timestamp", "flagged", "flag_notes", "batch_id"}
	for i, col := range header {
		if records[0][i] != col {
			t.Errorf("Header column %d = %q, want %q", i, records[0][i], col)
		}
	}

	first, second := records[1], records[2]
	if first[0] != textIDs[0] || first[2] != "2" || first[4] != "no" || first[5] != "" {
		t.Errorf("Unexpected first row: %v", first)
	}
	if second[0] != textIDs[1] || second[2] != "4" || second[4] != "yes" || second[5] != "odd" {
		t.Errorf("Unexpected second row: %v", second)
	}
	if first[6] != "batch-1" {
		t.Errorf("Expected batch id from the text join, got %q", first[6])
	}
}

func TestExportCSV_EmptyIsHeaderOnly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	hub := realtime.NewHub(db, annotation.NewManager())
	handler := NewAdminHandler(db, cfg, hub)

	req := testutil.MakeRequest("GET", "/admin/export.csv", nil, nil)
	w := httptest.NewRecorder()
	handler.ExportCSV(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)

	records, err := csv.NewReader(w.Body).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse CSV: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected a header-only file, got %d records", len(records))
	}
}

func TestAddTexts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	hub := realtime.NewHub(db, annotation.NewManager())
	handler := NewAdminHandler(db, cfg, hub)

	tests := []struct {
		name           string
		body           models.AddTextsRequest
		expectedStatus int
	}{
		{
			name:           "valid batch",
			body:           models.AddTextsRequest{BatchID: "batch-2", Texts: []string{"one", "two", "three"}},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "missing batch id",
			body:           models.AddTextsRequest{Texts: []string{"one"}},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "empty texts",
			body:           models.AddTextsRequest{BatchID: "batch-2"},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/admin/texts", tt.body, nil)
			w := httptest.NewRecorder()
			handler.AddTexts(w, req)

			testutil.AssertStatus(t, w, tt.expectedStatus)

			if tt.expectedStatus == http.StatusCreated {
				var resp models.AddTextsResponse
				testutil.AssertJSON(t, w, &resp)
				if len(resp.TextIDs) != len(tt.body.Texts) {
					t.Errorf("Expected %d ids, got %d", len(tt.body.Texts), len(resp.TextIDs))
				}

				items, err := loadBatchItems(db, tt.body.BatchID)
				if err != nil {
					t.Fatalf("Failed to load batch: %v", err)
				}
				for i, item := range items {
					if item.Text != tt.body.Texts[i] {
						t.Errorf("Item %d = %q, want insertion order preserved (%q)", i, item.Text, tt.body.Texts[i])
					}
				}
			}
		})
	}
}
