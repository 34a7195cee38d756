// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers_test

import (
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/timecoding/portal/annotation"
	"github.com/timecoding/portal/models"
	"github.com/timecoding/portal/realtime"
	"github.com/timecoding/portal/router"
	"github.com/timecoding/portal/testutil"
)

// TestFullLabelingWorkflow walks the whole lifecycle through the real
// router: an admin loads a batch and creates a coder, the coder signs in
// and classifies texts with the keyboard surface, and the admin reads the
// results off the dashboard endpoints.
func TestFullLabelingWorkflow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	sessions := annotation.NewManager()
	hub := realtime.NewHub(db, sessions)
	mux := router.NewRouter(db, cfg, sessions, hub)

	testutil.CreateTestUser(t, db, cfg, "root", "sup3rsecret", models.RoleAdmin, "")

	do := func(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
		t.Helper()
		headers := map[string]string{}
		if token != "" {
			headers["Authorization"] = "Bearer " + token
		}
		req := testutil.MakeRequest(method, path, body, headers)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		return w
	}

	// Admin signs in.
	w := do("POST", "/session", models.SignInRequest{Username: "root", Password: "sup3rsecret"}, "")
	testutil.AssertStatus(t, w, http.StatusOK)
	var adminSession models.SignInResponse
	testutil.AssertJSON(t, w, &adminSession)

	// Admin loads a batch of texts.
	w = do("POST", "/admin/texts", models.AddTextsRequest{
		BatchID: "batch-7",
		Texts:   []string{"the first text", "the second text", "the third text"},
	}, adminSession.Token)
	testutil.AssertStatus(t, w, http.StatusCreated)
	var added models.AddTextsResponse
	testutil.AssertJSON(t, w, &added)

	// Admin creates a coder on that batch.
	w = do("POST", "/admin/users", models.CreateUserRequest{
		Username:        "carol",
		Password:        "hunter22",
		AssignedBatchID: "batch-7",
	}, adminSession.Token)
	testutil.AssertStatus(t, w, http.StatusCreated)

	// Coder signs in and sees the batch.
	w = do("POST", "/session", models.SignInRequest{Username: "carol", Password: "hunter22"}, "")
	testutil.AssertStatus(t, w, http.StatusOK)
	var coderSession models.SignInResponse
	testutil.AssertJSON(t, w, &coderSession)

	w = do("GET", "/annotation", nil, coderSession.Token)
	testutil.AssertStatus(t, w, http.StatusOK)
	var state models.AnnotationState
	testutil.AssertJSON(t, w, &state)
	if state.Waiting || state.Total != 3 {
		t.Fatalf("Expected 3 items loaded, got %+v", state)
	}
	if state.Item.Text != "the first text" {
		t.Fatalf("Expected the first text first, got %q", state.Item.Text)
	}

	// First item: category 2 via keyboard, committed with Enter.
	do("POST", "/annotation/keys", models.KeyRequest{Key: "2"}, coderSession.Token)
	w = do("POST", "/annotation/keys", models.KeyRequest{Key: "Enter"}, coderSession.Token)
	var keyResp models.KeyResponse
	testutil.AssertJSON(t, w, &keyResp)
	if !keyResp.Committed {
		t.Fatal("Expected the first item to commit")
	}

	// Second item: flagged with notes, category 4, committed via endpoint.
	do("POST", "/annotation/category", models.SelectCategoryRequest{Category: 4}, coderSession.Token)
	do("POST", "/annotation/flag", nil, coderSession.Token)
	do("POST", "/annotation/notes", models.FlagNotesRequest{Notes: "possible sarcasm"}, coderSession.Token)
	w = do("POST", "/annotation/commit", nil, coderSession.Token)
	testutil.AssertStatus(t, w, http.StatusCreated)

	// Admin dashboard shows the coder's progress.
	w = do("GET", "/admin/users", nil, adminSession.Token)
	testutil.AssertStatus(t, w, http.StatusOK)
	var summaries []models.UserSummary
	testutil.AssertJSON(t, w, &summaries)

	var coder models.UserSummary
	for _, s := range summaries {
		if s.Username == "carol" {
			coder = s
		}
	}
	if coder.Progress != 2 {
		t.Errorf("Expected 2 classifications on the dashboard, got %d", coder.Progress)
	}
	if coder.ProgressPercent != 2 {
		t.Errorf("Expected 2%% of the expected batch size, got %d%%", coder.ProgressPercent)
	}
	if coder.LastLogin == nil {
		t.Error("Expected a sign-in stamp on the dashboard")
	}

	// The flagged list carries the second item and its notes.
	w = do("GET", "/admin/flagged", nil, adminSession.Token)
	testutil.AssertStatus(t, w, http.StatusOK)
	var flagged []models.FlaggedItem
	testutil.AssertJSON(t, w, &flagged)
	if len(flagged) != 1 {
		t.Fatalf("Expected 1 flagged item, got %d", len(flagged))
	}
	if flagged[0].Coder != "carol" || flagged[0].Notes != "possible sarcasm" {
		t.Errorf("Unexpected flagged item: %+v", flagged[0])
	}
	if flagged[0].TextID != added.TextIDs[1] {
		t.Errorf("Expected the second text flagged, got %q", flagged[0].TextID)
	}

	// The export carries both records in commit order.
	w = do("GET", "/admin/export.csv", nil, adminSession.Token)
	testutil.AssertStatus(t, w, http.StatusOK)
	records, err := csv.NewReader(w.Body).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse export: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected header plus 2 rows, got %d", len(records))
	}
	if records[1][0] != added.TextIDs[0] || records[1][2] != "2" || records[1][4] != "no" {
		t.Errorf("Unexpected first export row: %v", records[1])
	}
	if records[2][0] != added.TextIDs[1] || records[2][2] != "4" || records[2][4] != "yes" || records[2][5] != "possible sarcasm" {
		t.Errorf("Unexpected second export row: %v", records[2])
	}
	if records[1][6] != "batch-7" {
		t.Errorf("Expected the batch id in the export, got %q", records[1][6])
	}

	// Coder signs out; the live session is gone.
	w = do("DELETE", "/session", nil, coderSession.Token)
	testutil.AssertStatus(t, w, http.StatusNoContent)
}
