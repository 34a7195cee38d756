// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/timecoding/portal/annotation"
	"github.com/timecoding/portal/middleware"
	"github.com/timecoding/portal/models"
	"github.com/timecoding/portal/realtime"
	"github.com/timecoding/portal/testutil"
)

func TestSignIn(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	sessions := annotation.NewManager()
	hub := realtime.NewHub(db, sessions)
	handler := NewSessionHandler(db, cfg, sessions, hub)

	coderID := testutil.CreateTestUser(t, db, cfg, "carol", "hunter22", models.RoleCoder, "batch-1")

	tests := []struct {
		name           string
		body           interface{}
		expectedStatus int
	}{
		{
			name:           "valid credentials",
			body:           models.SignInRequest{Username: "carol", Password: "hunter22"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "wrong password",
			body:           models.SignInRequest{Username: "carol", Password: "wrong"},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "unknown user",
			body:           models.SignInRequest{Username: "nobody", Password: "hunter22"},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "missing password",
			body:           models.SignInRequest{Username: "carol"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing username",
			body:           models.SignInRequest{Password: "hunter22"},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/session", tt.body, nil)
			w := httptest.NewRecorder()

			handler.SignIn(w, req)

			testutil.AssertStatus(t, w, tt.expectedStatus)

			if tt.expectedStatus == http.StatusOK {
				var resp models.SignInResponse
				testutil.AssertJSON(t, w, &resp)
				if resp.Token == "" {
					t.Error("Expected a session token")
				}
				if resp.User.ID != coderID {
					t.Errorf("Expected user id %q, got %q", coderID, resp.User.ID)
				}
				if resp.User.AssignedBatchID != "batch-1" {
					t.Errorf("Expected merged profile with batch assignment, got %+v", resp.User)
				}
				if resp.User.LastLogin == nil {
					t.Error("Expected last_login to be stamped on sign-in")
				}
			}
		})
	}
}

func TestSignIn_RejectionsLookIdentical(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	sessions := annotation.NewManager()
	hub := realtime.NewHub(db, sessions)
	handler := NewSessionHandler(db, cfg, sessions, hub)

	testutil.CreateTestUser(t, db, cfg, "carol", "hunter22", models.RoleCoder, "")

	// Wrong password and unknown user must produce the same message, so a
	// caller cannot probe which usernames exist.
	bodies := []models.SignInRequest{
		{Username: "carol", Password: "wrong"},
		{Username: "nobody", Password: "hunter22"},
	}

	var messages []string
	for _, body := range bodies {
		req := testutil.MakeRequest("POST", "/session", body, nil)
		w := httptest.NewRecorder()
		handler.SignIn(w, req)

		testutil.AssertStatus(t, w, http.StatusUnauthorized)
		var resp models.ErrorResponse
		testutil.AssertJSON(t, w, &resp)
		messages = append(messages, resp.Message)
	}

	if messages[0] != messages[1] {
		t.Errorf("Rejection messages differ: %q vs %q", messages[0], messages[1])
	}
}

func TestSignIn_StampsLastLogin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	sessions := annotation.NewManager()
	hub := realtime.NewHub(db, sessions)
	handler := NewSessionHandler(db, cfg, sessions, hub)

	coderID := testutil.CreateTestUser(t, db, cfg, "carol", "hunter22", models.RoleCoder, "")

	req := testutil.MakeRequest("POST", "/session", models.SignInRequest{Username: "carol", Password: "hunter22"}, nil)
	w := httptest.NewRecorder()
	handler.SignIn(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var lastLogin interface{}
	err := db.QueryRow(`SELECT last_login FROM user_profile WHERE id = $1`, coderID).Scan(&lastLogin)
	if err != nil {
		t.Fatalf("Failed to read last_login: %v", err)
	}
	if lastLogin == nil {
		t.Error("Expected last_login to be written")
	}
}

func TestSignOut(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	sessions := annotation.NewManager()
	hub := realtime.NewHub(db, sessions)
	handler := NewSessionHandler(db, cfg, sessions, hub)

	coderID := testutil.CreateTestUser(t, db, cfg, "carol", "hunter22", models.RoleCoder, "batch-1")
	token := testutil.SessionToken(t, cfg, coderID, models.RoleCoder)

	sessions.GetOrCreate(coderID, "batch-1")

	req := testutil.MakeRequest("DELETE", "/session", nil, map[string]string{
		"Authorization": "Bearer " + token,
	})
	w := httptest.NewRecorder()
	middleware.RequireUser(db, cfg, handler.SignOut)(w, req)

	testutil.AssertStatus(t, w, http.StatusNoContent)

	if _, ok := sessions.Get(coderID); ok {
		t.Error("Expected the live annotation session to be dropped")
	}
}

func TestMe(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	sessions := annotation.NewManager()
	hub := realtime.NewHub(db, sessions)
	handler := NewSessionHandler(db, cfg, sessions, hub)

	coderID := testutil.CreateTestUser(t, db, cfg, "carol", "hunter22", models.RoleCoder, "batch-1")
	token := testutil.SessionToken(t, cfg, coderID, models.RoleCoder)

	req := testutil.MakeRequest("GET", "/session/me", nil, map[string]string{
		"Authorization": "Bearer " + token,
	})
	w := httptest.NewRecorder()
	middleware.RequireUser(db, cfg, handler.Me)(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)

	var user models.UserProfile
	testutil.AssertJSON(t, w, &user)
	if user.ID != coderID || user.Username != "carol" || user.Role != models.RoleCoder {
		t.Errorf("Unexpected identity: %+v", user)
	}
}
