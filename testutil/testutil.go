// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/timecoding/portal/auth"
	"github.com/timecoding/portal/cliparse"
	"github.com/timecoding/portal/db"
)

// SetupTestDB creates a fresh in-memory SQLite database with the full
// schema. One connection only: each :memory: connection is its own
// database.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	conn.SetMaxOpenConns(1)

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:              4180,
		DatabaseURL:       ":memory:",
		DatabaseType:      "sqlite",
		SessionSecret:     "test-session-secret",
		AuthDomain:        "test.local",
		SessionTTL:        time.Hour,
		ExpectedBatchSize: 100,
	}
}

// CreateTestUser inserts a profile and credential and returns the user id.
// role should be "admin" or "coder".
func CreateTestUser(t *testing.T, conn *sql.DB, cfg cliparse.Config, username, password, role, batchID string) string {
	t.Helper()

	userID := uuid.NewString()

	var batch interface{}
	if batchID != "" {
		batch = batchID
	}

	_, err := conn.Exec(`
		INSERT INTO user_profile (id, username, role, assigned_batch_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, userID, username, role, batch, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash test password: %v", err)
	}
	_, err = conn.Exec(`
		INSERT INTO credential (user_id, login, password_hash)
		VALUES ($1, $2, $3)
	`, userID, auth.CredentialEmail(username, cfg.AuthDomain), hash)
	if err != nil {
		t.Fatalf("Failed to create test credential: %v", err)
	}

	return userID
}

// SessionToken mints a token for an existing test user.
func SessionToken(t *testing.T, cfg cliparse.Config, userID, role string) string {
	t.Helper()

	token, err := auth.NewSessionToken(cfg.SessionSecret, cfg.SessionTTL, userID, role)
	if err != nil {
		t.Fatalf("Failed to mint test token: %v", err)
	}
	return token
}

// CreateTestTexts inserts text items into a batch and returns their ids in
// insertion order.
func CreateTestTexts(t *testing.T, conn *sql.DB, batchID string, bodies []string) []string {
	t.Helper()

	base := time.Now().UTC()
	ids := make([]string, 0, len(bodies))
	for i, body := range bodies {
		id := uuid.NewString()
		_, err := conn.Exec(`
			INSERT INTO text_item (id, body, batch_id, created_at)
			VALUES ($1, $2, $3, $4)
		`, id, body, batchID, base.Add(time.Duration(i)*time.Millisecond))
		if err != nil {
			t.Fatalf("Failed to create test text: %v", err)
		}
		ids = append(ids, id)
	}
	return ids
}

// CreateTestClassification inserts a classification row and returns its id.
// flagNotes may be nil.
func CreateTestClassification(t *testing.T, conn *sql.DB, textID, userID string, category int, flagged bool, flagNotes *string) string {
	t.Helper()

	id := uuid.NewString()
	_, err := conn.Exec(`
		INSERT INTO classification (id, text_id, user_id, category, recorded_at, flagged, flag_notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, id, textID, userID, category, time.Now().UTC(), flagged, flagNotes)
	if err != nil {
		t.Fatalf("Failed to create test classification: %v", err)
	}
	return id
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
