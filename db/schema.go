// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
	"time"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
//
// The SQL is kept portable between PostgreSQL (lib/pq) and SQLite
// (modernc.org/sqlite): timestamps are always written from Go, so no
// NOW() defaults appear here.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// EnsureAdmin creates an initial admin profile and credential if no user
// with the given login exists yet. Used to bootstrap a fresh database.
func EnsureAdmin(db *sql.DB, username, login, passwordHash, userID string, now time.Time) error {
	var exists bool
	err := db.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM credential WHERE login = $1)
	`, login).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check for admin credential: %w", err)
	}
	if exists {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO user_profile (id, username, role, created_at)
		VALUES ($1, $2, 'admin', $3)
	`, userID, username, now)
	if err != nil {
		return fmt.Errorf("failed to insert admin profile: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO credential (user_id, login, password_hash)
		VALUES ($1, $2, $3)
	`, userID, login, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to insert admin credential: %w", err)
	}

	return tx.Commit()
}

const schema = `
-- User profiles
CREATE TABLE IF NOT EXISTS user_profile (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL,
    role TEXT NOT NULL CHECK (role IN ('admin', 'coder')),
    assigned_batch_id TEXT,
    created_at TIMESTAMP NOT NULL,
    created_by TEXT,
    last_login TIMESTAMP
);

-- Sign-in credentials, keyed by the provider-side login (username@domain).
-- Uniqueness lives here, not on user_profile.username.
CREATE TABLE IF NOT EXISTS credential (
    user_id TEXT PRIMARY KEY,
    login TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL
);

-- Text items, partitioned into batches
CREATE TABLE IF NOT EXISTS text_item (
    id TEXT PRIMARY KEY,
    body TEXT NOT NULL,
    batch_id TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_text_item_batch ON text_item(batch_id);

-- Classifications: append-only, no unique constraint on (user_id, text_id).
-- No foreign keys either: a flagged item whose user or text was removed
-- must still render (with the raw id as fallback).
CREATE TABLE IF NOT EXISTS classification (
    id TEXT PRIMARY KEY,
    text_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    category INTEGER NOT NULL CHECK (category BETWEEN 1 AND 4),
    recorded_at TIMESTAMP NOT NULL,
    flagged BOOLEAN NOT NULL DEFAULT FALSE,
    flag_notes TEXT
);

CREATE INDEX IF NOT EXISTS idx_classification_user ON classification(user_id);
CREATE INDEX IF NOT EXISTS idx_classification_flagged ON classification(flagged);
`
