// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles database schema creation.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.
The SQL stays portable between PostgreSQL and SQLite: timestamps are written
from Go, so there are no NOW() defaults.

# Tables

  - user_profile: Profiles with role and batch assignment
  - credential: Provider-side logins and password hashes
  - text_item: Immutable texts, partitioned by batch_id
  - classification: Append-only submissions

# Relationships

	user_profile 1──1 credential
	text_item.batch_id ── user_profile.assigned_batch_id (a coder sees
	    exactly the texts of their assigned batch)
	classification.user_id → user_profile.id
	classification.text_id → text_item.id

classification deliberately has no foreign keys: flagged items with a
dangling user or text reference must still render, with the raw id as the
fallback.

# Bootstrap

EnsureAdmin seeds an initial admin profile and credential on a fresh
database; it is a no-op once the login exists.
*/
package db
