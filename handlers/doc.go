// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the Time Coding Portal API.

# Handler Types

Each handler is a struct with its dependencies injected via constructor:

  - SessionHandler: Sign-in, sign-out, current identity
  - AnnotationHandler: The coder's walk through their batch
  - AdminHandler: User management, progress, flagged items, CSV export

# Session Flow

	POST   /session     → SignIn (username + password → token)
	GET    /session/me  → Me (merged identity)
	DELETE /session     → SignOut (drops live annotation state)

Sign-in translates the username through the configured credential domain
(username → username@domain) before the lookup; the transform lives in
auth.CredentialEmail.

# Annotation Flow

All routes require a bearer token. The server keeps one live annotation
session per coder (annotation.Manager); the handlers are thin adapters over
its operations:

	GET  /annotation          → current item, draft, progress
	POST /annotation/category → select category 1-4
	POST /annotation/flag     → toggle the flag
	POST /annotation/notes    → set flag notes
	POST /annotation/commit   → persist and advance
	POST /annotation/advance  → next item (clamped)
	POST /annotation/retreat  → previous item (clamped)
	POST /annotation/keys     → keyboard shortcut dispatch

Committing appends a classification row; it never overwrites an earlier
submission for the same text.

# Admin Surface

Admin routes additionally require role == admin:

	GET  /admin/users      → profiles with progress counts
	POST /admin/users      → create a user (profile + credential)
	GET  /admin/flagged    → flagged classifications joined to usernames
	GET  /admin/export.csv → full export, fixed column order
	POST /admin/texts      → bulk-load a batch of texts

Writes notify the realtime hub so subscribed clients receive fresh
snapshots without polling.
*/
package handlers
