// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the Time Coding Portal API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(db, cfg, sessions, hub)

# Endpoints

Health:

	GET /health

Session:

	POST   /session    - Sign in
	GET    /session/me - Merged identity
	DELETE /session    - Sign out

Annotation (requires a session):

	GET  /annotation
	POST /annotation/category
	POST /annotation/flag
	POST /annotation/notes
	POST /annotation/commit
	POST /annotation/advance
	POST /annotation/retreat
	POST /annotation/keys

Admin (requires role == admin):

	GET  /admin/users
	POST /admin/users
	GET  /admin/flagged
	GET  /admin/export.csv
	POST /admin/texts

Realtime snapshots:

	GET /ws (websocket; token via Authorization header or ?token=)
*/
package router
