// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Time Coding Portal API server.

The portal is a text-labeling backend: coders walk an assigned batch of
texts, classify each into one of four categories (with optional flags and
notes), and administrators review progress, flagged items and CSV exports.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=portal.db SESSION_SECRET=... go run main.go

Or with flags:

	go run main.go -p 4180 -d "postgres://..." -t postgres

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite path or PostgreSQL connection string
  - SESSION_SECRET (--session-secret): Secret for session token signing

Optional settings:

  - PORT (-p): Server port (default: 4180)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - AUTH_DOMAIN (--auth-domain): Domain for credential logins (default: coders.local)
  - SESSION_TTL_HOURS (--session-ttl): Token lifetime in hours (default: 12)
  - EXPECTED_BATCH_SIZE (--batch-size): Progress denominator (default: 100)
  - ADMIN_PASSWORD (--admin-password): Bootstraps an "admin" account on a fresh database

# Architecture

The server uses a handler-based architecture with dependency injection:

  - handlers: HTTP request handlers (session, annotation, admin)
  - annotation: the per-coder annotation session state machine
  - realtime: websocket hub pushing full-collection snapshots
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, JSON helpers, role gate
  - models: Domain and request/response types
  - auth: Passwords, session tokens, credential transform
  - db: Schema creation
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
