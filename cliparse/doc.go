// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

A .env file in the working directory is loaded first when present.

# Config Fields

  - Port: Server listen port (default: 4180)
  - DatabaseURL: SQLite path or PostgreSQL connection string (required)
  - DatabaseType: sqlite or postgres (default: sqlite)
  - SessionSecret: Secret for session token signing (required)
  - AuthDomain: Domain appended to usernames for credential lookup
  - SessionTTL: Session token lifetime
  - ExpectedBatchSize: Denominator for progress display
  - AdminPassword: Bootstrap admin password (optional)

# Environment Variables

Flags fall back to environment variables:

	PORT                → -p
	DATABASE_URL        → -d
	DATABASE_TYPE       → -t
	SESSION_SECRET      → --session-secret
	AUTH_DOMAIN         → --auth-domain
	SESSION_TTL_HOURS   → --session-ttl
	EXPECTED_BATCH_SIZE → --batch-size
	ADMIN_PASSWORD      → --admin-password

CLI flags take precedence over environment variables.

# Validation

ParseFlags returns an error if required values are missing:

  - DATABASE_URL must be provided
  - SESSION_SECRET must be provided
  - DATABASE_TYPE must be sqlite or postgres when set
*/
package cliparse
