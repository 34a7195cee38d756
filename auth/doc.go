// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides authentication and token generation utilities.

# Passwords

bcrypt hashing for stored credentials:

	hash, err := auth.HashPassword(password)
	err = auth.CheckPassword(hash, candidate)

# Session Tokens

Signed HS256 tokens carry the user id and role:

	token, err := auth.NewSessionToken(secret, ttl, userID, role)
	claims, err := auth.ParseSessionToken(secret, token)

The profile is re-fetched on every request, so a token never carries batch
assignments or other profile fields that can go stale.

# Credential Transform

Usernames map to provider-side logins by a fixed, configured transform:

	login := auth.CredentialEmail("alice", cfg.AuthDomain) // "alice@coders.local"

# ID Generation

Random hex IDs for database records:

	id, err := auth.GenerateID(16)  // 32 hex characters
*/
package auth
