// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs request start (method, path, remote) and completion (duration_ms).

# Role Gate

RequireUser and RequireAdmin gate protected routes. On every request the
bearer token is verified and the matching profile row is fetched and merged
into the session identity; the identity travels down via the request
context:

	mux.HandleFunc("GET /admin/users",
		middleware.RequireAdmin(db, cfg, handler))

	user, ok := middleware.IdentityFrom(r.Context())

A token whose profile cannot be fetched is treated exactly like no session
(fail closed). Non-admin sessions get 403 from RequireAdmin before the
handler runs, so admin surfaces cannot be reached by direct navigation.

# CORS Middleware

Enable cross-origin requests for frontend access:

	server := http.Server{
		Handler: middleware.CORS(mux),
	}

# JSON Helpers

Write JSON responses:

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")

Parse JSON request bodies:

	var req models.SignInRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

# Client IP Extraction

Get the original client IP (handles X-Forwarded-For, X-Real-IP):

	ip := middleware.GetClientIP(r)

Used when logging sign-in attempts.
*/
package middleware
