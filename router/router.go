// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/timecoding/portal/annotation"
	"github.com/timecoding/portal/cliparse"
	"github.com/timecoding/portal/handlers"
	"github.com/timecoding/portal/middleware"
	"github.com/timecoding/portal/realtime"
)

func NewRouter(db *sql.DB, cfg cliparse.Config, sessions *annotation.Manager, hub *realtime.Hub) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	sessionHandler := handlers.NewSessionHandler(db, cfg, sessions, hub)
	annotationHandler := handlers.NewAnnotationHandler(db, cfg, sessions, hub)
	adminHandler := handlers.NewAdminHandler(db, cfg, hub)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Session (sign-in is the only unauthenticated operation)
	mux.HandleFunc("POST /session", middleware.WithLogging(sessionHandler.SignIn))
	mux.HandleFunc("DELETE /session", middleware.WithLogging(middleware.RequireUser(db, cfg, sessionHandler.SignOut)))
	mux.HandleFunc("GET /session/me", middleware.WithLogging(middleware.RequireUser(db, cfg, sessionHandler.Me)))

	// Annotation session (coder view)
	mux.HandleFunc("GET /annotation", middleware.WithLogging(middleware.RequireUser(db, cfg, annotationHandler.State)))
	mux.HandleFunc("POST /annotation/category", middleware.WithLogging(middleware.RequireUser(db, cfg, annotationHandler.SelectCategory)))
	mux.HandleFunc("POST /annotation/flag", middleware.WithLogging(middleware.RequireUser(db, cfg, annotationHandler.ToggleFlag)))
	mux.HandleFunc("POST /annotation/notes", middleware.WithLogging(middleware.RequireUser(db, cfg, annotationHandler.SetNotes)))
	mux.HandleFunc("POST /annotation/commit", middleware.WithLogging(middleware.RequireUser(db, cfg, annotationHandler.Commit)))
	mux.HandleFunc("POST /annotation/advance", middleware.WithLogging(middleware.RequireUser(db, cfg, annotationHandler.Advance)))
	mux.HandleFunc("POST /annotation/retreat", middleware.WithLogging(middleware.RequireUser(db, cfg, annotationHandler.Retreat)))
	mux.HandleFunc("POST /annotation/keys", middleware.WithLogging(middleware.RequireUser(db, cfg, annotationHandler.HandleKey)))

	// Admin aggregation view
	mux.HandleFunc("GET /admin/users", middleware.WithLogging(middleware.RequireAdmin(db, cfg, adminHandler.ListUsers)))
	mux.HandleFunc("POST /admin/users", middleware.WithLogging(middleware.RequireAdmin(db, cfg, adminHandler.CreateUser)))
	mux.HandleFunc("GET /admin/flagged", middleware.WithLogging(middleware.RequireAdmin(db, cfg, adminHandler.ListFlagged)))
	mux.HandleFunc("GET /admin/export.csv", middleware.WithLogging(middleware.RequireAdmin(db, cfg, adminHandler.ExportCSV)))
	mux.HandleFunc("POST /admin/texts", middleware.WithLogging(middleware.RequireAdmin(db, cfg, adminHandler.AddTexts)))

	// Realtime snapshot subscriptions
	mux.HandleFunc("GET /ws", middleware.RequireUser(db, cfg, hub.ServeWS))

	// Root endpoint. The {$} keeps this from swallowing unknown paths.
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("timecoding-portal API v1"))
	})

	return mux
}
