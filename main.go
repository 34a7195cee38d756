package main

import (
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/timecoding/portal/annotation"
	"github.com/timecoding/portal/auth"
	"github.com/timecoding/portal/cliparse"
	"github.com/timecoding/portal/db"
	"github.com/timecoding/portal/middleware"
	"github.com/timecoding/portal/realtime"
	"github.com/timecoding/portal/router"
)

func main() {
	var err error

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	// Connect to the database
	driver := "postgres"
	if cfg.DatabaseType == "sqlite" {
		driver = "sqlite"
	}
	dbConn, err := sql.Open(driver, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Verify connection
	if err := dbConn.Ping(); err != nil {
		slog.Error("database ping failed", "error", err)
		os.Exit(1)
	}

	// Create schema (tables)
	if err := db.CreateSchema(dbConn); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready")

	// Bootstrap an admin account on a fresh database
	if cfg.AdminPassword != "" {
		hash, err := auth.HashPassword(cfg.AdminPassword)
		if err != nil {
			slog.Error("failed to hash bootstrap admin password", "error", err)
			os.Exit(1)
		}
		login := auth.CredentialEmail("admin", cfg.AuthDomain)
		if err := db.EnsureAdmin(dbConn, "admin", login, hash, uuid.NewString(), time.Now().UTC()); err != nil {
			slog.Error("failed to ensure bootstrap admin", "error", err)
			os.Exit(1)
		}
	}

	// Live annotation sessions and the realtime snapshot hub
	sessions := annotation.NewManager()
	hub := realtime.NewHub(dbConn, sessions)
	go hub.Run()

	// Create router
	mux := router.NewRouter(dbConn, cfg, sessions, hub)

	// Create server
	server := http.Server{
		Handler: middleware.CORS(mux),
		Addr:    ":" + strconv.Itoa(cfg.Port),
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		server.Close()
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}
}
