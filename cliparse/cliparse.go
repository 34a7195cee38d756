package cliparse

import (
	"errors"
	"flag"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              int
	DatabaseURL       string
	DatabaseType      string
	SessionSecret     string
	AuthDomain        string
	SessionTTL        time.Duration
	ExpectedBatchSize int
	AdminPassword     string
}

// ParseFlags validates flags and fills in defaults
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	var ttlHours int

	// Load .env if present; a missing file is not an error
	_ = godotenv.Load()

	fs := flag.NewFlagSet("timecoding-portal", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")

	// Secrets and tuning (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.SessionSecret, "session-secret", "", "Session token signing secret (prefer env)")
	fs.StringVar(&cfg.AuthDomain, "auth-domain", "", "Domain appended to usernames for credential lookup")
	fs.IntVar(&ttlHours, "session-ttl", 0, "Session token lifetime in hours")
	fs.IntVar(&cfg.ExpectedBatchSize, "batch-size", 0, "Expected batch size for progress display")
	fs.StringVar(&cfg.AdminPassword, "admin-password", "", "Bootstrap admin password (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 4180 // default
		}
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, errors.New("DATABASE_TYPE must be sqlite or postgres")
	}

	// Secrets - MUST be provided
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	}
	if cfg.SessionSecret == "" {
		return Config{}, errors.New("SESSION_SECRET required")
	}

	if cfg.AuthDomain == "" {
		cfg.AuthDomain = os.Getenv("AUTH_DOMAIN")
		if cfg.AuthDomain == "" {
			cfg.AuthDomain = "coders.local"
		}
	}

	if ttlHours == 0 {
		if ttlStr := os.Getenv("SESSION_TTL_HOURS"); ttlStr != "" {
			h, err := strconv.Atoi(ttlStr)
			if err != nil {
				return Config{}, errors.New("invalid SESSION_TTL_HOURS env variable")
			}
			ttlHours = h
		} else {
			ttlHours = 12
		}
	}
	cfg.SessionTTL = time.Duration(ttlHours) * time.Hour

	if cfg.ExpectedBatchSize == 0 {
		if sizeStr := os.Getenv("EXPECTED_BATCH_SIZE"); sizeStr != "" {
			size, err := strconv.Atoi(sizeStr)
			if err != nil {
				return Config{}, errors.New("invalid EXPECTED_BATCH_SIZE env variable")
			}
			cfg.ExpectedBatchSize = size
		} else {
			cfg.ExpectedBatchSize = 100
		}
	}

	// Optional: only used to bootstrap a fresh database
	if cfg.AdminPassword == "" {
		cfg.AdminPassword = os.Getenv("ADMIN_PASSWORD")
	}

	return cfg, nil
}
