package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"busmate/internal/i18n"
)

type Config struct {
	HTTPAddr          string
	TickInterval      time.Duration
	BusesPerRoute     int
	CancelledWeight   int
	Seed              uint64
	ReferenceDataFile string
	DefaultLanguage   i18n.Language
	Location          *time.Location

	DatabaseURL string // empty keeps the language preference in memory

	NATSURL           string // empty disables publishing
	NATSSubjectPrefix string
	LogNATSSubjects   bool

	MetricsAddr string
	LogLevel    string
	LogFile     string
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:          getenvDefault("HTTP_ADDR", ":8080"),
		ReferenceDataFile: os.Getenv("REFERENCE_DATA_FILE"),
		NATSURL:           strings.TrimSpace(os.Getenv("NATS_URL")),
		NATSSubjectPrefix: getenvDefault("NATS_SUBJECT_PREFIX", "busmate"),
		LogNATSSubjects:   parseBool(os.Getenv("LOG_NATS_SUBJECTS")),
		MetricsAddr:       os.Getenv("METRICS_ADDR"),
		LogLevel:          getenvDefault("LOG_LEVEL", "info"),
		LogFile:           os.Getenv("LOG_FILE"),
	}

	dsn, err := databaseURL()
	if err != nil {
		return nil, err
	}
	cfg.DatabaseURL = dsn

	if v := os.Getenv("TICK_INTERVAL_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return nil, fmt.Errorf("invalid TICK_INTERVAL_MS: %q", v)
		}
		cfg.TickInterval = time.Duration(ms) * time.Millisecond
	} else {
		cfg.TickInterval = 5 * time.Second
	}

	if v := os.Getenv("BUSES_PER_ROUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid BUSES_PER_ROUTE: %q", v)
		}
		cfg.BusesPerRoute = n
	} else {
		cfg.BusesPerRoute = 3
	}

	if v := os.Getenv("CANCELLED_WEIGHT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid CANCELLED_WEIGHT: %q", v)
		}
		cfg.CancelledWeight = n
	}

	// Zero seeds from the clock.
	if v := os.Getenv("SEED"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid SEED: %q", v)
		}
		cfg.Seed = n
	}

	lang, err := i18n.ParseLanguage(getenvDefault("DEFAULT_LANGUAGE", "en"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_LANGUAGE: %w", err)
	}
	cfg.DefaultLanguage = lang

	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q", cfg.LogLevel)
	}

	// Time zone for bus timestamps
	tzName := getenvDefault("TZ", "")
	if tzName == "" {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(tzName)
		if err != nil {
			return nil, fmt.Errorf("invalid TZ: %v", err)
		}
		cfg.Location = loc
	}

	return cfg, nil
}

// databaseURL prefers DATABASE_URL / PG_DSN, else builds a DSN from PG* vars
// when PGDATABASE is set. No database configured yields "".
func databaseURL() (string, error) {
	if dsn := firstNonEmpty(os.Getenv("DATABASE_URL"), os.Getenv("PG_DSN")); dsn != "" {
		return dsn, nil
	}
	db := os.Getenv("PGDATABASE")
	if db == "" {
		if os.Getenv("PGHOST") != "" {
			return "", errors.New("PGHOST is set but PGDATABASE is empty")
		}
		return "", nil
	}
	host := getenvDefault("PGHOST", "127.0.0.1")
	port := getenvDefault("PGPORT", "5432")
	user := getenvDefault("PGUSER", "postgres")
	pass := os.Getenv("PGPASSWORD")
	sslmode := getenvDefault("PGSSLMODE", "disable")
	if pass != "" {
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode), nil
	}
	return fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode), nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	}
	return false
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
