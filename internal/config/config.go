package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Dataset sources.
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

type Config struct {
	HTTPAddr string

	DatasetSource        string
	BuildingsURL         string
	BuildingsFallbackURL string
	TripsURL             string
	DatabaseURL          string
	City                 string

	NATSURL           string // empty disables publishing
	NATSSubjectPrefix string
	LogNATSSubjects   bool

	PublishInterval time.Duration
	SpeedMultiplier float64
	RefreshInterval time.Duration // 0 disables periodic reloads
	LoadTimeout     time.Duration
	TopK            int

	MetricsAddr string
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:             getenvDefault("HTTP_ADDR", ":8080"),
		DatasetSource:        strings.ToLower(getenvDefault("DATASET_SOURCE", SourceFile)),
		BuildingsURL:         getenvDefault("BUILDINGS_URL", "data/building_occupancy_max_people.geojson"),
		BuildingsFallbackURL: getenvDefault("BUILDINGS_FALLBACK_URL", "data/building_occupancy_sf_5k.json"),
		TripsURL:             getenvDefault("TRIPS_URL", "data/trips_sf_5k.json"),
		City:                 firstNonEmpty(os.Getenv("CITY"), os.Getenv("CITY_NAME")),
		NATSURL:              os.Getenv("NATS_URL"),
		NATSSubjectPrefix:    getenvDefault("NATS_SUBJECT_PREFIX", "corners"),
		LogNATSSubjects:      parseBool(os.Getenv("LOG_NATS_SUBJECTS")),
		MetricsAddr:          os.Getenv("METRICS_ADDR"),
	}

	switch cfg.DatasetSource {
	case SourceFile:
		if cfg.TripsURL == "" || (cfg.BuildingsURL == "" && cfg.BuildingsFallbackURL == "") {
			return nil, errors.New("TRIPS_URL and BUILDINGS_URL or BUILDINGS_FALLBACK_URL must be set")
		}
	case SourcePostgres:
		dsn, err := databaseURL()
		if err != nil {
			return nil, err
		}
		cfg.DatabaseURL = dsn
	default:
		return nil, fmt.Errorf("invalid DATASET_SOURCE: %q", cfg.DatasetSource)
	}

	ms, err := positiveInt("PUBLISH_INTERVAL_MS", 1000)
	if err != nil {
		return nil, err
	}
	cfg.PublishInterval = time.Duration(ms) * time.Millisecond

	if v := os.Getenv("SPEED_MULTIPLIER"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("invalid SPEED_MULTIPLIER: %q", v)
		}
		cfg.SpeedMultiplier = f
	} else {
		cfg.SpeedMultiplier = 600
	}

	if v := os.Getenv("DATASET_REFRESH_INTERVAL_SEC"); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil || sec < 0 {
			return nil, fmt.Errorf("invalid DATASET_REFRESH_INTERVAL_SEC: %q", v)
		}
		cfg.RefreshInterval = time.Duration(sec) * time.Second
	}

	sec, err := positiveInt("LOAD_TIMEOUT_SEC", 15)
	if err != nil {
		return nil, err
	}
	cfg.LoadTimeout = time.Duration(sec) * time.Second

	if cfg.TopK, err = positiveInt("TOP_K", 5); err != nil {
		return nil, err
	}

	return cfg, nil
}

// databaseURL prefers DATABASE_URL / PG_DSN and otherwise builds a DSN from
// the PG* variables.
func databaseURL() (string, error) {
	if dsn := firstNonEmpty(os.Getenv("DATABASE_URL"), os.Getenv("PG_DSN")); dsn != "" {
		return dsn, nil
	}
	host := getenvDefault("PGHOST", "127.0.0.1")
	port := getenvDefault("PGPORT", "5432")
	user := getenvDefault("PGUSER", "postgres")
	pass := os.Getenv("PGPASSWORD")
	db := os.Getenv("PGDATABASE")
	// With CITY the base DB only serves import lookups.
	if db == "" && os.Getenv("CITY") != "" {
		db = "postgres"
	}
	if db == "" {
		return "", errors.New("PGDATABASE or DATABASE_URL must be set (set PGDATABASE=postgres when using CITY)")
	}
	sslmode := getenvDefault("PGSSLMODE", "disable")
	if pass != "" {
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode), nil
	}
	return fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode), nil
}

func positiveInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
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
