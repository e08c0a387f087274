package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time expresses the hold window and sweep interval
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The database settings are optional: when DBHost
// is empty the server runs on its in-memory stores, which is the mode used
// for local development and tests.
type Config struct {
	Env           string        // application environment (e.g. "dev", "prod")
	Port          string        // HTTP port to listen on
	DBUser        string        // database username
	DBPass        string        // database password (optional)
	DBHost        string        // database host; empty selects the in-memory stores
	DBPort        string        // database port number
	DBName        string        // database name
	JWTSecret     string        // secret used to verify customer/admin bearer tokens
	HoldWindow    time.Duration // how long a seat hold pends before expiring
	SweepInterval time.Duration // how often the background sweeper runs
	GatewayMode   string        // payment gateway mode: "accept" or "decline" (static gateway)
}

// Load reads configuration values from environment variables and returns a
// Config.  Only APP_PORT and JWT_SECRET are required; everything else has a
// sensible default so a bare server start works standalone.
func Load() Config {
	return Config{
		Env:           getenvDefault("APP_ENV", "dev"),
		Port:          must("APP_PORT"),
		DBUser:        os.Getenv("DB_USER"),
		DBPass:        os.Getenv("DB_PASS"),
		DBHost:        os.Getenv("DB_HOST"),
		DBPort:        getenvDefault("DB_PORT", "3306"),
		DBName:        os.Getenv("DB_NAME"),
		JWTSecret:     must("JWT_SECRET"),
		HoldWindow:    time.Duration(envIntDefault("HOLD_WINDOW_MIN", 30)) * time.Minute,
		SweepInterval: time.Duration(envIntDefault("SWEEP_INTERVAL_SEC", 45)) * time.Second,
		GatewayMode:   getenvDefault("GATEWAY_MODE", "accept"),
	}
}

// UseDatabase reports whether MySQL-backed stores should be used.
func (c Config) UseDatabase() bool { return c.DBHost != "" }

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// getenvDefault returns the variable's value or a fallback when unset.
func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envIntDefault parses an integer variable, falling back on parse failure.
func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("config: invalid int for %s: %q (using %d)", key, v, def)
		return def
	}
	return n
}
