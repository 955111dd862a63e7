/*
config.go - Runtime configuration

PURPOSE:
  Reads server settings from the environment, after loading a .env file
  when one is present. Command-line flags in cmd/server override these.

VARIABLES:
  PORT                 HTTP port (default 8080)
  STORE_BACKEND        memory, sqlite or gsheets (default sqlite)
  SQLITE_PATH          SQLite file (default worktime.db)
  SPREADSHEET_ID       Google spreadsheet id, gsheets backend only
  GOOGLE_CREDENTIALS   Service-account key file, gsheets backend only
  TIMEZONE             IANA zone for "today" (default Europe/Dublin)
  ADMIN_ID             Employee id with the admin role (default ADMIN)
  LOG_LEVEL            logrus level (default info)
  LOG_JSON             JSON log output (default false)
  RECONCILE_INTERVAL   Scheduler interval, 0 disables (default 1h)
  REQUEST_TIMEOUT      Per-request timeout (default 30s)
  ALLOWED_ORIGINS      Comma-separated CORS origins (default none)
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/warp/worktime/calendar"
)

// Store backends.
const (
	BackendMemory  = "memory"
	BackendSQLite  = "sqlite"
	BackendGSheets = "gsheets"
)

type Config struct {
	Port              int
	StoreBackend      string
	SQLitePath        string
	SpreadsheetID     string
	CredentialsFile   string
	Timezone          string
	AdminID           string
	LogLevel          string
	LogJSON           bool
	ReconcileInterval time.Duration
	RequestTimeout    time.Duration
	AllowedOrigins    []string
}

// Load reads the configuration. A missing .env file is not an error.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.Warnf("error loading .env file: %s", err.Error())
	}

	return &Config{
		Port:              getEnvAsInt("PORT", 8080),
		StoreBackend:      strings.ToLower(getEnv("STORE_BACKEND", BackendSQLite)),
		SQLitePath:        getEnv("SQLITE_PATH", "worktime.db"),
		SpreadsheetID:     getEnv("SPREADSHEET_ID", ""),
		CredentialsFile:   getEnv("GOOGLE_CREDENTIALS", ""),
		Timezone:          getEnv("TIMEZONE", calendar.DefaultZone),
		AdminID:           getEnv("ADMIN_ID", "ADMIN"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogJSON:           getEnvAsBool("LOG_JSON", false),
		ReconcileInterval: getEnvAsDuration("RECONCILE_INTERVAL", time.Hour),
		RequestTimeout:    getEnvAsDuration("REQUEST_TIMEOUT", 30*time.Second),
		AllowedOrigins:    getEnvAsList("ALLOWED_ORIGINS"),
	}
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	switch c.StoreBackend {
	case BackendMemory:
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite backend")
		}
	case BackendGSheets:
		if c.SpreadsheetID == "" {
			return fmt.Errorf("SPREADSHEET_ID is required for the gsheets backend")
		}
		if c.CredentialsFile == "" {
			return fmt.Errorf("GOOGLE_CREDENTIALS is required for the gsheets backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}
	if c.AdminID == "" {
		return fmt.Errorf("ADMIN_ID must not be empty")
	}
	if c.ReconcileInterval < 0 {
		return fmt.Errorf("RECONCILE_INTERVAL must not be negative")
	}
	return nil
}

// ConfigureLogging applies LogLevel and LogJSON to the standard logrus
// logger. An unknown level falls back to info.
func (c *Config) ConfigureLogging() {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		logrus.Warnf("unknown log level %q, using info", c.LogLevel)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	if c.LogJSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

func getEnv(key string, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultVal
}

func getEnvAsBool(name string, defaultVal bool) bool {
	valStr := getEnv(name, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}

	return defaultVal
}

func getEnvAsInt(name string, defaultVal int) int {
	valStr := getEnv(name, "")
	if val, err := strconv.Atoi(valStr); err == nil {
		return val
	}

	return defaultVal
}

// getEnvAsDuration accepts Go durations ("90m") or a bare number of seconds.
func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	valStr := getEnv(name, "")
	if valStr == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(valStr); err == nil {
		return d
	}
	if n, err := strconv.Atoi(valStr); err == nil {
		return time.Duration(n) * time.Second
	}
	logrus.Warnf("invalid duration %s=%q, using %s", name, valStr, defaultVal)
	return defaultVal
}

func getEnvAsList(name string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(name, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
