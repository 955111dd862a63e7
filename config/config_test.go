package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/worktime/config"
)

var keys = []string{
	"PORT", "STORE_BACKEND", "SQLITE_PATH", "SPREADSHEET_ID", "GOOGLE_CREDENTIALS",
	"TIMEZONE", "ADMIN_ID", "LOG_LEVEL", "LOG_JSON", "RECONCILE_INTERVAL",
	"REQUEST_TIMEOUT", "ALLOWED_ORIGINS",
}

// unsetAll clears every variable Load reads; t.Setenv restores them after
// the test.
func unsetAll(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadDefaults(t *testing.T) {
	unsetAll(t)

	cfg := config.Load()
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, config.BackendSQLite, cfg.StoreBackend)
	assert.Equal(t, "worktime.db", cfg.SQLitePath)
	assert.Equal(t, "Europe/Dublin", cfg.Timezone)
	assert.Equal(t, "ADMIN", cfg.AdminID)
	assert.Equal(t, time.Hour, cfg.ReconcileInterval)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Empty(t, cfg.AllowedOrigins)
	assert.False(t, cfg.LogJSON)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	unsetAll(t)
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_BACKEND", "GSheets")
	t.Setenv("SPREADSHEET_ID", "sheet-123")
	t.Setenv("GOOGLE_CREDENTIALS", "/etc/worktime/key.json")
	t.Setenv("LOG_JSON", "true")
	t.Setenv("RECONCILE_INTERVAL", "0")
	t.Setenv("REQUEST_TIMEOUT", "45")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example, ,http://b.example")

	cfg := config.Load()
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, config.BackendGSheets, cfg.StoreBackend)
	assert.Equal(t, "sheet-123", cfg.SpreadsheetID)
	assert.True(t, cfg.LogJSON)
	assert.Equal(t, time.Duration(0), cfg.ReconcileInterval)
	assert.Equal(t, 45*time.Second, cfg.RequestTimeout)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.AllowedOrigins)
	assert.NoError(t, cfg.Validate())
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	unsetAll(t)
	t.Setenv("PORT", "eighty")
	t.Setenv("RECONCILE_INTERVAL", "soon")

	cfg := config.Load()
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, time.Hour, cfg.ReconcileInterval)
}

func TestValidate(t *testing.T) {
	valid := func() *config.Config {
		return &config.Config{Port: 8080, StoreBackend: config.BackendMemory, AdminID: "ADMIN"}
	}

	cases := []struct {
		name   string
		mutate func(c *config.Config)
	}{
		{"port", func(c *config.Config) { c.Port = 0 }},
		{"backend", func(c *config.Config) { c.StoreBackend = "postgres" }},
		{"sqlite path", func(c *config.Config) { c.StoreBackend = config.BackendSQLite }},
		{"spreadsheet", func(c *config.Config) { c.StoreBackend = config.BackendGSheets; c.CredentialsFile = "k.json" }},
		{"credentials", func(c *config.Config) { c.StoreBackend = config.BackendGSheets; c.SpreadsheetID = "s" }},
		{"admin", func(c *config.Config) { c.AdminID = "" }},
		{"interval", func(c *config.Config) { c.ReconcileInterval = -time.Second }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := valid()
			require.NoError(t, c.Validate())
			tc.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestConfigureLogging(t *testing.T) {
	defer logrus.SetLevel(logrus.GetLevel())

	(&config.Config{LogLevel: "debug"}).ConfigureLogging()
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())

	(&config.Config{LogLevel: "loud"}).ConfigureLogging()
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
}
