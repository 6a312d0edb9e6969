package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"climate-platform/internal/analytics"
)

var configKeys = []string{
	"SERVER_HOST", "SERVER_PORT", "SERVER_READ_TIMEOUT", "SERVER_WRITE_TIMEOUT", "SERVER_IDLE_TIMEOUT",
	"CORS_ALLOWED_ORIGINS", "DB_DRIVER", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME",
	"DB_SSLMODE", "SQLITE_PATH", "DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS", "DB_CONN_MAX_LIFETIME",
	"DB_CONN_MAX_IDLE_TIME", "LOG_LEVEL", "LOG_FORMAT", "WINDOW_ANCHOR", "WINDOW_FIXED_END",
}

// clearEnv blanks every key so values from the host or a .env file do not leak in
func clearEnv(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Port != 8080 || cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("server = %+v", cfg.Server)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "*" {
		t.Errorf("AllowedOrigins = %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Database.Driver != "postgres" || cfg.Database.Port != 5432 {
		t.Errorf("database = %+v", cfg.Database)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if cfg.Query.WindowAnchor != "latest" {
		t.Errorf("WindowAnchor = %q", cfg.Query.WindowAnchor)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_WRITE_TIMEOUT", "3s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173, https://climate.example.org")
	t.Setenv("DB_DRIVER", "sqlite3")
	t.Setenv("SQLITE_PATH", "/data/hawaii.sqlite")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("WINDOW_ANCHOR", "fixed")
	t.Setenv("WINDOW_FIXED_END", "2017-08-23")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if cfg.Server.Port != 9090 || cfg.Server.WriteTimeout != 3*time.Second {
		t.Errorf("server = %+v", cfg.Server)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "https://climate.example.org" {
		t.Errorf("AllowedOrigins = %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q", cfg.Logging.Level)
	}

	dbCfg := cfg.DatabaseSettings()
	if dbCfg.Driver != "sqlite3" || dbCfg.Path != "/data/hawaii.sqlite" {
		t.Errorf("DatabaseSettings() = %+v", dbCfg)
	}
	if dbCfg.ReadOnly {
		t.Error("DatabaseSettings() must allow writes for migrate and ingest")
	}
	if ro := cfg.ReadOnlyDatabaseSettings(); !ro.ReadOnly || ro.Path != dbCfg.Path {
		t.Errorf("ReadOnlyDatabaseSettings() = %+v", ro)
	}

	resolver, err := cfg.NewWindowResolver(nil)
	if err != nil {
		t.Fatalf("NewWindowResolver() error = %v", err)
	}
	if resolver.Mode() != analytics.AnchorFixed {
		t.Errorf("Mode() = %v, want fixed", resolver.Mode())
	}
}

func TestLoadConfig_ParseErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_PORT", "eighty")
	t.Setenv("DB_CONN_MAX_LIFETIME", "forever")

	_, err := LoadConfig()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, key := range []string{"SERVER_PORT", "DB_CONN_MAX_LIFETIME"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error %q does not mention %s", err, key)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, "SERVER_PORT"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, "DB_DRIVER"},
		{"sqlite without path", func(c *Config) { c.Database.Driver = "sqlite3"; c.Database.SQLitePath = "" }, "SQLITE_PATH"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "log level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
		{"bad anchor", func(c *Config) { c.Query.WindowAnchor = "today" }, "window anchor"},
		{"fixed without date", func(c *Config) { c.Query.WindowAnchor = "fixed" }, "WINDOW_FIXED_END"},
		{"fixed with impossible date", func(c *Config) {
			c.Query.WindowAnchor = "fixed"
			c.Query.WindowFixedEnd = "2017-02-29"
		}, "WINDOW_FIXED_END"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			cfg, err := LoadConfig()
			if err != nil {
				t.Fatalf("LoadConfig() error = %v", err)
			}
			tt.mutate(cfg)

			err = cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
