package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"climate-platform/internal/analytics"
	"climate-platform/pkg/database"
	"climate-platform/pkg/logging"
)

// Config holds the application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	Query    QueryConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string
	Format string
}

// QueryConfig controls how the trailing window is anchored.
// WindowAnchor "fixed" is kept for compatibility with frozen dataset snapshots.
type QueryConfig struct {
	WindowAnchor   string
	WindowFixedEnd string
}

// LoadConfig loads configuration from the environment.
// A .env file in the working directory is loaded first when present.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	var errs []string
	env := envReader{errs: &errs}

	cfg := &Config{
		Server: ServerConfig{
			Host:           env.String("SERVER_HOST", "0.0.0.0"),
			Port:           env.Int("SERVER_PORT", 8080),
			ReadTimeout:    env.Duration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   env.Duration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    env.Duration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			AllowedOrigins: env.List("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Driver:          env.String("DB_DRIVER", database.DriverPostgres),
			Host:            env.String("DB_HOST", "localhost"),
			Port:            env.Int("DB_PORT", 5432),
			User:            env.String("DB_USER", "postgres"),
			Password:        env.String("DB_PASSWORD", ""),
			Database:        env.String("DB_NAME", "climate"),
			SSLMode:         env.String("DB_SSLMODE", "disable"),
			SQLitePath:      env.String("SQLITE_PATH", "data/hawaii.sqlite"),
			MaxOpenConns:    env.Int("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    env.Int("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: env.Duration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: env.Duration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Logging: LoggingConfig{
			Level:  strings.ToLower(env.String("LOG_LEVEL", "info")),
			Format: strings.ToLower(env.String("LOG_FORMAT", string(logging.FormatJSON))),
		},
		Query: QueryConfig{
			WindowAnchor:   strings.ToLower(env.String("WINDOW_ANCHOR", string(analytics.AnchorLatest))),
			WindowFixedEnd: env.String("WINDOW_FIXED_END", ""),
		},
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT %d out of range", c.Server.Port)
	}

	switch c.Database.Driver {
	case database.DriverPostgres:
		if c.Database.Host == "" || c.Database.Database == "" {
			return fmt.Errorf("DB_HOST and DB_NAME are required for driver %s", c.Database.Driver)
		}
	case database.DriverSQLite:
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for driver %s", c.Database.Driver)
		}
	default:
		return fmt.Errorf("invalid DB_DRIVER %q (allowed: %s, %s)", c.Database.Driver, database.DriverPostgres, database.DriverSQLite)
	}

	if c.Database.MaxOpenConns < 0 || c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS and DB_MAX_IDLE_CONNS must not be negative")
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}

	switch logging.Format(c.Logging.Format) {
	case logging.FormatJSON, logging.FormatConsole:
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q (allowed: json, console)", c.Logging.Format)
	}

	mode, err := analytics.ParseAnchorMode(c.Query.WindowAnchor)
	if err != nil {
		return err
	}
	if mode == analytics.AnchorFixed && !analytics.IsValidDate(c.Query.WindowFixedEnd) {
		return fmt.Errorf("WINDOW_FIXED_END %q must be a YYYY-MM-DD date when WINDOW_ANCHOR=fixed", c.Query.WindowFixedEnd)
	}

	return nil
}

// DatabaseSettings converts the database section for pkg/database
func (c *Config) DatabaseSettings() *database.Config {
	return &database.Config{
		Driver:          c.Database.Driver,
		Host:            c.Database.Host,
		Port:            c.Database.Port,
		User:            c.Database.User,
		Password:        c.Database.Password,
		Database:        c.Database.Database,
		SSLMode:         c.Database.SSLMode,
		Path:            c.Database.SQLitePath,
		MaxOpenConns:    c.Database.MaxOpenConns,
		MaxIdleConns:    c.Database.MaxIdleConns,
		ConnMaxLifetime: c.Database.ConnMaxLifetime,
		ConnMaxIdleTime: c.Database.ConnMaxIdleTime,
	}
}

// ReadOnlyDatabaseSettings is DatabaseSettings for processes that only query
// the dataset. A SQLite file must already exist and is opened with mode=ro.
func (c *Config) ReadOnlyDatabaseSettings() *database.Config {
	settings := c.DatabaseSettings()
	settings.ReadOnly = true
	return settings
}

// NewLogger builds the logger described by the logging section.
// Call after Validate.
func (c *Config) NewLogger(service, version string) *logging.StructuredLogger {
	level, _ := logging.ParseLevel(c.Logging.Level)
	return logging.New(os.Stdout, logging.Format(c.Logging.Format), service, version, level)
}

// NewWindowResolver builds the trailing-window resolver for the query section.
// Call after Validate.
func (c *Config) NewWindowResolver(source analytics.MaxDateSource) (*analytics.WindowResolver, error) {
	mode, err := analytics.ParseAnchorMode(c.Query.WindowAnchor)
	if err != nil {
		return nil, err
	}
	if mode == analytics.AnchorFixed {
		return analytics.NewFixedWindowResolver(c.Query.WindowFixedEnd)
	}
	return analytics.NewLatestWindowResolver(source), nil
}

// envReader reads typed values and collects parse errors
type envReader struct {
	errs *[]string
}

func (e envReader) String(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (e envReader) Int(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*e.errs = append(*e.errs, fmt.Sprintf("%s=%q is not an integer", key, raw))
		return def
	}
	return v
}

func (e envReader) Duration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		*e.errs = append(*e.errs, fmt.Sprintf("%s=%q is not a duration", key, raw))
		return def
	}
	return v
}

func (e envReader) List(key string, def []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
