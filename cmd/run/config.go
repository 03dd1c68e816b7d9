package run

import (
	"fmt"
	"time"
)

type HTTPConfig struct {
	Addr               string
	CORSAllowedOrigins []string
}

type AuthnConfig struct {
	// JWTSecret signs and verifies the HS256 bearer tokens issued by
	// the surrounding application.
	JWTSecret string
}

type DatastoreConfig struct {
	// Engine is one of "sqlite" or "postgres".
	Engine string

	URI string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	// Format is either "text" or "json".
	Format string

	// Level is one of "none", "debug", "info", "warn", "error",
	// "panic", "fatal".
	Level string
}

type MetricsConfig struct {
	Enabled bool
	Addr    string
}

// Config is the run command's complete configuration, populated from
// flags, GALLERIA_ environment variables or config.yaml.
type Config struct {
	HTTP      HTTPConfig
	Authn     AuthnConfig
	Datastore DatastoreConfig
	Log       LogConfig
	Metrics   MetricsConfig
}

// Verify validates the parts of the configuration that have no usable
// default.
func (cfg *Config) Verify() error {
	switch cfg.Datastore.Engine {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("storage engine '%s' is unsupported", cfg.Datastore.Engine)
	}

	if cfg.Datastore.URI == "" {
		return fmt.Errorf("a datastore uri is required")
	}

	if cfg.Authn.JWTSecret == "" {
		return fmt.Errorf("an authn jwt secret is required")
	}

	return nil
}

// DefaultConfig returns the run command's defaults. SQLite needs no
// external service, so it is the default engine.
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:               "0.0.0.0:8080",
			CORSAllowedOrigins: []string{"*"},
		},
		Datastore: DatastoreConfig{
			Engine:          "sqlite",
			URI:             "file:galleria.db",
			MaxOpenConns:    30,
			MaxIdleConns:    10,
			ConnMaxIdleTime: 30 * time.Second,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Log: LogConfig{
			Format: "text",
			Level:  "info",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    "0.0.0.0:2112",
		},
	}
}
