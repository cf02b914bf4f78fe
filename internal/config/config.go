package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Export  ExportConfig
	Log     LogConfig
	Metrics MetricsConfig
}

type ServerConfig struct {
	Host      string
	APIPort   int
	SitePort  int
	MaxConns  int
	StaticDir string
}

type StorageConfig struct {
	DataDir    string
	Backend    string
	QueueDepth int
}

type ExportConfig struct {
	Locale   string
	Timezone string
}

type LogConfig struct {
	Level  string
	Format string
}

type MetricsConfig struct {
	Enabled bool
}

const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:      "0.0.0.0",
			APIPort:   3000,
			SitePort:  8080,
			StaticDir: ".",
		},
		Storage: StorageConfig{
			DataDir:    "data",
			Backend:    BackendJSON,
			QueueDepth: 64,
		},
		Export: ExportConfig{
			Locale:   "zh-CN",
			Timezone: "Local",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Load reads configuration from the platform-native backend and environment
// variables.
//
// On macOS the backend is UserDefaults (domain: com.intake.app).
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/intake/config.json.
//
// Environment variables (INTAKE_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch strings.ToLower(c.Storage.Backend) {
	case BackendJSON, BackendSQLite:
	default:
		return fmt.Errorf("invalid storage.backend %q: want %q or %q", c.Storage.Backend, BackendJSON, BackendSQLite)
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("missing required config: storage.data_dir")
	}
	if c.Storage.QueueDepth < 0 {
		return fmt.Errorf("invalid storage.queue_depth %d: must not be negative", c.Storage.QueueDepth)
	}
	return nil
}

// Port returns the listen port for a server, preferring the conventional
// PORT environment variable over configured when it holds a valid port.
func Port(configured int) int {
	raw := os.Getenv("PORT")
	if raw == "" {
		return configured
	}
	p, err := strconv.Atoi(raw)
	if err != nil || p <= 0 || p > 65535 {
		slog.Warn("ignoring invalid PORT", "value", raw, "port", configured)
		return configured
	}
	return p
}
