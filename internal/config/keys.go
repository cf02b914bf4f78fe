package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.host", typ: kString, env: "INTAKE_SERVER_HOST",
		apply:   func(cfg *Config, v any) { cfg.Server.Host = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Host },
	},
	{
		key: "server.api_port", typ: kInt, env: "INTAKE_SERVER_API_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.APIPort = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.APIPort },
	},
	{
		key: "server.site_port", typ: kInt, env: "INTAKE_SERVER_SITE_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.SitePort = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.SitePort },
	},
	{
		key: "server.max_conns", typ: kInt, env: "INTAKE_SERVER_MAX_CONNS",
		apply:   func(cfg *Config, v any) { cfg.Server.MaxConns = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.MaxConns },
	},
	{
		key: "server.static_dir", typ: kString, env: "INTAKE_SERVER_STATIC_DIR",
		apply:   func(cfg *Config, v any) { cfg.Server.StaticDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.StaticDir },
	},
	{
		key: "storage.data_dir", typ: kString, env: "INTAKE_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "storage.backend", typ: kString, env: "INTAKE_STORAGE_BACKEND",
		apply:   func(cfg *Config, v any) { cfg.Storage.Backend = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.Backend },
	},
	{
		key: "storage.queue_depth", typ: kInt, env: "INTAKE_STORAGE_QUEUE_DEPTH",
		apply:   func(cfg *Config, v any) { cfg.Storage.QueueDepth = v.(int) },
		extract: func(cfg Config) any { return cfg.Storage.QueueDepth },
	},
	{
		key: "export.locale", typ: kString, env: "INTAKE_EXPORT_LOCALE",
		apply:   func(cfg *Config, v any) { cfg.Export.Locale = v.(string) },
		extract: func(cfg Config) any { return cfg.Export.Locale },
	},
	{
		key: "export.timezone", typ: kString, env: "INTAKE_EXPORT_TIMEZONE",
		apply:   func(cfg *Config, v any) { cfg.Export.Timezone = v.(string) },
		extract: func(cfg Config) any { return cfg.Export.Timezone },
	},
	{
		key: "log.level", typ: kString, env: "INTAKE_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "log.format", typ: kString, env: "INTAKE_LOG_FORMAT",
		apply:   func(cfg *Config, v any) { cfg.Log.Format = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Format },
	},
	{
		key: "metrics.enabled", typ: kBool, env: "INTAKE_METRICS_ENABLED",
		apply:   func(cfg *Config, v any) { cfg.Metrics.Enabled = v.(bool) },
		extract: func(cfg Config) any { return cfg.Metrics.Enabled },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kBool:
			v, ok, err := b.GetBool(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				slog.Warn("ignoring invalid integer env override", "env", s.env, "value", raw, "error", err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				slog.Warn("ignoring invalid boolean env override", "env", s.env, "value", raw, "error", err)
			}
		}
	}
}
