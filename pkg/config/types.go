package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config is the persistent k-core configuration stored as config.toml in the
// .kcore/ directory. Each TOML section configures one capability.
type Config struct {
	Version   int             `toml:"version"`
	Database  DatabaseConfig  `toml:"database"`
	Session   SessionConfig   `toml:"session"`
	Broker    BrokerConfig    `toml:"broker"`
	Vector    VectorConfig    `toml:"vector"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Server    ServerConfig    `toml:"server"`
	Log       LogConfig       `toml:"log"`
}

// DatabaseConfig is the connection descriptor for the shared pool.
type DatabaseConfig struct {
	URL            string `toml:"url,omitempty"`
	MaxConnections uint32 `toml:"max_connections,omitempty"`
	MinConnections uint32 `toml:"min_connections,omitempty"`

	// AcquireTimeout is a Go duration string, e.g. "30s".
	AcquireTimeout string `toml:"acquire_timeout,omitempty"`

	// StrictScheme rejects database urls that are neither postgres nor sqlite
	// instead of falling back to a sqlite file.
	StrictScheme bool `toml:"strict_scheme,omitempty"`
}

// SessionConfig holds the HTTP session settings.
type SessionConfig struct {
	Table           string `toml:"table,omitempty"`
	Expiry          string `toml:"expiry,omitempty"`
	CleanupInterval string `toml:"cleanup_interval,omitempty"`
	CookieSecure    bool   `toml:"cookie_secure,omitempty"`
}

// BrokerConfig holds message broker settings.
type BrokerConfig struct {
	URL        string `toml:"url,omitempty"`
	ClientName string `toml:"client_name,omitempty"`
	GroupID    string `toml:"group_id,omitempty"`
}

// VectorConfig holds vector index settings.
type VectorConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Collection string `toml:"collection,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`

	// Workers is the number of model instances. 1 serialises every call on a
	// single shared model.
	Workers uint `toml:"workers,omitempty"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Listen      string   `toml:"listen,omitempty"`
	CORSOrigins []string `toml:"cors_origins,omitempty"`
}

// LogConfig selects the log handler.
type LogConfig struct {
	Debug  bool `toml:"debug,omitempty"`
	JSON   bool `toml:"json,omitempty"`
	Pretty bool `toml:"pretty,omitempty"`

	// File, when set, also appends JSON records to this path.
	File string `toml:"file,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func boolKey(name string, field func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = b
			return nil
		},
	}
}

func uintKey(name string, bits int, get func(c *Config) uint64, set func(c *Config, n uint64)) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			n := get(c)
			if n == 0 {
				return ""
			}
			return strconv.FormatUint(n, 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, bits)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			set(c, n)
			return nil
		},
	}
}

func durationKey(name string, field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = v
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"database.url": stringKey(func(c *Config) *string { return &c.Database.URL }),
	"database.max_connections": uintKey("database.max_connections", 32,
		func(c *Config) uint64 { return uint64(c.Database.MaxConnections) },
		func(c *Config, n uint64) { c.Database.MaxConnections = uint32(n) }),
	"database.min_connections": uintKey("database.min_connections", 32,
		func(c *Config) uint64 { return uint64(c.Database.MinConnections) },
		func(c *Config, n uint64) { c.Database.MinConnections = uint32(n) }),
	"database.acquire_timeout": durationKey("database.acquire_timeout", func(c *Config) *string { return &c.Database.AcquireTimeout }),
	"database.strict_scheme":   boolKey("database.strict_scheme", func(c *Config) *bool { return &c.Database.StrictScheme }),

	"session.table":            stringKey(func(c *Config) *string { return &c.Session.Table }),
	"session.expiry":           durationKey("session.expiry", func(c *Config) *string { return &c.Session.Expiry }),
	"session.cleanup_interval": durationKey("session.cleanup_interval", func(c *Config) *string { return &c.Session.CleanupInterval }),
	"session.cookie_secure":    boolKey("session.cookie_secure", func(c *Config) *bool { return &c.Session.CookieSecure }),

	"broker.url":         stringKey(func(c *Config) *string { return &c.Broker.URL }),
	"broker.client_name": stringKey(func(c *Config) *string { return &c.Broker.ClientName }),
	"broker.group_id":    stringKey(func(c *Config) *string { return &c.Broker.GroupID }),

	"vector.provider":   stringKey(func(c *Config) *string { return &c.Vector.Provider }),
	"vector.target":     stringKey(func(c *Config) *string { return &c.Vector.Target }),
	"vector.collection": stringKey(func(c *Config) *string { return &c.Vector.Collection }),

	"embedding.provider": stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":   stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":    stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.dimensions": uintKey("embedding.dimensions", 64,
		func(c *Config) uint64 { return uint64(c.Embedding.Dimensions) },
		func(c *Config, n uint64) { c.Embedding.Dimensions = uint(n) }),
	"embedding.workers": uintKey("embedding.workers", 64,
		func(c *Config) uint64 { return uint64(c.Embedding.Workers) },
		func(c *Config, n uint64) { c.Embedding.Workers = uint(n) }),

	"server.listen": stringKey(func(c *Config) *string { return &c.Server.Listen }),
	"server.cors_origins": {
		get: func(c *Config) string { return strings.Join(c.Server.CORSOrigins, ",") },
		set: func(c *Config, v string) error {
			c.Server.CORSOrigins = splitList(v)
			return nil
		},
	},

	"log.debug":  boolKey("log.debug", func(c *Config) *bool { return &c.Log.Debug }),
	"log.json":   boolKey("log.json", func(c *Config) *bool { return &c.Log.JSON }),
	"log.pretty": boolKey("log.pretty", func(c *Config) *bool { return &c.Log.Pretty }),
	"log.file":   stringKey(func(c *Config) *string { return &c.Log.File }),
}

// orderedKeys follows the TOML section layout.
var orderedKeys = []string{
	"database.url",
	"database.max_connections",
	"database.min_connections",
	"database.acquire_timeout",
	"database.strict_scheme",
	"session.table",
	"session.expiry",
	"session.cleanup_interval",
	"session.cookie_secure",
	"broker.url",
	"broker.client_name",
	"broker.group_id",
	"vector.provider",
	"vector.target",
	"vector.collection",
	"embedding.provider",
	"embedding.target",
	"embedding.model",
	"embedding.dimensions",
	"embedding.workers",
	"server.listen",
	"server.cors_origins",
	"log.debug",
	"log.json",
	"log.pretty",
	"log.file",
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
