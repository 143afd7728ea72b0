package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/GKaszewski/k-core/pkg/dotdir"
)

// EnvPrefix prefixes every environment override, e.g. KCORE_DATABASE_URL.
const EnvPrefix = "KCORE"

// InitViper creates a configured *viper.Viper.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (KCORE_DATABASE_URL, KCORE_BROKER_URL, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()
	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	target, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}
	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper materialises the effective Config from v.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Database: DatabaseConfig{
			URL:            v.GetString("database.url"),
			MaxConnections: v.GetUint32("database.max_connections"),
			MinConnections: v.GetUint32("database.min_connections"),
			AcquireTimeout: v.GetString("database.acquire_timeout"),
			StrictScheme:   v.GetBool("database.strict_scheme"),
		},
		Session: SessionConfig{
			Table:           v.GetString("session.table"),
			Expiry:          v.GetString("session.expiry"),
			CleanupInterval: v.GetString("session.cleanup_interval"),
			CookieSecure:    v.GetBool("session.cookie_secure"),
		},
		Broker: BrokerConfig{
			URL:        v.GetString("broker.url"),
			ClientName: v.GetString("broker.client_name"),
			GroupID:    v.GetString("broker.group_id"),
		},
		Vector: VectorConfig{
			Provider:   v.GetString("vector.provider"),
			Target:     v.GetString("vector.target"),
			Collection: v.GetString("vector.collection"),
		},
		Embedding: EmbeddingConfig{
			Provider:   v.GetString("embedding.provider"),
			Target:     v.GetString("embedding.target"),
			Model:      v.GetString("embedding.model"),
			Dimensions: v.GetUint("embedding.dimensions"),
			Workers:    v.GetUint("embedding.workers"),
		},
		Server: ServerConfig{
			Listen:      v.GetString("server.listen"),
			CORSOrigins: stringList(v, "server.cors_origins"),
		},
		Log: LogConfig{
			Debug:  v.GetBool("log.debug"),
			JSON:   v.GetBool("log.json"),
			Pretty: v.GetBool("log.pretty"),
			File:   v.GetString("log.file"),
		},
	}
}

// stringList accepts both a TOML array and a comma separated env value.
func stringList(v *viper.Viper, key string) []string {
	var out []string
	for _, s := range v.GetStringSlice(key) {
		out = append(out, splitList(s)...)
	}
	return out
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("database.url", d.Database.URL)
	v.SetDefault("database.max_connections", d.Database.MaxConnections)
	v.SetDefault("database.min_connections", d.Database.MinConnections)
	v.SetDefault("database.acquire_timeout", d.Database.AcquireTimeout)
	v.SetDefault("database.strict_scheme", d.Database.StrictScheme)

	v.SetDefault("session.table", d.Session.Table)
	v.SetDefault("session.expiry", d.Session.Expiry)
	v.SetDefault("session.cleanup_interval", d.Session.CleanupInterval)
	v.SetDefault("session.cookie_secure", d.Session.CookieSecure)

	v.SetDefault("broker.url", d.Broker.URL)
	v.SetDefault("broker.client_name", d.Broker.ClientName)
	v.SetDefault("broker.group_id", d.Broker.GroupID)

	v.SetDefault("vector.provider", d.Vector.Provider)
	v.SetDefault("vector.target", d.Vector.Target)
	v.SetDefault("vector.collection", d.Vector.Collection)

	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("embedding.workers", d.Embedding.Workers)

	v.SetDefault("server.listen", d.Server.Listen)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)

	v.SetDefault("log.debug", d.Log.Debug)
	v.SetDefault("log.json", d.Log.JSON)
	v.SetDefault("log.pretty", d.Log.Pretty)
	v.SetDefault("log.file", d.Log.File)
}
