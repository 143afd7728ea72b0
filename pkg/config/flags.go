package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag. Commands reference
// flags by registry key so the same logical flag cannot drift between
// "kcore serve" and "kcore migrate".
type Flag struct {
	// Name is the long flag name (e.g. "database-url").
	Name string

	// Shorthand is the one-letter short flag. Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to.
	ViperKey string

	Description string
}

// FlagSet maps registry keys to flag definitions.
type FlagSet map[string]Flag

// Flag registry keys.
const (
	FlagDatabaseURL    = "database-url"
	FlagMaxConns       = "max-connections"
	FlagStrictScheme   = "strict-scheme"
	FlagSessionTable   = "session-table"
	FlagBrokerURL      = "broker-url"
	FlagVectorProv     = "vector-provider"
	FlagVectorTgt      = "vector-target"
	FlagEmbeddingProv  = "embedding-provider"
	FlagEmbeddingTgt   = "embedding-target"
	FlagEmbeddingModel = "embedding-model"
	FlagEmbeddingDims  = "embedding-dimensions"
	FlagEmbeddingWork  = "embedding-workers"
	FlagListen         = "listen"
)

// Flags is the registry shared by every kcore command.
var Flags = FlagSet{
	FlagDatabaseURL:    {Name: "database-url", Shorthand: "d", ViperKey: "database.url", Description: "Database URL (postgres://..., sqlite://path, sqlite::memory:)"},
	FlagMaxConns:       {Name: "max-connections", ViperKey: "database.max_connections", Description: "Maximum pooled database connections"},
	FlagStrictScheme:   {Name: "strict-scheme", ViperKey: "database.strict_scheme", Description: "Reject database URLs with an unrecognised scheme"},
	FlagSessionTable:   {Name: "session-table", ViperKey: "session.table", Description: "Table holding HTTP sessions"},
	FlagBrokerURL:      {Name: "broker-url", Shorthand: "b", ViperKey: "broker.url", Description: "Broker URL (memory://, nats://host:port, kafka://host:port)"},
	FlagVectorProv:     {Name: "vector-provider", ViperKey: "vector.provider", Description: "Vector index provider (inmemory, qdrant)"},
	FlagVectorTgt:      {Name: "vector-target", ViperKey: "vector.target", Description: "Vector index URL"},
	FlagEmbeddingProv:  {Name: "embedding-provider", ViperKey: "embedding.provider", Description: "Embedding provider (hash, ollama)"},
	FlagEmbeddingTgt:   {Name: "embedding-target", ViperKey: "embedding.target", Description: "Embedding provider URL"},
	FlagEmbeddingModel: {Name: "embedding-model", ViperKey: "embedding.model", Description: "Embedding model name"},
	FlagEmbeddingDims:  {Name: "embedding-dimensions", ViperKey: "embedding.dimensions", Description: "Embedding vector size"},
	FlagEmbeddingWork:  {Name: "embedding-workers", ViperKey: "embedding.workers", Description: "Embedding model instances"},
	FlagListen:         {Name: "listen", Shorthand: "l", ViperKey: "server.listen", Description: "HTTP listen address"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaults().GetString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, key string, target *uint) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaults().GetUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, key string, target *bool) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaults().GetBool(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().BoolVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().BoolVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper. Call it in
// PreRunE after InitViper so flags take part in the precedence chain.
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, keys []string) {
	for _, key := range keys {
		def, ok := fs[key]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

func defaults() *viper.Viper {
	v := viper.New()
	setViperDefaults(v)
	return v
}

// FlagConfigDir is the persistent root flag naming the .kcore/ directory.
const FlagConfigDir = "config-dir"

// Load resolves the effective Config for cmd: defaults, config.toml from
// --config-dir, KCORE_* env, then the registered flags named by keys.
func Load(cmd *cobra.Command, keys []string) (*Config, error) {
	configDir, _ := cmd.Flags().GetString(FlagConfigDir)

	v, err := InitViper(configDir)
	if err != nil {
		return nil, err
	}
	BindRegisteredFlags(v, cmd, Flags, keys)

	return FromViper(v), nil
}
