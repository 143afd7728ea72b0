// Package kcorecmder
package kcorecmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/GKaszewski/k-core/cmd/kcore/config"
	initcmder "github.com/GKaszewski/k-core/cmd/kcore/init"
	migratecmder "github.com/GKaszewski/k-core/cmd/kcore/migrate"
	resolvecmder "github.com/GKaszewski/k-core/cmd/kcore/resolve"
	servecmder "github.com/GKaszewski/k-core/cmd/kcore/serve"
	versioncmder "github.com/GKaszewski/k-core/cmd/version"
	"github.com/GKaszewski/k-core/pkg/config"
)

const kcoreLongDesc string = `kcore runs services on swappable infrastructure.

The database, session store, broker, embedder and vector index are each
picked from configuration: postgres or sqlite, memory, nats or kafka,
hash or ollama, in-memory or qdrant.

  kcore init           Create a .kcore/ directory with a config.toml
  kcore serve          Run the HTTP server
  kcore migrate        Create the session schema
  kcore resolve <url>  Show which backend a URL selects
  kcore config         Get, set and list configuration values`

const kcoreShortDesc string = "kcore - backend-agnostic infrastructure"

func NewKcoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "kcore",
		Short:         kcoreShortDesc,
		Long:          kcoreLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Global flags
	cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentFlags().String(config.FlagConfigDir, "", "Directory holding config.toml (default: ./.kcore or ~/.kcore)")

	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(migratecmder.NewMigrateCmd())
	cmd.AddCommand(resolvecmder.NewResolveCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
