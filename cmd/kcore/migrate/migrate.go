// Package migratecmder provides the migrate command.
package migratecmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GKaszewski/k-core/pkg/cliui"
	"github.com/GKaszewski/k-core/pkg/config"
	"github.com/GKaszewski/k-core/pkg/handles"
	"github.com/GKaszewski/k-core/pkg/logger"
)

const migrateLongDesc string = `Create the session schema in the configured database.

Migration is idempotent: running it against an existing schema is a no-op.

Examples:
  kcore migrate
  kcore migrate --database-url sqlite://data/app.db --session-table web_sessions`

const migrateShortDesc string = "Create the session schema"

var migrateFlags = []string{config.FlagDatabaseURL, config.FlagStrictScheme, config.FlagSessionTable}

func NewMigrateCmd() *cobra.Command {
	var (
		url    string
		table  string
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: migrateShortDesc,
		Long:  migrateLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd, migrateFlags)
			if err != nil {
				return err
			}
			debug, _ := cmd.Flags().GetBool("debug")

			opts, logFile, err := cfg.Log.OpenLog(debug)
			if err != nil {
				return err
			}
			defer logFile.Close()

			log := logger.New(opts...)
			h, err := handles.OpenDatabase(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer h.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n  %s %s\n\n", cliui.KeyStyle.Render("Database:"), string(h.Pool.Kind()))
			return cliui.Step(out, "creating table "+cfg.Session.Table, func() error {
				return h.Sessions.Migrate(cmd.Context())
			})
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagDatabaseURL, &url)
	config.AddBoolFlag(cmd, config.Flags, config.FlagStrictScheme, &strict)
	config.AddStringFlag(cmd, config.Flags, config.FlagSessionTable, &table)

	return cmd
}
