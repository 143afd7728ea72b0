package configcmder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GKaszewski/k-core/pkg/cliui"
	"github.com/GKaszewski/k-core/pkg/config"
)

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value in config.toml.

Examples:
  kcore config set broker.url nats://localhost:4222
  kcore config set server.cors_origins https://app.example.com,https://admin.example.com`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString(config.FlagConfigDir)
			return runSet(cmd, args[0], args[1], configDir)
		},
		ValidArgsFunction: completeKeys,
	}
}

func runSet(cmd *cobra.Command, key, value, configDir string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfger.GetTarget() == "" {
		return errors.New("no .kcore directory found: run 'kcore init' or pass --config-dir")
	}

	if err := cfger.SetConfigValue(key, value); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "  %s %s = %s\n", cliui.SuccessMark, key, value)
	return nil
}
