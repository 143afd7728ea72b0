package configcmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GKaszewski/k-core/pkg/cliui"
	"github.com/GKaszewski/k-core/pkg/config"
)

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Long: `Get a configuration value from config.toml, or its default.

Examples:
  kcore config get database.url`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString(config.FlagConfigDir)
			return runGet(cmd, args[0], configDir)
		},
		ValidArgsFunction: completeKeys,
	}
}

func runGet(cmd *cobra.Command, key, configDir string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	value, err := cfger.GetConfigValue(key)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), cliui.KeyValues([]cliui.Pair{{Key: key, Value: value}}))
	return nil
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}
