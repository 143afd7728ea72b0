package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GKaszewski/k-core/pkg/cliui"
	"github.com/GKaszewski/k-core/pkg/config"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString(config.FlagConfigDir)
			return runList(cmd, configDir)
		},
	}
}

func runList(cmd *cobra.Command, configDir string) error {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	out := cmd.OutOrStdout()
	if target := cfger.GetTarget(); target != "" {
		fmt.Fprintf(out, "Using config file: %s\n\n", target)
	} else {
		fmt.Fprint(out, "No config file found. Using defaults.\n\n")
	}

	keys := config.ValidConfigKeys()
	pairs := make([]cliui.Pair, 0, len(keys))
	for _, key := range keys {
		value, err := cfger.GetConfigValue(key)
		if err != nil {
			return err
		}
		pairs = append(pairs, cliui.Pair{Key: key, Value: value})
	}

	fmt.Fprint(out, cliui.KeyValues(pairs))
	return nil
}
