// Package initcmder provides the init command for creating a .kcore/
// directory and seeding its config.toml from a preset.
package initcmder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/GKaszewski/k-core/pkg/cliui"
	"github.com/GKaszewski/k-core/pkg/config"
	"github.com/GKaszewski/k-core/pkg/dotdir"
)

const initLongDesc string = `Initialize a .kcore/ directory.

By default the directory is created in the current working directory, where
it takes precedence over ~/.kcore/. Pass --global to create ~/.kcore/ instead.

With --preset the directory is seeded with a config.toml for that deployment:
  dev      everything in process (sqlite in memory, memory broker, hash embeddings)
  local    a sqlite file and a local ollama
  cluster  postgres, nats, qdrant and ollama

An existing config.toml is never overwritten.

Examples:
  kcore init
  kcore init --preset cluster
  kcore init --global --preset local`

const initShortDesc string = "Initialize a .kcore/ directory"

type initCommander struct {
	preset string
	global bool
}

func NewInitCmd() *cobra.Command {
	ic := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString(config.FlagConfigDir)
			return ic.run(cmd, configDir)
		},
	}

	cmd.Flags().StringVar(&ic.preset, "preset", "", "Seed config.toml from a preset (dev, local, cluster)")
	cmd.Flags().BoolVar(&ic.global, "global", false, "Create ~/.kcore/ instead of ./.kcore/")
	_ = cmd.RegisterFlagCompletionFunc("preset", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return config.ValidPresetNames(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func (ic *initCommander) run(cmd *cobra.Command, configDir string) error {
	out := cmd.OutOrStdout()

	var preset *config.Config
	if ic.preset != "" {
		var err error
		preset, err = config.PresetConfig(ic.preset)
		if err != nil {
			return err
		}
	}

	dir, err := ic.directory(configDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "  %s kcore directory: %s\n", cliui.SuccessMark, dir)

	if preset == nil {
		return nil
	}

	path := filepath.Join(dir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(out, "  %s %s exists, leaving it untouched\n", cliui.WarnMark, path)
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking config: %w", err)
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfger.SaveConfig(preset); err != nil {
		return err
	}

	fmt.Fprintf(out, "  %s wrote %s preset to %s\n", cliui.SuccessMark, ic.preset, cfger.GetTarget())
	return nil
}

func (ic *initCommander) directory(configDir string) (string, error) {
	if configDir != "" {
		if err := os.MkdirAll(configDir, 0o755); err != nil {
			return "", fmt.Errorf("creating kcore directory: %w", err)
		}
		return filepath.Abs(configDir)
	}
	return dotdir.NewManager().Init(!ic.global)
}
