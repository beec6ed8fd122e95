package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/4thel00z/fnhist/internal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const envPrefix = "FNHIST"

// flagKeys maps persistent flags onto config keys.
var flagKeys = map[string]string{
	"log-level":  "log.level",
	"log-format": "log.format",
	"priority":   "worker.priority",
}

// loadConfig reads the nearest config file and overlays FNHIST_* variables
// and flags on top of it. FNHIST_HISTORY_MAX_COMMITS sets history.max_commits.
func (a *app) loadConfig(cmd *cobra.Command) (*internal.Config, internal.Scope, error) {
	dir, _ := cmd.Flags().GetString("repo")
	cfg, scope, err := internal.LoadCascade(a.resolver.Cascade(dir))
	if err != nil {
		return nil, scope, err
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("history.direction", cfg.History.Direction)
	v.SetDefault("history.max_commits", cfg.History.MaxCommits)
	v.SetDefault("history.ref", cfg.History.Ref)
	v.SetDefault("history.keep_duplicates", cfg.History.KeepDuplicates)
	v.SetDefault("worker.queue_size", cfg.Worker.QueueSize)
	v.SetDefault("worker.priority", cfg.Worker.Priority)
	v.SetDefault("languages", cfg.Languages)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)

	for flag, key := range flagKeys {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, scope, fmt.Errorf("bind flag %s: %w", flag, err)
			}
		}
	}

	out := &internal.Config{}
	if err := v.Unmarshal(out); err != nil {
		return nil, scope, fmt.Errorf("unmarshal config: %w", err)
	}
	if _, err := out.Validate(); err != nil {
		return nil, scope, err
	}
	return out, scope, nil
}

func NewConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `Create or inspect the project (.fnhist.yaml) and global (~/.fnhist/config.yaml) configuration.`,
	}
	cmd.AddCommand(newConfigInitCmd(a), newConfigShowCmd(a))
	return cmd
}

func newConfigInitCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE:  makeConfigInitRunner(a),
	}
	cmd.Flags().Bool("global", false, "Write the global config instead of the project one")
	cmd.Flags().Bool("force", false, "Overwrite an existing config file")
	return cmd
}

func makeConfigInitRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		isGlobal, _ := cmd.Flags().GetBool("global")
		force, _ := cmd.Flags().GetBool("force")
		dir, _ := cmd.Flags().GetString("repo")

		scope := a.resolver.Global()
		if !isGlobal {
			project, ok := a.resolver.Project(dir)
			if !ok {
				return fmt.Errorf("%w: no repository at %s; use --global", internal.ErrRepositoryOpen, displayDir(dir))
			}
			scope = project
		}

		path := scope.ConfigPath()
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("config already exists at %s", path)
		}
		if err := internal.SaveConfig(scope, internal.DefaultConfig()); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	}
}

func newConfigShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, scope, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return writeJSON(cmd, map[string]any{"source": scope.ConfigPath(), "config": cfg})
			}

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", scope.ConfigPath(), data)
			return nil
		},
	}
}

func displayDir(dir string) string {
	if dir == "" {
		return "."
	}
	return dir
}
