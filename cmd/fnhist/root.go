package main

import (
	"fmt"

	"github.com/4thel00z/fnhist/internal"
	"github.com/spf13/cobra"
)

func NewRootCmd(version string, a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "fnhist",
		Short:         "Trace the history of a function through git",
		Long:          `Walk the commits of a git repository and show every version of a function, method or procedure.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	addPersistentFlags(rootCmd)
	setHelpWithExternals(rootCmd)

	if a != nil {
		addSubcommands(rootCmd, a)
	}

	return rootCmd
}

func addPersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringP("repo", "C", "", "Repository directory (default: current directory)")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	cmd.PersistentFlags().String("log-level", "", "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().String("log-format", "", "Log format (text|json)")
	cmd.PersistentFlags().String("priority", "", "Worker priority (serial|interactive)")
}

func addSubcommands(root *cobra.Command, a *app) {
	root.AddCommand(
		NewSearchCmd(a),
		NewFunctionsCmd(a),
		NewFilesCmd(a),
		NewCommitsCmd(a),
		NewWatchCmd(a),
		NewConfigCmd(a),
	)
}

func setHelpWithExternals(cmd *cobra.Command) {
	defaultHelp := cmd.HelpFunc()

	cmd.SetHelpFunc(func(c *cobra.Command, args []string) {
		defaultHelp(c, args)
		printExternalCommands(c)
	})
}

func printExternalCommands(cmd *cobra.Command) {
	externals := listExternalCommands()
	if len(externals) == 0 {
		return
	}

	fmt.Fprintln(cmd.OutOrStdout(), "\nExternal commands (fnhist-*):")
	for _, name := range externals {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", name)
	}
}

// session opens the repository selected by --repo with the effective
// configuration. The caller closes it.
func (a *app) session(cmd *cobra.Command) (*internal.Session, error) {
	cfg, _, err := a.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	dir, _ := cmd.Flags().GetString("repo")
	logger := internal.NewLogger(cfg.Log)
	logger.SetOutput(cmd.ErrOrStderr())

	s, err := internal.OpenSession(dir, cfg, logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// run executes one command through the session worker.
func (a *app) run(cmd *cobra.Command, c internal.Command, onStatus func(internal.Status)) (*internal.CommandResult, error) {
	s, err := a.session(cmd)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.Run(cmd.Context(), c, onStatus)
}
