package main

import (
	"fmt"

	"github.com/4thel00z/fnhist/internal"
	"github.com/spf13/cobra"
)

func NewCommitsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "commits",
		Aliases: []string{"log"},
		Short:   "List commits",
		Long:    `List the commits reachable from a ref in topological order, honouring commit filters such as author:, since: or hash:.`,
		Args:    cobra.NoArgs,
		RunE:    makeCommitsRunner(a),
	}

	cmd.Flags().String("ref", "", "List commits reachable from this ref instead of HEAD")
	cmd.Flags().IntP("number", "n", 0, "Limit number of commits scanned")
	cmd.Flags().StringP("direction", "d", "", "oldest-first or newest-first")
	cmd.Flags().StringArrayP("filter", "f", nil, "Filter expression (repeatable)")
	cmd.Flags().Bool("oneline", false, "Show each commit on one line")
	return cmd
}

func makeCommitsRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ref, _ := cmd.Flags().GetString("ref")
		limit, _ := cmd.Flags().GetInt("number")
		direction, _ := cmd.Flags().GetString("direction")
		exprs, _ := cmd.Flags().GetStringArray("filter")
		oneline, _ := cmd.Flags().GetBool("oneline")
		asJSON, _ := cmd.Flags().GetBool("json")

		filter, err := internal.ParseFilters(exprs)
		if err != nil {
			return err
		}
		c := internal.Command{Kind: internal.ListCommits, Ref: ref, Limit: limit, Filter: filter}
		if direction != "" {
			if c.Direction, err = internal.ParseDirection(direction); err != nil {
				return err
			}
		}

		res, err := a.run(cmd, c, nil)
		if err != nil {
			return err
		}

		if asJSON {
			return writeJSON(cmd, res.Commits)
		}
		printCommits(cmd.OutOrStdout(), res.Commits, oneline)
		if res.Truncated {
			fmt.Fprintln(cmd.ErrOrStderr(), "(commit limit reached, remaining commits not scanned)")
		}
		return nil
	}
}
