package main

import (
	"fmt"

	"github.com/4thel00z/fnhist/internal"
	"github.com/4thel00z/fnhist/internal/languages"
	"github.com/spf13/cobra"
)

func NewSearchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <function>",
		Short: "Show every version of a function",
		Long: `Walk the commits of the repository and list each commit where the body
of the named function changed.

Filters are written as kind:value, e.g. author:alice, since:2024-01-01,
path:src/**/*.rs, parent:Stack or python:decorator=cache. Prefix a
filter with ! to negate it. All filters must hold.`,
		Args: cobra.ExactArgs(1),
		RunE: makeSearchRunner(a),
	}

	addQueryFlags(cmd)
	cmd.Flags().Bool("body", false, "Show each version's body in context")
	cmd.Flags().Bool("diff", false, "Show the diff between consecutive versions")
	cmd.Flags().Bool("meta", false, "Show a summary after the history")
	cmd.Flags().Bool("progress", false, "Report scan progress on stderr")
	return cmd
}

// addQueryFlags registers the flags shared by search and watch.
func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().String("file", "", "Search only this repository path")
	cmd.Flags().String("relative", "", "Search every file whose path ends with this")
	cmd.Flags().String("dir", "", "Search every file under this directory")
	cmd.Flags().StringP("lang", "l", "", "Language (rust|python|ruby|go|c|umpl)")
	cmd.Flags().String("parent", "", "Enclosing class, module, impl or function")
	cmd.Flags().StringArrayP("filter", "f", nil, "Filter expression (repeatable)")
	cmd.Flags().StringP("direction", "d", "", "oldest-first, newest-first or both")
	cmd.Flags().IntP("limit", "n", 0, "Stop after this many commits per direction")
	cmd.Flags().String("ref", "", "Start the walk at this ref instead of HEAD")
	cmd.Flags().Bool("keep-duplicates", false, "Keep consecutive identical versions")
}

func queryCommand(cmd *cobra.Command, name string) (internal.Command, error) {
	file, _ := cmd.Flags().GetString("file")
	relative, _ := cmd.Flags().GetString("relative")
	dir, _ := cmd.Flags().GetString("dir")
	lang, _ := cmd.Flags().GetString("lang")
	parent, _ := cmd.Flags().GetString("parent")
	exprs, _ := cmd.Flags().GetStringArray("filter")
	direction, _ := cmd.Flags().GetString("direction")
	limit, _ := cmd.Flags().GetInt("limit")
	ref, _ := cmd.Flags().GetString("ref")
	keep, _ := cmd.Flags().GetBool("keep-duplicates")

	c := internal.Command{
		Kind:           internal.SearchHistory,
		Function:       name,
		Parent:         parent,
		Limit:          limit,
		Ref:            ref,
		KeepDuplicates: keep,
	}

	target, err := targetFromFlags(file, relative, dir)
	if err != nil {
		return c, err
	}
	c.Target = target

	if c.Language, err = languages.FromString(lang); err != nil {
		return c, err
	}
	if c.Filter, err = internal.ParseFilters(exprs); err != nil {
		return c, err
	}
	if direction != "" {
		if c.Direction, err = internal.ParseDirection(direction); err != nil {
			return c, err
		}
	}
	return c, nil
}

func targetFromFlags(file, relative, dir string) (internal.FileTarget, error) {
	set := 0
	for _, v := range []string{file, relative, dir} {
		if v != "" {
			set++
		}
	}
	if set > 1 {
		return internal.FileTarget{}, fmt.Errorf("%w: --file, --relative and --dir are exclusive", internal.ErrInvalidCommand)
	}
	switch {
	case file != "":
		return internal.AbsoluteFile(file), nil
	case relative != "":
		return internal.RelativeFile(relative), nil
	case dir != "":
		return internal.InDirectory(dir), nil
	}
	return internal.AnyFile(), nil
}

func makeSearchRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		bodies, _ := cmd.Flags().GetBool("body")
		diffs, _ := cmd.Flags().GetBool("diff")
		meta, _ := cmd.Flags().GetBool("meta")
		progress, _ := cmd.Flags().GetBool("progress")

		c, err := queryCommand(cmd, args[0])
		if err != nil {
			return err
		}

		res, err := a.run(cmd, c, progressPrinter(cmd, progress))
		if err != nil {
			return err
		}

		if asJSON {
			if meta {
				return writeJSON(cmd, map[string]any{"history": res.History, "metadata": res.History.Metadata()})
			}
			return writeJSON(cmd, res.History)
		}
		printHistory(cmd.OutOrStdout(), res.History, historyView{bodies: bodies, diffs: diffs, meta: meta})
		return nil
	}
}
