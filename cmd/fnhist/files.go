package main

import (
	"fmt"

	"github.com/4thel00z/fnhist/internal"
	"github.com/4thel00z/fnhist/internal/languages"
	"github.com/spf13/cobra"
)

func NewFilesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "List the files that can be searched",
		Long:  `List the files at a ref that a supported parser accepts and .fnhistignore does not exclude.`,
		Args:  cobra.NoArgs,
		RunE:  makeFilesRunner(a),
	}

	cmd.Flags().String("ref", "", "List files at this ref instead of HEAD")
	cmd.Flags().String("dir", "", "Only list files under this directory")
	cmd.Flags().StringP("lang", "l", "", "Only list files of this language")
	cmd.Flags().StringArrayP("filter", "f", nil, "Filter expression (repeatable)")
	return cmd
}

func makeFilesRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ref, _ := cmd.Flags().GetString("ref")
		dir, _ := cmd.Flags().GetString("dir")
		lang, _ := cmd.Flags().GetString("lang")
		exprs, _ := cmd.Flags().GetStringArray("filter")
		asJSON, _ := cmd.Flags().GetBool("json")

		language, err := languages.FromString(lang)
		if err != nil {
			return err
		}
		filter, err := internal.ParseFilters(exprs)
		if err != nil {
			return err
		}
		target := internal.AnyFile()
		if dir != "" {
			target = internal.InDirectory(dir)
		}

		res, err := a.run(cmd, internal.Command{
			Kind:     internal.ListFiles,
			Target:   target,
			Language: language,
			Filter:   filter,
			Ref:      ref,
		}, nil)
		if err != nil {
			return err
		}

		if asJSON {
			return writeJSON(cmd, res.Files)
		}
		for _, f := range res.Files {
			fmt.Fprintln(cmd.OutOrStdout(), f)
		}
		return nil
	}
}
