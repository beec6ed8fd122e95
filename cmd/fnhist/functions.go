package main

import (
	"github.com/4thel00z/fnhist/internal"
	"github.com/4thel00z/fnhist/internal/languages"
	"github.com/spf13/cobra"
)

func NewFunctionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "functions <file>",
		Aliases: []string{"fns"},
		Short:   "List the functions defined in a file",
		Long:    `Parse a file as it is at a ref and list its definitions in source order.`,
		Args:    cobra.ExactArgs(1),
		RunE:    makeFunctionsRunner(a),
	}

	cmd.Flags().String("ref", "", "Read the file at this ref instead of HEAD")
	cmd.Flags().StringP("lang", "l", "", "Parse as this language instead of detecting it")
	cmd.Flags().StringArrayP("filter", "f", nil, "Filter expression (repeatable)")
	return cmd
}

func makeFunctionsRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ref, _ := cmd.Flags().GetString("ref")
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

		res, err := a.run(cmd, internal.Command{
			Kind:     internal.ListFunctions,
			Target:   internal.AbsoluteFile(args[0]),
			Language: language,
			Filter:   filter,
			Ref:      ref,
		}, nil)
		if err != nil {
			return err
		}

		if asJSON {
			return writeJSON(cmd, res.Functions)
		}
		printFunctions(cmd.OutOrStdout(), res.Functions)
		return nil
	}
}
