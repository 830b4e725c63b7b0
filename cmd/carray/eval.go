package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/carray/pkg/carray"
	"github.com/ajitpratap0/carray/pkg/ctable"
	"github.com/ajitpratap0/carray/pkg/expr"
)

func newEvalCommand(v *viper.Viper) *cobra.Command {
	var n, show int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "eval EXPRESSION",
		Short: "Evaluate a predicate over an arange table and count the matches",
		Long: `Evaluate EXPRESSION over a table whose columns are the names the
expression references, each holding 0..n-1. Prints the number of matching
rows and, with --show, the first matches.

Example:
  carray eval "x % 1000 == 0 and y > 5" --n 1000000 --show 5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := expr.Parse(args[0])
			if err != nil {
				return err
			}
			env, err := setup(v)
			if err != nil {
				return err
			}
			defer env.close(cmd.Context())
			ctx := cmd.Context()

			names := expr.Columns(e)
			if len(names) == 0 {
				names = []string{"x"}
			}
			cols := make([]carray.Column, len(names))
			for i := range names {
				a, err := carray.Arange(ctx, n, env.cfg.Engine, carray.WithLogger(env.log), carray.WithMetrics(env.metrics))
				if err != nil {
					return err
				}
				cols[i] = a
			}
			tbl, err := ctable.FromColumns(names, cols, ctable.WithLogger(env.log), ctable.WithMetrics(env.metrics))
			if err != nil {
				return err
			}

			mask, err := tbl.Evaluate(ctx, args[0])
			if err != nil {
				return err
			}
			sel, err := tbl.MaskedSelect(mask)
			if err != nil {
				return err
			}

			result := evalResult{Expression: e.String(), Columns: names, Rows: n}
			for sel.Next() {
				result.Matches++
				if result.Matches <= show {
					result.First = append(result.First, sel.Row())
				}
			}
			if err := sel.Err(); err != nil {
				return err
			}
			env.log.Debug("evaluation done", zap.Int("matches", result.Matches))

			if asJSON {
				return writeJSON("-", result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d of %d rows\n", result.Expression, result.Matches, n)
			for _, row := range result.First {
				fmt.Fprintf(cmd.OutOrStdout(), "  %v\n", row)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&n, "n", "n", 1_000_000, "Number of rows")
	cmd.Flags().IntVar(&show, "show", 0, "Print the first matching rows")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

type evalResult struct {
	Expression string       `json:"expression"`
	Columns    []string     `json:"columns"`
	Rows       int          `json:"rows"`
	Matches    int          `json:"matches"`
	First      []ctable.Row `json:"first,omitempty"`
}
