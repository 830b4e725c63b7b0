package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/carray/internal/bench"
	"github.com/ajitpratap0/carray/pkg/arrowio"
	"github.com/ajitpratap0/carray/pkg/carray"
	"github.com/ajitpratap0/carray/pkg/ctable"
)

func newExportCommand(v *viper.Viper) *cobra.Command {
	var n int
	var out, where string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write an arange table as an Arrow IPC stream",
		Long: `Build a one-column arange table, optionally keep only the rows matching
--where, and write it to --out in the Arrow IPC stream format with one record
batch per chunk.

Example:
  carray export --n 100000 --where "x % 3 == 0" --out x.arrows`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(v)
			if err != nil {
				return err
			}
			defer env.close(cmd.Context())
			ctx := cmd.Context()

			x, err := carray.Arange(ctx, n, env.cfg.Engine, carray.WithLogger(env.log), carray.WithMetrics(env.metrics))
			if err != nil {
				return err
			}
			tbl, err := ctable.FromColumns([]string{"x"}, []carray.Column{x}, ctable.WithLogger(env.log))
			if err != nil {
				return err
			}
			if where != "" {
				if tbl, err = filter(ctx, tbl, where); err != nil {
					return err
				}
			}

			f, err := os.Create(out) //nolint:gosec // G304: path comes from the operator
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			w := bufio.NewWriter(f)
			batches, err := arrowio.WriteStream(ctx, w, tbl, memory.NewGoAllocator())
			if err == nil {
				err = w.Flush()
			}
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return fmt.Errorf("failed to export table: %w", err)
			}

			env.log.Info("table exported",
				zap.String("path", out),
				zap.Int("rows", tbl.Len()),
				zap.Int("batches", batches))
			return nil
		},
	}

	cmd.Flags().IntVarP(&n, "n", "n", bench.DefaultOptions().N, "Number of rows")
	cmd.Flags().StringVarP(&out, "out", "o", "carray.arrows", "Output file")
	cmd.Flags().StringVar(&where, "where", "", "Keep only rows matching this predicate")
	return cmd
}

// filter copies the rows of t matching expression into a new table
func filter(ctx context.Context, t *ctable.Table, expression string) (*ctable.Table, error) {
	mask, err := t.Evaluate(ctx, expression)
	if err != nil {
		return nil, err
	}
	out, err := ctable.New(t.Schema(), t.Engine())
	if err != nil {
		return nil, err
	}
	sel, err := t.MaskedSelect(mask)
	if err != nil {
		return nil, err
	}
	for sel.Next() {
		if err := out.AppendRow(sel.Row()...); err != nil {
			return nil, err
		}
	}
	return out, sel.Err()
}
