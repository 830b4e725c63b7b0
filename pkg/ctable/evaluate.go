package ctable

import (
	"context"

	"go.uber.org/zap"

	"github.com/ajitpratap0/carray/pkg/carray"
	"github.com/ajitpratap0/carray/pkg/expr"
	"github.com/ajitpratap0/carray/pkg/logger"
	"github.com/ajitpratap0/carray/pkg/metrics"
	"github.com/ajitpratap0/carray/pkg/observability"
)

// Evaluate parses expression and evaluates it over the table block by block,
// returning a boolean array with the table's length and chunk capacity.
// Syntax errors, unknown columns and type errors are all reported before
// any chunk is decompressed.
func (t *Table) Evaluate(ctx context.Context, expression string) (*carray.Array[bool], error) {
	ctx, span := observability.StartSpan(ctx, "ctable.Evaluate")
	defer span.End()
	span.SetAttribute("expression", expression)
	span.SetAttribute("rows", t.Len())

	log := logger.WithContext(ctx, t.logger)
	timer := metrics.NewTimer("evaluate")

	e, err := expr.Parse(expression)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	prog, err := expr.Compile(e, t)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	log.Debug("evaluation started",
		zap.String("expression", e.String()),
		zap.Strings("columns", prog.Columns()),
		zap.Int("rows", t.Len()))

	out, err := prog.Run(ctx, t.cfg, carray.WithLogger(t.logger), carray.WithMetrics(t.metrics))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	elapsed := timer.Stop()
	t.metrics.ObserveEvaluation(elapsed)
	span.RecordError(nil)
	log.Debug("evaluation finished",
		zap.String("expression", e.String()),
		zap.Int("chunks", out.NumChunks()),
		zap.Duration("elapsed", elapsed))
	return out, nil
}

// Select evaluates expression and returns the matching rows
func (t *Table) Select(ctx context.Context, expression string) (*RowSelection, error) {
	mask, err := t.Evaluate(ctx, expression)
	if err != nil {
		return nil, err
	}
	return t.MaskedSelect(mask)
}
