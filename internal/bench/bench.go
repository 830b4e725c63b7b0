// Package bench runs the selection benchmark: it builds an arange table,
// evaluates a predicate and retrieves the selected elements through four
// access paths (dense slice, compressed array, dense rows, compressed
// table), timing each and checking that all paths agree.
package bench

import (
	"context"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/carray/pkg/carray"
	"github.com/ajitpratap0/carray/pkg/config"
	"github.com/ajitpratap0/carray/pkg/ctable"
	"github.com/ajitpratap0/carray/pkg/errors"
	"github.com/ajitpratap0/carray/pkg/expr"
	"github.com/ajitpratap0/carray/pkg/metrics"
	"github.com/ajitpratap0/carray/pkg/observability"
)

// DefaultExpression selects the first eleven elements
const DefaultExpression = "(x-1) < 10."

// Options controls a benchmark run
type Options struct {
	N          int           `json:"n"`
	Expression string        `json:"expression"`
	Repeat     int           `json:"repeat"`
	Engine     config.Engine `json:"engine"`
}

// DefaultOptions returns a small run over the default engine
func DefaultOptions() Options {
	return Options{
		N:          1_000_000,
		Expression: DefaultExpression,
		Repeat:     1,
		Engine:     config.DefaultEngine(),
	}
}

// Step is the timing of one phase. Duration is the median over repeats.
type Step struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration_ns"`
	Max      time.Duration `json:"max_ns"`
	Runs     int           `json:"runs"`
	Count    int           `json:"count"`
}

// Report is the outcome of a run
type Report struct {
	Options  Options      `json:"options"`
	Columns  []string     `json:"columns"`
	Selected int          `json:"selected"`
	Steps    []Step       `json:"steps"`
	Stats    ctable.Stats `json:"stats"`
}

// Runner holds the collaborators of a run
type Runner struct {
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewRunner creates a runner. Both arguments may be nil.
func NewRunner(logger *zap.Logger, m *metrics.Metrics) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{logger: logger, metrics: m}
}

// fixture is the data shared by every path
type fixture struct {
	x     []int64
	cx    *carray.Array[int64]
	ct    *ctable.Table
	bout  []bool
	cbout *carray.Array[bool]
	rows  []ctable.Row
}

// Run executes the benchmark. A mismatch between access paths is reported
// as ErrorTypeInternal.
func (r *Runner) Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.N < 0 {
		return nil, errors.Newf(errors.ErrorTypeConfig, "element count must not be negative, got %d", opts.N)
	}
	if opts.Repeat < 1 {
		opts.Repeat = 1
	}
	if err := opts.Engine.Validate(); err != nil {
		return nil, err
	}
	e, err := expr.Parse(opts.Expression)
	if err != nil {
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, "bench.Run")
	defer span.End()
	span.SetAttribute("n", opts.N)
	span.SetAttribute("expression", opts.Expression)

	report := &Report{Options: opts, Columns: columnsFor(e)}
	log := r.logger.With(zap.String("expression", e.String()), zap.Int("n", opts.N))

	log.Info("creating inputs", zap.Strings("columns", report.Columns))
	var fx fixture
	step, err := r.once("create", func() (int, error) {
		return opts.N, r.build(ctx, &fx, opts, report.Columns)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	report.Steps = append(report.Steps, step)

	log.Info("evaluating")
	step, err = r.once("evaluate", func() (int, error) {
		mask, err := fx.ct.Evaluate(ctx, opts.Expression)
		if err != nil {
			return 0, err
		}
		fx.cbout = mask
		return mask.Len(), nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	report.Steps = append(report.Steps, step)

	log.Info("converting to dense")
	step, err = r.once("dense", func() (int, error) {
		var err error
		if fx.bout, err = fx.cbout.ToDense(); err != nil {
			return 0, err
		}
		if fx.rows, err = fx.ct.Dense(); err != nil {
			return 0, err
		}
		return len(fx.rows), nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	report.Steps = append(report.Steps, step)

	step, err = r.once("compress-mask", func() (int, error) {
		cbool, err := carray.FromDense(ctx, fx.bout, fx.cx.Config(), carray.WithMetrics(r.metrics))
		if err != nil {
			return 0, err
		}
		return cbool.NumChunks(), nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	report.Steps = append(report.Steps, step)

	log.Info("starting selection paths", zap.Int("repeat", opts.Repeat))
	paths := []struct {
		name string
		fn   func() (int, error)
	}{
		{"where", func() (int, error) { return fx.where() }},
		{"array", func() (int, error) { return len(fx.selectDense()), nil }},
		{"carray", func() (int, error) { return fx.selectCompressed() }},
		{"structured-array", func() (int, error) { return len(fx.selectRows()), nil }},
		{"ctable", func() (int, error) { return fx.selectTable() }},
	}
	for _, p := range paths {
		step, err := r.repeat(ctx, p.name, opts.Repeat, p.fn)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		log.Info("path finished",
			zap.String("path", p.name),
			zap.Duration("median", step.Duration),
			zap.Int("selected", step.Count))
		report.Steps = append(report.Steps, step)
	}

	selected, err := fx.verify()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	report.Selected = selected
	report.Stats = fx.ct.Stats()
	span.SetAttribute("selected", selected)
	span.RecordError(nil)
	return report, nil
}

// columnsFor returns x alone, or x, y and z when the expression names any
// other column
func columnsFor(e expr.Expr) []string {
	for _, name := range expr.Columns(e) {
		if name != "x" {
			return []string{"x", "y", "z"}
		}
	}
	return []string{"x"}
}

func (r *Runner) build(ctx context.Context, fx *fixture, opts Options, names []string) error {
	fx.x = make([]int64, opts.N)
	for i := range fx.x {
		fx.x[i] = int64(i)
	}
	copts := []carray.Option{carray.WithLogger(r.logger), carray.WithMetrics(r.metrics)}

	cols := make([]carray.Column, len(names))
	for i := range names {
		a, err := carray.FromDense(ctx, fx.x, opts.Engine, copts...)
		if err != nil {
			return err
		}
		if i == 0 {
			fx.cx = a
		}
		cols[i] = a
	}
	// the table reads through its own handles so the array path keeps a cold cache
	cols[0] = fx.cx.Clone()

	ct, err := ctable.FromColumns(names, cols, ctable.WithLogger(r.logger), ctable.WithMetrics(r.metrics))
	if err != nil {
		return err
	}
	fx.ct = ct
	return nil
}

func (r *Runner) once(name string, fn func() (int, error)) (Step, error) {
	timer := metrics.NewTimer(name)
	n, err := fn()
	d := timer.Stop()
	if err != nil {
		return Step{}, err
	}
	return Step{Name: name, Duration: d, Max: d, Runs: 1, Count: n}, nil
}

func (r *Runner) repeat(ctx context.Context, name string, runs int, fn func() (int, error)) (Step, error) {
	tracker := metrics.NewLatencyTracker(runs)
	count := 0
	for i := 0; i < runs; i++ {
		if err := ctx.Err(); err != nil {
			return Step{}, errors.Wrap(err, errors.ErrorTypeCanceled, "benchmark canceled").WithDetail("path", name)
		}
		timer := metrics.NewTimer(name)
		n, err := fn()
		if err != nil {
			return Step{}, err
		}
		tracker.Record(timer.Stop())
		count = n
	}
	return Step{
		Name:     name,
		Duration: tracker.Percentile(50),
		Max:      tracker.Percentile(100),
		Runs:     tracker.Count(),
		Count:    count,
	}, nil
}

func (fx *fixture) where() (int, error) {
	p := carray.Where(fx.cbout)
	for p.Next() {
	}
	return p.Count(), p.Err()
}

func (fx *fixture) selectDense() []int64 {
	var out []int64
	for i, b := range fx.bout {
		if b {
			out = append(out, fx.x[i])
		}
	}
	return out
}

func (fx *fixture) selectCompressed() (int, error) {
	vals, err := fx.compressedValues()
	return len(vals), err
}

func (fx *fixture) compressedValues() ([]int64, error) {
	sel, err := fx.cx.MaskedSelect(fx.cbout)
	if err != nil {
		return nil, err
	}
	return sel.Collect()
}

func (fx *fixture) selectRows() []ctable.Row {
	var out []ctable.Row
	for i, b := range fx.bout {
		if b {
			out = append(out, fx.rows[i])
		}
	}
	return out
}

func (fx *fixture) selectTable() (int, error) {
	rows, err := fx.tableRows()
	return len(rows), err
}

func (fx *fixture) tableRows() ([]ctable.Row, error) {
	sel, err := fx.ct.MaskedSelect(fx.cbout)
	if err != nil {
		return nil, err
	}
	return sel.Collect()
}

// verify compares the dense and compressed results of both pairs of paths
func (fx *fixture) verify() (int, error) {
	vals := fx.selectDense()
	cvals, err := fx.compressedValues()
	if err != nil {
		return 0, err
	}
	if !slices.Equal(vals, cvals) {
		return 0, errors.Newf(errors.ErrorTypeInternal, "array and carray selections differ: %d vs %d values", len(vals), len(cvals))
	}

	rows := fx.selectRows()
	crows, err := fx.tableRows()
	if err != nil {
		return 0, err
	}
	if !slices.EqualFunc(rows, crows, func(a, b ctable.Row) bool { return slices.Equal(a, b) }) {
		return 0, errors.Newf(errors.ErrorTypeInternal, "structured array and ctable selections differ: %d vs %d rows", len(rows), len(crows))
	}
	return len(vals), nil
}
