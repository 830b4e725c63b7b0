// Package ctable implements a table of equally long compressed columns.
//
// All columns of a Table share one length and one chunk capacity, so a row
// walk can read every column block by block in lock-step: each column's
// chunk is decompressed once per block boundary, not once per row.
package ctable

import (
	"context"

	"go.uber.org/zap"

	"github.com/ajitpratap0/carray/pkg/carray"
	"github.com/ajitpratap0/carray/pkg/config"
	"github.com/ajitpratap0/carray/pkg/dtype"
	"github.com/ajitpratap0/carray/pkg/errors"
	"github.com/ajitpratap0/carray/pkg/metrics"
)

// Row holds one value per column, in column order
type Row []any

// Field describes a column of an empty table
type Field struct {
	Name  string
	DType dtype.DType
}

// Table is an ordered set of named columns of equal length
type Table struct {
	names    []string
	index    map[string]int
	cols     []carray.Column
	capacity int
	cfg      config.Engine

	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Option configures a table
type Option func(*Table)

// WithLogger sets the logger used for debug events
func WithLogger(l *zap.Logger) Option {
	return func(t *Table) { t.logger = l }
}

// WithMetrics sets the collectors used by Evaluate and mask selection
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Table) { t.metrics = m }
}

// WithEngine sets the settings for arrays the table creates, such as
// Evaluate results. The chunk capacity is always the table's.
func WithEngine(cfg config.Engine) Option {
	return func(t *Table) { t.cfg = cfg }
}

// FromColumns builds a table from parallel name and column lists. Names must
// be unique and non-empty; every column must have the same length and chunk
// capacity, otherwise ErrorTypeLengthMismatch is returned. The table takes
// ownership of the columns; a column may not appear twice.
func FromColumns(names []string, cols []carray.Column, opts ...Option) (*Table, error) {
	if len(names) != len(cols) {
		return nil, errors.Newf(errors.ErrorTypeConfig, "%d names for %d columns", len(names), len(cols))
	}
	if len(cols) == 0 {
		return nil, errors.New(errors.ErrorTypeConfig, "a table needs at least one column")
	}
	for i, c := range cols {
		if c == nil {
			return nil, errors.Newf(errors.ErrorTypeConfig, "column %q is nil", names[i])
		}
	}

	t := &Table{
		index:    make(map[string]int, len(names)),
		capacity: cols[0].ChunkCapacity(),
		cfg:      cols[0].Config(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = zap.NewNop()
	}

	for i, name := range names {
		if err := t.attach(name, cols[i]); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// New creates an empty table with one column per field
func New(fields []Field, cfg config.Engine, opts ...Option) (*Table, error) {
	names := make([]string, len(fields))
	cols := make([]carray.Column, len(fields))
	for i, f := range fields {
		col, err := carray.NewColumn(f.DType, cfg)
		if err != nil {
			return nil, err
		}
		names[i] = f.Name
		cols[i] = col
	}
	return FromColumns(names, cols, append([]Option{WithEngine(cfg)}, opts...)...)
}

// FromDense builds a table from typed slices such as []int64, compressing
// each with carray.FromDense
func FromDense(ctx context.Context, names []string, data []any, cfg config.Engine, opts ...Option) (*Table, error) {
	if len(names) != len(data) {
		return nil, errors.Newf(errors.ErrorTypeConfig, "%d names for %d columns", len(names), len(data))
	}
	cols := make([]carray.Column, len(data))
	for i, d := range data {
		col, err := carray.ColumnFromDense(ctx, d, cfg)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	return FromColumns(names, cols, append([]Option{WithEngine(cfg)}, opts...)...)
}

// attach validates and appends one column
func (t *Table) attach(name string, col carray.Column) error {
	if name == "" {
		return errors.New(errors.ErrorTypeConfig, "column name must not be empty")
	}
	if _, dup := t.index[name]; dup {
		return errors.Newf(errors.ErrorTypeConfig, "duplicate column name %q", name)
	}
	if col == nil {
		return errors.Newf(errors.ErrorTypeConfig, "column %q is nil", name)
	}
	for i, c := range t.cols {
		if c == col {
			return errors.Newf(errors.ErrorTypeConfig, "column %q is the same array as column %q", name, t.names[i])
		}
	}
	if len(t.cols) > 0 && col.Len() != t.Len() {
		return errors.Newf(errors.ErrorTypeLengthMismatch, "column %q has %d rows, table has %d", name, col.Len(), t.Len()).
			WithDetail("column", name)
	}
	if col.ChunkCapacity() != t.capacity {
		return errors.Newf(errors.ErrorTypeLengthMismatch, "column %q has chunk capacity %d, table has %d",
			name, col.ChunkCapacity(), t.capacity).
			WithDetail("column", name)
	}
	t.index[name] = len(t.cols)
	t.names = append(t.names, name)
	t.cols = append(t.cols, col)
	return nil
}

// Len returns the number of rows
func (t *Table) Len() int {
	if len(t.cols) == 0 {
		return 0
	}
	return t.cols[0].Len()
}

// NumColumns returns the number of columns
func (t *Table) NumColumns() int { return len(t.cols) }

// ChunkCapacity returns the chunk capacity shared by every column
func (t *Table) ChunkCapacity() int { return t.capacity }

// Engine returns the settings used for arrays the table creates
func (t *Table) Engine() config.Engine { return t.cfg.WithCapacity(t.capacity) }

// Names returns the column names in order
func (t *Table) Names() []string {
	return append([]string(nil), t.names...)
}

// Column returns the named column
func (t *Table) Column(name string) (carray.Column, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeUnknownColumn, "unknown column %q", name).
			WithDetail("column", name)
	}
	return t.cols[i], nil
}

// Lookup returns the named column and whether it exists
func (t *Table) Lookup(name string) (carray.Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// ColumnAt returns column i
func (t *Table) ColumnAt(i int) (carray.Column, error) {
	if i < 0 || i >= len(t.cols) {
		return nil, errors.Newf(errors.ErrorTypeIndex, "column %d out of range [0, %d)", i, len(t.cols))
	}
	return t.cols[i], nil
}

// Schema returns the name and element type of every column
func (t *Table) Schema() []Field {
	fields := make([]Field, len(t.cols))
	for i, c := range t.cols {
		fields[i] = Field{Name: t.names[i], DType: c.DType()}
	}
	return fields
}

// Row reads row i from every column
func (t *Table) Row(i int) (Row, error) {
	if i < 0 || i >= t.Len() {
		return nil, errors.Newf(errors.ErrorTypeIndex, "row %d out of range [0, %d)", i, t.Len())
	}
	row := make(Row, len(t.cols))
	for c, col := range t.cols {
		v, err := col.Value(i)
		if err != nil {
			return nil, err
		}
		row[c] = v
	}
	return row, nil
}

// AppendRow appends one value per column. Every value is checked against
// its column type before any column is modified; a value the column cannot
// hold exactly, such as 1.5 for an int64 column, fails the row.
func (t *Table) AppendRow(values ...any) error {
	if len(values) != len(t.cols) {
		return errors.Newf(errors.ErrorTypeLengthMismatch, "row has %d values, table has %d columns", len(values), len(t.cols))
	}
	for i, v := range values {
		if t.cols[i].Frozen() {
			return errors.Newf(errors.ErrorTypeState, "column %q is frozen", t.names[i])
		}
		if !dtype.Accepts(t.cols[i].DType(), v) {
			return errors.Newf(errors.ErrorTypeType, "cannot store %T in %s column %q", v, t.cols[i].DType(), t.names[i])
		}
	}
	for i, v := range values {
		if err := t.cols[i].AppendValue(v); err != nil {
			return errors.Wrap(err, errors.ErrorTypeInternal, "row append left columns out of step").
				WithDetail("column", t.names[i])
		}
	}
	return nil
}

// AddColumn appends a column, which must match the table's length and chunk
// capacity
func (t *Table) AddColumn(name string, col carray.Column) error {
	return t.attach(name, col)
}

// DropColumn removes the named column. The last column cannot be dropped.
func (t *Table) DropColumn(name string) error {
	i, ok := t.index[name]
	if !ok {
		return errors.Newf(errors.ErrorTypeUnknownColumn, "unknown column %q", name)
	}
	if len(t.cols) == 1 {
		return errors.New(errors.ErrorTypeState, "cannot drop the last column")
	}
	t.names = append(t.names[:i:i], t.names[i+1:]...)
	t.cols = append(t.cols[:i:i], t.cols[i+1:]...)
	t.index = make(map[string]int, len(t.names))
	for j, n := range t.names {
		t.index[n] = j
	}
	return nil
}

// Freeze freezes every column
func (t *Table) Freeze() {
	for _, c := range t.cols {
		c.Freeze()
	}
}

// Clone returns an independent reader handle: every column is cloned, so
// the clone has its own decompression caches
func (t *Table) Clone() *Table {
	c := &Table{
		names:    append([]string(nil), t.names...),
		index:    make(map[string]int, len(t.index)),
		cols:     make([]carray.Column, len(t.cols)),
		capacity: t.capacity,
		cfg:      t.cfg,
		logger:   t.logger,
		metrics:  t.metrics,
	}
	for i, col := range t.cols {
		c.cols[i] = col.CloneColumn()
		c.index[t.names[i]] = i
	}
	return c
}

// Stats summarizes the storage of a table
type Stats struct {
	Rows            int                     `json:"rows"`
	Columns         int                     `json:"columns"`
	RawBytes        int64                   `json:"raw_bytes"`
	CompressedBytes int64                   `json:"compressed_bytes"`
	Ratio           float64                 `json:"ratio"`
	PerColumn       map[string]carray.Stats `json:"per_column"`
}

// Stats reports storage sizes per column and in total
func (t *Table) Stats() Stats {
	s := Stats{
		Rows:      t.Len(),
		Columns:   len(t.cols),
		PerColumn: make(map[string]carray.Stats, len(t.cols)),
	}
	for i, c := range t.cols {
		cs := c.Stats()
		s.PerColumn[t.names[i]] = cs
		s.RawBytes += cs.RawBytes
		s.CompressedBytes += cs.CompressedBytes
	}
	if s.CompressedBytes > 0 {
		s.Ratio = float64(s.RawBytes) / float64(s.CompressedBytes)
	}
	return s
}
