package ctable

// Dense decompresses the whole table into rows
func (t *Table) Dense() ([]Row, error) {
	rows := make([]Row, 0, t.Len())
	it := t.Rows()
	for it.Next() {
		rows = append(rows, it.Row())
	}
	return rows, it.Err()
}

// DenseColumns decompresses every column into its typed slice, such as
// []int64, in column order
func (t *Table) DenseColumns() ([]any, error) {
	out := make([]any, len(t.cols))
	for c, col := range t.cols {
		data, err := col.DenseData()
		if err != nil {
			return nil, err
		}
		out[c] = data
	}
	return out, nil
}
