// Package model defines the shared data types for the identity resolution pipeline.
package model

// Row is one tabular input record keyed by column name.
type Row map[string]string

// Batch is an ordered set of rows sharing one header.
type Batch struct {
	Columns []string
	Rows    []Row
}

// Clone returns a deep copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
