// Package ingest loads tabular input batches from CSV and XLSX files and
// writes enriched batches back out.
package ingest

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/identity-cli/internal/model"
)

// LoadBatch reads the file at path into a Batch, picking the parser by
// extension. The first row is the header; every data row becomes a Row
// keyed by header name.
func LoadBatch(path string) (*model.Batch, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: open %s", path)
		}
		defer f.Close()
		return ReadCSV(f)
	case ".xlsx":
		return ReadXLSX(path, XLSXOptions{})
	default:
		return nil, eris.Errorf("ingest: unsupported file type %q", filepath.Ext(path))
	}
}

// batchFromRows builds a Batch from a header and raw rows. Short rows pad
// with empty strings; extra cells beyond the header are dropped.
func batchFromRows(header []string, rows [][]string) *model.Batch {
	batch := &model.Batch{Columns: header}
	for _, cells := range rows {
		row := make(model.Row, len(header))
		for i, col := range header {
			if i < len(cells) {
				row[col] = cells[i]
			} else {
				row[col] = ""
			}
		}
		batch.Rows = append(batch.Rows, row)
	}
	return batch
}
