package ingest

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/identity-cli/internal/model"
)

// ReadCSV parses CSV content into a Batch. The first record is the header
// and is required; a file with no records is an error.
func ReadCSV(r io.Reader) (*model.Batch, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // allow variable fields

	header, err := reader.Read()
	if err == io.EOF {
		return nil, eris.New("csv: empty input, expected a header row")
	}
	if err != nil {
		return nil, eris.Wrap(err, "csv: read header")
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}
		rows = append(rows, record)
	}

	return batchFromRows(header, rows), nil
}

// WriteCSV writes a Batch as CSV, header first, preserving column order.
func WriteCSV(w io.Writer, batch *model.Batch) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(batch.Columns); err != nil {
		return eris.Wrap(err, "csv: write header")
	}
	record := make([]string, len(batch.Columns))
	for _, row := range batch.Rows {
		for i, col := range batch.Columns {
			record[i] = row[col]
		}
		if err := writer.Write(record); err != nil {
			return eris.Wrap(err, "csv: write row")
		}
	}

	writer.Flush()
	return eris.Wrap(writer.Error(), "csv: flush")
}

// WriteCSVFile writes a Batch to a file at path.
func WriteCSVFile(path string, batch *model.Batch) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "csv: create %s", path)
	}
	if err := WriteCSV(f, batch); err != nil {
		f.Close()
		return err
	}
	return eris.Wrapf(f.Close(), "csv: close %s", path)
}
