package pdfparser

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"jamledger/stmt-ingest/internal/fileutils"
	"jamledger/stmt-ingest/internal/models"
)

// WriteRawCSV writes rows without a header, one record per logical row.
func WriteRawCSV(w io.Writer, rows []models.RawRow) error {
	cw := csv.NewWriter(w)
	for i, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("error writing raw row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteRawCSVFile writes rows to path, creating parent directories.
func WriteRawCSVFile(path string, rows []models.RawRow) error {
	return fileutils.WriteWith(path, func(f *os.File) error {
		return WriteRawCSV(f, rows)
	})
}
