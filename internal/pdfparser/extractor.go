package pdfparser

import (
	"context"
	"errors"

	"jamledger/stmt-ingest/internal/logging"
	"jamledger/stmt-ingest/internal/models"
	"jamledger/stmt-ingest/internal/parsererror"
)

// PDFExtractor extracts the raw transaction rows of a PDF statement on disk.
// It lets the processor run against canned rows in tests.
type PDFExtractor interface {
	ExtractRows(ctx context.Context, pdfPath string) ([]models.RawRow, error)
}

// FileExtractor opens PDF files and runs a TableExtractor over them.
type FileExtractor struct {
	Table *TableExtractor
}

// NewFileExtractor returns a FileExtractor using table, or the default layout when
// table is nil.
func NewFileExtractor(table *TableExtractor, logger logging.Logger) *FileExtractor {
	if table == nil {
		table = NewTableExtractor(logger)
	}
	return &FileExtractor{Table: table}
}

// ExtractRows opens pdfPath and extracts its table rows.
func (e *FileExtractor) ExtractRows(ctx context.Context, pdfPath string) ([]models.RawRow, error) {
	doc, err := OpenDocument(pdfPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := doc.Close(); cerr != nil {
			logging.OrDefault(e.Table.logger).WithError(cerr).Warn("Failed to close PDF file",
				logging.Field{Key: logging.FieldFile, Value: pdfPath})
		}
	}()
	rows, err := e.Table.Extract(ctx, doc)
	var formatErr *parsererror.InvalidFormatError
	if errors.As(err, &formatErr) && formatErr.FilePath == "" {
		formatErr.FilePath = pdfPath
	}
	return rows, err
}

// MockPDFExtractor returns canned rows or a canned error.
type MockPDFExtractor struct {
	Rows []models.RawRow
	Err  error

	Calls []string
}

// NewMockPDFExtractor returns a MockPDFExtractor.
func NewMockPDFExtractor(rows []models.RawRow, err error) *MockPDFExtractor {
	return &MockPDFExtractor{Rows: rows, Err: err}
}

func (m *MockPDFExtractor) ExtractRows(_ context.Context, pdfPath string) ([]models.RawRow, error) {
	m.Calls = append(m.Calls, pdfPath)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Rows, nil
}
