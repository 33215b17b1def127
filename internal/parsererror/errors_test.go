package parsererror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseError(t *testing.T) {
	tests := []struct {
		name     string
		err      *ParseError
		expected string
	}{
		{
			name: "amount",
			err: &ParseError{
				Parser: "statement",
				Field:  "amount",
				Value:  "J$abc",
				Err:    errors.New("no digits"),
			},
			expected: "statement: failed to parse amount='J$abc': no digits",
		},
		{
			name: "empty value",
			err: &ParseError{
				Parser: "csv",
				Field:  "date",
				Value:  "",
				Err:    errors.New("empty date"),
			},
			expected: "csv: failed to parse date='': empty date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestParseError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	parseErr := &ParseError{Parser: "csv", Field: "amount", Value: "x", Err: originalErr}

	assert.Equal(t, originalErr, parseErr.Unwrap())
	assert.True(t, errors.Is(parseErr, originalErr))
}

func TestInvalidFormatError(t *testing.T) {
	tests := []struct {
		name     string
		err      *InvalidFormatError
		expected string
	}{
		{
			name: "without snippet",
			err: &InvalidFormatError{
				FilePath:       "upload.bin",
				ExpectedFormat: "PDF or CSV",
				Msg:            "unrecognized content",
			},
			expected: "invalid format in file 'upload.bin': unrecognized content. Expected: PDF or CSV",
		},
		{
			name: "with snippet",
			err: &InvalidFormatError{
				FilePath:             "upload.bin",
				ExpectedFormat:       "PDF or CSV",
				ActualContentSnippet: "GIF89a",
				Msg:                  "unrecognized content",
			},
			expected: "invalid format in file 'upload.bin': unrecognized content. Expected: PDF or CSV. Content snippet: 'GIF89a'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestExtractionError(t *testing.T) {
	withPage := &ExtractionError{FilePath: "stmt.pdf", Page: 3, Err: errors.New("bad xref")}
	assert.Equal(t, "table extraction failed for 'stmt.pdf' on page 3: bad xref", withPage.Error())

	whole := &ExtractionError{FilePath: "stmt.pdf", Err: ErrNotPDF}
	assert.Equal(t, "table extraction failed for 'stmt.pdf': content is not a PDF document", whole.Error())
	assert.True(t, errors.Is(whole, ErrNotPDF))
}

func TestPersistenceError(t *testing.T) {
	cause := errors.New("duplicate key")
	err := fmt.Errorf("import: %w", &PersistenceError{Operation: "save batch", Count: 12, Err: cause})

	var perr *PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 12, perr.Count)
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "save batch failed for 12 transactions: duplicate key", perr.Error())
}

func TestCategorizationError(t *testing.T) {
	err := &CategorizationError{
		Description: "KFC HALF WAY TREE",
		Strategy:    "classifier",
		Err:         ErrModelUnavailable,
	}

	assert.Equal(t, `categorization failed for "KFC HALF WAY TREE" using classifier: classifier model unavailable`, err.Error())
	assert.True(t, errors.Is(err, ErrModelUnavailable))
}

func TestConfigError(t *testing.T) {
	err := &ConfigError{Key: "processing.workers", Reason: "must be at least 1"}
	assert.Equal(t, "invalid configuration processing.workers: must be at least 1", err.Error())
}
