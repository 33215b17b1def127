package statement

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"jamledger/stmt-ingest/internal/fileutils"
	"jamledger/stmt-ingest/internal/logging"
	"jamledger/stmt-ingest/internal/models"
	"jamledger/stmt-ingest/internal/parsererror"

	"github.com/gocarina/gocsv"
)

// sniffSampleSize is how much of a file SniffDelimiter looks at.
const sniffSampleSize = 1024

var candidateDelimiters = []rune{',', ';', '\t', '|'}

// RequiredCleanedColumns must all be present in a cleaned-format header.
var RequiredCleanedColumns = []string{"Date", "Description", "Amount", "Type"}

// SniffDelimiter picks the candidate delimiter that splits the sample's lines into the
// most consistent number of fields. Quoted sections are ignored.
func SniffDelimiter(sample []byte) (rune, error) {
	lines := sampleLines(sample)
	if len(lines) == 0 {
		return 0, errors.New("empty sample")
	}

	best, bestScore := rune(0), 0
	for _, d := range candidateDelimiters {
		counts := make(map[int]int)
		for _, line := range lines {
			counts[countOutsideQuotes(line, d)]++
		}
		mode, modeLines := 0, 0
		for n, c := range counts {
			if c > modeLines || (c == modeLines && n > mode) {
				mode, modeLines = n, c
			}
		}
		if mode == 0 {
			continue
		}
		// Lines agreeing on the field count weigh more than the count itself.
		score := modeLines*1000 + mode
		if score > bestScore {
			best, bestScore = d, score
		}
	}
	if best == 0 {
		return 0, errors.New("could not determine delimiter")
	}
	return best, nil
}

func sampleLines(sample []byte) []string {
	text := strings.ReplaceAll(string(sample), "\r\n", "\n")
	parts := strings.Split(text, "\n")
	// The sample may end mid-line.
	if len(sample) >= sniffSampleSize && len(parts) > 1 {
		parts = parts[:len(parts)-1]
	}
	lines := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			lines = append(lines, p)
		}
	}
	return lines
}

func countOutsideQuotes(line string, d rune) int {
	n, quoted := 0, false
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
		case r == d && !quoted:
			n++
		}
	}
	return n
}

// Table is a decoded delimited file.
type Table struct {
	Delimiter rune
	Records   [][]string
}

// ReadTable reads a delimited file, sniffing its delimiter. A blank file yields an
// empty table; content with no recognizable delimiter is an error.
func ReadTable(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading CSV data: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(data)) == 0 {
		return &Table{Delimiter: ',', Records: [][]string{}}, nil
	}

	sample := data
	if len(sample) > sniffSampleSize {
		sample = sample[:sniffSampleSize]
	}
	delim, err := SniffDelimiter(sample)
	if err != nil {
		return nil, fmt.Errorf("error detecting CSV delimiter: %w", err)
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error parsing CSV data: %w", err)
	}
	return &Table{Delimiter: delim, Records: records}, nil
}

// IsCleanedFormat reports whether the first record is a header naming an Amount
// column, which only the cleaned layout has. CleanedRows then requires the rest of
// RequiredCleanedColumns.
func (t *Table) IsCleanedFormat() bool {
	if len(t.Records) == 0 {
		return false
	}
	for _, h := range t.Records[0] {
		if canonicalColumn(h) == "Amount" {
			return true
		}
	}
	return false
}

// RawRows returns every record as a positional row.
func (t *Table) RawRows() []models.RawRow {
	rows := make([]models.RawRow, len(t.Records))
	for i, rec := range t.Records {
		rows[i] = models.RawRow(rec)
	}
	return rows
}

// CleanedRows decodes the table as the cleaned format. Header names are matched
// case-insensitively; a missing required column is an InvalidFormatError.
func (t *Table) CleanedRows(source string) ([]CleanedRow, error) {
	if len(t.Records) == 0 {
		return nil, &parsererror.InvalidFormatError{
			FilePath:       source,
			ExpectedFormat: strings.Join(RequiredCleanedColumns, ","),
			Msg:            "file is empty",
		}
	}
	if missing := missingColumns(t.Records[0]); len(missing) > 0 {
		return nil, &parsererror.InvalidFormatError{
			FilePath:             source,
			ExpectedFormat:       strings.Join(RequiredCleanedColumns, ","),
			ActualContentSnippet: strings.Join(t.Records[0], string(t.Delimiter)),
			Msg:                  "missing required columns " + strings.Join(missing, ", "),
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := make([]string, len(t.Records[0]))
	for i, h := range t.Records[0] {
		header[i] = canonicalColumn(h)
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(t.Records[1:]); err != nil {
		return nil, err
	}

	rows := []CleanedRow{}
	cr := csv.NewReader(&buf)
	cr.FieldsPerRecord = -1
	if err := gocsv.UnmarshalCSV(cr, &rows); err != nil {
		return nil, fmt.Errorf("error decoding cleaned CSV: %w", err)
	}
	return rows, nil
}

var canonicalColumns = map[string]string{
	"date":        "Date",
	"description": "Description",
	"amount":      "Amount",
	"type":        "Type",
	"balance":     "Balance",
}

func canonicalColumn(h string) string {
	key := strings.ToLower(strings.TrimSpace(h))
	if c, ok := canonicalColumns[key]; ok {
		return c
	}
	return strings.TrimSpace(h)
}

func missingColumns(header []string) []string {
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[canonicalColumn(h)] = true
	}
	var missing []string
	for _, c := range RequiredCleanedColumns {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	return missing
}

// WriteCleanedCSV writes rows with the Date, Description, Amount, Type, Balance header.
func WriteCleanedCSV(w io.Writer, rows []CleanedRow) error {
	if rows == nil {
		rows = []CleanedRow{}
	}
	cw := csv.NewWriter(w)
	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(cw)); err != nil {
		return fmt.Errorf("error writing cleaned CSV: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

// WriteCleanedCSVFile writes rows to path, creating parent directories.
func WriteCleanedCSVFile(path string, rows []CleanedRow) error {
	return fileutils.WriteWith(path, func(f *os.File) error {
		return WriteCleanedCSV(f, rows)
	})
}

// CleanFile cleans the raw delimited file at inputPath into a cleaned CSV at
// outputPath and returns the statistics.
func CleanFile(inputPath, outputPath string, cleaner *Cleaner) (Stats, error) {
	log := logging.OrDefault(cleaner.logger)

	f, err := os.Open(inputPath) // #nosec G304 -- input path is chosen by the operator
	if err != nil {
		return Stats{}, fmt.Errorf("error opening input file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			log.WithError(cerr).Warn("Failed to close input file",
				logging.Field{Key: logging.FieldFile, Value: inputPath})
		}
	}()

	table, err := ReadTable(f)
	if err != nil {
		return Stats{}, err
	}
	log.Debug("Read raw statement CSV",
		logging.Field{Key: logging.FieldInputFile, Value: inputPath},
		logging.Field{Key: logging.FieldDelimiter, Value: string(table.Delimiter)},
		logging.Field{Key: logging.FieldCount, Value: len(table.Records)})

	rows, stats := cleaner.Clean(table.RawRows())
	if err := WriteCleanedCSVFile(outputPath, rows); err != nil {
		return Stats{}, err
	}
	return stats, nil
}
