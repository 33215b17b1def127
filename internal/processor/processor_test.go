package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"jamledger/stmt-ingest/internal/categorizer"
	"jamledger/stmt-ingest/internal/dateutils"
	"jamledger/stmt-ingest/internal/logging"
	"jamledger/stmt-ingest/internal/models"
	"jamledger/stmt-ingest/internal/parsererror"
	"jamledger/stmt-ingest/internal/pdfparser"
	"jamledger/stmt-ingest/internal/statement"
	"jamledger/stmt-ingest/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedDates = &dateutils.Parser{Now: func() time.Time {
	return time.Date(2031, time.June, 1, 12, 0, 0, 0, time.UTC)
}}

type fixture struct {
	processor *Processor
	directory *store.MockCategoryDirectory
	txStore   *store.MockTransactionStore
	extractor *pdfparser.MockPDFExtractor
	tempDir   string
}

func newFixture(t *testing.T, workers int) *fixture {
	t.Helper()
	logger := logging.NewDiscardLogger()
	f := &fixture{
		directory: store.NewMockCategoryDirectory(),
		txStore:   &store.MockTransactionStore{},
		extractor: pdfparser.NewMockPDFExtractor(nil, nil),
		tempDir:   t.TempDir(),
	}
	predictor := categorizer.NewPredictor(f.directory, nil, nil, categorizer.Options{}, logger)
	f.processor = NewProcessor(f.extractor, statement.NewDefaultCleaner(logger), predictor, f.txStore,
		Options{Workers: workers, TempDir: f.tempDir, Dates: fixedDates}, logger)
	return f
}

func cleanedCSV(t *testing.T, rows []statement.CleanedRow) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, statement.WriteCleanedCSV(&buf, rows))
	return &buf
}

// tenRowsThreeBadDates has seven valid rows and three rows whose date cannot parse.
func tenRowsThreeBadDates() []statement.CleanedRow {
	dates := []string{
		"15-Jan-23", "16 Jan 2023", "not a date", "17/01/2023", "2023-01-18",
		"31-Feb-23", "19-Jan-23", "", "20 Jan 23", "21-Jan-2023",
	}
	rows := make([]statement.CleanedRow, len(dates))
	for i, d := range dates {
		typ := statement.TypeDebit
		if i%4 == 0 {
			typ = statement.TypeCredit
		}
		rows[i] = statement.CleanedRow{
			Date:        d,
			Description: fmt.Sprintf("ROW %02d", i),
			Amount:      fmt.Sprintf("J$%d,000.50", i+1),
			Type:        typ,
		}
	}
	return rows
}

func TestProcess_SkipsRowsWithInvalidDates(t *testing.T) {
	f := newFixture(t, 1)
	user := uuid.New()

	res, err := f.processor.Process(context.Background(), user, cleanedCSV(t, tenRowsThreeBadDates()), KindCSV)
	require.NoError(t, err)

	assert.Equal(t, 7, res.Imported)
	assert.Equal(t, 3, res.Skipped)
	assert.Equal(t, map[string]int{ReasonInvalidDate: 3}, res.SkipReasons)

	require.Len(t, f.txStore.Saved, 7)
	for _, tx := range f.txStore.Saved {
		assert.NotEqual(t, "ROW 02", tx.Description)
		assert.NotEqual(t, "ROW 05", tx.Description)
		assert.NotEqual(t, "ROW 07", tx.Description)
		assert.Equal(t, user, tx.UserID)
		assert.Equal(t, res.BatchID, tx.BatchID)
		assert.NotEqual(t, uuid.Nil, tx.CategoryID)
		assert.True(t, tx.Amount.IsPositive())
	}

	first := f.txStore.Saved[0]
	assert.Equal(t, time.Date(2023, time.January, 15, 0, 0, 0, 0, time.UTC), first.Date)
	assert.True(t, decimal.RequireFromString("1000.50").Equal(first.Amount))
	assert.Equal(t, models.TransactionTypeCredit, first.Type)

	require.Len(t, f.txStore.Batches, 1)
	batch := f.txStore.Batches[0]
	assert.Equal(t, res.BatchID, batch.ID)
	assert.Equal(t, 7, batch.Imported)
	assert.Equal(t, 3, batch.Skipped)
	assert.JSONEq(t, `{"invalid date":3}`, string(batch.SkipReasons))

	assert.Equal(t, 10, res.Stats.CleanedRows)
	assert.Equal(t, 10, res.Stats.ValidTransactions)
	assert.True(t, decimal.RequireFromString("15001.50").Equal(res.Stats.TotalCredits), res.Stats.TotalCredits.String())
	assert.True(t, decimal.RequireFromString("40003.50").Equal(res.Stats.TotalDebits), res.Stats.TotalDebits.String())
	assert.True(t, decimal.RequireFromString("-25002").Equal(res.Stats.NetAmount), res.Stats.NetAmount.String())
}

func TestProcess_StoreFailureRollsBack(t *testing.T) {
	f := newFixture(t, 1)
	f.txStore.Err = errors.New("disk full")

	res, err := f.processor.Process(context.Background(), uuid.New(), cleanedCSV(t, tenRowsThreeBadDates()), KindCSV)

	var perr *parsererror.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 7, perr.Count)
	assert.Equal(t, 0, res.Imported)
	assert.Empty(t, f.txStore.Saved)
	assert.Empty(t, f.txStore.Batches)
}

func TestProcess_PDF(t *testing.T) {
	f := newFixture(t, 1)
	f.extractor.Rows = []models.RawRow{
		{"Date", "Description", "Credit", "Debit", "Balance"},
		{"07APR", "KFC HALF WAY TREE", "", "J$1,250.00", "J$48,750.00"},
		{"08APR", "SALARY ACME LTD", "J$250,000.00", "", "J$298,750.00"},
		{"09APR", "REVERSAL", "J$100.00", "J$-100.00", "J$298,750.00"},
		{"10APR", "SHORT ROW"},
	}

	res, err := f.processor.Process(context.Background(), uuid.New(), strings.NewReader("%PDF-1.4"), KindPDF)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Imported)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, map[string]int{ReasonNotTransaction: 2}, res.SkipReasons)
	assert.Equal(t, 3, res.Stats.CleanedRows)
	assert.True(t, decimal.RequireFromString("250100").Equal(res.Stats.TotalCredits))
	assert.True(t, decimal.RequireFromString("1350").Equal(res.Stats.TotalDebits))

	require.Len(t, f.txStore.Saved, 3)
	kfc, salary, reversal := f.txStore.Saved[0], f.txStore.Saved[1], f.txStore.Saved[2]
	assert.Equal(t, time.Date(2031, time.April, 7, 0, 0, 0, 0, time.UTC), kfc.Date)
	assert.Equal(t, models.TransactionTypeDebit, kfc.Type)
	assert.True(t, decimal.RequireFromString("1250").Equal(kfc.Amount))
	assert.Equal(t, models.TransactionTypeCredit, salary.Type)
	assert.Equal(t, models.TransactionTypeDebit, reversal.Type)
	assert.True(t, decimal.RequireFromString("100").Equal(reversal.Amount))
	assert.NotEqual(t, kfc.CategoryID, salary.CategoryID)

	require.Len(t, f.extractor.Calls, 1)
	assert.True(t, strings.HasSuffix(f.extractor.Calls[0], ".pdf"))
	_, statErr := os.Stat(f.extractor.Calls[0])
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestProcess_ExtractionErrorIsFatal(t *testing.T) {
	f := newFixture(t, 1)
	f.extractor.Err = &parsererror.ExtractionError{FilePath: "x.pdf", Page: 3, Err: errors.New("bad xref")}

	_, err := f.processor.Process(context.Background(), uuid.New(), strings.NewReader("%PDF-1.4"), KindPDF)

	var eerr *parsererror.ExtractionError
	require.ErrorAs(t, err, &eerr)
	assert.Equal(t, 3, eerr.Page)
	assert.Equal(t, 0, f.txStore.Calls)
}

func TestProcess_RawPositionalCSV(t *testing.T) {
	f := newFixture(t, 1)
	raw := strings.Join([]string{
		"Date;Description;Credit;Debit;Balance",
		"15-Jan-23;KFC HALF WAY TREE;;J$1,500.00;J$20,000.00",
		";  LOCATION 12;;;",
		"16-Jan-23;TRANSFER IN;J$3,000.00;;J$23,000.00",
	}, "\n")

	res, err := f.processor.Process(context.Background(), uuid.New(), strings.NewReader(raw), KindCSV)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 2, res.Skipped)
	require.Len(t, f.txStore.Saved, 2)
	assert.Equal(t, "KFC HALF WAY TREE", f.txStore.Saved[0].Description)
	assert.Equal(t, models.TransactionTypeCredit, f.txStore.Saved[1].Type)
}

func TestProcess_MalformedCSV(t *testing.T) {
	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"empty file", "", "file is empty"},
		{"cleaned header missing type", "Date,Description,Amount\n15-Jan-23,KFC,J$10.00\n", "Type"},
		{"undetectable delimiter", "garbage\nmore garbage\nstill nothing\n", "delimiter"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, 1)
			_, err := f.processor.Process(context.Background(), uuid.New(), strings.NewReader(tc.body), KindCSV)

			var ferr *parsererror.InvalidFormatError
			require.ErrorAs(t, err, &ferr)
			assert.Contains(t, ferr.Error(), tc.msg)
			assert.Equal(t, 0, f.txStore.Calls)
		})
	}
}

func TestProcess_UnresolvedCategorySkipsRows(t *testing.T) {
	f := newFixture(t, 1)
	f.directory.EnsureErr = errors.New("categories table locked")

	res, err := f.processor.Process(context.Background(), uuid.New(), cleanedCSV(t, tenRowsThreeBadDates()), KindCSV)
	require.NoError(t, err)

	assert.Equal(t, 0, res.Imported)
	assert.Equal(t, map[string]int{ReasonInvalidDate: 3, ReasonNoCategory: 7}, res.SkipReasons)
	assert.Equal(t, 1, f.txStore.Calls)
	assert.Empty(t, f.txStore.Saved)
}

func TestProcess_RowValidation(t *testing.T) {
	f := newFixture(t, 1)
	rows := []statement.CleanedRow{
		{Date: "15-Jan-23", Description: "   ", Amount: "J$1.00", Type: statement.TypeDebit},
		{Date: "15-Jan-23", Description: "NO AMOUNT", Amount: "nan", Type: statement.TypeDebit},
		{Date: "15-Jan-23", Description: "BAD TYPE", Amount: "J$1.00", Type: "TRANSFER"},
		{Date: "15-Jan-23", Description: "  PADDED  ", Amount: "J$-2.00", Type: "debit"},
	}

	res, err := f.processor.Process(context.Background(), uuid.New(), cleanedCSV(t, rows), KindCSV)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, map[string]int{
		ReasonEmptyDescription: 1,
		ReasonInvalidAmount:    1,
		ReasonInvalidType:      1,
	}, res.SkipReasons)
	require.Len(t, f.txStore.Saved, 1)
	assert.Equal(t, "PADDED", f.txStore.Saved[0].Description)
	assert.True(t, decimal.NewFromInt(2).Equal(f.txStore.Saved[0].Amount))
}

func TestProcess_WorkersPreserveOrder(t *testing.T) {
	f := newFixture(t, 4)
	rows := make([]statement.CleanedRow, 40)
	for i := range rows {
		rows[i] = statement.CleanedRow{
			Date:        fmt.Sprintf("%d-Mar-24", i%28+1),
			Description: fmt.Sprintf("ROW %02d", i),
			Amount:      "J$10.00",
			Type:        statement.TypeDebit,
		}
	}

	res, err := f.processor.Process(context.Background(), uuid.New(), cleanedCSV(t, rows), KindCSV)
	require.NoError(t, err)
	require.Equal(t, 40, res.Imported)

	for i, tx := range f.txStore.Saved {
		assert.Equal(t, fmt.Sprintf("ROW %02d", i), tx.Description)
	}
	cats, err := f.directory.ListVisibleCategories(context.Background(), f.txStore.Saved[0].UserID)
	require.NoError(t, err)
	assert.Len(t, cats, 1)
}

func TestProcess_RemovesTemporaryUpload(t *testing.T) {
	f := newFixture(t, 1)

	_, err := f.processor.Process(context.Background(), uuid.New(), cleanedCSV(t, tenRowsThreeBadDates()), KindCSV)
	require.NoError(t, err)
	f.txStore.Err = errors.New("boom")
	_, err = f.processor.Process(context.Background(), uuid.New(), cleanedCSV(t, tenRowsThreeBadDates()), KindCSV)
	require.Error(t, err)
	_, err = f.processor.Process(context.Background(), uuid.New(), strings.NewReader(""), KindCSV)
	require.Error(t, err)

	entries, err := os.ReadDir(f.tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestProcess_CancelledContext(t *testing.T) {
	f := newFixture(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.processor.Process(ctx, uuid.New(), cleanedCSV(t, tenRowsThreeBadDates()), KindCSV)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, f.txStore.Calls)
}

func TestProcess_UnsupportedKind(t *testing.T) {
	f := newFixture(t, 1)
	_, err := f.processor.Process(context.Background(), uuid.New(), strings.NewReader("x"), DocumentKind("xlsx"))
	assert.Error(t, err)
}

func TestProcessFile(t *testing.T) {
	f := newFixture(t, 1)
	path := filepath.Join(t.TempDir(), "January.CSV")
	require.NoError(t, os.WriteFile(path, cleanedCSV(t, tenRowsThreeBadDates()).Bytes(), 0o600))

	res, err := f.processor.ProcessFile(context.Background(), uuid.New(), path)
	require.NoError(t, err)
	assert.Equal(t, 7, res.Imported)
	assert.Equal(t, "January.CSV", res.Source)

	_, err = os.Stat(path)
	assert.NoError(t, err, "ProcessFile must not remove the caller's file")

	_, err = f.processor.ProcessFile(context.Background(), uuid.New(), "statement")
	assert.Error(t, err)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" PDF ")
	require.NoError(t, err)
	assert.Equal(t, KindPDF, k)

	k, err = KindFromPath("/tmp/export.csv")
	require.NoError(t, err)
	assert.Equal(t, KindCSV, k)

	_, err = ParseKind("xls")
	assert.Error(t, err)
}

func TestProcess_PersistsAtomicallyWithDatabase(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "ingest.db") + "?_busy_timeout=5000&_journal_mode=WAL"
	db, err := store.Open(store.Options{Driver: store.DriverSQLite, DSN: dsn})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))
	t.Cleanup(func() { _ = store.Close(db) })

	logger := logging.NewDiscardLogger()
	categories := store.NewCategoryStore(db, time.Minute, logger)
	transactions := store.NewTransactionStore(db, 3, logger)
	predictor := categorizer.NewPredictor(categories, nil, nil, categorizer.Options{}, logger)
	p := NewProcessor(nil, nil, predictor, transactions,
		Options{Workers: 2, TempDir: t.TempDir(), Dates: fixedDates}, logger)

	user := uuid.New()
	res, err := p.Process(context.Background(), user, cleanedCSV(t, tenRowsThreeBadDates()), KindCSV)
	require.NoError(t, err)
	assert.Equal(t, 7, res.Imported)

	n, err := transactions.CountByUser(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	batch, err := transactions.GetBatch(context.Background(), res.BatchID)
	require.NoError(t, err)
	assert.Equal(t, 3, batch.Skipped)

	visible, err := categories.ListVisibleCategories(context.Background(), user)
	require.NoError(t, err)
	names := make([]string, 0, len(visible))
	for _, c := range visible {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{models.CategoryOther, models.CategoryOtherIncome}, names)
}
