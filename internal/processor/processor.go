// Package processor turns an uploaded bank statement into persisted, categorized
// transactions.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"jamledger/stmt-ingest/internal/currencyutils"
	"jamledger/stmt-ingest/internal/dateutils"
	"jamledger/stmt-ingest/internal/logging"
	"jamledger/stmt-ingest/internal/models"
	"jamledger/stmt-ingest/internal/parsererror"
	"jamledger/stmt-ingest/internal/pdfparser"
	"jamledger/stmt-ingest/internal/statement"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// DocumentKind is the format of an uploaded statement.
type DocumentKind string

// Supported document kinds.
const (
	KindPDF DocumentKind = "pdf"
	KindCSV DocumentKind = "csv"
)

// ParseKind validates a document kind name.
func ParseKind(s string) (DocumentKind, error) {
	switch k := DocumentKind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindPDF, KindCSV:
		return k, nil
	default:
		return "", fmt.Errorf("unsupported document kind %q", s)
	}
}

// KindFromPath derives the document kind from a file extension.
func KindFromPath(path string) (DocumentKind, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("cannot determine document kind of %s", path)
	}
	return ParseKind(ext)
}

// Skip reasons recorded per row.
const (
	ReasonNotTransaction   = "not a transaction row"
	ReasonEmptyDescription = "empty description"
	ReasonInvalidDate      = "invalid date"
	ReasonInvalidAmount    = "invalid amount"
	ReasonInvalidType      = "invalid type"
	ReasonNoCategory       = "no category"
)

// CategoryPredictor picks the category of one transaction.
type CategoryPredictor interface {
	Predict(ctx context.Context, userID uuid.UUID, description string, amount decimal.Decimal, isIncome bool) (uuid.UUID, bool)
}

// TransactionStore persists a batch atomically.
type TransactionStore interface {
	SaveBatch(ctx context.Context, batch models.ImportBatch, txs []models.Transaction) error
}

// Options tunes a Processor. Zero values select the defaults.
type Options struct {
	// Workers is the number of rows converted in parallel.
	Workers int
	// TempDir receives spooled uploads; empty means os.TempDir.
	TempDir string
	// Dates parses row dates; nil uses the wall clock for year-less dates.
	Dates *dateutils.Parser
}

// Result describes one completed import.
type Result struct {
	BatchID     uuid.UUID
	Source      string
	Imported    int
	Skipped     int
	SkipReasons map[string]int
	Stats       statement.Stats
}

// Processor runs the import pipeline.
type Processor struct {
	extractor  pdfparser.PDFExtractor
	cleaner    *statement.Cleaner
	predictor  CategoryPredictor
	store      TransactionStore
	dates      *dateutils.Parser
	normalizer currencyutils.Normalizer
	pool       rowPool
	tempDir    string
	logger     logging.Logger
}

// NewProcessor wires a Processor.
func NewProcessor(extractor pdfparser.PDFExtractor, cleaner *statement.Cleaner, predictor CategoryPredictor, store TransactionStore, opts Options, logger logging.Logger) *Processor {
	logger = logging.OrDefault(logger)
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Dates == nil {
		opts.Dates = dateutils.NewParser()
	}
	if cleaner == nil {
		cleaner = statement.NewDefaultCleaner(logger)
	}
	return &Processor{
		extractor:  extractor,
		cleaner:    cleaner,
		predictor:  predictor,
		store:      store,
		dates:      opts.Dates,
		normalizer: cleaner.Normalizer,
		pool:       rowPool{workers: opts.Workers, logger: logger},
		tempDir:    opts.TempDir,
		logger:     logger,
	}
}

// Process imports an uploaded document for userID. The upload is spooled to a
// temporary file that is removed before Process returns.
func (p *Processor) Process(ctx context.Context, userID uuid.UUID, document io.Reader, kind DocumentKind) (Result, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return Result{}, err
	}

	path, err := p.spool(document, kind)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if rerr := os.Remove(path); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			p.logger.WithError(rerr).Warn("Failed to remove temporary upload",
				logging.Field{Key: logging.FieldFile, Value: path})
		}
	}()

	return p.process(ctx, userID, path, "upload."+string(kind), kind)
}

// ProcessFile imports a document from disk, taking its kind from the extension.
func (p *Processor) ProcessFile(ctx context.Context, userID uuid.UUID, path string) (Result, error) {
	kind, err := KindFromPath(path)
	if err != nil {
		return Result{}, err
	}
	return p.process(ctx, userID, path, filepath.Base(path), kind)
}

func (p *Processor) spool(document io.Reader, kind DocumentKind) (string, error) {
	f, err := os.CreateTemp(p.tempDir, "stmt-upload-*."+string(kind))
	if err != nil {
		return "", fmt.Errorf("error creating temporary upload: %w", err)
	}
	path := f.Name()
	_, copyErr := io.Copy(f, document)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("error spooling upload: %w", errors.Join(copyErr, closeErr))
	}
	return path, nil
}

func (p *Processor) process(ctx context.Context, userID uuid.UUID, path, source string, kind DocumentKind) (Result, error) {
	log := p.logger.WithFields(
		logging.Field{Key: logging.FieldUserID, Value: userID},
		logging.Field{Key: logging.FieldKind, Value: string(kind)},
		logging.Field{Key: logging.FieldFile, Value: source})
	log.Info("Processing statement")

	rows, stats, err := p.cleanedRows(ctx, path, source, kind)
	if err != nil {
		log.WithError(err).Error("Statement could not be read")
		return Result{}, err
	}

	batchID := uuid.New()
	outcomes, err := p.pool.run(ctx, rows, func(ctx context.Context, row statement.CleanedRow) (models.Transaction, string) {
		return p.convert(ctx, userID, batchID, row)
	})
	if err != nil {
		return Result{}, err
	}

	result := Result{
		BatchID:     batchID,
		Source:      source,
		SkipReasons: make(map[string]int),
		Stats:       stats,
	}
	if stats.SkippedRows > 0 {
		result.SkipReasons[ReasonNotTransaction] = stats.SkippedRows
		result.Skipped = stats.SkippedRows
	}

	txs := make([]models.Transaction, 0, len(outcomes))
	for _, o := range outcomes {
		if o.reason != "" {
			result.SkipReasons[o.reason]++
			result.Skipped++
			log.Debug("Skipped row",
				logging.Field{Key: logging.FieldRow, Value: o.index},
				logging.Field{Key: logging.FieldReason, Value: o.reason})
			continue
		}
		txs = append(txs, o.tx)
	}

	reasons, err := json.Marshal(result.SkipReasons)
	if err != nil {
		return Result{}, fmt.Errorf("error encoding skip reasons: %w", err)
	}
	batch := models.ImportBatch{
		ID:          batchID,
		UserID:      userID,
		Source:      source,
		Imported:    len(txs),
		Skipped:     result.Skipped,
		SkipReasons: datatypes.JSON(reasons),
	}
	if err := p.store.SaveBatch(ctx, batch, txs); err != nil {
		var perr *parsererror.PersistenceError
		if !errors.As(err, &perr) {
			err = &parsererror.PersistenceError{Operation: "save batch", Count: len(txs), Err: err}
		}
		log.WithError(err).Error("Import rolled back")
		return Result{BatchID: batchID, Source: source, Stats: stats}, err
	}

	result.Imported = len(txs)
	log.Info("Import finished",
		logging.Field{Key: logging.FieldBatchID, Value: batchID},
		logging.Field{Key: logging.FieldCount, Value: result.Imported},
		logging.Field{Key: "skipped", Value: result.Skipped})
	return result, nil
}

// cleanedRows loads the document as cleaned rows. PDFs and positional CSVs go through
// the cleaner; CSVs with a cleaned header are decoded directly.
func (p *Processor) cleanedRows(ctx context.Context, path, source string, kind DocumentKind) ([]statement.CleanedRow, statement.Stats, error) {
	switch kind {
	case KindPDF:
		if p.extractor == nil {
			return nil, statement.Stats{}, errors.New("no PDF extractor configured")
		}
		raw, err := p.extractor.ExtractRows(ctx, path)
		if err != nil {
			return nil, statement.Stats{}, err
		}
		rows, stats := p.cleaner.Clean(raw)
		return rows, stats, nil

	case KindCSV:
		f, err := os.Open(path) // #nosec G304 -- path is a spooled upload or an operator supplied file
		if err != nil {
			return nil, statement.Stats{}, fmt.Errorf("error opening statement: %w", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil {
				p.logger.WithError(cerr).Warn("Failed to close statement",
					logging.Field{Key: logging.FieldFile, Value: path})
			}
		}()

		table, err := statement.ReadTable(f)
		if err != nil {
			return nil, statement.Stats{}, &parsererror.InvalidFormatError{
				FilePath:       source,
				ExpectedFormat: "delimited text",
				Msg:            err.Error(),
			}
		}
		if len(table.Records) == 0 {
			return nil, statement.Stats{}, &parsererror.InvalidFormatError{
				FilePath:       source,
				ExpectedFormat: "delimited text",
				Msg:            "file is empty",
			}
		}
		if table.IsCleanedFormat() {
			rows, err := table.CleanedRows(source)
			if err != nil {
				return nil, statement.Stats{}, err
			}
			return rows, statement.Summarize(rows, p.normalizer), nil
		}
		rows, stats := p.cleaner.Clean(table.RawRows())
		return rows, stats, nil

	default:
		return nil, statement.Stats{}, fmt.Errorf("unsupported document kind %q", kind)
	}
}

// convert validates one cleaned row and categorizes it. A non-empty reason means the
// row is skipped.
func (p *Processor) convert(ctx context.Context, userID, batchID uuid.UUID, row statement.CleanedRow) (models.Transaction, string) {
	description := strings.TrimSpace(row.Description)
	if description == "" {
		return models.Transaction{}, ReasonEmptyDescription
	}
	date, ok := p.dates.Parse(row.Date)
	if !ok {
		return models.Transaction{}, ReasonInvalidDate
	}
	amount, ok := p.normalizer.Parse(row.Amount)
	if !ok {
		return models.Transaction{}, ReasonInvalidAmount
	}
	amount = amount.Abs().Round(2)
	typ, ok := row.TransactionType()
	if !ok {
		return models.Transaction{}, ReasonInvalidType
	}

	categoryID, ok := p.predictor.Predict(ctx, userID, description, amount, typ.IsIncome())
	if !ok || categoryID == uuid.Nil {
		return models.Transaction{}, ReasonNoCategory
	}

	return models.Transaction{
		ID:          uuid.New(),
		BatchID:     batchID,
		UserID:      userID,
		CategoryID:  categoryID,
		Date:        date,
		Description: description,
		Amount:      amount,
		Type:        typ,
	}, ""
}
