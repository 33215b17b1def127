// Package container wires the ingestion pipeline from configuration. Components that
// need the database are built on first use so that file-only commands never open it.
package container

import (
	"context"
	"fmt"
	"sync"

	"jamledger/stmt-ingest/internal/categorizer"
	"jamledger/stmt-ingest/internal/config"
	"jamledger/stmt-ingest/internal/currencyutils"
	"jamledger/stmt-ingest/internal/logging"
	"jamledger/stmt-ingest/internal/parsererror"
	"jamledger/stmt-ingest/internal/pdfparser"
	"jamledger/stmt-ingest/internal/processor"
	"jamledger/stmt-ingest/internal/statement"
	"jamledger/stmt-ingest/internal/store"

	"gorm.io/gorm"
)

// Container holds the application's dependencies. It is immutable after creation
// apart from the lazily opened database and its dependents.
type Container struct {
	logger    logging.Logger
	config    *config.Config
	table     *pdfparser.TableExtractor
	extractor *pdfparser.FileExtractor
	cleaner   *statement.Cleaner

	dbOnce       sync.Once
	dbErr        error
	db           *gorm.DB
	categories   *store.CategoryStore
	transactions *store.TransactionStore
	predictor    *categorizer.Predictor
	processor    *processor.Processor
}

// NewContainer creates the file-level components: logger, PDF extractor and cleaner.
func NewContainer(cfg *config.Config) (*Container, error) {
	return NewContainerWithLogger(cfg, nil)
}

// NewContainerWithLogger is NewContainer with an explicit logger; nil builds one from
// the log section of cfg.
func NewContainerWithLogger(cfg *config.Config, logger logging.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	if logger == nil {
		logger = config.ConfigureLoggingFromConfig(cfg)
	}

	area, err := pdfparser.RegionFromSlice(cfg.PDF.TableArea)
	if err != nil {
		return nil, &parsererror.ConfigError{Key: "pdf.table_area", Reason: err.Error()}
	}
	table := pdfparser.NewTableExtractor(logger)
	table.Area = area
	table.SkipLeading = cfg.PDF.SkipLeadingPages
	table.SkipTrailing = cfg.PDF.SkipTrailingPages
	table.LineTolerance = cfg.PDF.LineTolerance
	table.ColumnGap = cfg.PDF.ColumnGap
	table.Columns = append([]float64(nil), cfg.PDF.Columns...)

	mapping := statement.ColumnMapping{
		Date:        cfg.Statement.Columns.Date,
		Description: cfg.Statement.Columns.Description,
		Credit:      cfg.Statement.Columns.Credit,
		Debit:       cfg.Statement.Columns.Debit,
		Balance:     cfg.Statement.Columns.Balance,
	}
	if err := mapping.Validate(); err != nil {
		return nil, &parsererror.ConfigError{Key: "statement.columns", Reason: err.Error()}
	}
	table.MinColumns = mapping.Width()
	if n := len(table.Columns); n > 0 && n+1 < table.MinColumns {
		return nil, &parsererror.ConfigError{
			Key:    "pdf.columns",
			Reason: fmt.Sprintf("%d separators give %d columns, the column mapping needs %d", n, n+1, table.MinColumns),
		}
	}
	cleaner := statement.NewCleaner(mapping, currencyutils.NewNormalizer(cfg.Currency.Marker),
		cfg.Statement.HeaderTokens, logger)

	logger.Debug("Container initialized",
		logging.Field{Key: "database_driver", Value: cfg.Database.Driver},
		logging.Field{Key: "workers", Value: cfg.Processing.Workers})

	return &Container{
		logger:    logger,
		config:    cfg,
		table:     table,
		extractor: pdfparser.NewFileExtractor(table, logger),
		cleaner:   cleaner,
	}, nil
}

// GetLogger returns the container's logger.
func (c *Container) GetLogger() logging.Logger {
	return c.logger
}

// GetConfig returns the configuration the container was built from.
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetExtractor returns the PDF table extractor.
func (c *Container) GetExtractor() *pdfparser.FileExtractor {
	return c.extractor
}

// GetCleaner returns the statement cleaner.
func (c *Container) GetCleaner() *statement.Cleaner {
	return c.cleaner
}

// open connects to the database, migrates it and builds the components on top of it.
// It runs once; later calls return the first outcome.
func (c *Container) open() error {
	c.dbOnce.Do(func() {
		db, err := store.Open(store.Options{Driver: c.config.Database.Driver, DSN: c.config.Database.DSN})
		if err != nil {
			c.dbErr = err
			return
		}
		if err := store.Migrate(db); err != nil {
			_ = store.Close(db)
			c.dbErr = err
			return
		}
		c.db = db
		c.categories = store.NewCategoryStore(db, c.config.CategoryCacheTTL(), c.logger)
		c.transactions = store.NewTransactionStore(db, c.config.Processing.BatchSize, c.logger)
		c.predictor = c.newPredictor(c.categories)
		c.processor = processor.NewProcessor(c.extractor, c.cleaner, c.predictor, c.transactions,
			processor.Options{Workers: c.config.Processing.Workers}, c.logger)
	})
	return c.dbErr
}

// newPredictor loads the classifier. A missing or unreadable model is logged and the
// predictor falls back to default categories.
func (c *Container) newPredictor(directory categorizer.CategoryDirectory) *categorizer.Predictor {
	model, decoder, err := categorizer.LoadModel(c.config.Model.Path, c.config.Model.LabelsPath)
	if err != nil {
		c.logger.WithError(err).Warn("Classifier unavailable, every transaction gets a default category",
			logging.Field{Key: logging.FieldFile, Value: c.config.Model.Path})
	}
	return categorizer.NewPredictor(directory, model, decoder, categorizer.Options{
		Timeout:      c.config.ModelTimeout(),
		DefaultColor: c.config.Categories.DefaultColor,
		DefaultIcon:  c.config.Categories.DefaultIcon,
	}, c.logger)
}

// GetProcessor returns the import pipeline, opening the database on first use.
func (c *Container) GetProcessor() (*processor.Processor, error) {
	if err := c.open(); err != nil {
		return nil, err
	}
	return c.processor, nil
}

// GetPredictor returns the category predictor, opening the database on first use.
func (c *Container) GetPredictor() (*categorizer.Predictor, error) {
	if err := c.open(); err != nil {
		return nil, err
	}
	return c.predictor, nil
}

// GetCategoryStore returns the category directory, opening the database on first use.
func (c *Container) GetCategoryStore() (*store.CategoryStore, error) {
	if err := c.open(); err != nil {
		return nil, err
	}
	return c.categories, nil
}

// GetTransactionStore returns the transaction store, opening the database on first use.
func (c *Container) GetTransactionStore() (*store.TransactionStore, error) {
	if err := c.open(); err != nil {
		return nil, err
	}
	return c.transactions, nil
}

// SeedDefaultCategories creates the configured global default categories that do not
// exist yet and returns how many were added.
func (c *Container) SeedDefaultCategories(ctx context.Context) (int, error) {
	categories, err := c.GetCategoryStore()
	if err != nil {
		return 0, err
	}
	defaults, err := store.LoadDefaultCategories(c.config.Categories.DefaultsFile)
	if err != nil {
		return 0, err
	}
	return categories.SeedGlobalDefaults(ctx, defaults)
}

// Close releases the database connection if one was opened.
func (c *Container) Close() error {
	if c.db == nil {
		return nil
	}
	if err := store.Close(c.db); err != nil {
		return fmt.Errorf("error closing database: %w", err)
	}
	c.logger.Debug("Container closed")
	return nil
}
