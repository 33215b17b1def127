package store

import (
	"context"
	"fmt"

	"jamledger/stmt-ingest/internal/logging"
	"jamledger/stmt-ingest/internal/models"
	"jamledger/stmt-ingest/internal/parsererror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultBatchSize is the number of rows per INSERT statement.
const DefaultBatchSize = 100

// TransactionStore writes imported transactions.
type TransactionStore struct {
	db        *gorm.DB
	batchSize int
	logger    logging.Logger
}

// NewTransactionStore returns a TransactionStore. batchSize below 1 selects
// DefaultBatchSize.
func NewTransactionStore(db *gorm.DB, batchSize int, logger logging.Logger) *TransactionStore {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	return &TransactionStore{db: db, batchSize: batchSize, logger: logging.OrDefault(logger)}
}

// SaveBatch persists the rows and the batch record in one database transaction. On
// failure nothing is stored and the error is a *parsererror.PersistenceError.
func (s *TransactionStore) SaveBatch(ctx context.Context, batch models.ImportBatch, txs []models.Transaction) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(txs) > 0 {
			if err := tx.CreateInBatches(txs, s.batchSize).Error; err != nil {
				return err
			}
		}
		return tx.Create(&batch).Error
	})
	if err != nil {
		s.logger.WithError(err).Error("Batch rolled back",
			logging.Field{Key: logging.FieldBatchID, Value: batch.ID},
			logging.Field{Key: logging.FieldCount, Value: len(txs)})
		return &parsererror.PersistenceError{Operation: "save batch", Count: len(txs), Err: err}
	}

	s.logger.Info("Batch committed",
		logging.Field{Key: logging.FieldBatchID, Value: batch.ID},
		logging.Field{Key: logging.FieldUserID, Value: batch.UserID},
		logging.Field{Key: logging.FieldCount, Value: len(txs)})
	return nil
}

// CountByUser returns how many transactions the user has.
func (s *TransactionStore) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Transaction{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("error counting transactions: %w", err)
	}
	return n, nil
}

// ListByBatch returns a batch's transactions ordered by date.
func (s *TransactionStore) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := s.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("date ASC, id ASC").
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("error listing batch transactions: %w", err)
	}
	return txs, nil
}

// GetBatch returns the import record of a batch.
func (s *TransactionStore) GetBatch(ctx context.Context, batchID uuid.UUID) (models.ImportBatch, error) {
	var batch models.ImportBatch
	if err := s.db.WithContext(ctx).Where("id = ?", batchID).Take(&batch).Error; err != nil {
		return models.ImportBatch{}, fmt.Errorf("error loading batch %s: %w", batchID, err)
	}
	return batch, nil
}
