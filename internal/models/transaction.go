package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Transaction is a persisted, categorized statement line.
type Transaction struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	BatchID     uuid.UUID       `gorm:"type:uuid;index;not null" json:"batch_id"`
	UserID      uuid.UUID       `gorm:"type:uuid;index;not null" json:"user_id"`
	CategoryID  uuid.UUID       `gorm:"type:uuid;index;not null" json:"category_id"`
	Date        time.Time       `gorm:"type:date;not null" json:"date"`
	Description string          `gorm:"not null" json:"description"`
	Amount      decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Type        TransactionType `gorm:"type:varchar(6);not null" json:"type"`
	CreatedAt   time.Time       `json:"created_at"`
}

// BeforeCreate assigns an id when the caller did not.
func (t *Transaction) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// ImportBatch records the outcome of one document import. It is written in the same
// database transaction as the batch's rows.
type ImportBatch struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;index;not null" json:"user_id"`
	Source      string         `json:"source"`
	Imported    int            `json:"imported"`
	Skipped     int            `json:"skipped"`
	SkipReasons datatypes.JSON `json:"skip_reasons"`
	CreatedAt   time.Time      `json:"created_at"`
}
