// Package categorizer assigns a category to each imported transaction. A classifier
// suggests a label, the label is resolved against the user's categories, and a default
// category is used when nothing matches.
package categorizer

import (
	"context"

	"jamledger/stmt-ingest/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type values passed to the classifier.
const (
	FeatureTypeCredit = "CREDIT"
	FeatureTypeDebit  = "DEBIT"
)

// Features is the classifier input for one transaction.
type Features struct {
	Description string
	Amount      decimal.Decimal
	Type        string
}

// Model is a trained classifier. Implementations must be safe for concurrent use.
type Model interface {
	// Predict returns the encoded label for f.
	Predict(f Features) (int, error)
}

// LabelDecoder maps encoded labels back to category names.
type LabelDecoder interface {
	InverseTransform(label int) (string, error)
}

// CategoryDirectory is the per-user view of the category table.
type CategoryDirectory interface {
	// ListVisibleCategories returns the user's own and the global categories, in a
	// stable order.
	ListVisibleCategories(ctx context.Context, userID uuid.UUID) ([]models.Category, error)
	// EnsureCategory returns the named category, creating it when absent. It must be
	// idempotent under concurrent calls.
	EnsureCategory(ctx context.Context, spec models.CategorySpec) (models.Category, error)
}
