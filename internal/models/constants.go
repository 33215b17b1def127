package models

// TransactionType is the direction of a transaction. Amounts are stored as magnitudes
// and the type carries the sign.
type TransactionType string

const (
	TransactionTypeCredit TransactionType = "credit"
	TransactionTypeDebit  TransactionType = "debit"
)

// IsIncome reports whether t is a credit.
func (t TransactionType) IsIncome() bool {
	return t == TransactionTypeCredit
}

// Fallback categories used when nothing better matches.
const (
	CategoryOther       = "Other"
	CategoryOtherIncome = "Other Income"

	DefaultCategoryColor = "#808080"
	DefaultCategoryIcon  = "tag"
)

// DefaultCategoryName returns the fallback category name for the direction.
func DefaultCategoryName(isIncome bool) string {
	if isIncome {
		return CategoryOtherIncome
	}
	return CategoryOther
}

// File permissions
const (
	PermissionDirectory  = 0750
	PermissionOutputFile = 0644
)
