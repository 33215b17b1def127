package statement

import (
	"strings"

	"jamledger/stmt-ingest/internal/currencyutils"
	"jamledger/stmt-ingest/internal/logging"
	"jamledger/stmt-ingest/internal/models"

	"github.com/shopspring/decimal"
)

// Cleaned row types as written to the cleaned CSV.
const (
	TypeCredit = "CREDIT"
	TypeDebit  = "DEBIT"
)

// MinColumns is the smallest row width that can hold a transaction.
const MinColumns = 4

// DefaultHeaderTokens are first-column values that mark header or noise rows.
var DefaultHeaderTokens = []string{"date", "transaction", "0"}

// CleanedRow is one transaction in the cleaned format. Amount and Balance hold
// canonical currency strings; Amount is always a magnitude and Type carries the sign.
type CleanedRow struct {
	Date        string `csv:"Date"`
	Description string `csv:"Description"`
	Amount      string `csv:"Amount"`
	Type        string `csv:"Type"`
	Balance     string `csv:"Balance"`
}

// TransactionType maps the cleaned type onto the persisted enum.
func (r CleanedRow) TransactionType() (models.TransactionType, bool) {
	switch strings.ToUpper(strings.TrimSpace(r.Type)) {
	case TypeCredit:
		return models.TransactionTypeCredit, true
	case TypeDebit:
		return models.TransactionTypeDebit, true
	default:
		return "", false
	}
}

// Stats summarises one cleaning pass. Totals are sums of magnitudes.
type Stats struct {
	// ValidTransactions counts credit and debit cells that parsed to an amount.
	ValidTransactions int             `json:"valid_transactions"`
	TotalCredits      decimal.Decimal `json:"total_credits"`
	TotalDebits       decimal.Decimal `json:"total_debits"`
	NetAmount         decimal.Decimal `json:"net_amount"`
	SkippedRows       int             `json:"skipped_rows"`
	CleanedRows       int             `json:"cleaned_rows"`
}

// Summarize computes Stats for rows that are already in the cleaned format. Rows whose
// amount or type does not parse are left out of the totals.
func Summarize(rows []CleanedRow, normalizer currencyutils.Normalizer) Stats {
	stats := Stats{
		TotalCredits: decimal.Zero,
		TotalDebits:  decimal.Zero,
		CleanedRows:  len(rows),
	}
	for _, r := range rows {
		amount, ok := normalizer.Parse(r.Amount)
		if !ok {
			continue
		}
		typ, ok := r.TransactionType()
		if !ok {
			continue
		}
		stats.ValidTransactions++
		if typ.IsIncome() {
			stats.TotalCredits = stats.TotalCredits.Add(amount.Abs())
		} else {
			stats.TotalDebits = stats.TotalDebits.Add(amount.Abs())
		}
	}
	stats.NetAmount = stats.TotalCredits.Sub(stats.TotalDebits)
	return stats
}

// Cleaner filters raw rows down to transactions.
type Cleaner struct {
	Mapping    ColumnMapping
	Normalizer currencyutils.Normalizer

	headerTokens map[string]struct{}
	logger       logging.Logger
}

// NewCleaner returns a Cleaner. Empty headerTokens selects DefaultHeaderTokens.
func NewCleaner(mapping ColumnMapping, normalizer currencyutils.Normalizer, headerTokens []string, logger logging.Logger) *Cleaner {
	if len(headerTokens) == 0 {
		headerTokens = DefaultHeaderTokens
	}
	tokens := make(map[string]struct{}, len(headerTokens))
	for _, t := range headerTokens {
		tokens[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	if normalizer.Marker == "" {
		normalizer = currencyutils.NewNormalizer("")
	}
	return &Cleaner{
		Mapping:      mapping,
		Normalizer:   normalizer,
		headerTokens: tokens,
		logger:       logger,
	}
}

// NewDefaultCleaner returns a Cleaner for the default layout and currency.
func NewDefaultCleaner(logger logging.Logger) *Cleaner {
	return NewCleaner(DefaultColumnMapping, currencyutils.NewNormalizer(""), nil, logger)
}

// Clean keeps the rows that describe a transaction, in input order.
//
// A row is skipped when it has fewer than MinColumns fields, when its first field is
// empty or a header token, when neither credit nor debit parses to a non-zero amount,
// or when its description is empty. A parsed debit takes precedence over a credit on
// the same row. Credit and debit totals include every cell that parsed, whether or not
// the row was kept.
func (c *Cleaner) Clean(rows []models.RawRow) ([]CleanedRow, Stats) {
	log := logging.OrDefault(c.logger)

	cleaned := make([]CleanedRow, 0, len(rows))
	stats := Stats{
		TotalCredits: decimal.Zero,
		TotalDebits:  decimal.Zero,
	}
	skip := func(i int, reason string) {
		stats.SkippedRows++
		log.Debug("Skipping statement row",
			logging.Field{Key: logging.FieldRow, Value: i},
			logging.Field{Key: logging.FieldReason, Value: reason})
	}

	for i, raw := range rows {
		if len(raw) < MinColumns {
			skip(i, "too few columns")
			continue
		}
		first := raw.Cell(0)
		if first == "" {
			skip(i, "empty first column")
			continue
		}
		if _, ok := c.headerTokens[strings.ToLower(first)]; ok {
			skip(i, "header row")
			continue
		}

		row := c.Mapping.Map(raw)

		var (
			amount decimal.Decimal
			kind   string
		)
		if credit, ok := c.Normalizer.Parse(row.Credit); ok {
			amount, kind = credit.Abs(), TypeCredit
			stats.TotalCredits = stats.TotalCredits.Add(amount)
			stats.ValidTransactions++
		}
		if debit, ok := c.Normalizer.Parse(row.Debit); ok {
			amount, kind = debit.Abs(), TypeDebit
			stats.TotalDebits = stats.TotalDebits.Add(amount)
			stats.ValidTransactions++
		}

		if kind == "" {
			skip(i, "no amount")
			continue
		}
		if row.Description == "" {
			skip(i, "empty description")
			continue
		}

		balance := ""
		if b, ok := c.Normalizer.Parse(row.Balance); ok {
			balance = c.Normalizer.Format(b)
		}

		cleaned = append(cleaned, CleanedRow{
			Date:        row.Date,
			Description: row.Description,
			Amount:      c.Normalizer.Format(amount),
			Type:        kind,
			Balance:     balance,
		})
	}

	stats.CleanedRows = len(cleaned)
	stats.NetAmount = stats.TotalCredits.Sub(stats.TotalDebits)

	log.Info("Cleaned statement rows",
		logging.Field{Key: "input_rows", Value: len(rows)},
		logging.Field{Key: "cleaned_rows", Value: stats.CleanedRows},
		logging.Field{Key: "skipped_rows", Value: stats.SkippedRows})
	return cleaned, stats
}
