// Package statement turns raw statement tables into cleaned, typed rows and reads and
// writes the delimited files that carry them.
package statement

import (
	"fmt"

	"jamledger/stmt-ingest/internal/models"
)

// ColumnMapping names the positions of the fields in a RawRow. A negative index means
// the source has no such column.
type ColumnMapping struct {
	Date        int `mapstructure:"date" yaml:"date"`
	Description int `mapstructure:"description" yaml:"description"`
	Credit      int `mapstructure:"credit" yaml:"credit"`
	Debit       int `mapstructure:"debit" yaml:"debit"`
	Balance     int `mapstructure:"balance" yaml:"balance"`
}

// DefaultColumnMapping is the layout of the supported bank's statement table.
var DefaultColumnMapping = ColumnMapping{Date: 0, Description: 1, Credit: 2, Debit: 3, Balance: 4}

// Validate rejects mappings without a date or description or with duplicate indices.
func (m ColumnMapping) Validate() error {
	if m.Date < 0 || m.Description < 0 {
		return fmt.Errorf("column mapping needs date and description columns")
	}
	if m.Credit < 0 && m.Debit < 0 {
		return fmt.Errorf("column mapping needs a credit or debit column")
	}
	seen := map[int]string{}
	for name, idx := range map[string]int{
		"date": m.Date, "description": m.Description, "credit": m.Credit, "debit": m.Debit, "balance": m.Balance,
	} {
		if idx < 0 {
			continue
		}
		if other, ok := seen[idx]; ok {
			return fmt.Errorf("columns %s and %s share index %d", other, name, idx)
		}
		seen[idx] = name
	}
	return nil
}

// Width is the number of columns a row needs to hold every mapped field.
func (m ColumnMapping) Width() int {
	width := 0
	for _, idx := range []int{m.Date, m.Description, m.Credit, m.Debit, m.Balance} {
		if idx+1 > width {
			width = idx + 1
		}
	}
	return width
}

// StatementRow is a RawRow with its fields named. Values are trimmed.
type StatementRow struct {
	Date        string
	Description string
	Credit      string
	Debit       string
	Balance     string
}

// Map names the fields of row. Columns the row does not have come back empty.
func (m ColumnMapping) Map(row models.RawRow) StatementRow {
	return StatementRow{
		Date:        row.Cell(m.Date),
		Description: row.Cell(m.Description),
		Credit:      row.Cell(m.Credit),
		Debit:       row.Cell(m.Debit),
		Balance:     row.Cell(m.Balance),
	}
}
