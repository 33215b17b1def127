package categorizer

import (
	"testing"

	"jamledger/stmt-ingest/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestMatchStrategies(t *testing.T) {
	categories := []models.Category{
		{Name: "Food"},
		{Name: ""},
		{Name: "Utilities"},
		{Name: "Food & Dining"},
	}

	tests := []struct {
		name     string
		strategy MatchStrategy
		label    string
		want     string
		found    bool
	}{
		{"exact ignores case", ExactMatchStrategy{}, "FOOD & DINING", "Food & Dining", true},
		{"exact ignores padding", ExactMatchStrategy{}, "  utilities ", "Utilities", true},
		{"exact rejects substring", ExactMatchStrategy{}, "Util", "", false},
		{"exact rejects empty label", ExactMatchStrategy{}, "", "", false},
		{"partial label inside name", PartialMatchStrategy{}, "util", "Utilities", true},
		{"partial name inside label", PartialMatchStrategy{}, "Fast Food", "Food", true},
		{"partial first in order wins", PartialMatchStrategy{}, "food & dining", "Food", true},
		{"partial skips empty names", PartialMatchStrategy{}, "Rent", "", false},
		{"partial rejects empty label", PartialMatchStrategy{}, " ", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := tc.strategy.Match(tc.label, categories)
			assert.Equal(t, tc.found, ok)
			assert.Equal(t, tc.want, got.Name)
		})
	}
}

func TestDefaultStrategies_Order(t *testing.T) {
	s := DefaultStrategies()
	assert.Len(t, s, 2)
	assert.Equal(t, StrategyExact, s[0].Name())
	assert.Equal(t, StrategyPartial, s[1].Name())
}
