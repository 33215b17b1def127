package categorizer

import (
	"strings"

	"jamledger/stmt-ingest/internal/models"
)

// Strategy names reported by Explain.
const (
	StrategyExact   = "exact"
	StrategyPartial = "partial"
	StrategyDefault = "default"
)

// MatchStrategy resolves a predicted label against a list of categories.
type MatchStrategy interface {
	// Match returns the first category in categories accepted by the strategy.
	Match(label string, categories []models.Category) (models.Category, bool)

	// Name returns the name of this strategy for logging and debugging purposes.
	Name() string
}

// ExactMatchStrategy accepts a category whose name equals the label, ignoring case.
type ExactMatchStrategy struct{}

// Name returns the name of this strategy.
func (ExactMatchStrategy) Name() string { return StrategyExact }

// Match implements MatchStrategy.
func (ExactMatchStrategy) Match(label string, categories []models.Category) (models.Category, bool) {
	key := models.CategoryKey(label)
	if key == "" {
		return models.Category{}, false
	}
	for _, c := range categories {
		if models.CategoryKey(c.Name) == key {
			return c, true
		}
	}
	return models.Category{}, false
}

// PartialMatchStrategy accepts a category when either name contains the other,
// ignoring case. "Food" matches a "Food & Dining" label and the reverse.
type PartialMatchStrategy struct{}

// Name returns the name of this strategy.
func (PartialMatchStrategy) Name() string { return StrategyPartial }

// Match implements MatchStrategy.
func (PartialMatchStrategy) Match(label string, categories []models.Category) (models.Category, bool) {
	key := models.CategoryKey(label)
	if key == "" {
		return models.Category{}, false
	}
	for _, c := range categories {
		name := models.CategoryKey(c.Name)
		if name == "" {
			continue
		}
		if strings.Contains(name, key) || strings.Contains(key, name) {
			return c, true
		}
	}
	return models.Category{}, false
}

// DefaultStrategies is the resolution order: exact names first, then containment.
func DefaultStrategies() []MatchStrategy {
	return []MatchStrategy{ExactMatchStrategy{}, PartialMatchStrategy{}}
}
