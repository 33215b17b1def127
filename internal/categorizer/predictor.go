package categorizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"jamledger/stmt-ingest/internal/logging"
	"jamledger/stmt-ingest/internal/models"
	"jamledger/stmt-ingest/internal/parsererror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// DefaultTimeout bounds one classifier call.
const DefaultTimeout = 2 * time.Second

// Options tunes a Predictor. Zero values select the defaults.
type Options struct {
	Timeout      time.Duration
	DefaultColor string
	DefaultIcon  string
	Strategies   []MatchStrategy
}

// Decision is the outcome of one prediction.
type Decision struct {
	// Label is the decoded classifier output, empty when the classifier was not used.
	Label    string
	Strategy string
	Category models.Category
}

// Predictor resolves transactions to category ids.
type Predictor struct {
	model     Model
	decoder   LabelDecoder
	directory CategoryDirectory
	opts      Options
	defaults  singleflight.Group
	logger    logging.Logger
}

// NewPredictor returns a Predictor. A nil model or decoder makes every prediction fall
// back to the default categories.
func NewPredictor(directory CategoryDirectory, model Model, decoder LabelDecoder, opts Options, logger logging.Logger) *Predictor {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.DefaultColor == "" {
		opts.DefaultColor = models.DefaultCategoryColor
	}
	if opts.DefaultIcon == "" {
		opts.DefaultIcon = models.DefaultCategoryIcon
	}
	if len(opts.Strategies) == 0 {
		opts.Strategies = DefaultStrategies()
	}
	if model == nil || decoder == nil {
		model, decoder = nil, nil
	}
	return &Predictor{
		model:     model,
		decoder:   decoder,
		directory: directory,
		opts:      opts,
		logger:    logging.OrDefault(logger),
	}
}

// HasModel reports whether a classifier is loaded.
func (p *Predictor) HasModel() bool {
	return p.model != nil
}

// Predict returns the category id for a transaction. The boolean is false only when
// the default category could not be resolved; the row is then unprocessable.
func (p *Predictor) Predict(ctx context.Context, userID uuid.UUID, description string, amount decimal.Decimal, isIncome bool) (uuid.UUID, bool) {
	d, err := p.Explain(ctx, userID, description, amount, isIncome)
	if err != nil {
		p.logger.WithError(err).Warn("Could not categorize transaction",
			logging.Field{Key: logging.FieldUserID, Value: userID},
			logging.Field{Key: logging.FieldDescription, Value: description})
		return uuid.Nil, false
	}
	return d.Category.ID, true
}

// Explain is Predict with the label and the strategy that produced the category.
func (p *Predictor) Explain(ctx context.Context, userID uuid.UUID, description string, amount decimal.Decimal, isIncome bool) (Decision, error) {
	if p.model != nil {
		if d, ok := p.matchPrediction(ctx, userID, description, amount, isIncome); ok {
			return d, nil
		}
	}

	category, err := p.defaultCategory(ctx, userID, isIncome)
	if err != nil {
		return Decision{}, err
	}
	return Decision{Strategy: StrategyDefault, Category: category}, nil
}

func (p *Predictor) matchPrediction(ctx context.Context, userID uuid.UUID, description string, amount decimal.Decimal, isIncome bool) (Decision, bool) {
	f := Features{
		Description: strings.ToLower(strings.TrimSpace(description)),
		Amount:      amount.Abs(),
		Type:        FeatureTypeDebit,
	}
	if isIncome {
		f.Type = FeatureTypeCredit
	}

	label, err := p.predictLabel(ctx, f)
	if err != nil {
		p.logger.WithError(err).Debug("No prediction, using default category",
			logging.Field{Key: logging.FieldDescription, Value: description})
		return Decision{}, false
	}

	categories, err := p.directory.ListVisibleCategories(ctx, userID)
	if err != nil {
		p.logger.WithError(err).Warn("Could not list categories, using default category",
			logging.Field{Key: logging.FieldUserID, Value: userID})
		return Decision{}, false
	}

	for _, s := range p.opts.Strategies {
		if c, ok := s.Match(label, categories); ok {
			p.logger.Debug("Matched predicted category",
				logging.Field{Key: logging.FieldDescription, Value: description},
				logging.Field{Key: logging.FieldCategory, Value: c.Name},
				logging.Field{Key: logging.FieldStrategy, Value: s.Name()})
			return Decision{Label: label, Strategy: s.Name(), Category: c}, true
		}
	}
	return Decision{}, false
}

type prediction struct {
	label string
	err   error
}

// predictLabel runs the classifier and decoder under the configured timeout. A
// classifier that hangs is abandoned; its goroutine finishes on its own.
func (p *Predictor) predictLabel(ctx context.Context, f Features) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	done := make(chan prediction, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- prediction{err: fmt.Errorf("classifier panic: %v", r)}
			}
		}()
		encoded, err := p.model.Predict(f)
		if err != nil {
			done <- prediction{err: err}
			return
		}
		label, err := p.decoder.InverseTransform(encoded)
		done <- prediction{label: label, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return "", &parsererror.CategorizationError{Description: f.Description, Strategy: "classifier", Err: r.err}
		}
		return r.label, nil
	case <-ctx.Done():
		return "", &parsererror.CategorizationError{Description: f.Description, Strategy: "classifier", Err: ctx.Err()}
	}
}

// defaultCategory resolves "Other" or "Other Income" for the user, creating it once
// even when many rows ask at the same time.
func (p *Predictor) defaultCategory(ctx context.Context, userID uuid.UUID, isIncome bool) (models.Category, error) {
	name := models.DefaultCategoryName(isIncome)
	key := userID.String() + "|" + models.CategoryKey(name)

	// Callers share the result, so one caller's cancellation must not fail the rest.
	shared := context.WithoutCancel(ctx)
	v, err, _ := p.defaults.Do(key, func() (interface{}, error) {
		return p.directory.EnsureCategory(shared, models.CategorySpec{
			UserID:   userID,
			Name:     name,
			Color:    p.opts.DefaultColor,
			Icon:     p.opts.DefaultIcon,
			IsIncome: isIncome,
		})
	})
	if err != nil {
		return models.Category{}, &parsererror.CategorizationError{Description: name, Strategy: StrategyDefault, Err: err}
	}
	return v.(models.Category), nil
}
