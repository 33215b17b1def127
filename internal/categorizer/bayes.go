package categorizer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"jamledger/stmt-ingest/internal/currencyutils"
	"jamledger/stmt-ingest/internal/models"
	"jamledger/stmt-ingest/internal/parsererror"

	"github.com/gocarina/gocsv"
	"github.com/jbrukh/bayesian"
	"gopkg.in/yaml.v3"
)

// Tokens turns features into the classifier vocabulary: the lower-cased words of the
// description, the transaction type and the number of integer digits of the amount.
func Tokens(f Features) []string {
	words := strings.FieldsFunc(strings.ToLower(strings.TrimSpace(f.Description)), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '&'
	})
	tokens := make([]string, 0, len(words)+2)
	tokens = append(tokens, words...)
	if f.Type != "" {
		tokens = append(tokens, "type:"+strings.ToLower(f.Type))
	}
	if !f.Amount.IsZero() {
		digits := len(strconv.FormatInt(f.Amount.Abs().IntPart(), 10))
		tokens = append(tokens, "amount:"+strconv.Itoa(digits))
	}
	return tokens
}

// BayesModel is a naive Bayes classifier over Tokens.
type BayesModel struct {
	cl *bayesian.Classifier
}

// NewBayesModel wraps a trained classifier.
func NewBayesModel(cl *bayesian.Classifier) *BayesModel {
	return &BayesModel{cl: cl}
}

// Predict returns the index of the best scoring class. A panic inside the classifier,
// such as an unconverted TF-IDF model, is returned as an error.
func (m *BayesModel) Predict(f Features) (label int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("classifier panic: %v", r)
		}
	}()
	if m == nil || m.cl == nil {
		return 0, parsererror.ErrModelUnavailable
	}
	tokens := Tokens(f)
	if len(tokens) == 0 {
		return 0, errors.New("no features to classify")
	}
	_, label, _ = m.cl.LogScores(tokens)
	return label, nil
}

// Labels returns the classifier's own class list as a decoder.
func (m *BayesModel) Labels() LabelList {
	labels := make(LabelList, len(m.cl.Classes))
	for i, c := range m.cl.Classes {
		labels[i] = string(c)
	}
	return labels
}

// Save writes the classifier to path.
func (m *BayesModel) Save(path string) error {
	if err := m.cl.WriteToFile(path); err != nil {
		return fmt.Errorf("error writing model to %s: %w", path, err)
	}
	return nil
}

// LabelList decodes a label by position.
type LabelList []string

// InverseTransform implements LabelDecoder.
func (l LabelList) InverseTransform(label int) (string, error) {
	if label < 0 || label >= len(l) {
		return "", fmt.Errorf("label %d out of range [0, %d)", label, len(l))
	}
	return l[label], nil
}

type labelsFile struct {
	Labels []string `yaml:"labels"`
}

// LoadLabels reads a YAML label list, either bare or under a "labels:" key.
func LoadLabels(path string) (LabelList, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator supplied model artifact
	if err != nil {
		return nil, fmt.Errorf("error reading labels file: %w", err)
	}

	var wrapped labelsFile
	if err := yaml.Unmarshal(data, &wrapped); err == nil && len(wrapped.Labels) > 0 {
		return wrapped.Labels, nil
	}
	var bare []string
	if err := yaml.Unmarshal(data, &bare); err != nil {
		return nil, fmt.Errorf("error parsing labels file: %w", err)
	}
	if len(bare) == 0 {
		return nil, errors.New("labels file is empty")
	}
	return bare, nil
}

// LoadModel loads a classifier artifact and its decoder. Without labelsPath the
// classifier's own class names decode the labels. Any failure wraps
// parsererror.ErrModelUnavailable.
func LoadModel(path, labelsPath string) (Model, LabelDecoder, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil, fmt.Errorf("%w: no model path configured", parsererror.ErrModelUnavailable)
	}
	cl, err := bayesian.NewClassifierFromFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", parsererror.ErrModelUnavailable, err)
	}
	model := NewBayesModel(cl)

	if labelsPath == "" {
		return model, model.Labels(), nil
	}
	labels, err := LoadLabels(labelsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", parsererror.ErrModelUnavailable, err)
	}
	if len(labels) != len(cl.Classes) {
		return nil, nil, fmt.Errorf("%w: %d labels for %d classes",
			parsererror.ErrModelUnavailable, len(labels), len(cl.Classes))
	}
	return model, labels, nil
}

// TrainingExample is one labelled row of a training CSV.
type TrainingExample struct {
	Description string `csv:"Description"`
	Amount      string `csv:"Amount"`
	Type        string `csv:"Type"`
	Category    string `csv:"Category"`
}

// Features converts the example to classifier input.
func (e TrainingExample) Features() Features {
	amount, _ := currencyutils.ParseAmount(e.Amount)
	return Features{
		Description: e.Description,
		Amount:      amount.Abs(),
		Type:        strings.ToUpper(strings.TrimSpace(e.Type)),
	}
}

// ReadTrainingCSV reads examples with the columns Description, Amount, Type, Category.
func ReadTrainingCSV(r io.Reader) ([]TrainingExample, error) {
	var examples []TrainingExample
	if err := gocsv.Unmarshal(r, &examples); err != nil {
		return nil, &parsererror.InvalidFormatError{
			ExpectedFormat: "training CSV",
			Msg:            err.Error(),
		}
	}
	return examples, nil
}

// TrainModel fits a classifier on examples. Rows without a category are ignored; at
// least two distinct categories are required.
func TrainModel(examples []TrainingExample) (*BayesModel, error) {
	seen := make(map[string]bool)
	var names []string
	for _, e := range examples {
		name := strings.TrimSpace(e.Category)
		if name == "" || seen[models.CategoryKey(name)] {
			continue
		}
		seen[models.CategoryKey(name)] = true
		names = append(names, name)
	}
	if len(names) < 2 {
		return nil, fmt.Errorf("training needs at least 2 categories, got %d", len(names))
	}
	sort.Strings(names)

	classes := make([]bayesian.Class, len(names))
	byKey := make(map[string]bayesian.Class, len(names))
	for i, n := range names {
		classes[i] = bayesian.Class(n)
		byKey[models.CategoryKey(n)] = classes[i]
	}

	cl := bayesian.NewClassifier(classes...)
	for _, e := range examples {
		class, ok := byKey[models.CategoryKey(e.Category)]
		if !ok {
			continue
		}
		if tokens := Tokens(e.Features()); len(tokens) > 0 {
			cl.Learn(tokens, class)
		}
	}
	return NewBayesModel(cl), nil
}
