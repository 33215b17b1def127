package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"jamledger/stmt-ingest/internal/models"

	"gopkg.in/yaml.v3"
)

// DefaultCategory is a global category every user can see.
type DefaultCategory struct {
	Name     string `yaml:"name"`
	Color    string `yaml:"color"`
	Icon     string `yaml:"icon"`
	IsIncome bool   `yaml:"is_income"`
}

type defaultCategoriesFile struct {
	Categories []DefaultCategory `yaml:"categories"`
}

// BuiltinDefaults is used when no defaults file is configured.
var BuiltinDefaults = []DefaultCategory{
	{Name: "Food & Dining", Color: "#e67e22", Icon: "utensils"},
	{Name: "Transportation", Color: "#3498db", Icon: "car"},
	{Name: "Utilities", Color: "#f1c40f", Icon: "bolt"},
	{Name: "Shopping", Color: "#9b59b6", Icon: "shopping-bag"},
	{Name: "Entertainment", Color: "#e74c3c", Icon: "film"},
	{Name: "Salary", Color: "#2ecc71", Icon: "briefcase", IsIncome: true},
	{Name: models.CategoryOther, Color: models.DefaultCategoryColor, Icon: models.DefaultCategoryIcon},
	{Name: models.CategoryOtherIncome, Color: models.DefaultCategoryColor, Icon: models.DefaultCategoryIcon, IsIncome: true},
}

// FindConfigFile looks for filename as given, then under ./config and
// $HOME/.config/stmt-ingest.
func FindConfigFile(filename string) (string, error) {
	if filepath.IsAbs(filename) {
		if _, err := os.Stat(filename); err != nil {
			return "", err
		}
		return filename, nil
	}

	locations := []string{
		filename,
		filepath.Join("config", filename),
	}
	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(home, ".config", "stmt-ingest", filename))
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location, nil
		}
	}
	return "", os.ErrNotExist
}

// LoadDefaultCategories reads default categories from a YAML file, accepting either a
// top-level "categories:" list or a bare list. An empty filename or a file that does
// not exist yields BuiltinDefaults.
func LoadDefaultCategories(filename string) ([]DefaultCategory, error) {
	if filename == "" {
		return BuiltinDefaults, nil
	}
	path, err := FindConfigFile(filename)
	if errors.Is(err, os.ErrNotExist) {
		return BuiltinDefaults, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error resolving default categories file: %w", err)
	}

	data, err := os.ReadFile(path) // #nosec G304 -- operator supplied configuration file
	if err != nil {
		return nil, fmt.Errorf("error reading default categories file: %w", err)
	}

	var wrapped defaultCategoriesFile
	if err := yaml.Unmarshal(data, &wrapped); err == nil && len(wrapped.Categories) > 0 {
		return normalizeDefaults(wrapped.Categories)
	}

	var list []DefaultCategory
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("error parsing default categories file: %w", err)
	}
	return normalizeDefaults(list)
}

func normalizeDefaults(in []DefaultCategory) ([]DefaultCategory, error) {
	out := make([]DefaultCategory, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, d := range in {
		d.Name = strings.TrimSpace(d.Name)
		if d.Name == "" {
			return nil, errors.New("default category without a name")
		}
		key := models.CategoryKey(d.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		if d.Color == "" {
			d.Color = models.DefaultCategoryColor
		}
		if d.Icon == "" {
			d.Icon = models.DefaultCategoryIcon
		}
		out = append(out, d)
	}
	return out, nil
}
