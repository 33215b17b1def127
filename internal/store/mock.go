package store

import (
	"context"
	"strings"
	"sync"

	"jamledger/stmt-ingest/internal/models"
	"jamledger/stmt-ingest/internal/parsererror"

	"github.com/google/uuid"
)

// MockCategoryDirectory is an in-memory category directory for tests.
type MockCategoryDirectory struct {
	mu         sync.Mutex
	Categories []models.Category

	ListErr   error
	EnsureErr error

	ListCalls   int
	EnsureCalls int
}

// NewMockCategoryDirectory returns a directory holding categories in order.
func NewMockCategoryDirectory(categories ...models.Category) *MockCategoryDirectory {
	return &MockCategoryDirectory{Categories: categories}
}

// ListVisibleCategories returns the user's and the global categories in insertion order.
func (m *MockCategoryDirectory) ListVisibleCategories(_ context.Context, userID uuid.UUID) ([]models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCalls++
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	var out []models.Category
	for _, c := range m.Categories {
		if c.UserID == nil || *c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

// EnsureCategory finds or appends the user's category.
func (m *MockCategoryDirectory) EnsureCategory(_ context.Context, spec models.CategorySpec) (models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EnsureCalls++
	if m.EnsureErr != nil {
		return models.Category{}, m.EnsureErr
	}
	key := models.CategoryKey(spec.Name)
	for _, c := range m.Categories {
		if c.UserID != nil && *c.UserID == spec.UserID && models.CategoryKey(c.Name) == key {
			return c, nil
		}
	}
	uid := spec.UserID
	c := models.Category{
		ID:       uuid.New(),
		UserID:   &uid,
		Name:     strings.TrimSpace(spec.Name),
		NameKey:  key,
		Color:    spec.Color,
		Icon:     spec.Icon,
		IsIncome: spec.IsIncome,
	}
	m.Categories = append(m.Categories, c)
	return c, nil
}

// MockTransactionStore records saved batches. When Err is set, SaveBatch stores
// nothing and fails like the real store.
type MockTransactionStore struct {
	mu      sync.Mutex
	Saved   []models.Transaction
	Batches []models.ImportBatch
	Err     error
	Calls   int
}

// SaveBatch appends txs and batch unless Err is set.
func (m *MockTransactionStore) SaveBatch(_ context.Context, batch models.ImportBatch, txs []models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.Err != nil {
		return &parsererror.PersistenceError{Operation: "save batch", Count: len(txs), Err: m.Err}
	}
	m.Saved = append(m.Saved, txs...)
	m.Batches = append(m.Batches, batch)
	return nil
}
