package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"jamledger/stmt-ingest/internal/logging"
	"jamledger/stmt-ingest/internal/models"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CategoryStore is the category directory backed by the categories table. Visible
// category lists are cached per user for a short TTL.
type CategoryStore struct {
	db     *gorm.DB
	cache  *cache.Cache
	logger logging.Logger
}

// NewCategoryStore returns a CategoryStore. A zero ttl disables caching.
func NewCategoryStore(db *gorm.DB, ttl time.Duration, logger logging.Logger) *CategoryStore {
	s := &CategoryStore{db: db, logger: logging.OrDefault(logger)}
	if ttl > 0 {
		s.cache = cache.New(ttl, 2*ttl)
	}
	return s
}

// ListVisibleCategories returns the user's own categories and the global defaults,
// oldest first.
func (s *CategoryStore) ListVisibleCategories(ctx context.Context, userID uuid.UUID) ([]models.Category, error) {
	key := userID.String()
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			return cloneCategories(cached.([]models.Category)), nil
		}
	}

	var categories []models.Category
	err := s.db.WithContext(ctx).
		Where("user_id = ? OR user_id IS NULL", userID).
		Order("created_at ASC, id ASC").
		Find(&categories).Error
	if err != nil {
		return nil, fmt.Errorf("error listing categories: %w", err)
	}

	if s.cache != nil {
		s.cache.Set(key, cloneCategories(categories), cache.DefaultExpiration)
	}
	return categories, nil
}

// EnsureCategory returns the user's category named spec.Name (case-insensitively),
// creating it when absent. Concurrent callers for the same user and name get the same
// row: the insert is a no-op on the (user_id, name_key) unique index and the row is
// re-read afterwards. A nil UserID addresses the global defaults.
func (s *CategoryStore) EnsureCategory(ctx context.Context, spec models.CategorySpec) (models.Category, error) {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return models.Category{}, errors.New("category name must not be empty")
	}
	db := s.db.WithContext(ctx)

	if existing, found, err := s.find(db, spec.UserID, name); err != nil || found {
		return existing, err
	}

	category := models.Category{
		Name:     name,
		Color:    spec.Color,
		Icon:     spec.Icon,
		IsIncome: spec.IsIncome,
	}
	if spec.UserID == uuid.Nil {
		category.IsDefault = true
		if err := db.Create(&category).Error; err != nil {
			return models.Category{}, fmt.Errorf("error creating category %q: %w", name, err)
		}
	} else {
		uid := spec.UserID
		category.UserID = &uid
		res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&category)
		if res.Error != nil {
			return models.Category{}, fmt.Errorf("error creating category %q: %w", name, res.Error)
		}
		if res.RowsAffected == 0 {
			s.logger.Debug("Category created concurrently, reusing existing row",
				logging.Field{Key: logging.FieldUserID, Value: spec.UserID},
				logging.Field{Key: logging.FieldCategory, Value: name})
		}
	}
	s.invalidate(spec.UserID)

	existing, found, err := s.find(db, spec.UserID, name)
	if err != nil {
		return models.Category{}, err
	}
	if !found {
		return models.Category{}, fmt.Errorf("category %q missing after insert", name)
	}
	s.logger.Info("Ensured category",
		logging.Field{Key: logging.FieldUserID, Value: spec.UserID},
		logging.Field{Key: logging.FieldCategory, Value: existing.Name},
		logging.Field{Key: logging.FieldCategoryID, Value: existing.ID})
	return existing, nil
}

func (s *CategoryStore) find(db *gorm.DB, userID uuid.UUID, name string) (models.Category, bool, error) {
	q := db.Where("name_key = ?", models.CategoryKey(name))
	if userID == uuid.Nil {
		q = q.Where("user_id IS NULL")
	} else {
		q = q.Where("user_id = ?", userID)
	}

	var category models.Category
	err := q.Order("created_at ASC, id ASC").Take(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Category{}, false, nil
	}
	if err != nil {
		return models.Category{}, false, fmt.Errorf("error looking up category %q: %w", name, err)
	}
	return category, true, nil
}

// SeedGlobalDefaults creates the missing global default categories and returns how
// many were added.
func (s *CategoryStore) SeedGlobalDefaults(ctx context.Context, defaults []DefaultCategory) (int, error) {
	created := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, d := range defaults {
			_, found, err := s.find(tx, uuid.Nil, d.Name)
			if err != nil {
				return err
			}
			if found {
				continue
			}
			category := models.Category{
				Name:      strings.TrimSpace(d.Name),
				Color:     d.Color,
				Icon:      d.Icon,
				IsIncome:  d.IsIncome,
				IsDefault: true,
			}
			if err := tx.Create(&category).Error; err != nil {
				return fmt.Errorf("error creating default category %q: %w", d.Name, err)
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if s.cache != nil && created > 0 {
		s.cache.Flush()
	}
	s.logger.Info("Seeded global default categories",
		logging.Field{Key: logging.FieldCount, Value: created})
	return created, nil
}

// invalidate drops cached lists that may include the changed category.
func (s *CategoryStore) invalidate(userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if userID == uuid.Nil {
		s.cache.Flush()
		return
	}
	s.cache.Delete(userID.String())
}

func cloneCategories(in []models.Category) []models.Category {
	out := make([]models.Category, len(in))
	copy(out, in)
	return out
}
