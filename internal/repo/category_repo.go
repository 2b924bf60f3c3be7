// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Category
// model.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-travel-portal/internal/domain"
)

// ListCategories returns categories ordered by display order then name.
func ListCategories(ctx context.Context, db *gorm.DB, activeOnly bool) ([]domain.Category, error) {
	var out []domain.Category
	q := db.WithContext(ctx)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	err := q.Order("display_order ASC, name ASC").Find(&out).Error
	return out, err
}

// GetCategoryBySlug fetches a category by slug, or ErrNotFound.
func GetCategoryBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Category, error) {
	var c domain.Category
	if err := db.WithContext(ctx).First(&c, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCategory fetches a category by id, or ErrNotFound.
func GetCategory(ctx context.Context, db *gorm.DB, id uint) (*domain.Category, error) {
	var c domain.Category
	if err := db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// CategoryNames maps each of the given ids to its category name in a single
// query. Unknown ids are absent from the result.
func CategoryNames(ctx context.Context, db *gorm.DB, ids []uint) (map[uint]string, error) {
	out := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []struct {
		ID   uint
		Name string
	}
	err := db.WithContext(ctx).
		Model(&domain.Category{}).
		Select("id, name").
		Where("id IN ?", ids).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ID] = r.Name
	}
	return out, nil
}

// CreateCategory inserts c; a slug collision yields ErrDuplicate.
func CreateCategory(ctx context.Context, db *gorm.DB, c *domain.Category) error {
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// UpsertCategories inserts the given categories, leaving rows whose slug
// already exists untouched. It returns the number of rows inserted.
func UpsertCategories(ctx context.Context, db *gorm.DB, cats []domain.Category) (int64, error) {
	if len(cats) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	for i := range cats {
		if cats[i].CreatedAt.IsZero() {
			cats[i].CreatedAt = now
		}
		cats[i].UpdatedAt = now
	}
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "slug"}}, DoNothing: true}).
		Create(&cats)
	return res.RowsAffected, res.Error
}
