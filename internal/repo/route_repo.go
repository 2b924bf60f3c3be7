// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides read-only repository functions for
// curated routes and their stops.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-travel-portal/internal/domain"
)

// ListRoutes returns active routes, featured first, then by name.
func ListRoutes(ctx context.Context, db *gorm.DB, featuredOnly bool) ([]domain.Route, error) {
	var out []domain.Route
	q := db.WithContext(ctx).Where("is_active = ?", true)
	if featuredOnly {
		q = q.Where("is_featured = ?", true)
	}
	err := q.Order("is_featured DESC, name ASC, id ASC").Find(&out).Error
	return out, err
}

// GetRouteBySlug fetches an active route with its stops ordered by
// (day_number, stop_order), or ErrNotFound.
func GetRouteBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Route, error) {
	var r domain.Route
	err := db.WithContext(ctx).
		Preload("Stops", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("day_number ASC, stop_order ASC, id ASC")
		}).
		Where("slug = ? AND is_active = ?", slug, true).
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}
