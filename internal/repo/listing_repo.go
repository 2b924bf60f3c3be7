// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Listing
// model: keyword search, featured reads, paginated catalog reads and the
// admin write path.
//
// Public reads only ever see rows with is_active = true. Listings are never
// hard-deleted; deactivation flips the flag.
package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-travel-portal/internal/domain"
)

// searchColumns are matched against every keyword token.
var searchColumns = []string{"name", "description", "location", "region"}

// rankOrder puts featured listings first, then the most viewed. id breaks
// ties so pagination and tests are deterministic.
const rankOrder = "is_featured DESC, view_count DESC, id ASC"

// ListingFilter narrows a keyword search.
type ListingFilter struct {
	CategoryID uint
	Region     string
}

// ListingQuery drives the public catalog listing endpoint.
type ListingQuery struct {
	CategorySlug string
	Region       string
	Q            string
}

// escapeLike escapes LIKE wildcards so user text matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// containsAny builds "(col1 LIKE ? OR col2 LIKE ? ...)" across every
// column × token combination, case-insensitively.
func containsAny(tokens []string) (string, []any) {
	parts := make([]string, 0, len(tokens)*len(searchColumns))
	args := make([]any, 0, len(tokens)*len(searchColumns))
	for _, tok := range tokens {
		pattern := "%" + escapeLike(strings.ToLower(tok)) + "%"
		for _, col := range searchColumns {
			parts = append(parts, "LOWER("+col+`) LIKE ? ESCAPE '\'`)
			args = append(args, pattern)
		}
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}

// SearchListings returns up to limit active listings where any search column
// contains any of the tokens. Tokens are expected to be lowercased and
// already filtered; an empty token list returns no rows without querying.
func SearchListings(ctx context.Context, db *gorm.DB, tokens []string, f ListingFilter, limit int) ([]domain.Listing, error) {
	if len(tokens) == 0 {
		return []domain.Listing{}, nil
	}
	cond, args := containsAny(tokens)
	q := db.WithContext(ctx).
		Where("is_active = ?", true).
		Where(cond, args...)
	if f.CategoryID != 0 {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if r := strings.TrimSpace(f.Region); r != "" {
		q = q.Where("LOWER(region) = ?", strings.ToLower(r))
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []domain.Listing
	err := q.Order(rankOrder).Find(&out).Error
	return out, err
}

// FeaturedListings returns active featured listings ordered by popularity,
// optionally restricted to the category with the given slug.
func FeaturedListings(ctx context.Context, db *gorm.DB, categorySlug string, limit int) ([]domain.Listing, error) {
	q := db.WithContext(ctx).
		Where("is_active = ? AND is_featured = ?", true, true)
	if s := strings.TrimSpace(categorySlug); s != "" {
		q = q.Where("category_id IN (?)", db.Model(&domain.Category{}).Select("id").Where("slug = ?", s))
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []domain.Listing
	err := q.Order("view_count DESC, id ASC").Find(&out).Error
	return out, err
}

// applyListingQuery adds the public catalog filters to q.
func applyListingQuery(db, q *gorm.DB, lq ListingQuery) *gorm.DB {
	q = q.Where("is_active = ?", true)
	if s := strings.TrimSpace(lq.CategorySlug); s != "" {
		q = q.Where("category_id IN (?)", db.Model(&domain.Category{}).Select("id").Where("slug = ?", s))
	}
	if r := strings.TrimSpace(lq.Region); r != "" {
		q = q.Where("LOWER(region) = ?", strings.ToLower(r))
	}
	if text := strings.TrimSpace(lq.Q); text != "" {
		cond, args := containsAny([]string{text})
		q = q.Where(cond, args...)
	}
	return q
}

// CountListings returns the number of active listings matching lq.
func CountListings(ctx context.Context, db *gorm.DB, lq ListingQuery) (int64, error) {
	var total int64
	q := applyListingQuery(db, db.WithContext(ctx).Model(&domain.Listing{}), lq)
	err := q.Count(&total).Error
	return total, err
}

// ListListingsPage returns one page of active listings matching lq, ranked
// like search results, with Category preloaded.
func ListListingsPage(ctx context.Context, db *gorm.DB, lq ListingQuery, offset, limit int) ([]domain.Listing, error) {
	var out []domain.Listing
	q := applyListingQuery(db, db.WithContext(ctx), lq)
	err := q.Preload("Category").
		Order(rankOrder).
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetListingBySlug fetches an active listing with its category and media
// (ordered by display order), or ErrNotFound.
func GetListingBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Listing, error) {
	var l domain.Listing
	err := db.WithContext(ctx).
		Preload("Category").
		Preload("Media", func(tx *gorm.DB) *gorm.DB { return tx.Order("display_order ASC, id ASC") }).
		Where("slug = ? AND is_active = ?", slug, true).
		First(&l).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// GetListing fetches a listing by id regardless of its active flag.
func GetListing(ctx context.Context, db *gorm.DB, id uint) (*domain.Listing, error) {
	var l domain.Listing
	if err := db.WithContext(ctx).First(&l, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

// IncrementListingViews adds one to view_count without touching updated_at.
func IncrementListingViews(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).
		Model(&domain.Listing{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CreateListing inserts l. A slug collision yields ErrDuplicate.
func CreateListing(ctx context.Context, db *gorm.DB, l *domain.Listing) error {
	if err := db.WithContext(ctx).Create(l).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// UpdateListing applies column updates to the listing with the given id.
// It returns ErrNotFound when no row matches and ErrDuplicate on a slug
// collision.
func UpdateListing(ctx context.Context, db *gorm.DB, id uint, updates map[string]any) error {
	if len(updates) == 0 {
		_, err := GetListing(ctx, db, id)
		return err
	}
	res := db.WithContext(ctx).
		Model(&domain.Listing{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return ErrDuplicate
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetListingActive flips the soft-delete flag.
func SetListingActive(ctx context.Context, db *gorm.DB, id uint, active bool) error {
	return UpdateListing(ctx, db, id, map[string]any{"is_active": active})
}

// SlugExists reports whether a listing already uses slug.
func SlugExists(ctx context.Context, db *gorm.DB, slug string) (bool, error) {
	var n int64
	if err := db.WithContext(ctx).Model(&domain.Listing{}).Where("slug = ?", slug).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}
