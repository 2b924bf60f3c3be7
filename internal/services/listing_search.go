package services

import (
	"context"
	"sort"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-travel-portal/internal/domain"
	"github.com/tbourn/go-travel-portal/internal/repo"
	"github.com/tbourn/go-travel-portal/internal/search"
)

// DefaultSearchLimit caps results when callers pass a non-positive limit.
const DefaultSearchLimit = 5

// ListingSearch answers free-text catalog queries for the chatbot. Results
// carry their category name and decoded features.
type ListingSearch struct {
	DB *gorm.DB
	// Categories serves name lookups; when nil they go to the store.
	Categories *CategoryCache
}

// NewListingSearch wires a ListingSearch.
func NewListingSearch(db *gorm.DB, categories *CategoryCache) *ListingSearch {
	return &ListingSearch{DB: db, Categories: categories}
}

// Search tokenizes query and returns up to limit active listings matching
// any token in name, description, location or region, featured and popular
// listings first. A query without usable tokens returns no results.
func (s *ListingSearch) Search(ctx context.Context, query string, f repo.ListingFilter, limit int) ([]domain.SearchResult, error) {
	tokens := search.Tokenize(query)

	ctx, span := otel.Tracer("services/ListingSearch").Start(ctx, "Search",
		trace.WithAttributes(
			attribute.Int("search.tokens", len(tokens)),
			attribute.Int("search.limit", limit),
		),
	)
	defer span.End()

	if len(tokens) == 0 {
		return []domain.SearchResult{}, nil
	}
	rows, err := repo.SearchListings(ctx, s.DB, tokens, f, normLimit(limit))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("search.results", len(rows)))
	return s.enrich(ctx, rows)
}

// Featured returns active featured listings, most viewed first, optionally
// restricted to one category slug.
func (s *ListingSearch) Featured(ctx context.Context, categorySlug string, limit int) ([]domain.SearchResult, error) {
	ctx, span := otel.Tracer("services/ListingSearch").Start(ctx, "Featured",
		trace.WithAttributes(attribute.String("category.slug", categorySlug)),
	)
	defer span.End()

	rows, err := repo.FeaturedListings(ctx, s.DB, categorySlug, normLimit(limit))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return s.enrich(ctx, rows)
}

// enrich attaches category names with one lookup over the distinct category
// ids and decodes features per row. A row whose features do not decode keeps
// Features nil.
func (s *ListingSearch) enrich(ctx context.Context, rows []domain.Listing) ([]domain.SearchResult, error) {
	out := make([]domain.SearchResult, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}

	seen := make(map[uint]struct{}, len(rows))
	ids := make([]uint, 0, len(rows))
	for _, l := range rows {
		if _, ok := seen[l.CategoryID]; !ok {
			seen[l.CategoryID] = struct{}{}
			ids = append(ids, l.CategoryID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	names, err := s.categoryNames(ctx, ids)
	if err != nil {
		return nil, err
	}

	logger := zerolog.Ctx(ctx)
	for _, l := range rows {
		r := domain.SearchResult{Listing: l, CategoryName: names[l.CategoryID]}
		features, ferr := l.FeatureList()
		if ferr != nil {
			logger.Warn().Err(ferr).Uint("listing_id", l.ID).Msg("skipping malformed listing features")
		} else {
			r.Features = features
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *ListingSearch) categoryNames(ctx context.Context, ids []uint) (map[uint]string, error) {
	if s.Categories != nil {
		return s.Categories.Names(ctx, ids)
	}
	return repo.CategoryNames(ctx, s.DB, ids)
}

func normLimit(limit int) int {
	if limit <= 0 {
		return DefaultSearchLimit
	}
	return limit
}
