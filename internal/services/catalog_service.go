// Package services – CatalogService
//
// CatalogService serves the public directory (categories, listings, routes)
// and the admin write path. Public reads only ever see active rows; admin
// deletion is a soft deactivation.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-travel-portal/internal/domain"
	"github.com/tbourn/go-travel-portal/internal/repo"
	"github.com/tbourn/go-travel-portal/internal/sysutil"
	"github.com/tbourn/go-travel-portal/internal/utils"
)

const (
	maxNameRunes  = 255
	maxShortRunes = 500
	// maxSlugProbes bounds the "-2", "-3", ... suffixes tried for a derived slug.
	maxSlugProbes = 50
)

// CatalogService provides catalog reads and admin writes.
type CatalogService struct {
	DB     *gorm.DB
	Search *ListingSearch
}

// NewCatalogService wires a CatalogService.
func NewCatalogService(db *gorm.DB, search *ListingSearch) *CatalogService {
	return &CatalogService{DB: db, Search: search}
}

// ListingInput is the admin payload to create a listing. Slug is derived
// from Name when empty.
type ListingInput struct {
	CategoryID       uint     `json:"category_id" binding:"required" example:"1"`
	Name             string   `json:"name" binding:"required" example:"Desert Quiver Camp"`
	Slug             string   `json:"slug,omitempty" example:"desert-quiver-camp"`
	Description      string   `json:"description,omitempty"`
	ShortDescription string   `json:"short_description,omitempty"`
	Location         string   `json:"location,omitempty" example:"Sesriem"`
	Region           string   `json:"region,omitempty" example:"Hardap"`
	Address          string   `json:"address,omitempty"`
	Phone            string   `json:"phone,omitempty"`
	Email            string   `json:"email,omitempty"`
	Website          string   `json:"website,omitempty"`
	PriceRange       string   `json:"price_range,omitempty" example:"$$"`
	Features         []string `json:"features,omitempty"`
	IsVerified       bool     `json:"is_verified"`
	IsFeatured       bool     `json:"is_featured"`
}

// ListingPatch is a partial admin update; nil fields are left unchanged.
type ListingPatch struct {
	CategoryID       *uint     `json:"category_id,omitempty"`
	Name             *string   `json:"name,omitempty"`
	Slug             *string   `json:"slug,omitempty"`
	Description      *string   `json:"description,omitempty"`
	ShortDescription *string   `json:"short_description,omitempty"`
	Location         *string   `json:"location,omitempty"`
	Region           *string   `json:"region,omitempty"`
	Address          *string   `json:"address,omitempty"`
	Phone            *string   `json:"phone,omitempty"`
	Email            *string   `json:"email,omitempty"`
	Website          *string   `json:"website,omitempty"`
	PriceRange       *string   `json:"price_range,omitempty"`
	Features         *[]string `json:"features,omitempty"`
	IsVerified       *bool     `json:"is_verified,omitempty"`
	IsFeatured       *bool     `json:"is_featured,omitempty"`
	IsActive         *bool     `json:"is_active,omitempty"`
}

// CategoryInput is the admin payload to create a category.
type CategoryInput struct {
	Name         string `json:"name" binding:"required" example:"Wellness"`
	Slug         string `json:"slug,omitempty" example:"wellness"`
	Description  string `json:"description,omitempty"`
	Icon         string `json:"icon,omitempty"`
	DisplayOrder int    `json:"display_order"`
}

// ListingPage is one page of the public catalog.
type ListingPage struct {
	Items []domain.SearchResult
	Total int64
	Page  utils.Page
}

// ListCategories returns active categories in display order.
func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return repo.ListCategories(ctx, s.DB, true)
}

// ListListings returns one page of active listings matching q.
func (s *CatalogService) ListListings(ctx context.Context, q repo.ListingQuery, page utils.Page) (*ListingPage, error) {
	ctx, span := otel.Tracer("services/CatalogService").Start(ctx, "ListListings",
		trace.WithAttributes(
			attribute.String("category.slug", q.CategorySlug),
			attribute.Int("page", page.Number),
			attribute.Int("page_size", page.Size),
		),
	)
	defer span.End()

	total, err := repo.CountListings(ctx, s.DB, q)
	if err != nil {
		return nil, err
	}
	out := &ListingPage{Items: []domain.SearchResult{}, Total: total, Page: page}
	if total == 0 {
		return out, nil
	}
	rows, err := repo.ListListingsPage(ctx, s.DB, q, page.Offset(), page.Size)
	if err != nil {
		return nil, err
	}
	for _, l := range rows {
		out.Items = append(out.Items, toResult(ctx, l))
	}
	return out, nil
}

// Featured returns featured listings, optionally for one category.
func (s *CatalogService) Featured(ctx context.Context, categorySlug string, limit int) ([]domain.SearchResult, error) {
	return s.Search.Featured(ctx, categorySlug, limit)
}

// ListingDetail returns an active listing with media and counts the view.
func (s *CatalogService) ListingDetail(ctx context.Context, slug string) (*domain.SearchResult, error) {
	ctx, span := otel.Tracer("services/CatalogService").Start(ctx, "ListingDetail",
		trace.WithAttributes(attribute.String("listing.slug", slug)),
	)
	defer span.End()

	l, err := repo.GetListingBySlug(ctx, s.DB, slug)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	if err := repo.IncrementListingViews(ctx, s.DB, l.ID); err != nil {
		return nil, err
	}
	l.ViewCount++
	r := toResult(ctx, *l)
	return &r, nil
}

// Routes returns active routes.
func (s *CatalogService) Routes(ctx context.Context, featuredOnly bool) ([]domain.Route, error) {
	return repo.ListRoutes(ctx, s.DB, featuredOnly)
}

// RouteDetail returns an active route with its ordered stops.
func (s *CatalogService) RouteDetail(ctx context.Context, slug string) (*domain.Route, error) {
	r, err := repo.GetRouteBySlug(ctx, s.DB, slug)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrRouteNotFound
	}
	return r, err
}

// CreateListing validates in and inserts a new active listing.
func (s *CatalogService) CreateListing(ctx context.Context, in ListingInput) (*domain.Listing, error) {
	ctx, span := otel.Tracer("services/CatalogService").Start(ctx, "CreateListing")
	defer span.End()

	name := strings.TrimSpace(in.Name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validateListingText(in.ShortDescription, in.Email); err != nil {
		return nil, err
	}
	if err := s.ensureCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}
	slug, err := s.pickSlug(ctx, in.Slug, name)
	if err != nil {
		return nil, err
	}

	l := &domain.Listing{
		CategoryID:       in.CategoryID,
		Name:             name,
		Slug:             slug,
		Description:      strings.TrimSpace(in.Description),
		ShortDescription: strings.TrimSpace(in.ShortDescription),
		Location:         strings.TrimSpace(in.Location),
		Region:           strings.TrimSpace(in.Region),
		Address:          strings.TrimSpace(in.Address),
		Phone:            strings.TrimSpace(in.Phone),
		Email:            strings.TrimSpace(in.Email),
		Website:          strings.TrimSpace(in.Website),
		PriceRange:       strings.TrimSpace(in.PriceRange),
		Features:         domain.EncodeFeatures(cleanFeatures(in.Features)),
		IsVerified:       in.IsVerified,
		IsFeatured:       in.IsFeatured,
		IsActive:         true,
	}
	if err := repo.CreateListing(ctx, s.DB, l); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrSlugTaken
		}
		return nil, err
	}
	zerolog.Ctx(ctx).Info().Uint("listing_id", l.ID).Str("slug", l.Slug).Msg("listing created")
	return l, nil
}

// UpdateListing applies p to the listing and returns the stored row.
func (s *CatalogService) UpdateListing(ctx context.Context, id uint, p ListingPatch) (*domain.Listing, error) {
	ctx, span := otel.Tracer("services/CatalogService").Start(ctx, "UpdateListing",
		trace.WithAttributes(attribute.Int64("listing.id", int64(id))),
	)
	defer span.End()

	updates, err := s.patchUpdates(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := repo.UpdateListing(ctx, s.DB, id, updates); err != nil {
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return nil, ErrListingNotFound
		case errors.Is(err, repo.ErrDuplicate):
			return nil, ErrSlugTaken
		}
		return nil, err
	}
	return repo.GetListing(ctx, s.DB, id)
}

// DeactivateListing hides a listing from every public read.
func (s *CatalogService) DeactivateListing(ctx context.Context, id uint) error {
	err := repo.SetListingActive(ctx, s.DB, id, false)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrListingNotFound
	}
	return err
}

// CreateCategory inserts an active category.
func (s *CatalogService) CreateCategory(ctx context.Context, in CategoryInput) (*domain.Category, error) {
	name := strings.TrimSpace(in.Name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	slug := utils.Slugify(sysutil.FirstNonEmpty(in.Slug, name))
	if slug == "" {
		return nil, invalid("slug is empty after normalization")
	}
	c := &domain.Category{
		Name:         name,
		Slug:         slug,
		Description:  strings.TrimSpace(in.Description),
		Icon:         strings.TrimSpace(in.Icon),
		DisplayOrder: in.DisplayOrder,
		IsActive:     true,
	}
	if err := repo.CreateCategory(ctx, s.DB, c); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrSlugTaken
		}
		return nil, err
	}
	return c, nil
}

func (s *CatalogService) ensureCategory(ctx context.Context, id uint) error {
	if id == 0 {
		return ErrCategoryNotFound
	}
	if _, err := repo.GetCategory(ctx, s.DB, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrCategoryNotFound
		}
		return err
	}
	return nil
}

// pickSlug normalizes an explicit slug (which must be free) or derives one
// from name, appending a numeric suffix until it is unique.
func (s *CatalogService) pickSlug(ctx context.Context, explicit, name string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		slug := utils.Slugify(explicit)
		if slug == "" {
			return "", invalid("slug is empty after normalization")
		}
		taken, err := repo.SlugExists(ctx, s.DB, slug)
		if err != nil {
			return "", err
		}
		if taken {
			return "", ErrSlugTaken
		}
		return slug, nil
	}

	base := utils.Slugify(name)
	if base == "" {
		return "", invalid("name yields an empty slug")
	}
	candidate := base
	for i := 2; i <= maxSlugProbes+1; i++ {
		taken, err := repo.SlugExists(ctx, s.DB, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", ErrSlugTaken
}

func (s *CatalogService) patchUpdates(ctx context.Context, p ListingPatch) (map[string]any, error) {
	u := map[string]any{}
	if p.CategoryID != nil {
		if err := s.ensureCategory(ctx, *p.CategoryID); err != nil {
			return nil, err
		}
		u["category_id"] = *p.CategoryID
	}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if err := validateName(name); err != nil {
			return nil, err
		}
		u["name"] = name
	}
	if p.Slug != nil {
		slug := utils.Slugify(*p.Slug)
		if slug == "" {
			return nil, invalid("slug is empty after normalization")
		}
		u["slug"] = slug
	}
	var short, email string
	if p.ShortDescription != nil {
		short = *p.ShortDescription
	}
	if p.Email != nil {
		email = *p.Email
	}
	if err := validateListingText(short, email); err != nil {
		return nil, err
	}

	text := map[string]*string{
		"description":       p.Description,
		"short_description": p.ShortDescription,
		"location":          p.Location,
		"region":            p.Region,
		"address":           p.Address,
		"phone":             p.Phone,
		"email":             p.Email,
		"website":           p.Website,
		"price_range":       p.PriceRange,
	}
	for col, v := range text {
		if v != nil {
			u[col] = strings.TrimSpace(*v)
		}
	}
	if p.Features != nil {
		u["features"] = domain.EncodeFeatures(cleanFeatures(*p.Features))
	}
	flags := map[string]*bool{
		"is_verified": p.IsVerified,
		"is_featured": p.IsFeatured,
		"is_active":   p.IsActive,
	}
	for col, v := range flags {
		if v != nil {
			u[col] = *v
		}
	}
	return u, nil
}

func validateName(name string) error {
	if name == "" {
		return invalid("name is required")
	}
	if utf8.RuneCountInString(name) > maxNameRunes {
		return invalid("name exceeds %d characters", maxNameRunes)
	}
	return nil
}

func validateListingText(short, email string) error {
	if utf8.RuneCountInString(strings.TrimSpace(short)) > maxShortRunes {
		return invalid("short_description exceeds %d characters", maxShortRunes)
	}
	if e := strings.TrimSpace(email); e != "" {
		if _, err := mail.ParseAddress(e); err != nil {
			return invalid("email is not a valid address")
		}
	}
	return nil
}

// cleanFeatures trims entries and drops blanks and duplicates.
func cleanFeatures(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, f := range in {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		key := strings.ToLower(f)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, f)
	}
	return out
}

// toResult decodes features for API output; a malformed column is logged
// and omitted.
func toResult(ctx context.Context, l domain.Listing) domain.SearchResult {
	r := domain.SearchResult{Listing: l}
	if l.Category != nil {
		r.CategoryName = l.Category.Name
	}
	features, err := l.FeatureList()
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Uint("listing_id", l.ID).Msg("skipping malformed listing features")
		return r
	}
	r.Features = features
	return r
}
