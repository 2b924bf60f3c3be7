// Catalog HTTP handlers.
//
// Public, read-only endpoints of the directory:
//   - GET /categories
//   - GET /listings            (paginated, filterable, ETag support)
//   - GET /listings/featured
//   - GET /listings/{slug}     (counts a view)
//   - GET /routes
//   - GET /routes/{slug}
package handlers

import (
	"errors"
	"fmt"
	"hash/fnv"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-travel-portal/internal/domain"
	"github.com/tbourn/go-travel-portal/internal/repo"
	"github.com/tbourn/go-travel-portal/internal/services"
	"github.com/tbourn/go-travel-portal/internal/sysutil"
	"github.com/tbourn/go-travel-portal/internal/utils"
)

//
// DTOs
//

// CategoriesResponse lists active categories in display order.
type CategoriesResponse struct {
	Categories []domain.Category `json:"categories"`
}

// ListListingsResponse wraps a page of listings and pagination information.
type ListListingsResponse struct {
	Listings   []domain.SearchResult `json:"listings"`
	Pagination Pagination            `json:"pagination"`
}

// FeaturedResponse lists featured listings.
type FeaturedResponse struct {
	Listings []domain.SearchResult `json:"listings"`
}

// RoutesResponse lists active routes.
type RoutesResponse struct {
	Routes []domain.Route `json:"routes"`
}

// ListCategories godoc
// @ID          listCategories
// @Summary     List categories
// @Tags        Catalog
// @Produce     json
// @Success     200  {object}  handlers.CategoriesResponse
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /categories [get]
func (h *Handlers) ListCategories(c *gin.Context) {
	cats, err := h.catalogSvc.ListCategories(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list categories")
		return
	}
	ok(c, http.StatusOK, CategoriesResponse{Categories: cats})
}

// ListListings godoc
// @ID          listListings
// @Summary     List listings (paginated)
// @Description Returns a page of active listings, featured first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Catalog
// @Produce     json
//
// @Param       category       query   string  false "Category slug"  example(accommodation)
// @Param       region         query   string  false "Region"         example(Erongo)
// @Param       q              query   string  false "Free text"      example(lodge)
// @Param       page           query   int     false "Page number"    minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page" minimum(1) maximum(100) default(20)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
//
// @Success     200  {object} handlers.ListListingsResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /listings [get]
func (h *Handlers) ListListings(c *gin.Context) {
	ctx := c.Request.Context()
	page := utils.ParsePage(c.Query("page"), c.Query("page_size"))
	q := repo.ListingQuery{
		CategorySlug: strings.TrimSpace(c.Query("category")),
		Region:       strings.TrimSpace(c.Query("region")),
		Q:            strings.TrimSpace(c.Query("q")),
	}

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, ok := h.catalogSvc.(*services.CatalogService); ok {
		db = svc.DB
	}
	if db != nil {
		if count, maxTS, err := repo.ListingsStats(ctx, db); err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.UnixNano()
			}
			qh := fnv.New32a()
			_, _ = qh.Write([]byte(fmt.Sprintf("%s|%s|%s|%d|%d", q.CategorySlug, q.Region, q.Q, page.Number, page.Size)))
			if notModified(c, fmt.Sprintf(`W/"listings:%d:%d:%x"`, count, ts, qh.Sum32())) {
				return
			}
		}
	}

	res, err := h.catalogSvc.ListListings(ctx, q, page)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list listings")
		return
	}
	totalPages := page.TotalPages(res.Total)
	ok(c, http.StatusOK, ListListingsResponse{
		Listings: res.Items,
		Pagination: Pagination{
			Page:       page.Number,
			PageSize:   page.Size,
			Total:      res.Total,
			TotalPages: totalPages,
			HasNext:    page.Number < totalPages,
		},
	})
}

// FeaturedListings godoc
// @ID          featuredListings
// @Summary     Featured listings
// @Tags        Catalog
// @Produce     json
// @Param       category  query  string  false "Category slug"
// @Param       limit     query  int     false "Maximum results"  minimum(1) maximum(100) default(5)
// @Success     200  {object}  handlers.FeaturedResponse
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /listings/featured [get]
func (h *Handlers) FeaturedListings(c *gin.Context) {
	limit := utils.AtoiDefault(c.Query("limit"), services.DefaultSearchLimit)
	if limit < 1 {
		limit = services.DefaultSearchLimit
	}
	if limit > utils.MaxPageSize {
		limit = utils.MaxPageSize
	}
	items, err := h.catalogSvc.Featured(c.Request.Context(), strings.TrimSpace(c.Query("category")), limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list featured listings")
		return
	}
	ok(c, http.StatusOK, FeaturedResponse{Listings: items})
}

// GetListing godoc
// @ID          getListing
// @Summary     Listing detail
// @Description Returns an active listing with its media and counts one view.
// @Tags        Catalog
// @Produce     json
// @Param       slug  path  string  true  "Listing slug"  example(desert-quiver-camp)
// @Success     200  {object}  domain.SearchResult
// @Failure     404  {object}  handlers.ErrorResponse "Listing not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /listings/{slug} [get]
func (h *Handlers) GetListing(c *gin.Context) {
	l, err := h.catalogSvc.ListingDetail(c.Request.Context(), c.Param("slug"))
	if err != nil {
		if errors.Is(err, services.ErrListingNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "listing not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load listing")
		return
	}
	ok(c, http.StatusOK, l)
}

// ListRoutes godoc
// @ID          listRoutes
// @Summary     List routes
// @Tags        Catalog
// @Produce     json
// @Param       featured  query  bool  false "Only featured routes"
// @Success     200  {object}  handlers.RoutesResponse
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /routes [get]
func (h *Handlers) ListRoutes(c *gin.Context) {
	routes, err := h.catalogSvc.Routes(c.Request.Context(), sysutil.IsTruthy(c.Query("featured")))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list routes")
		return
	}
	ok(c, http.StatusOK, RoutesResponse{Routes: routes})
}

// GetRoute godoc
// @ID          getRoute
// @Summary     Route detail
// @Description Returns an active route with its stops ordered by day and position.
// @Tags        Catalog
// @Produce     json
// @Param       slug  path  string  true  "Route slug"  example(skeleton-coast-loop)
// @Success     200  {object}  domain.Route
// @Failure     404  {object}  handlers.ErrorResponse "Route not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /routes/{slug} [get]
func (h *Handlers) GetRoute(c *gin.Context) {
	r, err := h.catalogSvc.RouteDetail(c.Request.Context(), c.Param("slug"))
	if err != nil {
		if errors.Is(err, services.ErrRouteNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "route not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load route")
		return
	}
	ok(c, http.StatusOK, r)
}
