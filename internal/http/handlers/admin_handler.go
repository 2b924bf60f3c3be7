// Admin HTTP handlers.
//
// These endpoints mutate the directory and are mounted behind the admin JWT
// middleware:
//   - POST   /admin/listings
//   - PATCH  /admin/listings/{id}
//   - DELETE /admin/listings/{id}   (soft deactivation)
//   - POST   /admin/categories
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-travel-portal/internal/http/middleware"
	"github.com/tbourn/go-travel-portal/internal/services"
)

// CreateListing godoc
// @ID          adminCreateListing
// @Summary     Create a listing
// @Description Creates an active listing. The slug is derived from the name when omitted.
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body  services.ListingInput  true  "Listing payload"
// @Success     201  {object}  domain.Listing
// @Failure     400  {object}  handlers.ErrorResponse "Invalid listing"
// @Failure     401  {object}  handlers.ErrorResponse "Unauthorized"
// @Failure     403  {object}  handlers.ErrorResponse "Forbidden"
// @Failure     409  {object}  handlers.ErrorResponse "Slug taken"
// @Router      /admin/listings [post]
func (h *Handlers) CreateListing(c *gin.Context) {
	var in services.ListingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	l, err := h.adminSvc.CreateListing(c.Request.Context(), in)
	if err != nil {
		adminError(c, err)
		return
	}
	middleware.LoggerFrom(c).Info().
		Str("admin", middleware.Subject(c)).
		Uint("listing_id", l.ID).
		Msg("admin created listing")
	ok(c, http.StatusCreated, l)
}

// UpdateListing godoc
// @ID          adminUpdateListing
// @Summary     Update a listing
// @Description Applies a partial update; omitted fields are unchanged.
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path  int                   true  "Listing ID"  minimum(1)
// @Param       body  body  services.ListingPatch true  "Fields to change"
// @Success     200  {object}  domain.Listing
// @Failure     400  {object}  handlers.ErrorResponse "Invalid listing"
// @Failure     404  {object}  handlers.ErrorResponse "Listing not found"
// @Failure     409  {object}  handlers.ErrorResponse "Slug taken"
// @Router      /admin/listings/{id} [patch]
func (h *Handlers) UpdateListing(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "listing id must be a positive integer")
		return
	}
	var p services.ListingPatch
	if err := c.ShouldBindJSON(&p); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	l, err := h.adminSvc.UpdateListing(c.Request.Context(), id, p)
	if err != nil {
		adminError(c, err)
		return
	}
	ok(c, http.StatusOK, l)
}

// DeactivateListing godoc
// @ID          adminDeactivateListing
// @Summary     Deactivate a listing
// @Description Hides the listing from every public read. Rows are never hard-deleted.
// @Tags        Admin
// @Security    BearerAuth
// @Param       id  path  int  true  "Listing ID"  minimum(1)
// @Success     204  {string}  string "No Content"
// @Failure     404  {object}  handlers.ErrorResponse "Listing not found"
// @Router      /admin/listings/{id} [delete]
func (h *Handlers) DeactivateListing(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "listing id must be a positive integer")
		return
	}
	if err := h.adminSvc.DeactivateListing(c.Request.Context(), id); err != nil {
		adminError(c, err)
		return
	}
	middleware.LoggerFrom(c).Info().
		Str("admin", middleware.Subject(c)).
		Uint("listing_id", id).
		Msg("admin deactivated listing")
	noContent(c)
}

// CreateCategory godoc
// @ID          adminCreateCategory
// @Summary     Create a category
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body  services.CategoryInput  true  "Category payload"
// @Success     201  {object}  domain.Category
// @Failure     400  {object}  handlers.ErrorResponse "Invalid category"
// @Failure     409  {object}  handlers.ErrorResponse "Slug taken"
// @Router      /admin/categories [post]
func (h *Handlers) CreateCategory(c *gin.Context) {
	var in services.CategoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	cat, err := h.adminSvc.CreateCategory(c.Request.Context(), in)
	if err != nil {
		adminError(c, err)
		return
	}
	ok(c, http.StatusCreated, cat)
}

func adminError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidListing):
		fail(c, http.StatusBadRequest, ErrCodeInvalidListing, err.Error())
	case errors.Is(err, services.ErrCategoryNotFound):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "category does not exist")
	case errors.Is(err, services.ErrListingNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "listing not found")
	case errors.Is(err, services.ErrSlugTaken):
		fail(c, http.StatusConflict, ErrCodeSlugTaken, err.Error())
	default:
		middleware.LoggerFrom(c).Error().Err(err).Msg("admin write failed")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}
