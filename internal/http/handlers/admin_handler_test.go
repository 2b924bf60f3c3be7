package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-travel-portal/internal/domain"
	"github.com/tbourn/go-travel-portal/internal/services"
)

func newAdminRouter(admin AdminService, logs *bytes.Buffer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if logs != nil {
		l := zerolog.New(logs)
		r.Use(func(c *gin.Context) {
			c.Set("logger", &l)
			c.Set("auth.subject", "editor-1")
			c.Next()
		})
	}
	h := New(&stubChat{}, &stubCatalog{}, admin)
	r.POST("/admin/listings", h.CreateListing)
	r.PATCH("/admin/listings/:id", h.UpdateListing)
	r.DELETE("/admin/listings/:id", h.DeactivateListing)
	r.POST("/admin/categories", h.CreateCategory)
	return r
}

func TestCreateListing_Created(t *testing.T) {
	var logs bytes.Buffer
	admin := &stubCatalog{created: &domain.Listing{ID: 11, Name: "Desert Quiver Camp", Slug: "desert-quiver-camp"}}
	r := newAdminRouter(admin, &logs)

	w := serve(r, http.MethodPost, "/admin/listings", map[string]any{
		"category_id": 1,
		"name":        "Desert Quiver Camp",
		"region":      "Hardap",
		"features":    []string{"Pool"},
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if admin.lastInput.CategoryID != 1 || admin.lastInput.Region != "Hardap" || len(admin.lastInput.Features) != 1 {
		t.Fatalf("input not bound: %+v", admin.lastInput)
	}
	if !strings.Contains(w.Body.String(), `"slug":"desert-quiver-camp"`) {
		t.Fatalf("body=%s", w.Body.String())
	}
	if !strings.Contains(logs.String(), `"admin":"editor-1"`) || !strings.Contains(logs.String(), `"listing_id":11`) {
		t.Fatalf("audit log missing: %s", logs.String())
	}
}

func TestCreateListing_RequiredFields(t *testing.T) {
	admin := &stubCatalog{}
	r := newAdminRouter(admin, nil)
	for _, body := range []string{`{"name":"x"}`, `{"category_id":1}`, `nope`} {
		w := serve(r, http.MethodPost, "/admin/listings", body, nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %s: status=%d; want 400", body, w.Code)
		}
	}
}

func TestAdmin_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid", fmt.Errorf("%w: email is malformed", services.ErrInvalidListing), http.StatusBadRequest, ErrCodeInvalidListing},
		{"category", services.ErrCategoryNotFound, http.StatusBadRequest, ErrCodeBadRequest},
		{"missing", services.ErrListingNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"slug", services.ErrSlugTaken, http.StatusConflict, ErrCodeSlugTaken},
		{"other", errors.New("boom"), http.StatusInternalServerError, ErrCodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newAdminRouter(&stubCatalog{err: tc.err}, nil)
			w := serve(r, http.MethodPost, "/admin/listings", `{"category_id":1,"name":"Camp"}`, nil)
			if w.Code != tc.status {
				t.Fatalf("status=%d; want %d", w.Code, tc.status)
			}
			if e := decodeError(t, w); e.Code != tc.code {
				t.Fatalf("code=%s; want %s", e.Code, tc.code)
			}
		})
	}
}

func TestAdmin_InvalidListingMessageNamesField(t *testing.T) {
	r := newAdminRouter(&stubCatalog{err: fmt.Errorf("%w: email is malformed", services.ErrInvalidListing)}, nil)
	w := serve(r, http.MethodPost, "/admin/listings", `{"category_id":1,"name":"Camp"}`, nil)
	if e := decodeError(t, w); e.Message != "invalid listing: email is malformed" {
		t.Fatalf("message=%q", e.Message)
	}
}

func TestUpdateListing(t *testing.T) {
	admin := &stubCatalog{created: &domain.Listing{ID: 5, Name: "Renamed"}}
	r := newAdminRouter(admin, nil)

	w := serve(r, http.MethodPatch, "/admin/listings/5", `{"name":"Renamed","is_featured":true}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if admin.lastID != 5 || admin.lastPatch.Name == nil || *admin.lastPatch.Name != "Renamed" {
		t.Fatalf("patch not forwarded: id=%d patch=%+v", admin.lastID, admin.lastPatch)
	}
	if admin.lastPatch.Region != nil {
		t.Fatalf("omitted fields must stay nil")
	}

	if w := serve(r, http.MethodPatch, "/admin/listings/abc", `{}`, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id status=%d", w.Code)
	}
	if w := serve(r, http.MethodPatch, "/admin/listings/5", `{`, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad body status=%d", w.Code)
	}
}

func TestDeactivateListing(t *testing.T) {
	var logs bytes.Buffer
	admin := &stubCatalog{}
	r := newAdminRouter(admin, &logs)

	w := serve(r, http.MethodDelete, "/admin/listings/9", nil, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status=%d", w.Code)
	}
	if admin.lastID != 9 {
		t.Fatalf("id=%d", admin.lastID)
	}
	if !strings.Contains(logs.String(), "admin deactivated listing") {
		t.Fatalf("audit log missing: %s", logs.String())
	}

	admin.err = services.ErrListingNotFound
	if w := serve(r, http.MethodDelete, "/admin/listings/9", nil, nil); w.Code != http.StatusNotFound {
		t.Fatalf("status=%d; want 404", w.Code)
	}
	if w := serve(r, http.MethodDelete, "/admin/listings/0", nil, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d; want 400", w.Code)
	}
}

func TestCreateCategory(t *testing.T) {
	admin := &stubCatalog{category: &domain.Category{ID: 7, Name: "Wellness", Slug: "wellness"}}
	r := newAdminRouter(admin, nil)

	w := serve(r, http.MethodPost, "/admin/categories", `{"name":"Wellness"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d", w.Code)
	}
	if w := serve(r, http.MethodPost, "/admin/categories", `{}`, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("missing name status=%d", w.Code)
	}

	admin.err = services.ErrSlugTaken
	if w := serve(r, http.MethodPost, "/admin/categories", `{"name":"Wellness"}`, nil); w.Code != http.StatusConflict {
		t.Fatalf("status=%d; want 409", w.Code)
	}
}
