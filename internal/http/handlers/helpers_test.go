package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-travel-portal/internal/domain"
	"github.com/tbourn/go-travel-portal/internal/repo"
	"github.com/tbourn/go-travel-portal/internal/services"
	"github.com/tbourn/go-travel-portal/internal/utils"
)

// ---------- test DB ----------

func newHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// ---------- stubs ----------

type stubChat struct {
	send   func(services.SendInput) (*services.SendResult, error)
	conv   []services.HistoryMessage
	sugg   []string
	lastIn services.SendInput
	calls  int

	statsCount int64
	statsAt    *time.Time
	statsErr   error
}

func (s *stubChat) SendMessage(_ context.Context, in services.SendInput) (*services.SendResult, error) {
	s.calls++
	s.lastIn = in
	if s.send != nil {
		return s.send(in)
	}
	return &services.SendResult{ConversationID: 1, MessageID: 2, Message: "hello"}, nil
}

func (s *stubChat) GetConversation(context.Context, uint) []services.HistoryMessage {
	if s.conv == nil {
		return []services.HistoryMessage{}
	}
	return s.conv
}

func (s *stubChat) ConversationStats(context.Context, uint) (int64, *time.Time, error) {
	return s.statsCount, s.statsAt, s.statsErr
}

func (s *stubChat) Suggestions() []string { return s.sugg }

// stubCatalog serves both the public catalog and the admin surface.
type stubCatalog struct {
	err error

	categories []domain.Category
	page       *services.ListingPage
	featured   []domain.SearchResult
	listing    *domain.SearchResult
	routes     []domain.Route
	route      *domain.Route

	created  *domain.Listing
	category *domain.Category

	lastQuery    repo.ListingQuery
	lastPage     utils.Page
	lastLimit    int
	lastCategory string
	lastFeatured bool
	lastID       uint
	lastInput    services.ListingInput
	lastPatch    services.ListingPatch
}

func (s *stubCatalog) ListCategories(context.Context) ([]domain.Category, error) {
	return s.categories, s.err
}

func (s *stubCatalog) ListListings(_ context.Context, q repo.ListingQuery, p utils.Page) (*services.ListingPage, error) {
	s.lastQuery, s.lastPage = q, p
	if s.err != nil {
		return nil, s.err
	}
	if s.page == nil {
		return &services.ListingPage{Items: []domain.SearchResult{}, Page: p}, nil
	}
	return s.page, nil
}

func (s *stubCatalog) Featured(_ context.Context, category string, limit int) ([]domain.SearchResult, error) {
	s.lastCategory, s.lastLimit = category, limit
	return s.featured, s.err
}

func (s *stubCatalog) ListingDetail(context.Context, string) (*domain.SearchResult, error) {
	return s.listing, s.err
}

func (s *stubCatalog) Routes(_ context.Context, featuredOnly bool) ([]domain.Route, error) {
	s.lastFeatured = featuredOnly
	return s.routes, s.err
}

func (s *stubCatalog) RouteDetail(context.Context, string) (*domain.Route, error) {
	return s.route, s.err
}

func (s *stubCatalog) CreateListing(_ context.Context, in services.ListingInput) (*domain.Listing, error) {
	s.lastInput = in
	return s.created, s.err
}

func (s *stubCatalog) UpdateListing(_ context.Context, id uint, p services.ListingPatch) (*domain.Listing, error) {
	s.lastID, s.lastPatch = id, p
	return s.created, s.err
}

func (s *stubCatalog) DeactivateListing(_ context.Context, id uint) error {
	s.lastID = id
	return s.err
}

func (s *stubCatalog) CreateCategory(context.Context, services.CategoryInput) (*domain.Category, error) {
	return s.category, s.err
}

// ---------- request helpers ----------

func serve(r *gin.Engine, method, path string, body any, hdr map[string]string) *httptest.ResponseRecorder {
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		raw, _ := json.Marshal(b)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return e
}
