package services

import (
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-travel-portal/internal/domain"
	"github.com/tbourn/go-travel-portal/internal/repo"
)

// newTestDB opens a private in-memory database. With migrate == nil the
// full schema is created. A single connection keeps shared-cache SQLite
// free of table-lock errors under concurrent tests.
func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
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

	if len(migrate) > 0 {
		err = db.AutoMigrate(migrate...)
	} else {
		err = repo.AutoMigrate(db)
	}
	if err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// closeDB makes every later query fail.
func closeDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	_ = sqlDB.Close()
}

func mkCategory(t *testing.T, db *gorm.DB, name, slug string) *domain.Category {
	t.Helper()
	c := &domain.Category{Name: name, Slug: slug, IsActive: true}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("create category: %v", err)
	}
	return c
}

func mkListing(t *testing.T, db *gorm.DB, categoryID uint, name string, mut ...func(*domain.Listing)) *domain.Listing {
	t.Helper()
	l := &domain.Listing{
		CategoryID: categoryID,
		Name:       name,
		Slug:       uuid.NewString()[:8] + "-" + fmt.Sprint(categoryID),
		IsActive:   true,
		Features:   domain.EncodeFeatures([]string{"Wi-Fi"}),
	}
	for _, m := range mut {
		m(l)
	}
	if err := db.Create(l).Error; err != nil {
		t.Fatalf("create listing: %v", err)
	}
	return l
}

func names(rs []domain.SearchResult) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Name
	}
	return out
}
