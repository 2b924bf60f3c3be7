package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-travel-portal/internal/domain"
)

// ReferenceCategories is the fixed category set the catalog and the
// chatbot's category hints rely on.
func ReferenceCategories() []domain.Category {
	return []domain.Category{
		{Name: "Accommodation", Slug: "accommodation", Description: "Lodges, hotels, guesthouses and B&Bs", Icon: "bed", DisplayOrder: 1, IsActive: true},
		{Name: "Tour Operators", Slug: "tour-operators", Description: "Guided safaris, tours and excursions", Icon: "compass", DisplayOrder: 2, IsActive: true},
		{Name: "Restaurants", Slug: "restaurants", Description: "Restaurants, cafes and bars", Icon: "utensils", DisplayOrder: 3, IsActive: true},
		{Name: "Campsites", Slug: "campsites", Description: "Campsites and self-catering camping", Icon: "tent", DisplayOrder: 4, IsActive: true},
		{Name: "Car Rental", Slug: "car-rental", Description: "4x4 hire and vehicle rental", Icon: "car", DisplayOrder: 5, IsActive: true},
		{Name: "Activities", Slug: "activities", Description: "Adventure, cultural and outdoor activities", Icon: "mountain", DisplayOrder: 6, IsActive: true},
	}
}

// SeedCategories inserts any missing reference categories. It is safe to
// run on every start.
func SeedCategories(ctx context.Context, db *gorm.DB) (int64, error) {
	return UpsertCategories(ctx, db, ReferenceCategories())
}
