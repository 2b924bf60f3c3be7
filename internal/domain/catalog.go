// Package domain defines the persistence models for the travel catalog and
// the chatbot. These types are mapped with GORM and shared by the repository,
// service and HTTP layers.
package domain

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Category groups listings (accommodation, tour operators, campsites, ...).
// Categories are reference data seeded once and rarely mutated.
type Category struct {
	ID           uint      `json:"id"            gorm:"primaryKey"`
	Name         string    `json:"name"          gorm:"type:varchar(120);not null"`
	Slug         string    `json:"slug"          gorm:"type:varchar(120);not null;uniqueIndex:ux_categories_slug"`
	Description  string    `json:"description"   gorm:"type:text"`
	Icon         string    `json:"icon,omitempty" gorm:"type:varchar(64)"`
	DisplayOrder int       `json:"display_order" gorm:"not null;default:0;index:idx_categories_order"`
	IsActive     bool      `json:"is_active"     gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the database table name for Category.
func (Category) TableName() string { return "categories" }

// Listing is a catalog entry for a business: a lodge, a tour operator, a
// campsite and so on. Listings are never hard-deleted; IsActive=false hides
// them from every public read.
//
// Features holds the serialized feature list as JSON text. It is decoded
// lazily (see FeatureList) because imported rows are not guaranteed to be
// well-formed.
type Listing struct {
	ID               uint           `json:"id"                gorm:"primaryKey"`
	CategoryID       uint           `json:"category_id"       gorm:"not null;index:idx_listings_category"`
	Name             string         `json:"name"              gorm:"type:varchar(255);not null"`
	Slug             string         `json:"slug"              gorm:"type:varchar(255);not null;uniqueIndex:ux_listings_slug"`
	Description      string         `json:"description"       gorm:"type:text"`
	ShortDescription string         `json:"short_description" gorm:"type:varchar(500)"`
	Location         string         `json:"location"          gorm:"type:varchar(255)"`
	Region           string         `json:"region"            gorm:"type:varchar(120);index:idx_listings_region"`
	Address          string         `json:"address,omitempty" gorm:"type:varchar(255)"`
	Phone            string         `json:"phone,omitempty"   gorm:"type:varchar(64)"`
	Email            string         `json:"email,omitempty"   gorm:"type:varchar(255)"`
	Website          string         `json:"website,omitempty" gorm:"type:varchar(255)"`
	PriceRange       string         `json:"price_range,omitempty" gorm:"type:varchar(32)"`
	Features         datatypes.JSON `json:"-"`
	IsVerified       bool           `json:"is_verified"       gorm:"not null"`
	IsActive         bool           `json:"is_active"         gorm:"not null;index:idx_listings_active_rank,priority:1"`
	IsFeatured       bool           `json:"is_featured"       gorm:"not null;index:idx_listings_active_rank,priority:2"`
	ViewCount        int64          `json:"view_count"        gorm:"not null;default:0;index:idx_listings_active_rank,priority:3"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`

	// Category is the owning category; listings follow category id changes.
	Category *Category `json:"category,omitempty" gorm:"foreignKey:CategoryID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	// Media is loaded only for detail reads.
	Media []Media `json:"media,omitempty" gorm:"foreignKey:ListingID"`
}

// TableName returns the database table name for Listing.
func (Listing) TableName() string { return "listings" }

// FeatureList decodes the stored feature list. An empty column yields an
// empty list; malformed JSON yields an error and a nil list.
func (l *Listing) FeatureList() ([]string, error) {
	if len(l.Features) == 0 {
		return []string{}, nil
	}
	var out []string
	if err := json.Unmarshal(l.Features, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// EncodeFeatures serializes a feature list into the JSON column format.
func EncodeFeatures(features []string) datatypes.JSON {
	if features == nil {
		features = []string{}
	}
	b, _ := json.Marshal(features)
	return datatypes.JSON(b)
}

// Media is an image or video asset attached to a listing.
type Media struct {
	ID           uint      `json:"id"            gorm:"primaryKey"`
	ListingID    uint      `json:"listing_id"    gorm:"not null;index:idx_media_listing,priority:1"`
	URL          string    `json:"url"           gorm:"type:varchar(1024);not null"`
	Type         string    `json:"type"          gorm:"type:varchar(16);not null;default:'image'"`
	AltText      string    `json:"alt_text"      gorm:"type:varchar(255)"`
	DisplayOrder int       `json:"display_order" gorm:"not null;default:0;index:idx_media_listing,priority:2"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName returns the database table name for Media.
func (Media) TableName() string { return "media" }

// Route is a curated multi-day itinerary. Read-only from the chatbot's
// point of view.
type Route struct {
	ID           uint        `json:"id"            gorm:"primaryKey"`
	Name         string      `json:"name"          gorm:"type:varchar(255);not null"`
	Slug         string      `json:"slug"          gorm:"type:varchar(255);not null;uniqueIndex:ux_routes_slug"`
	Description  string      `json:"description"   gorm:"type:text"`
	DurationDays int         `json:"duration_days" gorm:"not null;default:1"`
	Difficulty   string      `json:"difficulty"    gorm:"type:varchar(32)"`
	IsFeatured   bool        `json:"is_featured"   gorm:"not null"`
	IsActive     bool        `json:"is_active"     gorm:"not null"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
	Stops        []RouteStop `json:"stops,omitempty" gorm:"foreignKey:RouteID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Route.
func (Route) TableName() string { return "routes" }

// RouteStop is one ordered stop of a Route, optionally pointing at a listing
// (the lodge for the night, the operator for the activity).
type RouteStop struct {
	ID          uint   `json:"id"          gorm:"primaryKey"`
	RouteID     uint   `json:"route_id"    gorm:"not null;index:idx_route_stops,priority:1"`
	DayNumber   int    `json:"day_number"  gorm:"not null;index:idx_route_stops,priority:2"`
	StopOrder   int    `json:"stop_order"  gorm:"not null;index:idx_route_stops,priority:3"`
	Name        string `json:"name"        gorm:"type:varchar(255);not null"`
	Description string `json:"description" gorm:"type:text"`
	ListingID   *uint  `json:"listing_id,omitempty" gorm:"index"`
}

// TableName returns the database table name for RouteStop.
func (RouteStop) TableName() string { return "route_stops" }

// SearchResult is a listing as surfaced to the chatbot: the row itself plus
// its category name and decoded features. Features is nil when the stored
// JSON could not be decoded.
type SearchResult struct {
	Listing
	CategoryName string   `json:"category_name"`
	Features     []string `json:"features,omitempty"`
}
