package handlers

import (
	"context"
	"time"

	"github.com/tbourn/go-travel-portal/internal/domain"
	"github.com/tbourn/go-travel-portal/internal/repo"
	"github.com/tbourn/go-travel-portal/internal/services"
	"github.com/tbourn/go-travel-portal/internal/utils"
)

//
// Service contracts (context-aware)
//

// ChatbotService runs chatbot turns and serves transcripts.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ChatbotService interface {
	// SendMessage runs one turn and returns the assistant reply.
	SendMessage(ctx context.Context, in services.SendInput) (*services.SendResult, error)
	// GetConversation returns the transcript oldest first; empty on any failure.
	GetConversation(ctx context.Context, conversationID uint) []services.HistoryMessage
	// ConversationStats returns the message count and the newest message
	// time (nil when empty), used for ETags.
	ConversationStats(ctx context.Context, conversationID uint) (int64, *time.Time, error)
	// Suggestions returns the fixed starter prompts.
	Suggestions() []string
}

// CatalogService serves the public directory.
type CatalogService interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	ListListings(ctx context.Context, q repo.ListingQuery, page utils.Page) (*services.ListingPage, error)
	Featured(ctx context.Context, categorySlug string, limit int) ([]domain.SearchResult, error)
	ListingDetail(ctx context.Context, slug string) (*domain.SearchResult, error)
	Routes(ctx context.Context, featuredOnly bool) ([]domain.Route, error)
	RouteDetail(ctx context.Context, slug string) (*domain.Route, error)
}

// AdminService mutates the directory.
type AdminService interface {
	CreateListing(ctx context.Context, in services.ListingInput) (*domain.Listing, error)
	UpdateListing(ctx context.Context, id uint, p services.ListingPatch) (*domain.Listing, error)
	DeactivateListing(ctx context.Context, id uint) error
	CreateCategory(ctx context.Context, in services.CategoryInput) (*domain.Category, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for the chatbot, the catalog and the admin
// surface. It depends on abstract service interfaces to keep transport
// concerns separate from business logic.
type Handlers struct {
	chatSvc    ChatbotService
	catalogSvc CatalogService
	adminSvc   AdminService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(chatSvc ChatbotService, catalogSvc CatalogService, adminSvc AdminService) *Handlers {
	return &Handlers{chatSvc: chatSvc, catalogSvc: catalogSvc, adminSvc: adminSvc}
}
