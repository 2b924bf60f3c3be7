package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-travel-portal/internal/domain"
)

func TestGetIdempotency_BlankInputs_ReturnNotFound(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	now := time.Now().UTC()

	if rec, err := GetIdempotency(context.Background(), db, "  ", "k1", now); rec != nil || err != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound) for blank session, got (%v, %v)", rec, err)
	}
	if rec, err := GetIdempotency(context.Background(), db, "s1", "", now); rec != nil || err != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound) for blank key, got (%v, %v)", rec, err)
	}
}

func TestGetIdempotency_ExpiredOrMissing_ReturnsNotFound(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	now := time.Now().UTC()

	exp := &domain.Idempotency{
		ID:        "expired",
		SessionID: "s1",
		Key:       "k1",
		CreatedAt: now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	}
	if err := db.Create(exp).Error; err != nil {
		t.Fatalf("seed expired: %v", err)
	}

	if rec, err := GetIdempotency(context.Background(), db, "s1", "k1", now); rec != nil || err != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound) for expired, got (%v, %v)", rec, err)
	}
	if rec, err := GetIdempotency(context.Background(), db, "s1", "missing", now); rec != nil || err != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound) for missing, got (%v, %v)", rec, err)
	}
}

func TestCreateIdempotency_RoundTrip_Duplicate_AndExpiredReplaced(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()

	rec, err := CreateIdempotency(ctx, db, "s1", "k1", 7, 42, time.Hour)
	if err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}
	if rec.ID == "" || rec.ConversationID != 7 || rec.MessageID != 42 || !rec.ExpiresAt.After(rec.CreatedAt) {
		t.Fatalf("unexpected record: %+v", rec)
	}

	got, err := GetIdempotency(ctx, db, "s1", "k1", time.Now().UTC())
	if err != nil || got.MessageID != 42 {
		t.Fatalf("GetIdempotency: %+v, %v", got, err)
	}

	if _, err := CreateIdempotency(ctx, db, "s1", "k1", 7, 43, time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	// Force expiry, then the key can be reused.
	db.Model(&domain.Idempotency{}).Where("id = ?", rec.ID).Update("expires_at", time.Now().UTC().Add(-time.Minute))
	again, err := CreateIdempotency(ctx, db, "s1", "k1", 8, 50, time.Hour)
	if err != nil || again.MessageID != 50 {
		t.Fatalf("expected expired key to be reusable: %+v, %v", again, err)
	}
}
