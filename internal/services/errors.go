// Package services defines the business logic of the travel portal: the
// chatbot orchestrator, listing search and the catalog reads and writes.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import (
	"errors"
	"fmt"
)

// Chat errors.
var (
	// ErrUnavailable wraps failures of the durability path (resolving the
	// conversation, persisting turns, loading history). Callers see a
	// generic failure; nothing is retried.
	ErrUnavailable = errors.New("service unavailable")

	// ErrEmptyMessage is returned when the chat message is blank.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrMessageTooLong is returned when the chat message exceeds the
	// configured rune limit.
	ErrMessageTooLong = errors.New("message too long")

	// ErrMissingSession is returned when no session id accompanies a message.
	ErrMissingSession = errors.New("session id is required")

	// ErrConversationNotFound is returned when a message names a conversation
	// id that does not exist.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrIdempotencyKeyReused is returned when a session replays a key that
	// was first used in a different conversation.
	ErrIdempotencyKeyReused = errors.New("idempotency key already used for another conversation")
)

// Catalog errors.
var (
	ErrListingNotFound  = errors.New("listing not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrRouteNotFound    = errors.New("route not found")

	// ErrSlugTaken is returned when a create or update would duplicate a slug.
	ErrSlugTaken = errors.New("slug already in use")

	// ErrInvalidListing is returned for admin payloads that fail validation.
	// It is usually wrapped with the offending field.
	ErrInvalidListing = errors.New("invalid listing")
)

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidListing, fmt.Sprintf(format, args...))
}
