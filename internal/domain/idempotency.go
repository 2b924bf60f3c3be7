package domain

import "time"

// Idempotency records the outcome of a chat request sent with an
// Idempotency-Key header, keyed by (session_id, key). A retry carrying the
// same key replays the stored assistant message instead of calling the LLM
// again.
type Idempotency struct {
	ID             string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	SessionID      string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_session_key,priority:1"`
	Key            string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_session_key,priority:2"`
	ConversationID uint      `gorm:"not null"`
	MessageID      uint      `gorm:"not null"`
	CreatedAt      time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt      time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
