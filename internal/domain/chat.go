package domain

import "time"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Conversation is the container for one chat session. It is created lazily
// on the first message of a session and never closed.
//
// Fields:
//   - SessionID: client-supplied correlation key (indexed).
//   - UserID: optional authenticated owner.
type Conversation struct {
	ID        uint      `json:"id"         gorm:"primaryKey"`
	SessionID string    `json:"session_id" gorm:"type:varchar(128);not null;index:idx_conversations_session"`
	UserID    *string   `json:"user_id,omitempty" gorm:"type:varchar(64)"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Conversation.
func (Conversation) TableName() string { return "conversations" }

// Message is a single turn of a conversation. Messages are append-only and
// ordered by (CreatedAt, ID).
type Message struct {
	ID             uint      `json:"id"              gorm:"primaryKey"`
	ConversationID uint      `json:"conversation_id" gorm:"not null;index:idx_conversation_msgs,priority:1"`
	Role           string    `json:"role"            gorm:"type:varchar(16);not null;check:role IN ('user','assistant')"`
	Content        string    `json:"content"         gorm:"type:text;not null"`
	CreatedAt      time.Time `json:"created_at"      gorm:"index:idx_conversation_msgs,priority:2"`

	Conversation Conversation `json:"-" gorm:"foreignKey:ConversationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }
