package models

import (
	"time"

	"gorm.io/datatypes"
)

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one entry inside a conversation's JSON message log. Content is a
// plain string for user entries and the assistant payload object for
// assistant entries.
type Message struct {
	Role      MessageRole `json:"role"`
	Content   any         `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

// Conversation holds the full message history for one (user, assistant type)
// pair. The unique index guarantees at most one row per pair; appends go
// through ConversationRepo.AppendMessages which upserts against it.
type Conversation struct {
	ID            string         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID        string         `gorm:"column:user_id;type:uuid;uniqueIndex:uniq_user_assistant" json:"user_id"`
	AssistantType string         `gorm:"column:assistant_type;type:varchar(20);uniqueIndex:uniq_user_assistant" json:"assistant_type"`
	Messages      datatypes.JSON `gorm:"column:messages;type:jsonb" json:"messages"`
	StartedAt     time.Time      `gorm:"column:started_at;type:timestamptz" json:"started_at"`
	LastMessageAt time.Time      `gorm:"column:last_message_at;type:timestamptz;index" json:"last_message_at"`
}

func (Conversation) TableName() string { return "conversations" }
