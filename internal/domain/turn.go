package domain

import (
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one user question or one assistant answer in a conversation.
// Turns are immutable once appended; editing a turn truncates history at
// that turn and resubmits the text as a fresh user turn.
type Turn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Image     string    `json:"image,omitempty"` // base64, user turns only
	MessageID int       `json:"message_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
