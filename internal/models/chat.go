package models

import "time"

// EntityState marks an entity's sync state relative to the server's copy.
type EntityState int

const (
	StateUnchanged EntityState = iota
	StateAdded
	StateModified
	StateDeleted
)

// ChatMessage represents one message in a conversation timeline
type ChatMessage struct {
	ID       int64         `json:"id"`
	Sender   string        `json:"sender"`
	Receiver string        `json:"receiver"`
	Text     string        `json:"text"`
	IsRead   bool          `json:"isRead"`
	SentDate time.Time     `json:"sentDate"`
	Files    []FileMessage `json:"files,omitempty"`
	Tag      EntityState   `json:"tag"`
	Editing  bool          `json:"-"`
}

// Confirmed reports whether the server has acknowledged this message. A
// message without a server id must never be the target of an update or
// delete call.
func (m *ChatMessage) Confirmed() bool {
	return m.ID != 0
}
