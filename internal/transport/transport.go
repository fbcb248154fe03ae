package transport

import (
	"context"
	"encoding/json"
	"time"

	"chat-client-app/internal/models"
)

// Event type constants delivered over the persistent connection.
const (
	EventMessage     = "chat.message"
	EventFile        = "chat.file"
	EventUpdate      = "chat.update"
	EventDelete      = "chat.delete"
	EventFileDelete  = "chat.file_delete"
	EventActiveUsers = "chat.active_users"
)

// Event is one inbound hub notification.
type Event struct {
	Type      string          `json:"type"`
	Sender    string          `json:"sender,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Handler consumes inbound events. Handlers on one connection are invoked
// sequentially; each runs to completion before the next event is decoded.
type Handler func(Event)

// Transport is the remote capability the chat core consumes: a persistent
// event stream plus request/response operations. Implementations own
// reconnection; subscribers are re-attached across reconnects without any
// action from the consumer.
type Transport interface {
	// Connect opens the persistent connection for the given user.
	Connect(ctx context.Context, username string) error
	// Subscribe registers a handler for an event type. Must be called
	// before Connect.
	Subscribe(event string, h Handler)

	Contacts(ctx context.Context) ([]models.Contact, error)
	Messages(ctx context.Context, user1, user2 string, page, pageSize int) ([]models.ChatMessage, error)
	Send(ctx context.Context, sender, receiver, text string, files []models.StagedFile) (models.ChatMessage, error)
	Update(ctx context.Context, msg models.ChatMessage) (models.ChatMessage, error)
	DeleteFile(ctx context.Context, sender, receiver string, fileID int64) error
	Download(ctx context.Context, fileType, fileName string) ([]byte, error)

	Close() error
}
