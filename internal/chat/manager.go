package chat

import (
	"context"
	"errors"
	"fmt"

	"chat-client-app/internal/logger"
	"chat-client-app/internal/models"
	"chat-client-app/internal/storage"
	"chat-client-app/internal/transport"
)

var (
	// ErrIndexOutOfRange is returned by SetActive for an invalid tab index.
	ErrIndexOutOfRange = errors.New("chat: tab index out of range")
	// ErrNoSession is returned for operations addressed to a counterpart
	// with no open session.
	ErrNoSession = errors.New("chat: no open session for user")
	// ErrNoMessage is returned for edit operations addressed to a message
	// that is not loaded.
	ErrNoMessage = errors.New("chat: message not found")
)

// Options configures a Manager.
type Options struct {
	// PageSize is the history page size; defaults to 20.
	PageSize int
	// Archive is an optional local write-through history cache.
	Archive *storage.Archive
}

// Manager owns the open conversation sessions of one logged-in user and keeps
// them synchronized with the remote hub.
//
// All session state is owned by a single run-loop goroutine: exported
// operations and inbound event handlers execute closures on that loop, one at
// a time, so no two mutations ever interleave. Network round-trips and file
// reads happen off the loop; their continuations are posted back and re-check
// that the session still exists before touching it.
type Manager struct {
	user     string
	tr       transport.Transport
	archive  *storage.Archive
	pageSize int

	run  chan func()
	done chan struct{}

	// Owned by the run loop.
	tabs     []*ChatTab
	active   int
	contacts []models.Contact
}

// NewManager creates a manager for the given local user. The transport must
// not be connected yet; Start subscribes the event handlers and connects.
func NewManager(username string, tr transport.Transport, opts Options) *Manager {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	m := &Manager{
		user:     username,
		tr:       tr,
		archive:  opts.Archive,
		pageSize: pageSize,
		run:      make(chan func()),
		done:     make(chan struct{}),
	}
	go m.loop()
	return m
}

// Start subscribes the hub event handlers, opens the persistent connection
// and loads the contact list.
func (m *Manager) Start(ctx context.Context) error {
	m.tr.Subscribe(transport.EventMessage, m.onMessage)
	m.tr.Subscribe(transport.EventFile, m.onFile)
	m.tr.Subscribe(transport.EventUpdate, m.onUpdate)
	m.tr.Subscribe(transport.EventDelete, m.onDelete)
	m.tr.Subscribe(transport.EventFileDelete, m.onFileDelete)
	m.tr.Subscribe(transport.EventActiveUsers, m.onActiveUsers)

	if err := m.tr.Connect(ctx, m.user); err != nil {
		return fmt.Errorf("connect as %s: %w", m.user, err)
	}

	contacts, err := m.tr.Contacts(ctx)
	if err != nil {
		return fmt.Errorf("fetch contacts: %w", err)
	}
	m.do(func() {
		m.contacts = m.contacts[:0]
		for _, c := range contacts {
			if c.UserName == m.user {
				continue
			}
			m.contacts = append(m.contacts, models.Contact{UserName: c.UserName})
		}
	})
	logger.Info("chat manager started", "user", m.user, "contacts", len(contacts))
	return nil
}

// Close stops the run loop and closes the transport. Pending continuations
// for in-flight calls are dropped.
func (m *Manager) Close() error {
	select {
	case <-m.done:
	default:
		close(m.done)
	}
	return m.tr.Close()
}

func (m *Manager) loop() {
	for {
		select {
		case fn := <-m.run:
			fn()
		case <-m.done:
			return
		}
	}
}

// do executes fn on the run loop and waits for it to finish. After Close it
// returns without running fn.
func (m *Manager) do(fn func()) {
	finished := make(chan struct{})
	select {
	case m.run <- func() {
		fn()
		close(finished)
	}:
	case <-m.done:
		return
	}
	select {
	case <-finished:
	case <-m.done:
	}
}

// tab returns the session for a counterpart, or nil. Run-loop only.
func (m *Manager) tab(user string) *ChatTab {
	if i := m.indexOf(user); i >= 0 {
		return m.tabs[i]
	}
	return nil
}

// indexOf returns the tab index for a counterpart, or -1. Run-loop only.
func (m *Manager) indexOf(user string) int {
	for i, t := range m.tabs {
		if t.User == user {
			return i
		}
	}
	return -1
}

// activeTab returns the currently active session, or nil. Run-loop only.
func (m *Manager) activeTab() *ChatTab {
	if m.active < 0 || m.active >= len(m.tabs) {
		return nil
	}
	return m.tabs[m.active]
}

// findMessage locates a loaded message by server id. Run-loop only.
func (m *Manager) findMessage(user string, id int64) *models.ChatMessage {
	tab := m.tab(user)
	if tab == nil || id == 0 {
		return nil
	}
	for _, msg := range tab.Messages {
		if msg.ID == id {
			return msg
		}
	}
	return nil
}
