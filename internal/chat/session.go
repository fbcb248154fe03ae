package chat

import (
	"context"
	"fmt"
	"strings"

	"chat-client-app/internal/logger"
	"chat-client-app/internal/models"
)

// ChatTab is one open conversation with a counterpart user. Messages are
// ordered oldest first; Page is the cursor for the next older history page.
type ChatTab struct {
	User     string
	Messages []*models.ChatMessage
	Draft    string
	Staged   []*models.StagedFile
	Unread   int
	Page     int

	fetching bool
}

// TabView is a point-in-time read-only copy of one session's visible state.
type TabView struct {
	User     string
	Messages []models.ChatMessage
	Draft    string
	Staged   []models.StagedFile
	Unread   int
	Page     int
}

// OpenChat returns to an existing conversation or opens a new one, makes it
// the active session and marks its loaded messages read. A newly created
// session schedules its first history page load in the background. Idempotent
// per counterpart.
func (m *Manager) OpenChat(user string) {
	var created bool
	m.do(func() {
		i := m.indexOf(user)
		if i < 0 {
			tab := &ChatTab{User: user, Page: 1, fetching: true}
			m.tabs = append(m.tabs, tab)
			i = len(m.tabs) - 1
			created = true
		}
		m.active = i
		m.markRead(m.tabs[i])
	})
	if created {
		go func() {
			if err := m.fetchPage(context.Background(), user, 1); err != nil {
				logger.Warn("initial history load failed", "user", user, "error", err)
			}
		}()
	}
}

// CloseChat removes the session for a counterpart from the open set. The
// server is not notified and history is not deleted. No-op if absent.
func (m *Manager) CloseChat(user string) {
	m.do(func() {
		i := m.indexOf(user)
		if i < 0 {
			return
		}
		m.tabs = append(m.tabs[:i], m.tabs[i+1:]...)
		switch {
		case m.active > i:
			m.active--
		case m.active >= len(m.tabs):
			m.active = len(m.tabs) - 1
			if m.active < 0 {
				m.active = 0
			}
		}
	})
}

// SetActive marks the session at index active, clears its unread count and
// marks its loaded messages read. An out-of-range index is a contract
// violation and returns ErrIndexOutOfRange.
func (m *Manager) SetActive(index int) error {
	var err error
	m.do(func() {
		if index < 0 || index >= len(m.tabs) {
			err = fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(m.tabs))
			return
		}
		m.active = index
		m.markRead(m.tabs[index])
	})
	return err
}

// SetDraft replaces the unsent text for a session.
func (m *Manager) SetDraft(user, text string) error {
	var err error
	m.do(func() {
		tab := m.tab(user)
		if tab == nil {
			err = ErrNoSession
			return
		}
		tab.Draft = text
	})
	return err
}

// markRead clears the unread counter and read flags. Run-loop only.
func (m *Manager) markRead(tab *ChatTab) {
	tab.Unread = 0
	for _, msg := range tab.Messages {
		msg.IsRead = true
	}
}

// ActiveIndex returns the index of the active session.
func (m *Manager) ActiveIndex() int {
	var index int
	m.do(func() { index = m.active })
	return index
}

// Tabs returns a snapshot of all open sessions in display order.
func (m *Manager) Tabs() []TabView {
	var views []TabView
	m.do(func() {
		views = make([]TabView, len(m.tabs))
		for i, t := range m.tabs {
			views[i] = snapshot(t)
		}
	})
	return views
}

// Tab returns a snapshot of the session for one counterpart.
func (m *Manager) Tab(user string) (TabView, bool) {
	var (
		view TabView
		ok   bool
	)
	m.do(func() {
		if t := m.tab(user); t != nil {
			view = snapshot(t)
			ok = true
		}
	})
	return view, ok
}

// Contacts returns a snapshot of the known contacts with their online flags.
func (m *Manager) Contacts() []models.Contact {
	var out []models.Contact
	m.do(func() {
		out = append([]models.Contact(nil), m.contacts...)
	})
	return out
}

// SearchContacts returns the contacts whose user name contains query. An
// empty query returns everyone.
func (m *Manager) SearchContacts(query string) []models.Contact {
	var out []models.Contact
	m.do(func() {
		for _, c := range m.contacts {
			if query == "" || strings.Contains(c.UserName, query) {
				out = append(out, c)
			}
		}
	})
	return out
}

func snapshot(t *ChatTab) TabView {
	view := TabView{
		User:   t.User,
		Draft:  t.Draft,
		Unread: t.Unread,
		Page:   t.Page,
	}
	view.Messages = make([]models.ChatMessage, len(t.Messages))
	for i, msg := range t.Messages {
		view.Messages[i] = *msg
	}
	view.Staged = make([]models.StagedFile, len(t.Staged))
	for i, s := range t.Staged {
		view.Staged[i] = *s
	}
	return view
}
