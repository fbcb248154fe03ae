package chat

import (
	"encoding/json"
	"time"

	"chat-client-app/internal/logger"
	"chat-client-app/internal/models"
	"chat-client-app/internal/transport"
)

// Inbound event handling. Every "locate by id" degrades to a silent no-op
// when the target is not loaded locally: events may legitimately arrive for
// messages outside the currently loaded page window.

func (m *Manager) onMessage(ev transport.Event) { m.receive(ev) }
func (m *Manager) onFile(ev transport.Event)    { m.receive(ev) }

// receive appends an inbound message (with or without files) to the sender's
// session, creating the session if needed without activating it.
func (m *Manager) receive(ev transport.Event) {
	var msg models.ChatMessage
	if err := json.Unmarshal(ev.Data, &msg); err != nil {
		logger.Warn("bad inbound message payload", "type", ev.Type, "error", err)
		return
	}
	m.do(func() {
		tab := m.tab(ev.Sender)
		if tab == nil {
			tab = &ChatTab{User: ev.Sender, Page: 1}
			m.tabs = append(m.tabs, tab)
		}
		msg.Sender = ev.Sender
		msg.Receiver = m.user
		msg.IsRead = false
		msg.Tag = models.StateAdded
		if msg.SentDate.IsZero() {
			msg.SentDate = time.Now()
		}
		tab.Messages = append(tab.Messages, &msg)
		if m.activeTab() != tab {
			tab.Unread++
		}
		m.archiveSave(tab.User, &msg)
	})
}

// onUpdate replaces the mutable fields of a loaded message in place.
func (m *Manager) onUpdate(ev transport.Event) {
	var msg models.ChatMessage
	if err := json.Unmarshal(ev.Data, &msg); err != nil {
		logger.Warn("bad update payload", "error", err)
		return
	}
	m.do(func() {
		target := m.findMessage(ev.Sender, msg.ID)
		if target == nil {
			return
		}
		target.Text = msg.Text
		if msg.Files != nil {
			target.Files = msg.Files
		}
		// A message the local user is still editing keeps its Modified tag.
		if !target.Editing {
			target.Tag = models.StateUnchanged
		}
		if m.archive != nil {
			if err := m.archive.UpdateText(target.ID, target.Text); err != nil {
				logger.Warn("archive update failed", "id", target.ID, "error", err)
			}
		}
	})
}

// onDelete removes a message from the sender's timeline.
func (m *Manager) onDelete(ev transport.Event) {
	var id int64
	if err := json.Unmarshal(ev.Data, &id); err != nil {
		logger.Warn("bad delete payload", "error", err)
		return
	}
	m.do(func() {
		tab := m.tab(ev.Sender)
		if tab == nil {
			return
		}
		for i, msg := range tab.Messages {
			if msg.ID == id {
				tab.Messages = append(tab.Messages[:i], tab.Messages[i+1:]...)
				break
			}
		}
		if m.archive != nil {
			if err := m.archive.DeleteMessage(id); err != nil {
				logger.Warn("archive delete failed", "id", id, "error", err)
			}
		}
	})
}

// onFileDelete removes an attachment by id from its owning message.
func (m *Manager) onFileDelete(ev transport.Event) {
	var id int64
	if err := json.Unmarshal(ev.Data, &id); err != nil {
		logger.Warn("bad file delete payload", "error", err)
		return
	}
	m.do(func() {
		tab := m.tab(ev.Sender)
		if tab == nil {
			return
		}
		removeFileByID(tab, id)
		if m.archive != nil {
			if err := m.archive.DeleteFile(id); err != nil {
				logger.Warn("archive file delete failed", "id", id, "error", err)
			}
		}
	})
}

// onActiveUsers recomputes every contact's online flag from the received
// identity set. Full replace, not a diff.
func (m *Manager) onActiveUsers(ev transport.Event) {
	var users []string
	if err := json.Unmarshal(ev.Data, &users); err != nil {
		logger.Warn("bad active users payload", "error", err)
		return
	}
	online := make(map[string]struct{}, len(users))
	for _, u := range users {
		if u != m.user {
			online[u] = struct{}{}
		}
	}
	m.do(func() {
		for i := range m.contacts {
			_, ok := online[m.contacts[i].UserName]
			m.contacts[i].Online = ok
		}
	})
}

// removeFileByID drops the attachment with the given id from whichever
// message owns it. Run-loop only.
func removeFileByID(tab *ChatTab, id int64) {
	for _, msg := range tab.Messages {
		for i, f := range msg.Files {
			if f.ID == id {
				msg.Files = append(msg.Files[:i], msg.Files[i+1:]...)
				return
			}
		}
	}
}

// archiveSave writes a confirmed message through to the local archive.
// Run-loop only.
func (m *Manager) archiveSave(counterpart string, msg *models.ChatMessage) {
	if m.archive == nil {
		return
	}
	if err := m.archive.SaveMessage(counterpart, msg); err != nil {
		logger.Warn("archive save failed", "id", msg.ID, "error", err)
	}
}
