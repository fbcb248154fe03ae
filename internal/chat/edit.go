package chat

import (
	"context"
	"fmt"

	"chat-client-app/internal/logger"
	"chat-client-app/internal/models"
)

// BeginEdit marks a loaded message as being edited. Purely local; nothing
// goes to the server until SaveEdit.
func (m *Manager) BeginEdit(user string, msgID int64) error {
	var err error
	m.do(func() {
		msg := m.findMessage(user, msgID)
		if msg == nil {
			err = fmt.Errorf("%w: id %d", ErrNoMessage, msgID)
			return
		}
		msg.Editing = true
		msg.Tag = models.StateModified
	})
	return err
}

// SaveEdit pushes the message with its replacement text to the server. The
// local copy keeps its pre-edit text until the server confirms; on success
// the server's representation is merged in and editing ends, on failure the
// message stays in editing state with its Modified tag so the user can retry.
func (m *Manager) SaveEdit(ctx context.Context, user string, msgID int64, text string) error {
	var (
		payload models.ChatMessage
		err     error
	)
	m.do(func() {
		msg := m.findMessage(user, msgID)
		if msg == nil {
			err = fmt.Errorf("%w: id %d", ErrNoMessage, msgID)
			return
		}
		payload = *msg
		payload.Text = text
	})
	if err != nil {
		return err
	}

	updated, saveErr := m.tr.Update(ctx, payload)
	if saveErr != nil {
		return fmt.Errorf("save edit of message %d: %w", msgID, saveErr)
	}

	m.do(func() {
		msg := m.findMessage(user, msgID)
		if msg == nil {
			return
		}
		msg.Text = text
		if updated.Text != "" {
			msg.Text = updated.Text
		}
		if updated.Files != nil {
			msg.Files = updated.Files
		}
		msg.Tag = models.StateUnchanged
		msg.Editing = false
		if m.archive != nil {
			if err := m.archive.UpdateText(msg.ID, msg.Text); err != nil {
				logger.Warn("archive update failed", "id", msg.ID, "error", err)
			}
		}
	})
	return nil
}

// CancelEdit ends editing without any network call. The local text was never
// touched, so there is nothing to revert.
func (m *Manager) CancelEdit(user string, msgID int64) error {
	var err error
	m.do(func() {
		msg := m.findMessage(user, msgID)
		if msg == nil {
			err = fmt.Errorf("%w: id %d", ErrNoMessage, msgID)
			return
		}
		msg.Editing = false
	})
	return err
}
