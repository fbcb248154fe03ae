package chat

import (
	"context"
	"fmt"

	"chat-client-app/internal/logger"
	"chat-client-app/internal/models"
)

// LoadOlder fetches the next older history page for a counterpart and
// prepends it to the timeline, preserving the order of already-loaded
// messages. A trigger while a fetch for the same session is still in flight
// is a logged no-op, so scroll storms cannot prepend duplicate pages. The
// page cursor only advances once the fetch succeeds, so a failed call can
// simply be retried.
func (m *Manager) LoadOlder(ctx context.Context, user string) error {
	var (
		page int
		skip bool
		err  error
	)
	m.do(func() {
		tab := m.tab(user)
		if tab == nil {
			err = ErrNoSession
			return
		}
		if tab.fetching {
			logger.Warn("history fetch already in flight", "user", user)
			skip = true
			return
		}
		tab.fetching = true
		page = tab.Page + 1
	})
	if err != nil || skip {
		return err
	}
	return m.fetchPage(ctx, user, page)
}

// fetchPage performs the remote history query off the run loop and posts the
// prepend back. If the session was closed while the fetch was outstanding the
// response is dropped. On failure the cursor is left where it was, so the
// same page is requested again on retry.
func (m *Manager) fetchPage(ctx context.Context, user string, page int) error {
	msgs, err := m.tr.Messages(ctx, m.user, user, page, m.pageSize)
	if err != nil {
		m.do(func() {
			if tab := m.tab(user); tab != nil {
				tab.fetching = false
			}
		})
		return fmt.Errorf("fetch history page %d for %s: %w", page, user, err)
	}
	m.do(func() {
		tab := m.tab(user)
		if tab == nil {
			return
		}
		tab.fetching = false
		tab.Page = page
		if len(msgs) == 0 {
			return
		}
		merged := make([]*models.ChatMessage, 0, len(msgs)+len(tab.Messages))
		for i := range msgs {
			msg := msgs[i]
			merged = append(merged, &msg)
		}
		tab.Messages = append(merged, tab.Messages...)
		if m.archive != nil {
			if err := m.archive.SaveMessages(user, msgs); err != nil {
				logger.Warn("archive page save failed", "user", user, "page", page, "error", err)
			}
		}
	})
	return nil
}
