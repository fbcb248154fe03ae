package chat

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"chat-client-app/internal/logger"
	"chat-client-app/internal/models"
	"chat-client-app/internal/preview"
)

// UploadFile is one user-selected file handed to StageFiles.
type UploadFile struct {
	Name string
	Type string
	R    io.Reader
}

// StageFiles reads each file asynchronously and appends a staged record
// (raw bytes plus render-ready preview, keyed by a transient local id) to the
// session. Reads complete independently, so staged order may differ from
// input order. Read failures are logged and the file is skipped.
func (m *Manager) StageFiles(user string, files []UploadFile) error {
	var err error
	m.do(func() {
		if m.tab(user) == nil {
			err = ErrNoSession
		}
	})
	if err != nil {
		return err
	}
	for _, f := range files {
		f := f
		go func() {
			data, err := io.ReadAll(f.R)
			if err != nil {
				logger.Warn("staging file read failed", "file", f.Name, "error", err)
				return
			}
			staged := &models.StagedFile{
				LocalID:  uuid.NewString(),
				FileName: f.Name,
				FileType: f.Type,
				Data:     data,
				Preview:  preview.Generate(f.Type, data),
				SentDate: time.Now(),
				Tag:      models.StateAdded,
			}
			m.do(func() {
				tab := m.tab(user)
				if tab == nil {
					// Session closed while the read was in flight.
					return
				}
				tab.Staged = append(tab.Staged, staged)
			})
		}()
	}
	return nil
}

// RemoveStaged drops a staged-but-unsent attachment without any network
// call. id may be the staged record's transient local id or, for callers
// that only have the preview, its file name. Silent no-op when not found.
func (m *Manager) RemoveStaged(user, id string) error {
	var err error
	m.do(func() {
		tab := m.tab(user)
		if tab == nil {
			err = ErrNoSession
			return
		}
		for i, s := range tab.Staged {
			if s.LocalID == id || s.FileName == id {
				tab.Staged = append(tab.Staged[:i], tab.Staged[i+1:]...)
				return
			}
		}
	})
	return err
}

// Send bundles the draft text and all staged files into one remote call.
// It does nothing when the trimmed draft is empty and nothing is staged.
// On success the confirmed message is appended to the timeline and the
// draft and staged files are cleared; on failure local state is untouched
// so the user can retry.
func (m *Manager) Send(ctx context.Context, user string) error {
	var (
		text   string
		staged []models.StagedFile
		err    error
		empty  bool
	)
	m.do(func() {
		tab := m.tab(user)
		if tab == nil {
			err = ErrNoSession
			return
		}
		if strings.TrimSpace(tab.Draft) == "" && len(tab.Staged) == 0 {
			empty = true
			return
		}
		text = tab.Draft
		staged = make([]models.StagedFile, len(tab.Staged))
		for i, s := range tab.Staged {
			staged[i] = *s
		}
	})
	if err != nil || empty {
		return err
	}

	resp, sendErr := m.tr.Send(ctx, m.user, user, text, staged)
	if sendErr != nil {
		return fmt.Errorf("send to %s: %w", user, sendErr)
	}

	m.do(func() {
		tab := m.tab(user)
		if tab == nil {
			return
		}
		confirmed := &models.ChatMessage{
			ID:       resp.ID,
			Sender:   m.user,
			Receiver: user,
			Text:     text,
			Files:    resp.Files,
			IsRead:   true,
			SentDate: resp.SentDate,
			Tag:      models.StateAdded,
		}
		if confirmed.SentDate.IsZero() {
			confirmed.SentDate = time.Now()
		}
		tab.Messages = append(tab.Messages, confirmed)
		tab.Draft = ""
		tab.Staged = nil
		m.archiveSave(user, confirmed)
	})
	return nil
}

// DeleteFile removes a server-confirmed attachment: the remote delete runs
// first, then the attachment is dropped from its owning message. Staged
// attachments are removed with RemoveStaged instead.
func (m *Manager) DeleteFile(ctx context.Context, user string, fileID int64) error {
	if fileID == 0 {
		return fmt.Errorf("chat: attachment has no server id, remove it with RemoveStaged")
	}
	var err error
	m.do(func() {
		if m.tab(user) == nil {
			err = ErrNoSession
		}
	})
	if err != nil {
		return err
	}
	if err := m.tr.DeleteFile(ctx, m.user, user, fileID); err != nil {
		return fmt.Errorf("delete file %d: %w", fileID, err)
	}
	m.do(func() {
		tab := m.tab(user)
		if tab == nil {
			return
		}
		removeFileByID(tab, fileID)
		if m.archive != nil {
			if err := m.archive.DeleteFile(fileID); err != nil {
				logger.Warn("archive file delete failed", "id", fileID, "error", err)
			}
		}
	})
	return nil
}

// Download fetches a confirmed attachment's content and records the download
// in the archive when one is configured. The remote type is resolved from the
// file name extension.
func (m *Manager) Download(ctx context.Context, file models.FileMessage) ([]byte, error) {
	name := file.FileURL
	if name == "" {
		name = file.FileName
	}
	var fileType string
	if i := strings.LastIndex(file.FileName, "."); i >= 0 {
		fileType = file.FileName[i+1:]
	}
	data, err := m.tr.Download(ctx, fileType, name)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", file.FileName, err)
	}
	if m.archive != nil {
		if err := m.archive.LogDownload(file.FileName); err != nil {
			logger.Warn("download log failed", "file", file.FileName, "error", err)
		}
	}
	return data, nil
}
