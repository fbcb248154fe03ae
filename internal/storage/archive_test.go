package storage

import (
	"path/filepath"
	"testing"
	"time"

	"chat-client-app/internal/models"
)

func openTestArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := Open(filepath.Join(t.TempDir(), "chat.db"))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestSaveAndLoadMessages(t *testing.T) {
	a := openTestArchive(t)

	sent := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	msgs := []models.ChatMessage{
		{ID: 1, Sender: "bob", Receiver: "me", Text: "first", SentDate: sent},
		{ID: 2, Sender: "me", Receiver: "bob", Text: "second", SentDate: sent.Add(time.Minute),
			Files: []models.FileMessage{{ID: 9, FileName: "pic.png", FileType: "image/png", FileURL: "ChatFiles/pic.png", SentDate: sent}}},
	}
	if err := a.SaveMessages("bob", msgs); err != nil {
		t.Fatalf("save messages: %v", err)
	}

	got, err := a.Messages("bob", 10)
	if err != nil {
		t.Fatalf("load messages: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got))
	}
	if got[0].ID != 1 || got[1].ID != 2 {
		t.Fatalf("wrong order: %d, %d", got[0].ID, got[1].ID)
	}
	if len(got[1].Files) != 1 || got[1].Files[0].FileURL != "ChatFiles/pic.png" {
		t.Fatalf("attachments not restored: %+v", got[1].Files)
	}
}

func TestSaveMessageSkipsUnconfirmed(t *testing.T) {
	a := openTestArchive(t)

	if err := a.SaveMessage("bob", &models.ChatMessage{Text: "no id yet"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := a.Messages("bob", 10)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("unconfirmed message archived: %+v", got)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	a := openTestArchive(t)

	msg := models.ChatMessage{ID: 1, Sender: "bob", Receiver: "me", Text: "typo", SentDate: time.Now(),
		Files: []models.FileMessage{{ID: 9, FileName: "a.png"}}}
	if err := a.SaveMessage("bob", &msg); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := a.UpdateText(1, "fixed"); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := a.Messages("bob", 10)
	if got[0].Text != "fixed" {
		t.Fatalf("text not updated: %q", got[0].Text)
	}

	if err := a.DeleteFile(9); err != nil {
		t.Fatalf("delete file: %v", err)
	}
	got, _ = a.Messages("bob", 10)
	if len(got[0].Files) != 0 {
		t.Fatalf("file not deleted: %+v", got[0].Files)
	}

	if err := a.DeleteMessage(1); err != nil {
		t.Fatalf("delete message: %v", err)
	}
	got, _ = a.Messages("bob", 10)
	if len(got) != 0 {
		t.Fatalf("message not deleted")
	}
}

func TestSaveMessageIsIdempotent(t *testing.T) {
	a := openTestArchive(t)

	msg := models.ChatMessage{ID: 1, Sender: "bob", Receiver: "me", Text: "hi", SentDate: time.Now()}
	if err := a.SaveMessage("bob", &msg); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := a.SaveMessage("bob", &msg); err != nil {
		t.Fatalf("resave: %v", err)
	}
	got, _ := a.Messages("bob", 10)
	if len(got) != 1 {
		t.Fatalf("duplicate rows after resave: %d", len(got))
	}
}

func TestLogDownload(t *testing.T) {
	a := openTestArchive(t)

	if err := a.LogDownload("pic.png"); err != nil {
		t.Fatalf("log download: %v", err)
	}
	var count int
	if err := a.QueryRow("SELECT COUNT(*) FROM download_logs WHERE file_name = ?", "pic.png").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 log row, got %d", count)
	}
}
