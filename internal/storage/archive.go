package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"chat-client-app/internal/models"
)

// Archive is a local write-through cache of confirmed chat history plus a
// download log. The in-memory session store stays authoritative; the archive
// only makes history available across restarts.
type Archive struct {
	*sql.DB
}

// Open opens (or creates) the archive database at dbPath.
func Open(dbPath string) (*Archive, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	// WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, err
	}

	return &Archive{db}, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS chat_messages (
		message_id INTEGER PRIMARY KEY,
		counterpart TEXT NOT NULL,
		sender TEXT NOT NULL,
		receiver TEXT NOT NULL,
		text TEXT NOT NULL,
		sent_date DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_counterpart ON chat_messages(counterpart);

	CREATE TABLE IF NOT EXISTS chat_files (
		file_id INTEGER PRIMARY KEY,
		message_id INTEGER NOT NULL,
		file_name TEXT NOT NULL,
		file_type TEXT,
		file_url TEXT,
		sent_date DATETIME,
		FOREIGN KEY (message_id) REFERENCES chat_messages(message_id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_files_message ON chat_files(message_id);

	CREATE TABLE IF NOT EXISTS download_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		file_name TEXT NOT NULL,
		downloaded_at DATETIME NOT NULL
	);
	`

	_, err := db.Exec(schema)
	return err
}

// SaveMessage stores or refreshes one confirmed message and its attachments.
// Messages without a server id are not archived.
func (a *Archive) SaveMessage(counterpart string, msg *models.ChatMessage) error {
	if !msg.Confirmed() {
		return nil
	}
	query := `INSERT OR REPLACE INTO chat_messages (message_id, counterpart, sender, receiver, text, sent_date)
	          VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := a.Exec(query, msg.ID, counterpart, msg.Sender, msg.Receiver, msg.Text, msg.SentDate); err != nil {
		return err
	}
	for _, f := range msg.Files {
		if f.ID == 0 {
			continue
		}
		query := `INSERT OR REPLACE INTO chat_files (file_id, message_id, file_name, file_type, file_url, sent_date)
		          VALUES (?, ?, ?, ?, ?, ?)`
		if _, err := a.Exec(query, f.ID, msg.ID, f.FileName, f.FileType, f.FileURL, f.SentDate); err != nil {
			return err
		}
	}
	return nil
}

// SaveMessages archives a fetched history page.
func (a *Archive) SaveMessages(counterpart string, msgs []models.ChatMessage) error {
	for i := range msgs {
		if err := a.SaveMessage(counterpart, &msgs[i]); err != nil {
			return err
		}
	}
	return nil
}

// UpdateText replaces the archived body of an edited message.
func (a *Archive) UpdateText(id int64, text string) error {
	_, err := a.Exec("UPDATE chat_messages SET text = ? WHERE message_id = ?", text, id)
	return err
}

// DeleteMessage removes an archived message and its attachments.
func (a *Archive) DeleteMessage(id int64) error {
	if _, err := a.Exec("DELETE FROM chat_files WHERE message_id = ?", id); err != nil {
		return err
	}
	_, err := a.Exec("DELETE FROM chat_messages WHERE message_id = ?", id)
	return err
}

// DeleteFile removes one archived attachment.
func (a *Archive) DeleteFile(id int64) error {
	_, err := a.Exec("DELETE FROM chat_files WHERE file_id = ?", id)
	return err
}

// Messages returns up to limit archived messages for a counterpart,
// oldest first, with attachments re-attached.
func (a *Archive) Messages(counterpart string, limit int) ([]models.ChatMessage, error) {
	rows, err := a.Query(`SELECT message_id, sender, receiver, text, sent_date
	                       FROM chat_messages WHERE counterpart = ?
	                       ORDER BY sent_date ASC LIMIT ?`, counterpart, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.ChatMessage
	for rows.Next() {
		var msg models.ChatMessage
		if err := rows.Scan(&msg.ID, &msg.Sender, &msg.Receiver, &msg.Text, &msg.SentDate); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range messages {
		files, err := a.filesFor(messages[i].ID)
		if err != nil {
			return nil, err
		}
		messages[i].Files = files
	}
	return messages, nil
}

func (a *Archive) filesFor(messageID int64) ([]models.FileMessage, error) {
	rows, err := a.Query(`SELECT file_id, file_name, file_type, file_url, sent_date
	                       FROM chat_files WHERE message_id = ?`, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []models.FileMessage
	for rows.Next() {
		var f models.FileMessage
		var fileType, fileURL sql.NullString
		var sentDate sql.NullTime
		if err := rows.Scan(&f.ID, &f.FileName, &fileType, &fileURL, &sentDate); err != nil {
			return nil, err
		}
		f.FileType = fileType.String
		f.FileURL = fileURL.String
		if sentDate.Valid {
			f.SentDate = sentDate.Time
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// LogDownload records a completed file download.
func (a *Archive) LogDownload(fileName string) error {
	_, err := a.Exec("INSERT INTO download_logs (file_name, downloaded_at) VALUES (?, ?)", fileName, time.Now())
	return err
}
