package models

import "time"

// FileMessage represents a file attached to a chat message. FileData holds
// the staged data URL before upload; FileURL holds the server location after.
type FileMessage struct {
	ID       int64       `json:"id"`
	FileName string      `json:"fileName"`
	FileType string      `json:"fileType"`
	FileData string      `json:"fileData,omitempty"`
	FileURL  string      `json:"fileUrl,omitempty"`
	SentDate time.Time   `json:"sentDate"`
	Tag      EntityState `json:"tag"`
}

// StagedFile is a file read into memory but not yet uploaded. LocalID is a
// client-generated transient id; it never leaves the process. Preview is the
// render-ready data URL for the staged content.
type StagedFile struct {
	LocalID  string
	FileName string
	FileType string
	Data     []byte
	Preview  string
	SentDate time.Time
	Tag      EntityState
}
