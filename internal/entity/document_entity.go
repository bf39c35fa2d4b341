package entity

import "time"

// Document is the registry record for one uploaded and indexed file.
type Document struct {
	DocumentID string    `json:"document_id"`
	Filename   string    `json:"filename"`
	ChunkCount int       `json:"chunk_count"`
	UploadTime time.Time `json:"upload_time"`
	FilePath   string    `json:"file_path"`
	SessionID  string    `json:"session_id"`
	Shared     bool      `json:"shared"`
}
