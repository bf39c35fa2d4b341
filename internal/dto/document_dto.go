package dto

import "ai-redteam-be/internal/entity"

// Per-file indexing outcomes. One bad file never fails the batch.
const (
	UploadStatusReady = "ready"
	UploadStatusError = "error"
)

type UploadedFileResult struct {
	FileId     string `json:"file_id"`
	Filename   string `json:"filename"`
	Size       int    `json:"size"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

type UploadResponse struct {
	UploadedFiles []UploadedFileResult `json:"uploaded_files"`
	SessionId     string               `json:"session_id"`
}

type SessionDocumentsResponse struct {
	SessionId string      `json:"session_id"`
	Documents interface{} `json:"documents"`
}

// MultiuserDocuments lists what a session owns next to what it can reach
// through the shared store.
type MultiuserDocuments struct {
	OwnDocuments     []entity.Document    `json:"own_documents"`
	AccessibleShared []SharedDocumentInfo `json:"accessible_shared"`
}

type SharedDocumentInfo struct {
	entity.Document
	AccessType string `json:"access_type"` // "shared_cross_session"
}
