package contract

import (
	"context"

	"ai-redteam-be/internal/entity"
)

// DocumentRepository is the upload registry of one chat mode. It tracks which
// documents a session has indexed and, for modes that write into the shared
// namespace, which documents are visible across sessions.
type DocumentRepository interface {
	Save(ctx context.Context, doc entity.Document) error
	BySession(ctx context.Context, sessionId string) ([]entity.Document, error)
	Shared(ctx context.Context) ([]entity.Document, error)
}
