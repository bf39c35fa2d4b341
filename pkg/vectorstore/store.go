package vectorstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SharedNamespace is the single cross-session collection the multiuser
// mode writes shared chunks into.
const SharedNamespace = "shared_documents"

// TaskTypeDocument and TaskTypeQuery are passed to the embedding
// provider so backends that distinguish the two (e.g. nomic prefixes)
// can do so.
const (
	TaskTypeDocument = "RETRIEVAL_DOCUMENT"
	TaskTypeQuery    = "RETRIEVAL_QUERY"
)

// ChunkMetadata travels with every indexed chunk and comes back on hits.
type ChunkMetadata struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	ChunkIndex int    `json:"chunk_index"`
	SessionID  string `json:"session_id"`
	Shared     bool   `json:"shared"`
}

// Hit is a single similarity result. Distance is cosine distance, lower
// is more similar; callers derive relevance as 1 - Distance.
type Hit struct {
	ChunkID  string
	Text     string
	Metadata ChunkMetadata
	Distance float64
}

// Collection is one similarity-searchable namespace of chunks.
type Collection interface {
	// Add embeds text and upserts it under chunkID.
	Add(ctx context.Context, chunkID, text string, meta ChunkMetadata) error

	// Query embeds queryText and returns the k nearest chunks, ranked by
	// ascending distance. A namespace with no chunks yields an empty
	// slice, not an error.
	Query(ctx context.Context, queryText string, k int) ([]Hit, error)
}

// Store hands out namespace-scoped collections. Handles are cheap;
// backing resources are created lazily on first Add.
type Store interface {
	Collection(name string) Collection
	Close() error
}

// NamespaceForSession maps a session id onto a collection name. The
// sanitized prefix keeps the name readable; the hash suffix keeps the
// mapping collision-free for distinct ids that sanitize identically.
func NamespaceForSession(sessionID string) string {
	sum := sha256.Sum256([]byte(sessionID))
	return "session_" + sanitizeNamespace(sessionID) + "_" + hex.EncodeToString(sum[:4])
}

func sanitizeNamespace(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
		if b.Len() >= 40 {
			break
		}
	}
	return b.String()
}
