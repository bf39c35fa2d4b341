package rag

import (
	"context"
	"sort"

	"ai-redteam-be/internal/pkg/logger"
	"ai-redteam-be/pkg/vectorstore"
)

// Source classification for retrieved chunks.
const (
	SourceSession   = "session"
	SourceOwnShared = "own_shared"
	SourceShared    = "shared"
)

// Default result budgets for the two retrieval shapes.
const (
	DefaultTopK       = 3
	DefaultSharedTopK = 5
)

// Chunk is one retrieved piece of document text scored against the query.
type Chunk struct {
	Content    string                    `json:"content"`
	Metadata   vectorstore.ChunkMetadata `json:"metadata"`
	Relevance  float64                   `json:"relevance_score"`
	SourceType string                    `json:"source_type,omitempty"`
}

// Retriever queries document namespaces and ranks results for prompt building.
// Lookup failures never fail a chat turn: they are logged and contribute no
// results, so the turn proceeds without context.
type Retriever struct {
	store  vectorstore.Store
	logger logger.ILogger
}

func NewRetriever(store vectorstore.Store, log logger.ILogger) *Retriever {
	return &Retriever{
		store:  store,
		logger: log,
	}
}

// Retrieve searches only the caller's session namespace.
func (r *Retriever) Retrieve(ctx context.Context, query, sessionID string, topK int) []Chunk {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return r.queryNamespace(ctx, vectorstore.NamespaceForSession(sessionID), query, topK, "")
}

// RetrieveShared searches the caller's session namespace and the shared
// namespace, splitting the result budget between them, then merges everything
// by relevance. Chunks from the shared namespace that another session uploaded
// are tagged SourceShared; that tag is what makes cross-session leakage
// observable downstream.
func (r *Retriever) RetrieveShared(ctx context.Context, query, sessionID string, includeShared bool, topK int) []Chunk {
	if topK <= 0 {
		topK = DefaultSharedTopK
	}

	sessionBudget := topK
	if includeShared {
		sessionBudget = topK / 2
	}

	chunks := r.queryNamespace(ctx, vectorstore.NamespaceForSession(sessionID), query, sessionBudget, SourceSession)

	if includeShared {
		for _, chunk := range r.queryNamespace(ctx, vectorstore.SharedNamespace, query, topK/2, SourceShared) {
			if chunk.Metadata.SessionID == sessionID {
				chunk.SourceType = SourceOwnShared
			}
			chunks = append(chunks, chunk)
		}
	}

	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Relevance > chunks[j].Relevance
	})
	if len(chunks) > topK {
		chunks = chunks[:topK]
	}

	r.logger.Debug("RETRIEVER", "Merged retrieval results", map[string]interface{}{
		"session_id": sessionID,
		"chunks":     len(chunks),
	})

	return chunks
}

func (r *Retriever) queryNamespace(ctx context.Context, namespace, query string, k int, sourceType string) []Chunk {
	if k <= 0 {
		return nil
	}

	hits, err := r.store.Collection(namespace).Query(ctx, query, k)
	if err != nil {
		r.logger.Warn("RETRIEVER", "Namespace query failed, continuing without its results", map[string]interface{}{
			"namespace": namespace,
			"error":     err.Error(),
		})
		return nil
	}

	chunks := make([]Chunk, 0, len(hits))
	for _, hit := range hits {
		chunks = append(chunks, Chunk{
			Content:    hit.Text,
			Metadata:   hit.Metadata,
			Relevance:  1 - hit.Distance,
			SourceType: sourceType,
		})
	}
	return chunks
}
