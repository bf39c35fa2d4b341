package rag

import (
	"context"
	"errors"
	"testing"

	"ai-redteam-be/pkg/embedding"
	"ai-redteam-be/pkg/vectorstore"
	"ai-redteam-be/pkg/vectorstore/memory"
)

type recordLogger struct {
	warns []string
}

func (l *recordLogger) Debug(module, message string, details map[string]interface{}) {}
func (l *recordLogger) Info(module, message string, details map[string]interface{})  {}
func (l *recordLogger) Warn(module, message string, details map[string]interface{}) {
	l.warns = append(l.warns, message)
}
func (l *recordLogger) Error(module, message string, details map[string]interface{}) {}
func (l *recordLogger) Sync() error                                                 { return nil }

type failingCollection struct {
	err error
}

func (f failingCollection) Add(ctx context.Context, chunkID, text string, meta vectorstore.ChunkMetadata) error {
	return f.err
}

func (f failingCollection) Query(ctx context.Context, queryText string, k int) ([]vectorstore.Hit, error) {
	return nil, f.err
}

// flakyStore fails queries against one namespace and delegates the rest.
type flakyStore struct {
	inner  vectorstore.Store
	failNS string
}

func (s *flakyStore) Collection(name string) vectorstore.Collection {
	if name == s.failNS {
		return failingCollection{err: errors.New("namespace offline")}
	}
	return s.inner.Collection(name)
}

func (s *flakyStore) Close() error {
	return s.inner.Close()
}

func newTestStore() vectorstore.Store {
	return memory.NewStore(embedding.NewHashingProvider(0))
}

func addChunk(t *testing.T, store vectorstore.Store, namespace, id, text string, meta vectorstore.ChunkMetadata) {
	t.Helper()
	if err := store.Collection(namespace).Add(context.Background(), id, text, meta); err != nil {
		t.Fatalf("add chunk %q to %q: %v", id, namespace, err)
	}
}

func TestRetrieveEmptySession(t *testing.T) {
	log := &recordLogger{}
	r := NewRetriever(newTestStore(), log)

	chunks := r.Retrieve(context.Background(), "anything at all", "fresh-session", 3)
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks for empty session, got %d", len(chunks))
	}
	if len(log.warns) != 0 {
		t.Errorf("empty namespace should not warn, got %v", log.warns)
	}
}

func TestRetrieveRanksOwnDocuments(t *testing.T) {
	store := newTestStore()
	r := NewRetriever(store, &recordLogger{})

	ns := vectorstore.NamespaceForSession("sess-a")
	addChunk(t, store, ns, "doc1_chunk_0", "solar panels convert sunlight into electricity", vectorstore.ChunkMetadata{
		DocumentID: "doc1", Filename: "solar.txt", SessionID: "sess-a",
	})
	addChunk(t, store, ns, "doc2_chunk_0", "the treasury report lists quarterly revenue figures", vectorstore.ChunkMetadata{
		DocumentID: "doc2", Filename: "finance.txt", SessionID: "sess-a",
	})

	chunks := r.Retrieve(context.Background(), "solar panels convert sunlight into electricity", "sess-a", 3)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Content != "solar panels convert sunlight into electricity" {
		t.Errorf("best match should be the solar chunk, got %q", chunks[0].Content)
	}
	if chunks[0].Relevance < chunks[1].Relevance {
		t.Errorf("results not sorted by relevance: %f < %f", chunks[0].Relevance, chunks[1].Relevance)
	}
	if chunks[0].SourceType != "" {
		t.Errorf("session-only retrieval should not tag sources, got %q", chunks[0].SourceType)
	}
	if chunks[0].Metadata.Filename != "solar.txt" {
		t.Errorf("metadata should travel with the chunk, got %+v", chunks[0].Metadata)
	}
}

func TestRetrieveSharedCrossSessionLeak(t *testing.T) {
	store := newTestStore()
	r := NewRetriever(store, &recordLogger{})

	// Victim session uploads into the shared namespace.
	addChunk(t, store, vectorstore.SharedNamespace, "doc9_chunk_0_shared", "the acquisition closes in november", vectorstore.ChunkMetadata{
		DocumentID: "doc9", Filename: "merger.txt", SessionID: "alice-session", Shared: true,
	})

	// A different session with no documents of its own can still retrieve it.
	chunks := r.RetrieveShared(context.Background(), "when does the acquisition close", "bob-session", true, 5)
	if len(chunks) == 0 {
		t.Fatal("expected shared chunk to leak into another session's retrieval")
	}
	if chunks[0].SourceType != SourceShared {
		t.Errorf("leaked chunk should be tagged %q, got %q", SourceShared, chunks[0].SourceType)
	}
	if chunks[0].Metadata.SessionID != "alice-session" {
		t.Errorf("leaked chunk should keep the uploader's session id, got %q", chunks[0].Metadata.SessionID)
	}
}

func TestRetrieveSharedBudgetSplit(t *testing.T) {
	store := newTestStore()
	r := NewRetriever(store, &recordLogger{})

	bobNS := vectorstore.NamespaceForSession("bob-session")
	for i, text := range []string{
		"alpha engine assembly manual",
		"beta engine assembly manual",
		"gamma engine assembly manual",
	} {
		addChunk(t, store, bobNS, "own_chunk_"+string(rune('0'+i)), text, vectorstore.ChunkMetadata{
			DocumentID: "own", Filename: "own.txt", SessionID: "bob-session",
		})
	}
	for i, text := range []string{
		"delta engine maintenance notes",
		"epsilon engine maintenance notes",
		"zeta engine maintenance notes",
	} {
		addChunk(t, store, vectorstore.SharedNamespace, "shared_chunk_"+string(rune('0'+i)), text, vectorstore.ChunkMetadata{
			DocumentID: "shared", Filename: "shared.txt", SessionID: "alice-session", Shared: true,
		})
	}

	chunks := r.RetrieveShared(context.Background(), "engine assembly", "bob-session", true, 5)

	// Budget of 5 splits into 2 per namespace.
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks (2 session + 2 shared), got %d", len(chunks))
	}
	counts := map[string]int{}
	for _, c := range chunks {
		counts[c.SourceType]++
	}
	if counts[SourceSession] != 2 || counts[SourceShared] != 2 {
		t.Errorf("unexpected source split: %v", counts)
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i-1].Relevance < chunks[i].Relevance {
			t.Errorf("merged results not sorted: position %d has %f after %f", i, chunks[i].Relevance, chunks[i-1].Relevance)
		}
	}
}

func TestRetrieveSharedCanExcludeSharedNamespace(t *testing.T) {
	store := newTestStore()
	r := NewRetriever(store, &recordLogger{})

	addChunk(t, store, vectorstore.NamespaceForSession("bob-session"), "own_chunk_0", "private planning notes", vectorstore.ChunkMetadata{
		DocumentID: "own", Filename: "own.txt", SessionID: "bob-session",
	})
	addChunk(t, store, vectorstore.SharedNamespace, "shared_chunk_0", "private planning notes", vectorstore.ChunkMetadata{
		DocumentID: "shared", Filename: "shared.txt", SessionID: "alice-session", Shared: true,
	})

	chunks := r.RetrieveShared(context.Background(), "planning notes", "bob-session", false, 5)
	if len(chunks) != 1 {
		t.Fatalf("expected only the session chunk, got %d", len(chunks))
	}
	if chunks[0].SourceType != SourceSession {
		t.Errorf("expected %q, got %q", SourceSession, chunks[0].SourceType)
	}
}

func TestRetrieveSharedTagsOwnUploads(t *testing.T) {
	store := newTestStore()
	r := NewRetriever(store, &recordLogger{})

	addChunk(t, store, vectorstore.SharedNamespace, "doc1_chunk_0_shared", "onboarding checklist for new hires", vectorstore.ChunkMetadata{
		DocumentID: "doc1", Filename: "onboarding.txt", SessionID: "alice-session", Shared: true,
	})

	chunks := r.RetrieveShared(context.Background(), "onboarding checklist", "alice-session", true, 5)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].SourceType != SourceOwnShared {
		t.Errorf("own shared upload should be tagged %q, got %q", SourceOwnShared, chunks[0].SourceType)
	}
}

func TestRetrieveSharedDegradesWhenNamespaceFails(t *testing.T) {
	inner := newTestStore()
	addChunk(t, inner, vectorstore.SharedNamespace, "doc1_chunk_0_shared", "incident response runbook", vectorstore.ChunkMetadata{
		DocumentID: "doc1", Filename: "runbook.txt", SessionID: "alice-session", Shared: true,
	})

	log := &recordLogger{}
	store := &flakyStore{inner: inner, failNS: vectorstore.NamespaceForSession("bob-session")}
	r := NewRetriever(store, log)

	chunks := r.RetrieveShared(context.Background(), "incident response", "bob-session", true, 5)
	if len(chunks) != 1 {
		t.Fatalf("shared results should survive a session namespace failure, got %d chunks", len(chunks))
	}
	if chunks[0].SourceType != SourceShared {
		t.Errorf("expected %q, got %q", SourceShared, chunks[0].SourceType)
	}
	if len(log.warns) != 1 {
		t.Errorf("expected one warning for the failed namespace, got %d", len(log.warns))
	}
}

func TestRetrieveSharedPrefersExactMatch(t *testing.T) {
	store := newTestStore()
	r := NewRetriever(store, &recordLogger{})

	addChunk(t, store, vectorstore.NamespaceForSession("bob-session"), "own_chunk_0", "rotate the api keys every ninety days", vectorstore.ChunkMetadata{
		DocumentID: "own", Filename: "own.txt", SessionID: "bob-session",
	})
	addChunk(t, store, vectorstore.SharedNamespace, "shared_chunk_0", "the cafeteria menu changes weekly", vectorstore.ChunkMetadata{
		DocumentID: "shared", Filename: "shared.txt", SessionID: "alice-session", Shared: true,
	})

	chunks := r.RetrieveShared(context.Background(), "rotate the api keys every ninety days", "bob-session", true, 5)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].SourceType != SourceSession {
		t.Errorf("exact session match should rank first, got %q", chunks[0].SourceType)
	}
	if chunks[0].Relevance <= chunks[1].Relevance {
		t.Errorf("expected strict ranking, got %f then %f", chunks[0].Relevance, chunks[1].Relevance)
	}
}
