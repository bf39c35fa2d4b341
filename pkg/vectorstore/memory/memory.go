package memory

import (
	"context"
	"sort"
	"sync"

	"ai-redteam-be/pkg/apperr"
	"ai-redteam-be/pkg/embedding"
	"ai-redteam-be/pkg/vectorstore"
)

// Store is an in-process vector store using brute-force cosine search.
// Namespaces live for the process lifetime; nothing is persisted.
type Store struct {
	mu         sync.RWMutex
	embedder   embedding.EmbeddingProvider
	namespaces map[string]*records
}

type records struct {
	mu      sync.RWMutex
	ids     []string
	texts   []string
	vectors [][]float32
	metas   []vectorstore.ChunkMetadata
}

func NewStore(embedder embedding.EmbeddingProvider) *Store {
	return &Store{
		embedder:   embedder,
		namespaces: make(map[string]*records),
	}
}

func (s *Store) Collection(name string) vectorstore.Collection {
	return &collection{store: s, name: name}
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) namespace(name string, create bool) *records {
	s.mu.RLock()
	r, ok := s.namespaces[name]
	s.mu.RUnlock()
	if ok || !create {
		return r
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok = s.namespaces[name]; ok {
		return r
	}
	r = &records{}
	s.namespaces[name] = r
	return r
}

type collection struct {
	store *Store
	name  string
}

func (c *collection) Add(ctx context.Context, chunkID, text string, meta vectorstore.ChunkMetadata) error {
	res, err := c.store.embedder.Generate(text, vectorstore.TaskTypeDocument)
	if err != nil {
		return apperr.NewVectorStoreError(c.name, "add", err)
	}

	r := c.store.namespace(c.name, true)
	r.mu.Lock()
	defer r.mu.Unlock()

	// Upsert by id
	for i, id := range r.ids {
		if id == chunkID {
			r.texts[i] = text
			r.vectors[i] = res.Embedding.Values
			r.metas[i] = meta
			return nil
		}
	}

	r.ids = append(r.ids, chunkID)
	r.texts = append(r.texts, text)
	r.vectors = append(r.vectors, res.Embedding.Values)
	r.metas = append(r.metas, meta)
	return nil
}

func (c *collection) Query(ctx context.Context, queryText string, k int) ([]vectorstore.Hit, error) {
	r := c.store.namespace(c.name, false)
	if r == nil {
		return nil, nil
	}

	res, err := c.store.embedder.Generate(queryText, vectorstore.TaskTypeQuery)
	if err != nil {
		return nil, apperr.NewVectorStoreError(c.name, "query", err)
	}
	query := res.Embedding.Values

	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.ids) == 0 {
		return nil, nil
	}
	if k <= 0 {
		k = 5
	}

	// Vectors are unit length, so cosine distance is 1 - dot.
	hits := make([]vectorstore.Hit, len(r.ids))
	for i := range r.ids {
		hits[i] = vectorstore.Hit{
			ChunkID:  r.ids[i],
			Text:     r.texts[i],
			Metadata: r.metas[i],
			Distance: 1 - dot(r.vectors[i], query),
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
