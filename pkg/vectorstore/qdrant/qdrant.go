package qdrant

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"ai-redteam-be/pkg/apperr"
	"ai-redteam-be/pkg/embedding"
	"ai-redteam-be/pkg/vectorstore"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// Config holds Qdrant connection configuration.
type Config struct {
	// URL is the Qdrant server address (e.g., "http://localhost:6334").
	URL string

	// APIKey is optional API key for authentication.
	APIKey string

	// Dimension of the stored vectors.
	Dimension int
}

// Store keeps chunks in a Qdrant server over gRPC, one collection per
// namespace. Collections are durable, so indexed documents survive
// restarts of this process.
type Store struct {
	client    *qdrant.Client
	embedder  embedding.EmbeddingProvider
	dimension int

	mu      sync.Mutex
	ensured map[string]bool
}

func NewStore(cfg Config, embedder embedding.EmbeddingProvider) (*Store, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("qdrant url is required")
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = 768
	}

	parsedURL := cfg.URL
	if !strings.HasPrefix(parsedURL, "http://") && !strings.HasPrefix(parsedURL, "https://") {
		parsedURL = "http://" + parsedURL
	}

	u, err := url.Parse(parsedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse qdrant url: %w", err)
	}

	host := u.Hostname()
	port := 6334 // default gRPC port
	if u.Port() != "" {
		p, err := strconv.Atoi(u.Port())
		if err != nil {
			return nil, fmt.Errorf("invalid port: %w", err)
		}
		port = p
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: u.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &Store{
		client:    client,
		embedder:  embedder,
		dimension: cfg.Dimension,
		ensured:   make(map[string]bool),
	}, nil
}

func (s *Store) Collection(name string) vectorstore.Collection {
	return &collection{store: s, name: name}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) ensureCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ensured[name] {
		return nil
	}

	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(s.dimension),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return err
		}
	}
	s.ensured[name] = true
	return nil
}

type collection struct {
	store *Store
	name  string
}

// pointID derives a stable UUID from the logical chunk id, since Qdrant
// only accepts UUID or integer point ids. The logical id is kept in the
// payload.
func (c *collection) pointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(c.name+"/"+chunkID)).String()
}

func (c *collection) Add(ctx context.Context, chunkID, text string, meta vectorstore.ChunkMetadata) error {
	if err := c.store.ensureCollection(ctx, c.name); err != nil {
		return apperr.NewVectorStoreError(c.name, "add", err)
	}

	res, err := c.store.embedder.Generate(text, vectorstore.TaskTypeDocument)
	if err != nil {
		return apperr.NewVectorStoreError(c.name, "add", err)
	}

	wait := true
	_, err = c.store.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: c.name,
		Wait:           &wait,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewIDUUID(c.pointID(chunkID)),
				Vectors: qdrant.NewVectors(res.Embedding.Values...),
				Payload: qdrant.NewValueMap(map[string]any{
					"chunk_id":    chunkID,
					"content":     text,
					"document_id": meta.DocumentID,
					"filename":    meta.Filename,
					"chunk_index": meta.ChunkIndex,
					"session_id":  meta.SessionID,
					"shared":      meta.Shared,
				}),
			},
		},
	})
	if err != nil {
		return apperr.NewVectorStoreError(c.name, "add", err)
	}
	return nil
}

func (c *collection) Query(ctx context.Context, queryText string, k int) ([]vectorstore.Hit, error) {
	exists, err := c.store.client.CollectionExists(ctx, c.name)
	if err != nil {
		return nil, apperr.NewVectorStoreError(c.name, "query", err)
	}
	if !exists {
		// Nothing was ever indexed under this namespace.
		return nil, nil
	}

	res, err := c.store.embedder.Generate(queryText, vectorstore.TaskTypeQuery)
	if err != nil {
		return nil, apperr.NewVectorStoreError(c.name, "query", err)
	}

	if k <= 0 {
		k = 5
	}
	limit := uint64(k)

	points, err := c.store.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: c.name,
		Query:          qdrant.NewQuery(res.Embedding.Values...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, apperr.NewVectorStoreError(c.name, "query", err)
	}

	hits := make([]vectorstore.Hit, 0, len(points))
	for _, point := range points {
		hit := vectorstore.Hit{
			// Cosine score from Qdrant is similarity, invert back to distance.
			Distance: 1 - float64(point.Score),
		}
		for key, value := range point.Payload {
			switch key {
			case "chunk_id":
				hit.ChunkID = value.GetStringValue()
			case "content":
				hit.Text = value.GetStringValue()
			case "document_id":
				hit.Metadata.DocumentID = value.GetStringValue()
			case "filename":
				hit.Metadata.Filename = value.GetStringValue()
			case "chunk_index":
				hit.Metadata.ChunkIndex = int(value.GetIntegerValue())
			case "session_id":
				hit.Metadata.SessionID = value.GetStringValue()
			case "shared":
				hit.Metadata.Shared = value.GetBoolValue()
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
