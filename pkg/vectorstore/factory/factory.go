package factory

import (
	"fmt"

	"ai-redteam-be/pkg/apperr"
	"ai-redteam-be/pkg/embedding"
	"ai-redteam-be/pkg/vectorstore"
	"ai-redteam-be/pkg/vectorstore/memory"
	"ai-redteam-be/pkg/vectorstore/pgvector"
	"ai-redteam-be/pkg/vectorstore/qdrant"

	"gorm.io/gorm"
)

// Options carries the driver-specific knobs. Only the fields for the
// selected driver are consulted.
type Options struct {
	DB        *gorm.DB // pgvector
	QdrantURL string   // qdrant
	QdrantKey string
	Dimension int
}

// NewStore selects a vector store driver by name: "memory" (default,
// process-lifetime), "pgvector" (Postgres), or "qdrant" (gRPC server).
func NewStore(driver string, embedder embedding.EmbeddingProvider, opts Options) (vectorstore.Store, error) {
	switch driver {
	case "", "memory":
		return memory.NewStore(embedder), nil
	case "pgvector":
		if opts.DB == nil {
			return nil, fmt.Errorf("pgvector driver requires a database connection")
		}
		return pgvector.NewStore(opts.DB, embedder), nil
	case "qdrant":
		return qdrant.NewStore(qdrant.Config{
			URL:       opts.QdrantURL,
			APIKey:    opts.QdrantKey,
			Dimension: opts.Dimension,
		}, embedder)
	default:
		return nil, fmt.Errorf("%w: %s", apperr.ErrInvalidDriver, driver)
	}
}
