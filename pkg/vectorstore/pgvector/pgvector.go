package pgvector

import (
	"context"
	"encoding/json"
	"time"

	"ai-redteam-be/pkg/apperr"
	"ai-redteam-be/pkg/embedding"
	"ai-redteam-be/pkg/vectorstore"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChunkRow is the persisted form of an indexed chunk. One table holds
// every namespace; the namespace column scopes queries.
type ChunkRow struct {
	ID        string          `gorm:"primaryKey;type:text"` // namespace-scoped: "<namespace>:<chunk id>"
	ChunkID   string          `gorm:"index;not null"`
	Namespace string          `gorm:"index;not null"`
	Document  string          `gorm:"type:text"`
	Embedding pgvector.Vector `gorm:"type:vector(768)"` // nomic-embed-text dimension
	Metadata  datatypes.JSON  `gorm:"type:jsonb"`
	CreatedAt time.Time       `gorm:"autoCreateTime"`
}

func (ChunkRow) TableName() string {
	return "document_chunks"
}

// Store persists chunks in Postgres with the pgvector extension, so
// namespaces survive process restarts.
type Store struct {
	db       *gorm.DB
	embedder embedding.EmbeddingProvider
}

func NewStore(db *gorm.DB, embedder embedding.EmbeddingProvider) *Store {
	return &Store{db: db, embedder: embedder}
}

func (s *Store) Collection(name string) vectorstore.Collection {
	return &collection{store: s, name: name}
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
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

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return apperr.NewVectorStoreError(c.name, "add", err)
	}

	row := ChunkRow{
		ID:        c.name + ":" + chunkID,
		ChunkID:   chunkID,
		Namespace: c.name,
		Document:  text,
		Embedding: pgvector.NewVector(res.Embedding.Values),
		Metadata:  datatypes.JSON(metaJSON),
	}

	err = c.store.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&row).Error
	if err != nil {
		return apperr.NewVectorStoreError(c.name, "add", err)
	}
	return nil
}

func (c *collection) Query(ctx context.Context, queryText string, k int) ([]vectorstore.Hit, error) {
	res, err := c.store.embedder.Generate(queryText, vectorstore.TaskTypeQuery)
	if err != nil {
		return nil, apperr.NewVectorStoreError(c.name, "query", err)
	}

	if k <= 0 {
		k = 5
	}

	type scoredRow struct {
		ChunkRow
		Distance float64
	}
	var rows []scoredRow

	queryVector := pgvector.NewVector(res.Embedding.Values)

	err = c.store.db.WithContext(ctx).
		Table("document_chunks").
		Select("document_chunks.*, embedding <=> ? AS distance", queryVector).
		Where("namespace = ?", c.name).
		Order("distance ASC").
		Limit(k).
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.NewVectorStoreError(c.name, "query", err)
	}

	hits := make([]vectorstore.Hit, 0, len(rows))
	for _, row := range rows {
		var meta vectorstore.ChunkMetadata
		if len(row.Metadata) > 0 {
			if err := json.Unmarshal(row.Metadata, &meta); err != nil {
				return nil, apperr.NewVectorStoreError(c.name, "query", err)
			}
		}
		hits = append(hits, vectorstore.Hit{
			ChunkID:  row.ChunkID,
			Text:     row.Document,
			Metadata: meta,
			Distance: row.Distance,
		})
	}
	return hits, nil
}
