package memory

import (
	"context"
	"sync"
	"time"

	"ai-redteam-be/internal/entity"

	"github.com/patrickmn/go-cache"
)

const (
	sessionKeyPrefix = "session:"
	sharedIndexKey   = "shared"
)

type DocumentRepository struct {
	mu    sync.Mutex
	cache *cache.Cache
}

// NewDocumentRepository creates the in-memory upload registry. Entries never
// expire: the registry mirrors files saved under the upload directory.
func NewDocumentRepository() *DocumentRepository {
	c := cache.New(cache.NoExpiration, 10*time.Minute)
	return &DocumentRepository{cache: c}
}

func (r *DocumentRepository) Save(ctx context.Context, doc entity.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessionKey := sessionKeyPrefix + doc.SessionID
	r.cache.Set(sessionKey, append(r.docs(sessionKey), doc), cache.NoExpiration)
	if doc.Shared {
		r.cache.Set(sharedIndexKey, append(r.docs(sharedIndexKey), doc), cache.NoExpiration)
	}
	return nil
}

func (r *DocumentRepository) BySession(ctx context.Context, sessionId string) ([]entity.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]entity.Document(nil), r.docs(sessionKeyPrefix+sessionId)...), nil
}

func (r *DocumentRepository) Shared(ctx context.Context) ([]entity.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]entity.Document(nil), r.docs(sharedIndexKey)...), nil
}

func (r *DocumentRepository) docs(key string) []entity.Document {
	if x, found := r.cache.Get(key); found {
		return x.([]entity.Document)
	}
	return nil
}
