package memory

import (
	"context"
	"sync"
	"time"

	"ai-redteam-be/internal/entity"

	"github.com/patrickmn/go-cache"
)

type ConversationRepository struct {
	mu    sync.Mutex
	cache *cache.Cache
}

// NewConversationRepository creates an in-memory history store. A ttl of zero
// keeps conversations until the process exits, which is the playground's
// reset-on-restart behavior.
func NewConversationRepository(ttl time.Duration) *ConversationRepository {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	// Purge expired conversations every 10 minutes
	c := cache.New(ttl, 10*time.Minute)
	return &ConversationRepository{cache: c}
}

func (r *ConversationRepository) Append(ctx context.Context, conversationId string, turn entity.ConversationTurn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	history := append(r.turns(conversationId), turn)
	r.cache.Set(conversationId, history, cache.DefaultExpiration)
	return nil
}

func (r *ConversationRepository) Get(ctx context.Context, conversationId string) ([]entity.ConversationTurn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Copy so callers never alias the stored backing array.
	return append([]entity.ConversationTurn(nil), r.turns(conversationId)...), nil
}

func (r *ConversationRepository) Clear(ctx context.Context, conversationId string) error {
	r.cache.Delete(conversationId)
	return nil
}

func (r *ConversationRepository) turns(conversationId string) []entity.ConversationTurn {
	if x, found := r.cache.Get(conversationId); found {
		return x.([]entity.ConversationTurn)
	}
	return nil
}
