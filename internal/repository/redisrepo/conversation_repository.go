package redisrepo

import (
	"context"
	"encoding/json"
	"time"

	"ai-redteam-be/internal/entity"

	"github.com/redis/go-redis/v9"
)

// ConversationRepository keeps chat history in Redis so state survives
// restarts when the playground runs as a shared lab instance.
type ConversationRepository struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewConversationRepository creates a Redis-backed history store. The mode is
// folded into the key prefix so all modes can share one client without
// collisions. A ttl of zero keeps conversations until they are cleared.
func NewConversationRepository(client *redis.Client, mode string, ttl time.Duration) *ConversationRepository {
	return &ConversationRepository{
		client: client,
		prefix: "conversation:" + mode + ":",
		ttl:    ttl,
	}
}

func (r *ConversationRepository) Append(ctx context.Context, conversationId string, turn entity.ConversationTurn) error {
	key := r.key(conversationId)

	// WATCH/MULTI keeps concurrent appends from losing turns.
	return r.client.Watch(ctx, func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Result()
		if err != nil && err != redis.Nil {
			return err
		}

		var history []entity.ConversationTurn
		if err == nil {
			if err := json.Unmarshal([]byte(val), &history); err != nil {
				return err
			}
		}

		newVal, err := json.Marshal(append(history, turn))
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, newVal, r.ttl)
			return nil
		})
		return err
	}, key)
}

func (r *ConversationRepository) Get(ctx context.Context, conversationId string) ([]entity.ConversationTurn, error) {
	key := r.key(conversationId)
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var history []entity.ConversationTurn
	if err := json.Unmarshal([]byte(val), &history); err != nil {
		return nil, err
	}

	if r.ttl > 0 {
		// Refresh TTL on read
		_ = r.client.Expire(ctx, key, r.ttl).Err()
	}

	return history, nil
}

func (r *ConversationRepository) Clear(ctx context.Context, conversationId string) error {
	return r.client.Del(ctx, r.key(conversationId)).Err()
}

func (r *ConversationRepository) key(conversationId string) string {
	return r.prefix + conversationId
}
