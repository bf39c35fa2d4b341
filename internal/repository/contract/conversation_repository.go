package contract

import (
	"context"

	"ai-redteam-be/internal/entity"
)

// ConversationRepository stores the turn history of one chat mode. Each mode
// owns its own repository instance so histories never bleed across modes,
// even when two modes share a conversation id.
type ConversationRepository interface {
	Append(ctx context.Context, conversationId string, turn entity.ConversationTurn) error
	Get(ctx context.Context, conversationId string) ([]entity.ConversationTurn, error)
	Clear(ctx context.Context, conversationId string) error
}
