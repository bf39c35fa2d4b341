package factory

import (
	"fmt"
	"time"

	"ai-redteam-be/internal/repository/contract"
	"ai-redteam-be/internal/repository/memory"
	"ai-redteam-be/internal/repository/redisrepo"
	"ai-redteam-be/pkg/apperr"

	"github.com/redis/go-redis/v9"
)

// NewConversationRepository selects the history driver by name. "memory"
// (default) forgets everything on restart, which suits a throwaway
// playground; "redis" keeps state across replicas for shared lab setups.
func NewConversationRepository(driver, mode string, ttl time.Duration, client *redis.Client) (contract.ConversationRepository, error) {
	switch driver {
	case "", "memory":
		return memory.NewConversationRepository(ttl), nil
	case "redis":
		if client == nil {
			return nil, apperr.NewConfigurationError("CONVERSATION_DRIVER", "redis driver requires REDIS_URL")
		}
		return redisrepo.NewConversationRepository(client, mode, ttl), nil
	default:
		return nil, fmt.Errorf("%w: %s", apperr.ErrInvalidDriver, driver)
	}
}
