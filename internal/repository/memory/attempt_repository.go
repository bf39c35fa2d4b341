package memory

import (
	"context"
	"sync"

	"ai-redteam-be/internal/entity"
)

// maxAttempts bounds the in-memory audit trail. Once full, the oldest
// records are dropped.
const maxAttempts = 1000

type AttemptLogRepository struct {
	mu      sync.RWMutex
	records []entity.AttemptRecord
}

func NewAttemptLogRepository() *AttemptLogRepository {
	return &AttemptLogRepository{}
}

func (r *AttemptLogRepository) Record(ctx context.Context, rec entity.AttemptRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = append(r.records, rec)
	if len(r.records) > maxAttempts {
		r.records = r.records[len(r.records)-maxAttempts:]
	}
	return nil
}

// List returns up to limit records, newest first. A non-positive limit
// returns everything.
func (r *AttemptLogRepository) List(ctx context.Context, limit int) ([]entity.AttemptRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := len(r.records)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]entity.AttemptRecord, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, r.records[i])
	}
	return out, nil
}
