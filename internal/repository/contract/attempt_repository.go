package contract

import (
	"context"

	"ai-redteam-be/internal/entity"
)

// AttemptLogRepository keeps the audit trail of detected attack attempts,
// newest first.
type AttemptLogRepository interface {
	Record(ctx context.Context, rec entity.AttemptRecord) error
	List(ctx context.Context, limit int) ([]entity.AttemptRecord, error)
}
