package entity

import "time"

// AttemptRecord is one audited security event, served by /api/attempts.
type AttemptRecord struct {
	Id         string                 `json:"id"`
	Type       string                 `json:"type"`
	OccurredAt time.Time              `json:"occurred_at"`
	Details    map[string]interface{} `json:"details"`
}
