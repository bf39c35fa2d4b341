package service

import (
	"context"
	"encoding/json"
	"log"

	"ai-redteam-be/internal/dto"
	"ai-redteam-be/internal/entity"
	"ai-redteam-be/internal/pkg/logger"
	"ai-redteam-be/internal/repository/contract"
	"ai-redteam-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// IAuditService consumes security events from the bus and turns them into
// the attempt trail served by /api/attempts.
type IAuditService interface {
	Consume(ctx context.Context) error
}

type auditService struct {
	pubSub      *gochannel.GoChannel
	topicName   string
	attemptRepo contract.AttemptLogRepository
	auditLogger logger.ILogger
}

// NewAuditService wires the bus consumer. auditLogger should be the isolated
// audit-trail logger so events land in their own file.
func NewAuditService(
	pubSub *gochannel.GoChannel,
	topicName string,
	attemptRepo contract.AttemptLogRepository,
	auditLogger logger.ILogger,
) IAuditService {
	return &auditService{
		pubSub:      pubSub,
		topicName:   topicName,
		attemptRepo: attemptRepo,
		auditLogger: auditLogger,
	}
}

func (as *auditService) Consume(ctx context.Context) error {
	messages, err := as.pubSub.Subscribe(ctx, as.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			as.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (as *auditService) processMessage(ctx context.Context, msg *message.Message) {
	var envelope dto.EventEnvelope
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		log.Printf("[ERROR] Failed to unmarshal event: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	details := envelope.Data
	if details == nil {
		details = map[string]interface{}{}
	}

	as.auditLogger.Info("AUDIT", "Security event: "+envelope.Type, details)

	// Only attack signals become attempt records; indexing notifications are
	// trail-only.
	if !isAttempt(envelope.Type) {
		msg.Ack()
		return
	}

	rec := entity.AttemptRecord{
		Id:         uuid.New().String(),
		Type:       envelope.Type,
		OccurredAt: envelope.OccurredAt,
		Details:    details,
	}
	if err := as.attemptRepo.Record(ctx, rec); err != nil {
		log.Printf("[ERROR] Failed to record attempt %s: %v", rec.Id, err)
		msg.Nack() // Nack for retriable errors
		return
	}

	msg.Ack()
}

func isAttempt(eventType string) bool {
	switch eventType {
	case events.TypeInputBlocked, events.TypeUnsafeOutput, events.TypeCrossSessionLeak:
		return true
	}
	return false
}
