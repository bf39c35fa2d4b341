package service

import (
	"context"
	"encoding/json"
	"time"

	"ai-redteam-be/internal/dto"
	"ai-redteam-be/internal/pkg/logger"
	"ai-redteam-be/pkg/events"
	pktNats "ai-redteam-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// IPublisherService emits security events onto the in-process bus, where the
// audit consumer picks them up. Publishing is fire-and-forget: a chat turn
// never fails because its audit event could not be delivered.
type IPublisherService interface {
	PublishInputBlocked(ctx context.Context, mode, conversationId string, riskScore float64, patterns []string)
	PublishUnsafeOutput(ctx context.Context, mode, conversationId string, riskScore float64)
	PublishCrossSessionLeak(ctx context.Context, sessionId, conversationId string, sources []string)
	PublishDocumentIndexed(ctx context.Context, mode, sessionId, documentId, filename string, chunkCount int, shared bool)
}

type publisherService struct {
	topicName      string
	pubSub         *gochannel.GoChannel
	eventPublisher *pktNats.Publisher
	logger         logger.ILogger
}

// NewPublisherService wires the bus publisher. eventPublisher may be nil;
// when set, every event is also mirrored to NATS for external monitors.
func NewPublisherService(
	topicName string,
	pubSub *gochannel.GoChannel,
	eventPublisher *pktNats.Publisher,
	logger logger.ILogger,
) IPublisherService {
	return &publisherService{
		topicName:      topicName,
		pubSub:         pubSub,
		eventPublisher: eventPublisher,
		logger:         logger,
	}
}

func (p *publisherService) PublishInputBlocked(ctx context.Context, mode, conversationId string, riskScore float64, patterns []string) {
	p.publish(ctx, events.TypeInputBlocked, map[string]interface{}{
		"mode":              mode,
		"conversation_id":   conversationId,
		"risk_score":        riskScore,
		"detected_patterns": patterns,
	})
}

func (p *publisherService) PublishUnsafeOutput(ctx context.Context, mode, conversationId string, riskScore float64) {
	p.publish(ctx, events.TypeUnsafeOutput, map[string]interface{}{
		"mode":            mode,
		"conversation_id": conversationId,
		"risk_score":      riskScore,
	})
}

func (p *publisherService) PublishCrossSessionLeak(ctx context.Context, sessionId, conversationId string, sources []string) {
	p.publish(ctx, events.TypeCrossSessionLeak, map[string]interface{}{
		"session_id":            sessionId,
		"conversation_id":       conversationId,
		"cross_session_sources": sources,
	})
}

func (p *publisherService) PublishDocumentIndexed(ctx context.Context, mode, sessionId, documentId, filename string, chunkCount int, shared bool) {
	p.publish(ctx, events.TypeDocumentIndexed, map[string]interface{}{
		"mode":        mode,
		"session_id":  sessionId,
		"document_id": documentId,
		"filename":    filename,
		"chunk_count": chunkCount,
		"shared":      shared,
	})
}

func (p *publisherService) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	evt := events.BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now(),
	}

	payload, err := json.Marshal(dto.EventEnvelope{
		Type:       evt.EventType(),
		Data:       evt.Payload(),
		OccurredAt: evt.Timestamp(),
	})
	if err != nil {
		p.logger.Error("PUBLISHER", "Failed to marshal event", map[string]interface{}{
			"type":  eventType,
			"error": err.Error(),
		})
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := p.pubSub.Publish(p.topicName, msg); err != nil {
		p.logger.Error("PUBLISHER", "Failed to publish event", map[string]interface{}{
			"type":  eventType,
			"error": err.Error(),
		})
		return
	}

	// Mirror to NATS when an external monitor is attached. Auxiliary, so we
	// log and move on.
	if p.eventPublisher != nil {
		if err := p.eventPublisher.Publish(ctx, evt); err != nil {
			p.logger.Warn("PUBLISHER", "Failed to mirror event to NATS", map[string]interface{}{
				"type":  eventType,
				"error": err.Error(),
			})
		}
	}
}
