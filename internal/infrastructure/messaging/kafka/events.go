package kafka

import (
	"context"

	"github.com/fiscaldesk/rateations/pkg/types/common"
)

// EventPublisher encodes domain events and writes them to the state-changed
// topic, mirrored to the audit-log topic.  The event key is the aggregate id
// so one plan's events stay ordered.
type EventPublisher struct {
	producer *Producer
	topic    string
	audit    string
}

func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{
		producer: producer,
		topic:    TopicStateChanged,
		audit:    TopicAuditLog,
	}
}

// Publish writes the event to the broadcast topic and best-effort mirrors it
// to the audit log.  A failed audit copy does not fail the publish; the
// broadcast is the contract, the audit copy is retention.
func (p *EventPublisher) Publish(ctx context.Context, evt common.DomainEvent) error {
	msg, err := common.EncodeEvent(p.topic, evt)
	if err != nil {
		return err
	}
	if err := p.producer.Publish(ctx, msg); err != nil {
		return err
	}

	auditMsg, err := common.EncodeEvent(p.audit, evt)
	if err == nil {
		if pubErr := p.producer.Publish(ctx, auditMsg); pubErr != nil {
			p.producer.logger.Warn("Failed to mirror event to audit log")
		}
	}
	return nil
}
