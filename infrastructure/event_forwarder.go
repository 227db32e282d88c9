package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"rewarder/events"
)

// SourceService identifies this process in forwarded envelopes
const SourceService = "rewarder"

const publishTimeout = 5 * time.Second

// EventEnvelope wraps a domain event on the wire
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceService string          `json:"source_service"`
	Payload       json.RawMessage `json:"payload"`
}

// PublishRecorder counts forwarded events
type PublishRecorder interface {
	RecordNATSMessagePublished(eventType string)
}

// EventForwarder republishes committed domain events to a message bus
type EventForwarder struct {
	publisher     MessagePublisher
	subjectMapper *EventSubjectMapper
	metrics       PublishRecorder
	now           func() time.Time
}

// NewEventForwarder creates a forwarder; metrics may be nil
func NewEventForwarder(publisher MessagePublisher, subjectMapper *EventSubjectMapper, metrics PublishRecorder) *EventForwarder {
	return &EventForwarder{
		publisher:     publisher,
		subjectMapper: subjectMapper,
		metrics:       metrics,
		now:           time.Now,
	}
}

// Subscribe registers the forwarder for every mapped event type
func (f *EventForwarder) Subscribe(bus *events.Bus) {
	bus.SubscribeMany(f.subjectMapper.EventTypes(), f.handle)
}

func (f *EventForwarder) handle(ctx context.Context, event events.Event) {
	if err := f.Forward(ctx, event); err != nil {
		log.WithFields(log.Fields{
			"eventType": event.Type(),
			"error":     err,
		}).Error("Failed to forward event to NATS")
	}
}

// Forward publishes one event inside an envelope
func (f *EventForwarder) Forward(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	envelope := EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     string(event.Type()),
		Timestamp:     f.now().UTC(),
		SourceService: SourceService,
		Payload:       payload,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	subject := f.subjectMapper.MapEventToSubject(event)

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := f.publisher.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish event to NATS: %w", err)
	}

	if f.metrics != nil {
		f.metrics.RecordNATSMessagePublished(envelope.EventType)
	}

	log.WithFields(log.Fields{
		"eventType": envelope.EventType,
		"eventId":   envelope.EventID,
		"subject":   subject,
	}).Debug("Forwarded event to NATS")
	return nil
}
