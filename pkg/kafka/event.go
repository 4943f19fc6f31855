package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/Zembil-Gift/go-zembil-frontend-sub002/pkg/logger"
)

// DefaultSource is stamped on events that do not name their own source.
const DefaultSource = "storefront"

// SchemaVersion is the envelope version written by this package.
const SchemaVersion = 1

// Event is the envelope for every message the storefront publishes. The
// aggregate ID doubles as the Kafka message key.
type Event struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	AggregateType string            `json:"aggregate_type"`
	AggregateID   string            `json:"aggregate_id"`
	SchemaVersion int               `json:"schema_version"`
	OccurredAt    time.Time         `json:"occurred_at"`
	Source        string            `json:"source"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Data          json.RawMessage   `json:"data"`
	Attributes    map[string]string `json:"attributes,omitempty"`
}

// EventOption customizes an event built by NewEvent.
type EventOption func(*Event)

// WithSource overrides DefaultSource.
func WithSource(source string) EventOption {
	return func(e *Event) { e.Source = source }
}

// WithCorrelationID tags the event with a request correlation id.
func WithCorrelationID(id string) EventOption {
	return func(e *Event) { e.CorrelationID = id }
}

// CorrelatedWith copies the correlation id carried by ctx, if any.
func CorrelatedWith(ctx context.Context) EventOption {
	return WithCorrelationID(logger.CorrelationIDFromContext(ctx))
}

// WithAttribute attaches a free-form string attribute.
func WithAttribute(key, value string) EventOption {
	return func(e *Event) {
		if e.Attributes == nil {
			e.Attributes = make(map[string]string)
		}
		e.Attributes[key] = value
	}
}

// NewEvent encodes data into a fresh envelope.
func NewEvent(eventType, aggregateType, aggregateID string, data any, opts ...EventOption) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", eventType, err)
	}

	e := &Event{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		SchemaVersion: SchemaVersion,
		OccurredAt:    time.Now().UTC(),
		Source:        DefaultSource,
		Data:          raw,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Decode parses an envelope as written by the producer.
func Decode(b []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &e, nil
}

// DecodeData unmarshals the payload into target.
func (e *Event) DecodeData(target any) error {
	return json.Unmarshal(e.Data, target)
}

// message builds the Kafka message for e on topic. Consumers can route on
// the headers without decoding the body.
func (e *Event) message(topic string) (kafka.Message, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode event: %w", err)
	}

	headers := headerCarrier{
		{Key: "event_type", Value: []byte(e.EventType)},
		{Key: "source", Value: []byte(e.Source)},
	}
	if e.CorrelationID != "" {
		headers.Set("correlation_id", e.CorrelationID)
	}
	return kafka.Message{
		Topic:   topic,
		Key:     []byte(e.AggregateID),
		Value:   body,
		Headers: headers,
	}, nil
}
