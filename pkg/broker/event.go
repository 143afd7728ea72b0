package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event envelope.
	SchemaVersionV1 = 1

	// EventTypeDocumentIndexed is emitted after a document is embedded and
	// stored in the vector index.
	EventTypeDocumentIndexed = "kcore.document.indexed"

	// EventTypeSessionStarted is emitted when a new HTTP session is saved.
	EventTypeSessionStarted = "kcore.session.started"
)

// ErrNilEvent indicates a nil event was provided to PublishEvent.
var ErrNilEvent = errors.New("nil event")

// Event is a transport-neutral JSON envelope for published messages.
type Event struct {
	SchemaVersion int             `json:"schema_version"`
	EventType     string          `json:"event_type"`
	EventID       string          `json:"event_id"`
	EmittedAt     time.Time       `json:"emitted_at"`
	Source        string          `json:"source,omitempty"`
	Data          json.RawMessage `json:"data,omitempty"`
}

// NewEvent builds an envelope around data, which is encoded as JSON.
func NewEvent(eventType, source string, data any) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event data: %w", err)
	}
	return &Event{
		SchemaVersion: SchemaVersionV1,
		EventType:     eventType,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
		Data:          raw,
	}, nil
}

// PublishEvent encodes ev and publishes it on topic.
func PublishEvent(ctx context.Context, b Broker, topic string, ev *Event) error {
	if ev == nil {
		return ErrNilEvent
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return b.Publish(ctx, topic, payload)
}

// DecodeEvent parses a payload produced by PublishEvent.
func DecodeEvent(payload []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}
	return &ev, nil
}
