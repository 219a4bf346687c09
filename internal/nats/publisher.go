package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/sahwira-ai/sahwira/internal/model"
)

const (
	// StreamName is the name of the domain events stream.
	StreamName = "SAHWIRA"

	// SubjectPrefix is the prefix for all event subjects.
	SubjectPrefix = "sahwira"
)

// EventPublisher writes domain events to JetStream.
type EventPublisher struct {
	client *Client
}

// NewEventPublisher creates a new event publisher.
func NewEventPublisher(client *Client) *EventPublisher {
	return &EventPublisher{client: client}
}

// EnsureStream ensures the events stream exists with proper configuration.
func (p *EventPublisher) EnsureStream(ctx context.Context) error {
	js := p.client.JetStream()

	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, jetstream.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream: %w", err)
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		MaxBytes:    1024 * 1024 * 1024,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Duplicates:  2 * time.Minute,
		Description: "Task and conversation domain events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// EventSubject returns the subject for an event type, e.g. sahwira.events.task.created.
func EventSubject(eventType model.EventType) string {
	return fmt.Sprintf("%s.events.%s", SubjectPrefix, eventType)
}

// Publish publishes evt. The event id doubles as the JetStream dedupe id.
func (p *EventPublisher) Publish(ctx context.Context, evt *model.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	opts := []jetstream.PublishOpt{jetstream.WithExpectStream(StreamName)}
	if evt.ID != "" {
		opts = append(opts, jetstream.WithMsgID(evt.ID))
	}

	if _, err := p.client.JetStream().Publish(ctx, EventSubject(evt.Type), data, opts...); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
