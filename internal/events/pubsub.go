// Package events publishes ingest-completion events downstream.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/quillworks/novelforge/internal/config"
	"github.com/quillworks/novelforge/internal/novel"
)

// PubSub publishes events to a Google Cloud Pub/Sub topic.
type PubSub struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

var _ novel.Publisher = (*PubSub)(nil)

// NewPubSub connects to the configured project and topic.
func NewPubSub(ctx context.Context, cfg config.EventsConfig) (*PubSub, error) {
	if cfg.ProjectID == "" || cfg.TopicID == "" {
		return nil, fmt.Errorf("events.project_id and events.topic_id are required")
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return &PubSub{
		client: client,
		topic:  client.Topic(cfg.TopicID),
	}, nil
}

// Publish marshals the event to JSON and waits for the server ack.
func (p *PubSub) Publish(ctx context.Context, event novel.IngestEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"request_id": event.RequestID,
			"status":     string(event.Status),
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Close flushes the topic and releases the client.
func (p *PubSub) Close() error {
	p.topic.Stop()
	return p.client.Close()
}

// New returns the configured publisher, or a NoOp when events are
// disabled.
func New(ctx context.Context, cfg config.EventsConfig) (novel.Publisher, error) {
	if !cfg.Enabled {
		return NoOp{}, nil
	}
	return NewPubSub(ctx, cfg)
}
