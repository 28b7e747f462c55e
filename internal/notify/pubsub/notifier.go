// Package pubsub publishes sync events to a Google Cloud Pub/Sub topic.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"cloud.google.com/go/pubsub"
	"go.opentelemetry.io/otel"
	"google.golang.org/api/option"

	"github.com/JakeFAU/hn-dataset-sync/internal/notify"
)

// Notifier wraps a Pub/Sub topic handle.
type Notifier struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// New connects to projectID and checks that topicID exists.
func New(ctx context.Context, projectID, topicID string, opts ...option.ClientOption) (*Notifier, error) {
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}
	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err == nil && !exists {
		err = fmt.Errorf("pubsub topic '%s' does not exist in project '%s'", topicID, projectID)
	}
	if err != nil {
		topic.Stop()
		if closeErr := client.Close(); closeErr != nil {
			return nil, fmt.Errorf("check topic %s: %w (close client: %v)", topicID, err, closeErr)
		}
		return nil, fmt.Errorf("check topic %s: %w", topicID, err)
	}
	return &Notifier{client: client, topic: topic}, nil
}

// Notify publishes ev as JSON and waits for the server to acknowledge it.
// Trace context from ctx travels in the message attributes.
func (n *Notifier) Notify(ctx context.Context, ev notify.Event) (string, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	msg := &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"run_id": ev.RunID,
			"repo":   ev.Repo,
			"split":  ev.Split,
			"max_id": strconv.FormatInt(ev.MaxID, 10),
		},
	}
	otel.GetTextMapPropagator().Inject(ctx, &attributeCarrier{attrs: msg.Attributes})

	id, err := n.topic.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish event: %w", err)
	}
	return id, nil
}

// Close flushes the topic and closes the client.
func (n *Notifier) Close() error {
	n.topic.Stop()
	if err := n.client.Close(); err != nil {
		return fmt.Errorf("failed to close pubsub client: %w", err)
	}
	return nil
}

// attributeCarrier implements propagation.TextMapCarrier for message attributes.
type attributeCarrier struct {
	attrs map[string]string
}

func (c *attributeCarrier) Get(key string) string {
	return c.attrs[key]
}

func (c *attributeCarrier) Set(key, value string) {
	c.attrs[key] = value
}

func (c *attributeCarrier) Keys() []string {
	keys := make([]string, 0, len(c.attrs))
	for k := range c.attrs {
		keys = append(keys, k)
	}
	return keys
}
