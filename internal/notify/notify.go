// Package notify defines the post-publish notification contract.
// Notifications are best effort: a failed Notify never undoes a publish.
package notify

import (
	"context"
	"time"
)

// Event describes one successful publish.
type Event struct {
	RunID          string    `json:"run_id"`
	Repo           string    `json:"repo"`
	Split          string    `json:"split"`
	URI            string    `json:"uri"`
	Mode           string    `json:"mode"`
	TotalRecords   int       `json:"total_records"`
	FetchedRecords int       `json:"fetched_records"`
	MaxID          int64     `json:"max_id"`
	Digest         string    `json:"sha256"`
	PublishedAt    time.Time `json:"published_at"`
}

// Notifier delivers events to downstream consumers.
type Notifier interface {
	// Notify sends ev and returns the transport's message id.
	Notify(ctx context.Context, ev Event) (string, error)

	// Close flushes pending sends and releases resources.
	Close() error
}

// NoOp discards events.
type NoOp struct{}

// Notify does nothing.
func (NoOp) Notify(context.Context, Event) (string, error) { return "", nil }

// Close does nothing.
func (NoOp) Close() error { return nil }
