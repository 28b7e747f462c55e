package store

import (
	"context"
	"errors"

	"github.com/JakeFAU/hn-dataset-sync/internal/dataset"
)

// ErrNotFound signals that the store holds no snapshot yet.
var ErrNotFound = errors.New("snapshot not found")

// Provider reads and replaces the published snapshot.
type Provider interface {
	// Load returns the stored snapshot, or ErrNotFound when none exists.
	Load(ctx context.Context) (dataset.Snapshot, error)

	// Publish replaces the stored snapshot. message describes the change
	// for stores that keep a history.
	Publish(ctx context.Context, snap dataset.Snapshot, message string) error

	// URI identifies the snapshot location for logs and notifications.
	URI() string

	// Close releases client connections.
	Close() error
}
