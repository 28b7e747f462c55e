// Package memory keeps notifications in process for tests and dry runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/hn-dataset-sync/internal/notify"
)

// Notifier stores events for inspection.
type Notifier struct {
	mu     sync.RWMutex
	events []notify.Event
}

// New returns an empty Notifier.
func New() *Notifier {
	return &Notifier{}
}

// Notify records ev and returns a pseudo id.
func (n *Notifier) Notify(_ context.Context, ev notify.Event) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return fmt.Sprintf("memory-%d", len(n.events)), nil
}

// Events returns a copy of the recorded events.
func (n *Notifier) Events() []notify.Event {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]notify.Event, len(n.events))
	copy(out, n.events)
	return out
}

// Close is a no-op.
func (n *Notifier) Close() error { return nil }
