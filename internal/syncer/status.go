package syncer

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/hn-dataset-sync/internal/store"
)

// Status describes the stored snapshot.
type Status struct {
	URI      string `json:"uri" yaml:"uri"`
	State    string `json:"state" yaml:"state"`
	Records  int    `json:"records" yaml:"records"`
	MinID    int64  `json:"min_id,omitempty" yaml:"min_id,omitempty"`
	MaxID    int64  `json:"max_id,omitempty" yaml:"max_id,omitempty"`
	Attempts int    `json:"attempts" yaml:"attempts"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Inspect loads the stored snapshot and reports its size and identifier
// range. It never fetches or publishes.
func Inspect(ctx context.Context, p store.Provider, policy store.RetryPolicy, logger *zap.Logger) Status {
	loaded := store.Load(ctx, p, policy, logger)
	st := Status{
		URI:      p.URI(),
		State:    loaded.Status.String(),
		Attempts: loaded.Attempts,
	}
	if loaded.Err != nil {
		st.Error = loaded.Err.Error()
	}
	if snap, ok := loaded.Existing(); ok {
		st.Records = snap.Len()
		st.MinID, _ = snap.MinID()
		st.MaxID, _ = snap.MaxID()
	}
	return st
}
