package store

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/hn-dataset-sync/internal/dataset"
)

// Load reads the snapshot from p and classifies the outcome. Failures other
// than ErrNotFound are retried while policy allows; a nil policy disables
// retries.
func Load(ctx context.Context, p Provider, policy RetryPolicy, logger *zap.Logger) dataset.LoadResult {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("uri", p.URI()))

	for attempt := 1; ; attempt++ {
		snap, err := p.Load(ctx)
		switch {
		case err == nil:
			res := dataset.Found(snap)
			res.Attempts = attempt
			return res
		case errors.Is(err, ErrNotFound):
			res := dataset.Absent()
			res.Attempts = attempt
			return res
		}

		if policy == nil || !policy.ShouldRetry(err, attempt) {
			res := dataset.Failed(err)
			res.Attempts = attempt
			return res
		}

		wait := policy.Backoff(attempt)
		logger.Warn("Snapshot load failed; retrying",
			zap.Error(err), zap.Int("attempt", attempt), zap.Duration("backoff", wait))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			res := dataset.Failed(ctx.Err())
			res.Attempts = attempt
			return res
		case <-timer.C:
		}
	}
}
