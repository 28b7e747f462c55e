// Package syncer runs one incremental update of the published dataset:
// load the stored snapshot, fetch items newer than it, merge, publish and
// notify.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/JakeFAU/hn-dataset-sync/internal/dataset"
	"github.com/JakeFAU/hn-dataset-sync/internal/fetcher"
	"github.com/JakeFAU/hn-dataset-sync/internal/metrics"
	"github.com/JakeFAU/hn-dataset-sync/internal/notify"
	"github.com/JakeFAU/hn-dataset-sync/internal/store"
)

// Outcome is the terminal state of a run that did not fail.
type Outcome string

// Run outcomes.
const (
	OutcomePublished       Outcome = "published"
	OutcomeNoOutput        Outcome = "no_output"
	OutcomeEmptyOutput     Outcome = "empty_output"
	OutcomeMalformedOutput Outcome = "malformed_output"
	OutcomeNoNewRecords    Outcome = "no_new_records"

	// outcomeFailed labels runs that returned an error.
	outcomeFailed = "failed"
)

const tracerName = "github.com/JakeFAU/hn-dataset-sync/internal/syncer"

// Load failure policies.
const (
	OnLoadFailureFresh = "fresh"
	OnLoadFailureAbort = "abort"
)

// Fetcher runs the external fetcher and reads what it wrote.
type Fetcher interface {
	Fresh() fetcher.Params
	Incremental(lastID int64) fetcher.Params
	Fetch(ctx context.Context, params fetcher.Params) error
	ReadOutput() ([]dataset.Record, error)
}

// Hasher digests the published encoding.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// IDGenerator creates run ids.
type IDGenerator interface {
	NewID() (string, error)
}

// Config holds the run policy.
type Config struct {
	Repo  string
	Split string
	// OnLoadFailure is OnLoadFailureFresh or OnLoadFailureAbort.
	OnLoadFailure string
	// DropColumns are stripped from every record before publishing.
	DropColumns []string
}

// Dependencies are the collaborators a Syncer drives.
type Dependencies struct {
	Store    store.Provider
	Retry    store.RetryPolicy
	Fetcher  Fetcher
	Notifier notify.Notifier
	Hasher   Hasher
	Clock    Clock
	IDs      IDGenerator
	Logger   *zap.Logger
}

// Syncer orchestrates a single run.
type Syncer struct {
	cfg      Config
	store    store.Provider
	retry    store.RetryPolicy
	fetcher  Fetcher
	notifier notify.Notifier
	hasher   Hasher
	clock    Clock
	ids      IDGenerator
	logger   *zap.Logger
}

// New validates deps and builds a Syncer.
func New(cfg Config, deps Dependencies) (*Syncer, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("store is required")
	case deps.Fetcher == nil:
		return nil, errors.New("fetcher is required")
	case deps.Hasher == nil:
		return nil, errors.New("hasher is required")
	case deps.Clock == nil:
		return nil, errors.New("clock is required")
	case deps.IDs == nil:
		return nil, errors.New("id generator is required")
	}
	switch cfg.OnLoadFailure {
	case "":
		cfg.OnLoadFailure = OnLoadFailureFresh
	case OnLoadFailureFresh, OnLoadFailureAbort:
	default:
		return nil, fmt.Errorf("unknown load failure policy %q", cfg.OnLoadFailure)
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.NoOp{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	metrics.Init()
	return &Syncer{
		cfg:      cfg,
		store:    deps.Store,
		retry:    deps.Retry,
		fetcher:  deps.Fetcher,
		notifier: deps.Notifier,
		hasher:   deps.Hasher,
		clock:    deps.Clock,
		ids:      deps.IDs,
		logger:   deps.Logger.Named("syncer"),
	}, nil
}

// Result summarises a run.
type Result struct {
	RunID        string
	Outcome      Outcome
	Mode         string
	Load         dataset.LoadStatus
	LoadAttempts int
	// PreviousMaxID is the stop boundary handed to the fetcher; zero on a
	// fresh run.
	PreviousMaxID int64
	Fetched       int
	Total         int
	MaxID         int64
	Digest        string
	PublishedAt   time.Time
}

// Run performs one sync. Early exits (no output, empty or malformed output,
// nothing new) are successful outcomes, not errors. A fetcher failure
// without output, a load failure under the abort policy and a publish
// failure are returned as errors.
func (s *Syncer) Run(ctx context.Context) (Result, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "hnsync.run")
	defer span.End()

	res, err := s.run(ctx)
	span.SetAttributes(
		attribute.String("hnsync.run_id", res.RunID),
		attribute.String("hnsync.mode", res.Mode),
		attribute.Int("hnsync.fetched", res.Fetched),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.ObserveRun(outcomeFailed)
		return res, err
	}
	span.SetAttributes(attribute.String("hnsync.outcome", string(res.Outcome)))
	metrics.ObserveRun(string(res.Outcome))
	metrics.MarkSuccess(s.clock.Now())
	return res, nil
}

func (s *Syncer) run(ctx context.Context) (Result, error) {
	runID, err := s.ids.NewID()
	if err != nil {
		return Result{}, err
	}
	res := Result{RunID: runID}
	logger := s.logger.With(zap.String("run_id", runID), zap.String("uri", s.store.URI()))

	loaded := store.Load(ctx, s.store, s.retry, logger)
	res.Load = loaded.Status
	res.LoadAttempts = loaded.Attempts
	metrics.SetLoadAttempts(loaded.Attempts)

	switch loaded.Status {
	case dataset.LoadFound:
		logger.Info("Loaded stored snapshot", zap.Int("records", loaded.Snapshot.Len()))
	case dataset.LoadAbsent:
		logger.Info("No stored snapshot; starting fresh")
	case dataset.LoadFailed:
		if s.cfg.OnLoadFailure == OnLoadFailureAbort {
			return res, fmt.Errorf("load snapshot: %w", loaded.Err)
		}
		logger.Error("Failed to load stored snapshot; starting fresh",
			zap.Error(loaded.Err), zap.Int("attempts", loaded.Attempts))
	}

	existing, _ := loaded.Existing()
	params := s.fetcher.Fresh()
	if maxID, ok := existing.MaxID(); ok && maxID > 0 {
		params = s.fetcher.Incremental(maxID)
		res.PreviousMaxID = maxID
	}
	res.Mode = params.Mode()

	start := s.clock.Now()
	err = s.fetcher.Fetch(ctx, params)
	metrics.ObserveFetch(res.Mode, s.clock.Since(start))
	if err != nil {
		return res, fmt.Errorf("fetch: %w", err)
	}

	fetched, err := s.fetcher.ReadOutput()
	switch {
	case errors.Is(err, fetcher.ErrNoOutput):
		logger.Info("Fetcher produced no output; nothing to publish")
		res.Outcome = OutcomeNoOutput
		return res, nil
	case errors.Is(err, fetcher.ErrEmptyOutput):
		logger.Info("Fetcher output is empty; nothing to publish")
		res.Outcome = OutcomeEmptyOutput
		return res, nil
	case errors.Is(err, dataset.ErrMalformed):
		logger.Error("Fetcher output is malformed; nothing published", zap.Error(err))
		res.Outcome = OutcomeMalformedOutput
		return res, nil
	case err != nil:
		return res, fmt.Errorf("read fetcher output: %w", err)
	}
	res.Fetched = len(fetched)
	metrics.SetFetched(len(fetched))
	if len(fetched) == 0 {
		logger.Info("No new records fetched")
		res.Outcome = OutcomeNoNewRecords
		return res, nil
	}

	merged := dataset.Merge(existing.Records, fetched).Without(s.cfg.DropColumns...)
	res.Total = merged.Len()
	res.MaxID, _ = merged.MaxID()

	encoded, err := merged.Encode()
	if err != nil {
		return res, fmt.Errorf("encode snapshot: %w", err)
	}
	if res.Digest, err = s.hasher.Hash(encoded); err != nil {
		return res, fmt.Errorf("hash snapshot: %w", err)
	}

	message := fmt.Sprintf("Add %d fetched stories (%s, %d total, max id %d)",
		res.Fetched, res.Mode, res.Total, res.MaxID)
	if err := s.store.Publish(ctx, merged, message); err != nil {
		return res, fmt.Errorf("publish snapshot: %w", err)
	}
	res.PublishedAt = s.clock.Now()
	res.Outcome = OutcomePublished
	metrics.SetSnapshot(res.Total, res.MaxID)
	logger.Info("Published snapshot",
		zap.String("mode", res.Mode),
		zap.Int("fetched", res.Fetched),
		zap.Int("total", res.Total),
		zap.Int64("max_id", res.MaxID),
		zap.String("sha256", res.Digest))

	s.notify(ctx, logger, res)
	return res, nil
}

func (s *Syncer) notify(ctx context.Context, logger *zap.Logger, res Result) {
	ev := notify.Event{
		RunID:          res.RunID,
		Repo:           s.cfg.Repo,
		Split:          s.cfg.Split,
		URI:            s.store.URI(),
		Mode:           res.Mode,
		TotalRecords:   res.Total,
		FetchedRecords: res.Fetched,
		MaxID:          res.MaxID,
		Digest:         res.Digest,
		PublishedAt:    res.PublishedAt,
	}
	id, err := s.notifier.Notify(ctx, ev)
	if err != nil {
		logger.Warn("Failed to send publish notification", zap.Error(err))
		return
	}
	if id != "" {
		logger.Debug("Sent publish notification", zap.String("message_id", id))
	}
}
