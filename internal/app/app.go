// Package app wires configuration into long-lived services, acting as the
// dependency injection container for the sync commands.
package app

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/hn-dataset-sync/internal/clock/system"
	"github.com/JakeFAU/hn-dataset-sync/internal/config"
	"github.com/JakeFAU/hn-dataset-sync/internal/fetcher"
	"github.com/JakeFAU/hn-dataset-sync/internal/hash/sha256"
	"github.com/JakeFAU/hn-dataset-sync/internal/id/uuid"
	"github.com/JakeFAU/hn-dataset-sync/internal/metrics"
	"github.com/JakeFAU/hn-dataset-sync/internal/notify"
	notifymemory "github.com/JakeFAU/hn-dataset-sync/internal/notify/memory"
	notifypubsub "github.com/JakeFAU/hn-dataset-sync/internal/notify/pubsub"
	"github.com/JakeFAU/hn-dataset-sync/internal/store"
	"github.com/JakeFAU/hn-dataset-sync/internal/store/gcs"
	"github.com/JakeFAU/hn-dataset-sync/internal/store/huggingface"
	"github.com/JakeFAU/hn-dataset-sync/internal/store/local"
	"github.com/JakeFAU/hn-dataset-sync/internal/store/memory"
	"github.com/JakeFAU/hn-dataset-sync/internal/store/postgres"
	"github.com/JakeFAU/hn-dataset-sync/internal/syncer"
	"github.com/JakeFAU/hn-dataset-sync/internal/telemetry"
)

// App holds the services shared by one command invocation.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	store    store.Provider
	retry    store.RetryPolicy
	notifier notify.Notifier
	tracer   *sdktrace.TracerProvider
}

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Store returns the configured snapshot store.
func (a *App) Store() store.Provider { return a.store }

// Retry returns the load retry policy, or nil when retries are disabled.
func (a *App) Retry() store.RetryPolicy { return a.retry }

// Notifier returns the configured post-publish notifier.
func (a *App) Notifier() notify.Notifier { return a.notifier }

// New builds the store and notifier selected by cfg. It fails fast when a
// backend cannot be reached or the Hub rejects the credential.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	logger.Info("Initializing application services", zap.String("store", cfg.Store.Provider))

	tp, err := telemetry.InitTracerProvider(ctx, telemetry.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	st, err := newStore(ctx, cfg, logger)
	if err != nil {
		shutdownTracer(tp, logger)
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	n, err := newNotifier(ctx, cfg, logger)
	if err != nil {
		if closeErr := st.Close(); closeErr != nil {
			logger.Warn("Error closing store after notifier failure", zap.Error(closeErr))
		}
		shutdownTracer(tp, logger)
		return nil, fmt.Errorf("failed to initialize notifier: %w", err)
	}

	var retry store.RetryPolicy
	if cfg.Store.LoadRetries > 0 {
		retry = store.NewExponentialRetryPolicy(cfg.Store.LoadRetries)
	}

	logger.Info("Application services initialized", zap.String("uri", st.URI()))
	return &App{cfg: cfg, logger: logger, store: st, retry: retry, notifier: n, tracer: tp}, nil
}

func shutdownTracer(tp *sdktrace.TracerProvider, logger *zap.Logger) {
	if tp == nil {
		return
	}
	if err := tp.Shutdown(context.Background()); err != nil {
		logger.Warn("Error shutting down tracer provider", zap.Error(err))
	}
}

func newStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (store.Provider, error) {
	sc := cfg.Store
	switch sc.Provider {
	case config.ProviderHuggingFace:
		client := &http.Client{
			Timeout:   sc.HuggingFace.Timeout,
			Transport: otelhttp.NewTransport(metrics.InstrumentTransport(nil)),
		}
		hf, err := huggingface.New(huggingface.Config{
			Endpoint: sc.HuggingFace.Endpoint,
			Repo:     sc.Repo,
			Revision: sc.HuggingFace.Revision,
			DataDir:  sc.HuggingFace.DataDir,
			Split:    sc.Split,
			Token:    sc.HuggingFace.Token,
			Private:  sc.HuggingFace.Private,
			Timeout:  sc.HuggingFace.Timeout,
		}, sha256.New(), huggingface.WithHTTPClient(client), huggingface.WithLogger(logger.Named("huggingface")))
		if err != nil {
			return nil, err
		}
		account, err := hf.Authenticate(ctx)
		if err != nil {
			return nil, err
		}
		logger.Info("Authenticated with dataset hub", zap.String("account", account))
		return hf, nil
	case config.ProviderGCS:
		logger.Info("Using GCS store", zap.String("bucket", sc.GCS.Bucket))
		return gcs.New(ctx, gcs.Config{Bucket: sc.GCS.Bucket, Prefix: sc.GCS.Prefix, Repo: sc.Repo, Split: sc.Split})
	case config.ProviderPostgres:
		logger.Info("Connecting to PostgreSQL", zap.String("table", sc.Postgres.Table))
		return postgres.New(ctx, postgres.Config{DSN: sc.Postgres.DSN, Table: sc.Postgres.Table})
	case config.ProviderLocal:
		return local.New(local.Config{BaseDir: sc.Local.BaseDir, Repo: sc.Repo, Split: sc.Split})
	case config.ProviderMemory:
		logger.Warn("Using in-memory store; published snapshots are discarded on exit")
		return memory.New(sc.Repo + "/" + sc.Split), nil
	default:
		return nil, fmt.Errorf("unknown store provider: %s", sc.Provider)
	}
}

func newNotifier(ctx context.Context, cfg config.Config, logger *zap.Logger) (notify.Notifier, error) {
	switch cfg.Notify.Provider {
	case config.NotifyNone, "":
		return notify.NoOp{}, nil
	case config.NotifyMemory:
		return notifymemory.New(), nil
	case config.NotifyPubSub:
		ps := cfg.Notify.PubSub
		logger.Info("Connecting to GCP Pub/Sub", zap.String("topic", ps.TopicID))
		return notifypubsub.New(ctx, ps.ProjectID, ps.TopicID)
	default:
		return nil, fmt.Errorf("unknown notify provider: %s", cfg.Notify.Provider)
	}
}

// Fetcher builds the external fetcher invoker.
func (a *App) Fetcher() *fetcher.Invoker {
	fc := a.cfg.Fetcher
	return fetcher.New(fetcher.Config{
		Binary:   fc.Binary,
		Output:   fc.Output,
		MinScore: fc.MinScore,
		Stories:  fc.Stories,
		Timeout:  fc.Timeout,
	}, nil, a.logger.Named("fetcher"))
}

// Syncer assembles a Syncer from the container's services.
func (a *App) Syncer() (*syncer.Syncer, error) {
	return syncer.New(syncer.Config{
		Repo:          a.cfg.Store.Repo,
		Split:         a.cfg.Store.Split,
		OnLoadFailure: a.cfg.Sync.OnLoadFailure,
		DropColumns:   a.cfg.Sync.DropColumns,
	}, syncer.Dependencies{
		Store:    a.store,
		Retry:    a.retry,
		Fetcher:  a.Fetcher(),
		Notifier: a.notifier,
		Hasher:   sha256.New(),
		Clock:    system.New(),
		IDs:      uuid.New(),
		Logger:   a.logger,
	})
}

// PushMetrics sends collectors to the configured Pushgateway. It is a no-op
// when no gateway is configured.
func (a *App) PushMetrics(ctx context.Context) {
	mc := a.cfg.Metrics
	if mc.PushgatewayURL == "" {
		return
	}
	if err := metrics.Push(ctx, mc.PushgatewayURL, mc.Job); err != nil {
		a.logger.Warn("Failed to push metrics", zap.Error(err))
	}
}

// Close shuts down every service in the container.
func (a *App) Close() {
	a.logger.Info("Shutting down application services")
	if err := a.notifier.Close(); err != nil {
		a.logger.Warn("Error closing notifier", zap.Error(err))
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("Error closing store", zap.Error(err))
	}
	shutdownTracer(a.tracer, a.logger)
	// Flushing may fail on stdout/stderr; there is nowhere left to report it.
	_ = a.logger.Sync()
}
