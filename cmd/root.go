// Package cmd defines and implements the CLI commands for the hnsync executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/hn-dataset-sync/internal/app"
	"github.com/JakeFAU/hn-dataset-sync/internal/config"
	"github.com/JakeFAU/hn-dataset-sync/internal/logging"
	"github.com/JakeFAU/hn-dataset-sync/internal/store"
	"github.com/JakeFAU/hn-dataset-sync/internal/syncer"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the services commands use, so tests can inject their own.
type App interface {
	Close()
	Logger() *zap.Logger
	Store() store.Provider
	Retry() store.RetryPolicy
	Syncer() (*syncer.Syncer, error)
	PushMetrics(ctx context.Context)
}

// newApp is the application factory. It's a variable so tests can replace it.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (App, error) {
	return app.New(ctx, cfg, logger)
}

// rootCommand pairs the command tree with the services it builds, so they
// can be released however the command ends.
type rootCommand struct {
	cmd *cobra.Command
	app App
}

// newRootCmd creates and configures the root command. Invoked without a
// subcommand it runs one sync.
func newRootCmd() *rootCommand {
	var cfgFile string
	root := &rootCommand{}

	root.cmd = &cobra.Command{
		Use:   "hnsync",
		Short: "Incrementally sync the Hacker News stories dataset.",
		Long: `hnsync keeps a published dataset of Hacker News stories current.
It loads the stored snapshot, runs the external fetcher for items newer than
the highest stored id, merges the batch (new records win), and publishes the
result back to the train split.`,
		SilenceUsage: true,

		// Build the application once config is known, before any RunE.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			zap.ReplaceGlobals(logger)

			appInstance, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			root.app = appInstance
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		RunE: runSyncCommand,
	}

	root.cmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is ./config.yaml, /etc/hnsync/config.yaml or $HOME/.hnsync/config.yaml)")

	root.cmd.AddCommand(newSyncCmd(), newStatusCmd())
	return root
}

// execute runs the command tree and then closes the application services.
// Cobra skips post-run hooks when a command fails, so the close lives here.
func (r *rootCommand) execute(ctx context.Context) error {
	defer func() {
		if r.app != nil {
			r.app.Close()
			r.app = nil
		}
	}()
	return r.cmd.ExecuteContext(ctx)
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point. SIGINT and SIGTERM cancel the run,
// killing the fetcher and aborting in-flight requests.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().execute(ctx); err != nil {
		stop()
		zap.L().Fatal("Command execution failed", zap.Error(err))
	}
}
