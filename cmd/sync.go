package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const metricsPushTimeout = 10 * time.Second

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one incremental sync (the default command)",
		Long: `Loads the stored snapshot, runs the fetcher with an incremental
boundary (or a fresh cap when nothing is stored), merges and publishes.
Missing, empty or malformed fetcher output ends the run without publishing.`,
		Args: cobra.NoArgs,
		RunE: runSyncCommand,
	}
}

func runSyncCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	logger := appInstance.Logger()

	s, err := appInstance.Syncer()
	if err != nil {
		return fmt.Errorf("build syncer: %w", err)
	}

	// Metrics go out even when the run fails or is cancelled.
	defer func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), metricsPushTimeout)
		defer cancel()
		appInstance.PushMetrics(ctx)
	}()

	res, err := s.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	logger.Info("Sync command finished",
		zap.String("run_id", res.RunID),
		zap.String("outcome", string(res.Outcome)),
		zap.String("mode", res.Mode),
		zap.Int("fetched", res.Fetched),
		zap.Int("total", res.Total))
	return nil
}
