package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fentz26/archivist/internal/config"
	"github.com/fentz26/archivist/internal/scheduler"
)

var watchCmd = &cobra.Command{
	Use:   "watch [folder...]",
	Short: "Keep folders filed as new entries arrive",
	Long: `Files every folder once, then watches them and runs again after new
entries stop arriving for the debounce period. Stop with Ctrl+C.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

var (
	watchConcurrency int
	watchBackend     string
)

func init() {
	watchCmd.Flags().IntVar(&watchConcurrency, "concurrency", 0, "Classification requests in flight (default from config)")
	watchCmd.Flags().StringVar(&watchBackend, "backend", "", "Backend to use (default from config)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	svc, err := openServices(watchBackend, watchConcurrency)
	if err != nil {
		return err
	}
	defer svc.Close()

	log := logger.Named("watch")
	runner := scheduler.RunnerFunc(func(ctx context.Context, source string) error {
		// Rules are re-read so edits apply to the next batch.
		rules, err := config.LoadRules(cfg.RulesPath)
		if err != nil {
			return err
		}
		res, err := svc.engine.RunBatch(ctx, source, rules, nil)
		svc.record(res)
		if res != nil && res.Total > 0 {
			log.Info("batch finished",
				zap.String("source", source),
				zap.Int("total", res.Total),
				zap.Int("succeeded", res.Succeeded),
				zap.Int("failed", res.Failed))
		}
		return err
	})

	sch := scheduler.New(runner, args, &scheduler.Config{
		Debounce: cfg.Watch.Debounce,
		Interval: cfg.Watch.Interval,
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sch.Start(ctx); err != nil {
		return err
	}
	fmt.Printf("Watching %d folder(s). Press Ctrl+C to stop.\n", len(args))

	<-ctx.Done()
	fmt.Println("\nStopping...")
	sch.Stop()

	stats := sch.GetStats()
	fmt.Printf("Runs: %d, failures: %d\n", stats.Runs, stats.Failures)
	return nil
}
