package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fentz26/archivist/internal/archive"
	"github.com/fentz26/archivist/internal/config"
	"github.com/fentz26/archivist/internal/models"
	"github.com/fentz26/archivist/internal/tui"
)

var runCmd = &cobra.Command{
	Use:   "run [folder]",
	Short: "Classify and file every entry of a folder",
	Long: `Classifies each file and folder directly inside [folder] and moves it to
[folder]/<period>/<department>/. Entries already inside 永久, 长期 or 短期
are left alone. Ctrl+C stops after the entry in progress.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

var (
	runTUI         bool
	runReport      string
	runConcurrency int
	runBackend     string
)

func init() {
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "Show an interactive progress view")
	runCmd.Flags().StringVar(&runReport, "report", "", "Write a plain-text report to this file")
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 0, "Classification requests in flight (default from config)")
	runCmd.Flags().StringVar(&runBackend, "backend", "", "Backend to use: doubao or deepseek (default from config)")
}

func runRun(cmd *cobra.Command, args []string) error {
	source, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	rules, err := config.LoadRules(cfg.RulesPath)
	if err != nil {
		return err
	}

	svc, err := openServices(runBackend, runConcurrency)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var res *models.BatchResult
	if runTUI {
		res, err = tui.Run(ctx, source, func(ctx context.Context, onProgress archive.ProgressFunc) (*models.BatchResult, error) {
			return svc.engine.RunBatch(ctx, source, rules, onProgress)
		})
	} else {
		res, err = svc.engine.RunBatch(ctx, source, rules, func(percent float64, status string) {
			fmt.Printf("[%3.0f%%] %s\n", percent, status)
		})
	}
	svc.record(res)

	if res != nil && !runTUI {
		fmt.Println()
		fmt.Println(svc.engine.Summarize())
	}
	if runReport != "" && res != nil {
		if exportErr := svc.engine.Export(runReport); exportErr != nil {
			return exportErr
		}
		fmt.Printf("Report written to %s\n", runReport)
	}

	if errors.Is(err, models.ErrCancelled) {
		fmt.Fprintln(os.Stderr, "Batch cancelled; remaining entries were left in place.")
	}
	return err
}
