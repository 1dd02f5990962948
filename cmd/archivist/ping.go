package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fentz26/archivist/internal/oracle"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check the backend's credentials and connectivity",
	Args:  cobra.NoArgs,
	RunE:  runPing,
}

var pingBackend string

func init() {
	pingCmd.Flags().StringVar(&pingBackend, "backend", "", "Backend to check (default from config)")
}

func runPing(cmd *cobra.Command, args []string) error {
	backend := cfg.Backend
	if pingBackend != "" {
		backend = oracle.Backend(pingBackend)
	}

	client := oracle.New(oracle.NewCache(cfg.Credentials), oracle.WithLogger(logger.Named("oracle")))
	start := time.Now()
	if err := client.Ping(context.Background(), backend, cfg.Timeout); err != nil {
		return fmt.Errorf("%s: %w", backend, err)
	}
	fmt.Printf("%s: OK (%s)\n", backend, time.Since(start).Round(time.Millisecond))
	return nil
}
