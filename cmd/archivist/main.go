package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fentz26/archivist/internal/config"
	"github.com/fentz26/archivist/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "archivist",
	Short: "Archivist - file folders by retention period and department",
	Long: `Archivist asks an LLM to classify every entry of a folder by retention
period (永久/长期/短期) and department, then moves each entry into
<folder>/<period>/<department>/.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnv(); err != nil {
			return err
		}

		c, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = c

		l, closeFn, err := logging.New(logOptions(cmd, cfg))
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger, closeLog = l, closeFn
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if closeLog != nil {
			closeLog()
		}
	},
	// No RunE - defaults to showing help when no subcommand is provided
}

var (
	configPath string
	verbose    bool

	cfg      *config.Config
	logger   = zap.NewNop()
	closeLog func()
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(watchCmd)
}

// logOptions derives logger settings for cmd. The interactive view owns the
// terminal, so its console output is dropped; the files still get everything.
func logOptions(cmd *cobra.Command, c *config.Config) logging.Options {
	opts := logging.Options{Level: c.LogLevel, Dir: c.LogDir}
	if verbose {
		opts.Level = "debug"
	}
	if cmd == runCmd && runTUI {
		opts.Console = io.Discard
	}
	return opts
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
