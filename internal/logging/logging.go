// Package logging builds the process logger: human-readable console output
// plus JSON files for audit and errors.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// File names written under Options.Dir.
const (
	LogFile   = "archivist.log"
	ErrorFile = "error.log"
)

// Rotation limits, in megabytes and days.
const (
	logMaxSize   = 10
	logMaxAge    = 30
	errorMaxSize = 5
	errorMaxAge  = 60
)

// Options configures New.
type Options struct {
	// Level is the console level ("debug", "info", ...). Files always get debug.
	Level string
	// Dir receives LogFile and ErrorFile. Empty disables file output.
	Dir string
	// Console is where console output goes; nil means stderr.
	Console io.Writer
}

// New returns a logger and a function that flushes and closes its files.
func New(opts Options) (*zap.Logger, func(), error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if opts.Level != "" {
		l, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("parse log level: %w", err)
		}
		level.SetLevel(l)
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleCfg := encCfg
	consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	consoleCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.AddSync(console), level),
	}

	var sinks []*lumberjack.Logger
	closeAll := func() {
		for _, l := range sinks {
			_ = l.Close()
		}
	}

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		all, errs := rotatingSinks(opts.Dir)
		sinks = append(sinks, all, errs)

		json := zapcore.NewJSONEncoder(encCfg)
		cores = append(cores,
			zapcore.NewCore(json, zapcore.AddSync(all), zapcore.DebugLevel),
			zapcore.NewCore(json.Clone(), zapcore.AddSync(errs), zapcore.ErrorLevel),
		)
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	return logger, func() {
		_ = logger.Sync()
		closeAll()
	}, nil
}

// rotatingSinks returns the size-rotated writers for LogFile and ErrorFile.
// Rotated files are compressed.
func rotatingSinks(dir string) (all, errs *lumberjack.Logger) {
	all = &lumberjack.Logger{
		Filename: filepath.Join(dir, LogFile),
		MaxSize:  logMaxSize,
		MaxAge:   logMaxAge,
		Compress: true,
	}
	errs = &lumberjack.Logger{
		Filename: filepath.Join(dir, ErrorFile),
		MaxSize:  errorMaxSize,
		MaxAge:   errorMaxAge,
		Compress: true,
	}
	return all, errs
}
