package main

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fentz26/archivist/internal/archive"
	"github.com/fentz26/archivist/internal/audit"
	"github.com/fentz26/archivist/internal/models"
	"github.com/fentz26/archivist/internal/oracle"
	"github.com/fentz26/archivist/internal/store"
)

// retryBase is the first backoff delay after a transport failure.
const retryBase = 500 * time.Millisecond

// services bundles the components a command needs.
type services struct {
	store   *store.Store
	pdr     *audit.PDRWriter
	client  *oracle.Client
	engine  *archive.Engine
	backend oracle.Backend
}

// openServices wires store, audit, oracle client, and engine from cfg.
// backendFlag and concurrencyFlag override the config when set.
func openServices(backendFlag string, concurrencyFlag int) (*services, error) {
	s, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	pdr := audit.NewPDRWriter(s, logger)

	backend := cfg.Backend
	if backendFlag != "" {
		backend = oracle.Backend(backendFlag)
	}
	concurrency := cfg.Concurrency
	if concurrencyFlag > 0 {
		concurrency = concurrencyFlag
	}

	opts := []oracle.Option{
		oracle.WithObserver(pdr),
		oracle.WithLogger(logger.Named("oracle")),
	}
	if cfg.RateLimit.RPS > 0 {
		opts = append(opts, oracle.WithLimiter(rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst)))
	}
	client := oracle.New(oracle.NewCache(cfg.Credentials), opts...)
	classifier := oracle.WithRetry(client, cfg.MaxRetries, retryBase, logger.Named("retry"))

	engine := archive.New(classifier, archive.Config{
		Backend:     backend,
		Timeout:     cfg.Timeout,
		Concurrency: concurrency,
	}, archive.WithLogger(logger.Named("archive")), archive.WithRecorder(pdr))

	return &services{store: s, pdr: pdr, client: client, engine: engine, backend: backend}, nil
}

// record persists a finished batch. Failures are logged, not returned.
func (s *services) record(res *models.BatchResult) {
	if res == nil {
		return
	}
	if err := s.pdr.RecordBatch(context.Background(), res, s.backend); err != nil {
		logger.Warn("failed to save batch history", zap.String("batch", res.ID), zap.Error(err))
	}
}

func (s *services) Close() error {
	return s.store.Close()
}
