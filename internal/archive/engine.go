// Package archive drives a folder's entries through classification,
// directory creation, and relocation into <source>/<tier>/<department>.
package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fentz26/archivist/internal/models"
	"github.com/fentz26/archivist/internal/oracle"
	"github.com/fentz26/archivist/internal/report"
)

// Config controls how entries are classified.
type Config struct {
	Backend oracle.Backend
	Timeout time.Duration
	// Concurrency is the number of classification requests allowed in
	// flight. Values below 2 run strictly one entry at a time.
	Concurrency int
}

// Recorder receives every entry once it reaches a terminal state.
type Recorder interface {
	RecordEntry(ctx context.Context, batchID string, entry *models.Entry)
}

// ProgressFunc receives the completed percentage (0-100) and a status line.
type ProgressFunc func(percent float64, status string)

// Engine owns the entries of one batch at a time.
type Engine struct {
	classifier oracle.Classifier
	cfg        Config
	logger     *zap.Logger
	recorder   Recorder
	rename     func(oldpath, newpath string) error

	mu   sync.Mutex
	last *models.BatchResult
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithRecorder registers an audit recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// New creates an engine that classifies with c.
func New(c oracle.Classifier, cfg Config, opts ...Option) *Engine {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	e := &Engine{
		classifier: c,
		cfg:        cfg,
		logger:     zap.NewNop(),
		rename:     os.Rename,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enumerate lists the immediate children of source in directory order,
// skipping the tier folders so already filed material is never re-ingested.
func (e *Engine) Enumerate(source string) ([]*models.Entry, error) {
	dirents, err := os.ReadDir(source)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}

	entries := make([]*models.Entry, 0, len(dirents))
	for _, d := range dirents {
		if models.IsReserved(d.Name()) {
			continue
		}
		path := filepath.Join(source, d.Name())
		kind := models.KindFile
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			kind = models.KindDirectory
		}
		entries = append(entries, &models.Entry{
			Name:       d.Name(),
			SourcePath: path,
			Kind:       kind,
			State:      models.StatePending,
		})
	}

	e.logger.Info("entries enumerated", zap.String("source", source), zap.Int("count", len(entries)))
	return entries, nil
}

// EnsureTierDirectories creates the three tier folders under source if they
// are missing. source itself must already exist.
func (e *Engine) EnsureTierDirectories(source string) error {
	info, err := os.Stat(source)
	if err != nil {
		return models.WrapFailure(models.FailureDirectory, err)
	}
	if !info.IsDir() {
		return models.NewFailure(models.FailureDirectory, "%s is not a directory", source)
	}

	for _, t := range models.Tiers {
		path := filepath.Join(source, string(t))
		if err := os.MkdirAll(path, 0o755); err != nil {
			return models.WrapFailure(models.FailureDirectory, err)
		}
	}
	return nil
}

// Process classifies entry and, on success, creates its destination folder
// and sets TargetPath. The returned error is the entry's failure, if any.
func (e *Engine) Process(ctx context.Context, entry *models.Entry, policy string) error {
	entry.State = models.StateClassifying
	start := time.Now()
	d, err := e.classifier.Classify(ctx, e.request(entry, policy))
	entry.Elapsed = time.Since(start)
	return e.settle(ctx, entry, d, err)
}

func (e *Engine) request(entry *models.Entry, policy string) oracle.Request {
	return oracle.Request{
		Name:    entry.Name,
		Kind:    entry.Kind,
		Policy:  policy,
		Backend: e.cfg.Backend,
		Timeout: e.cfg.Timeout,
	}
}

// settle applies a classification outcome to entry.
func (e *Engine) settle(ctx context.Context, entry *models.Entry, d *models.Decision, err error) error {
	if err != nil {
		f := asFailure(err, models.FailureTransport)
		if ctx.Err() != nil {
			f = models.WrapFailure(models.FailureCancelled, ctx.Err())
		}
		entry.Fail(f)
		e.logger.Warn("classification failed",
			zap.String("name", entry.Name),
			zap.String("kind", string(f.Kind)),
			zap.String("detail", f.Detail),
		)
		return f
	}

	entry.Decision = d
	entry.State = models.StateClassified

	// A cancelled batch creates no further folders.
	if err := ctx.Err(); err != nil {
		f := models.WrapFailure(models.FailureCancelled, err)
		entry.Fail(f)
		return f
	}

	dir := filepath.Join(filepath.Dir(entry.SourcePath), string(d.Tier), d.Department)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		f := models.WrapFailure(models.FailureDirectory, err)
		entry.Fail(f)
		e.logger.Error("create department directory", zap.String("dir", dir), zap.Error(err))
		return f
	}
	entry.TargetPath = filepath.Join(dir, entry.Name)

	e.logger.Info("entry classified",
		zap.String("name", entry.Name),
		zap.String("tier", string(d.Tier)),
		zap.String("department", d.Department),
		zap.Duration("elapsed", entry.Elapsed),
	)
	return nil
}

// Summarize describes the most recent batch.
func (e *Engine) Summarize() string {
	return report.Summary(e.Last())
}

// Export writes the most recent batch's report to path.
func (e *Engine) Export(path string) error {
	last := e.Last()
	if last == nil {
		return ErrNoBatch
	}
	if err := report.WriteFile(path, last); err != nil {
		return err
	}
	e.logger.Info("report exported", zap.String("path", path))
	return nil
}

// Last returns the most recent batch result, or nil.
func (e *Engine) Last() *models.BatchResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

func asFailure(err error, fallback models.FailureKind) *models.Failure {
	var f *models.Failure
	if errors.As(err, &f) {
		return f
	}
	return models.WrapFailure(fallback, err)
}
