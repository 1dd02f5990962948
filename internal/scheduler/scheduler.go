package scheduler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/fentz26/archivist/internal/models"
)

// ErrAlreadyRunning is returned by Start on a running scheduler.
var ErrAlreadyRunning = errors.New("scheduler already running")

// Runner files one source folder.
type Runner interface {
	Run(ctx context.Context, source string) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, source string) error

func (f RunnerFunc) Run(ctx context.Context, source string) error { return f(ctx, source) }

// Stats tracks scheduler activity.
type Stats struct {
	Events     int
	Runs       int
	Failures   int
	LastRun    time.Time
	LastSource string
	LastError  string
}

// Scheduler watches source folders and runs a batch over each one once new
// entries stop arriving. Batches run one at a time.
type Scheduler struct {
	runner  Runner
	config  *Config
	logger  *zap.Logger
	sources []string

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	pending map[string]time.Time
	running bool
	stats   Stats

	// Control
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler over sources.
func New(r Runner, sources []string, cfg *Config, logger *zap.Logger) *Scheduler {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	abs := make([]string, 0, len(sources))
	for _, s := range sources {
		if p, err := filepath.Abs(s); err == nil {
			s = p
		}
		abs = append(abs, filepath.Clean(s))
	}

	return &Scheduler{
		runner:  r,
		config:  cfg,
		logger:  logger,
		sources: abs,
		pending: make(map[string]time.Time),
	}
}

// Start watches every source and sweeps each one once. It is non-blocking.
func (sch *Scheduler) Start(ctx context.Context) error {
	sch.mu.Lock()
	defer sch.mu.Unlock()
	if sch.running {
		return ErrAlreadyRunning
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	for _, s := range sch.sources {
		if err := w.Add(s); err != nil {
			w.Close()
			return fmt.Errorf("watch %s: %w", s, err)
		}
	}

	sch.watcher = w
	sch.ctx, sch.cancel = context.WithCancel(ctx)
	sch.running = true

	// initial sweep, due immediately
	past := time.Now().Add(-sch.config.Debounce)
	for _, s := range sch.sources {
		sch.pending[s] = past
	}

	sch.wg.Add(1)
	go sch.loop()
	sch.logger.Info("scheduler started", zap.Strings("sources", sch.sources), zap.Duration("debounce", sch.config.Debounce))
	return nil
}

// Stop cancels any running batch and waits for the loop to exit.
func (sch *Scheduler) Stop() {
	sch.mu.Lock()
	if !sch.running {
		sch.mu.Unlock()
		return
	}
	sch.running = false
	sch.cancel()
	sch.mu.Unlock()

	sch.wg.Wait()
	if err := sch.watcher.Close(); err != nil {
		sch.logger.Warn("close watcher", zap.Error(err))
	}
	sch.logger.Info("scheduler stopped")
}

// Done is closed once the scheduler has stopped running batches, e.g.
// because its parent context ended.
func (sch *Scheduler) Done() <-chan struct{} {
	sch.mu.Lock()
	ctx := sch.ctx
	sch.mu.Unlock()
	if ctx == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return ctx.Done()
}

func (sch *Scheduler) loop() {
	defer sch.wg.Done()

	ticker := time.NewTicker(sch.config.tick())
	defer ticker.Stop()

	var sweep <-chan time.Time
	if sch.config.Interval > 0 {
		t := time.NewTicker(sch.config.Interval)
		defer t.Stop()
		sweep = t.C
	}

	for {
		select {
		case <-sch.ctx.Done():
			return

		case event, ok := <-sch.watcher.Events:
			if !ok {
				return
			}
			sch.handleEvent(event)

		case err, ok := <-sch.watcher.Errors:
			if !ok {
				return
			}
			sch.logger.Error("watcher error", zap.Error(err))

		case <-sweep:
			sch.mu.Lock()
			now := time.Now().Add(-sch.config.Debounce)
			for _, s := range sch.sources {
				if _, ok := sch.pending[s]; !ok {
					sch.pending[s] = now
				}
			}
			sch.mu.Unlock()

		case <-ticker.C:
			sch.runSettled()
		}
	}
}

// handleEvent marks the event's folder pending. Only new or rewritten
// entries count; removals are the scheduler's own moves.
func (sch *Scheduler) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	name := filepath.Base(event.Name)
	if models.IsReserved(name) || strings.HasPrefix(name, ".") {
		return
	}

	source := filepath.Dir(event.Name)
	sch.mu.Lock()
	defer sch.mu.Unlock()
	sch.stats.Events++
	sch.pending[source] = time.Now()
	sch.logger.Debug("entry arrived", zap.String("source", source), zap.String("name", name))
}

func (sch *Scheduler) runSettled() {
	sch.mu.Lock()
	now := time.Now()
	var due []string
	for s, last := range sch.pending {
		if now.Sub(last) >= sch.config.Debounce {
			due = append(due, s)
			delete(sch.pending, s)
		}
	}
	sch.mu.Unlock()
	sort.Strings(due)

	for _, s := range due {
		if sch.ctx.Err() != nil {
			return
		}
		sch.run(s)
	}
}

func (sch *Scheduler) run(source string) {
	sch.logger.Info("filing folder", zap.String("source", source))
	err := sch.runner.Run(sch.ctx, source)

	sch.mu.Lock()
	defer sch.mu.Unlock()
	sch.stats.Runs++
	sch.stats.LastRun = time.Now()
	sch.stats.LastSource = source
	sch.stats.LastError = ""
	if err != nil {
		sch.stats.Failures++
		sch.stats.LastError = err.Error()
		sch.logger.Error("batch failed", zap.String("source", source), zap.Error(err))
	}
}

// GetStats returns current scheduler statistics.
func (sch *Scheduler) GetStats() Stats {
	sch.mu.Lock()
	defer sch.mu.Unlock()
	return sch.stats
}
