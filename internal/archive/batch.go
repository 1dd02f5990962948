package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fentz26/archivist/internal/models"
)

// outcome is one classification result waiting to be joined back into
// enumeration order.
type outcome struct {
	decision *models.Decision
	err      error
	elapsed  time.Duration
	skipped  bool
}

// RunBatch files every entry of source. The returned result always lists
// every enumerated entry in enumeration order with a terminal state.
//
// The error is non-nil when the batch aborted before any entry was touched
// (configuration or tier directory failure) or when ctx was cancelled; the
// result is complete in both cases.
func (e *Engine) RunBatch(ctx context.Context, source, policy string, onProgress ProgressFunc) (*models.BatchResult, error) {
	if onProgress == nil {
		onProgress = func(float64, string) {}
	}

	res := &models.BatchResult{
		ID:        uuid.NewString(),
		Source:    source,
		StartedAt: time.Now(),
		Entries:   []*models.Entry{},
	}
	log := e.logger.With(zap.String("batch", res.ID), zap.String("source", source))
	log.Info("batch started", zap.String("backend", string(e.cfg.Backend)), zap.Int("concurrency", e.cfg.Concurrency))

	if err := e.preflight(source); err != nil {
		res.Failure = asFailure(err, models.FailureDirectory)
		e.finish(res)
		log.Error("batch aborted", zap.Error(res.Failure))
		return res, res.Failure
	}

	entries, err := e.Enumerate(source)
	if err != nil {
		res.Failure = models.WrapFailure(models.FailureDirectory, err)
		e.finish(res)
		log.Error("batch aborted", zap.Error(res.Failure))
		return res, res.Failure
	}
	res.Entries = entries

	if len(entries) == 0 {
		onProgress(100, "No entries to process")
		e.finish(res)
		log.Info("batch finished", zap.Int("total", 0))
		return res, nil
	}

	if e.cfg.Concurrency > 1 {
		e.runWindowed(ctx, res, policy, onProgress)
	} else {
		e.runSequential(ctx, res, policy, onProgress)
	}

	e.finish(res)
	log.Info("batch finished",
		zap.Int("total", res.Total),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("failed", res.Failed),
		zap.Duration("duration", res.Duration),
	)

	if err := ctx.Err(); err != nil {
		return res, models.WrapFailure(models.FailureCancelled, err)
	}
	return res, nil
}

func (e *Engine) preflight(source string) error {
	if err := e.classifier.Ready(e.cfg.Backend); err != nil {
		return asFailure(err, models.FailureConfiguration)
	}
	return e.EnsureTierDirectories(source)
}

func (e *Engine) runSequential(ctx context.Context, res *models.BatchResult, policy string, onProgress ProgressFunc) {
	for i, entry := range res.Entries {
		if ctx.Err() != nil {
			e.cancel(entry, ctx.Err())
		} else if err := e.Process(ctx, entry, policy); err == nil {
			e.moveUnlessCancelled(ctx, entry)
		}
		e.complete(ctx, res, i, onProgress)
	}
}

// runWindowed keeps up to Concurrency classification calls in flight while
// the calling goroutine settles, moves, and reports entries strictly in
// enumeration order.
func (e *Engine) runWindowed(ctx context.Context, res *models.BatchResult, policy string, onProgress ProgressFunc) {
	n := len(res.Entries)
	slots := make([]outcome, n)
	done := make([]chan struct{}, n)
	for i := range done {
		done[i] = make(chan struct{})
	}

	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)

		var g errgroup.Group
		g.SetLimit(e.cfg.Concurrency)
		for i, entry := range res.Entries {
			if err := ctx.Err(); err != nil {
				slots[i] = outcome{err: err, skipped: true}
				close(done[i])
				continue
			}
			req := e.request(entry, policy)
			i := i
			g.Go(func() error {
				defer close(done[i])
				start := time.Now()
				d, err := e.classifier.Classify(ctx, req)
				slots[i] = outcome{decision: d, err: err, elapsed: time.Since(start)}
				return nil
			})
		}
		_ = g.Wait()
	}()

	for i, entry := range res.Entries {
		<-done[i]
		out := slots[i]
		entry.Elapsed = out.elapsed

		if out.skipped {
			e.cancel(entry, out.err)
		} else if err := e.settle(ctx, entry, out.decision, out.err); err == nil {
			e.moveUnlessCancelled(ctx, entry)
		}
		e.complete(ctx, res, i, onProgress)
	}

	<-dispatchDone
}

// moveUnlessCancelled starts the move only while the batch is live. A move
// that has started always runs to completion.
func (e *Engine) moveUnlessCancelled(ctx context.Context, entry *models.Entry) {
	if err := ctx.Err(); err != nil {
		e.cancel(entry, err)
		return
	}
	_ = e.Move(entry)
}

func (e *Engine) cancel(entry *models.Entry, err error) {
	entry.Fail(models.WrapFailure(models.FailureCancelled, err))
}

// complete reports entry i as finished.
func (e *Engine) complete(ctx context.Context, res *models.BatchResult, i int, onProgress ProgressFunc) {
	entry := res.Entries[i]
	if e.recorder != nil {
		e.recorder.RecordEntry(context.WithoutCancel(ctx), res.ID, entry)
	}

	n := len(res.Entries)
	status := fmt.Sprintf("[%d/%d] %s: %s", i+1, n, entry.Name, describe(entry))
	onProgress(float64(i+1)/float64(n)*100, status)
}

func describe(entry *models.Entry) string {
	switch entry.State {
	case models.StateMoved:
		return "filed under " + entry.Decision.String()
	case models.StateCancelled:
		return "cancelled"
	default:
		if entry.Failure != nil {
			return string(entry.State) + " (" + entry.Failure.Error() + ")"
		}
		return string(entry.State)
	}
}

func (e *Engine) finish(res *models.BatchResult) {
	res.Tally()
	res.FinishedAt = time.Now()
	res.Duration = res.FinishedAt.Sub(res.StartedAt)

	e.mu.Lock()
	e.last = res
	e.mu.Unlock()
}
