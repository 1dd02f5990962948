package oracle

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/fentz26/archivist/internal/models"
)

// Retrying retries transport failures with exponential backoff. Format and
// configuration failures are returned immediately.
type Retrying struct {
	next    Classifier
	retries int
	base    time.Duration
	logger  *zap.Logger
}

// WithRetry wraps next so that each request is attempted at most
// 1+maxRetries times.
func WithRetry(next Classifier, maxRetries int, base time.Duration, logger *zap.Logger) *Retrying {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retrying{next: next, retries: maxRetries, base: base, logger: logger}
}

func (r *Retrying) Ready(backend Backend) error { return r.next.Ready(backend) }

func (r *Retrying) Classify(ctx context.Context, req Request) (*models.Decision, error) {
	var last error
	for attempt := 0; attempt <= r.retries; attempt++ {
		d, err := r.next.Classify(ctx, req)
		if err == nil {
			return d, nil
		}
		if !errors.Is(err, models.ErrTransport) {
			return nil, err
		}
		last = err
		if attempt == r.retries {
			break
		}

		delay := r.base << attempt
		r.logger.Debug("retrying oracle call",
			zap.String("name", req.Name),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, last
		case <-t.C:
		}
	}
	return nil, last
}
