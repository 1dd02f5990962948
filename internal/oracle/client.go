package oracle

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fentz26/archivist/internal/models"
)

// previewRunes bounds the request/response text handed to observers.
const previewRunes = 200

// Call describes one round trip for audit purposes.
type Call struct {
	Name     string
	Backend  Backend
	Model    string
	Request  string
	Response string
	Duration time.Duration
	Err      error
}

// Observer receives every completed round trip.
type Observer interface {
	ObserveCall(ctx context.Context, call Call)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, call Call)

func (f ObserverFunc) ObserveCall(ctx context.Context, call Call) { f(ctx, call) }

// Result is delivered by ClassifyAsync.
type Result struct {
	Decision *models.Decision
	Err      error
	Elapsed  time.Duration
}

// Client classifies entries through whichever backend a request names.
// It is safe for concurrent use.
type Client struct {
	cache    *Cache
	limiter  *rate.Limiter
	observer Observer
	logger   *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLimiter gates every round trip through l.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithObserver registers an audit observer.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithLogger sets the client's logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client over cache.
func New(cache *Cache, opts ...Option) *Client {
	c := &Client{cache: cache, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Cache returns the connection cache backing the client.
func (c *Client) Cache() *Cache { return c.cache }

// UpdateCredentials swaps credentials and forces fresh connections.
func (c *Client) UpdateCredentials(creds Credentials) {
	c.cache.UpdateCredentials(creds)
	c.logger.Info("credentials updated, connections invalidated")
}

// Ready reports a configuration failure if backend cannot be used.
func (c *Client) Ready(backend Backend) error {
	if _, err := c.cache.Conn(backend); err != nil {
		return models.WrapFailure(models.FailureConfiguration, err)
	}
	return nil
}

// Classify blocks until the backend answers, the timeout elapses, or ctx is
// done. Errors are always *models.Failure.
func (c *Client) Classify(ctx context.Context, req Request) (*models.Decision, error) {
	conn, err := c.cache.Conn(req.Backend)
	if err != nil {
		return nil, models.WrapFailure(models.FailureConfiguration, err)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, models.WrapFailure(models.FailureTransport, err)
		}
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	msgs := BuildMessages(req)
	start := time.Now()
	raw, err := conn.Complete(ctx, msgs, 0)
	elapsed := time.Since(start)

	c.observe(ctx, Call{
		Name:     req.Name,
		Backend:  req.Backend,
		Model:    conn.Model(),
		Request:  truncate(msgs[0].Content),
		Response: truncate(raw),
		Duration: elapsed,
		Err:      err,
	})

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.logger.Warn("oracle timeout", zap.String("name", req.Name), zap.Duration("timeout", req.Timeout))
		}
		return nil, models.WrapFailure(models.FailureTransport, err)
	}

	c.logger.Debug("oracle answered",
		zap.String("name", req.Name),
		zap.String("backend", string(req.Backend)),
		zap.String("answer", raw),
		zap.Duration("elapsed", elapsed),
	)

	return ParseDecision(raw)
}

// ClassifyAsync starts Classify in a goroutine and returns immediately. The
// channel receives exactly one Result and is then closed.
func (c *Client) ClassifyAsync(ctx context.Context, req Request) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		start := time.Now()
		d, err := c.Classify(ctx, req)
		out <- Result{Decision: d, Err: err, Elapsed: time.Since(start)}
	}()
	return out
}

// Ping sends a minimal request to check connectivity and credentials.
func (c *Client) Ping(ctx context.Context, backend Backend, timeout time.Duration) error {
	conn, err := c.cache.Conn(backend)
	if err != nil {
		return models.WrapFailure(models.FailureConfiguration, err)
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if _, err := conn.Complete(ctx, []Message{{Role: "system", Content: "测试连接"}}, 10); err != nil {
		return models.WrapFailure(models.FailureTransport, err)
	}
	return nil
}

func (c *Client) observe(ctx context.Context, call Call) {
	if c.observer != nil {
		c.observer.ObserveCall(ctx, call)
	}
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= previewRunes {
		return s
	}
	return string(r[:previewRunes]) + "..."
}
