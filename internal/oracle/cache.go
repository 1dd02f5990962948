package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// Cache owns one lazily built connection per backend. Connections are
// dropped together whenever credentials change.
type Cache struct {
	mu        sync.RWMutex
	creds     Credentials
	conns     map[Backend]*Conn
	endpoints map[Backend]Endpoint
	http      *http.Client
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithEndpoint overrides the endpoint for a backend.
func WithEndpoint(b Backend, ep Endpoint) CacheOption {
	return func(c *Cache) { c.endpoints[b] = ep }
}

// WithHTTPClient sets the HTTP client shared by all connections.
func WithHTTPClient(hc *http.Client) CacheOption {
	return func(c *Cache) { c.http = hc }
}

// NewCache creates a cache with the given credentials.
func NewCache(creds Credentials, opts ...CacheOption) *Cache {
	c := &Cache{
		creds:     creds.clone(),
		conns:     make(map[Backend]*Conn),
		endpoints: make(map[Backend]Endpoint, len(defaultEndpoints)),
		http:      &http.Client{},
	}
	for b, ep := range defaultEndpoints {
		c.endpoints[b] = ep
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Conn returns the cached connection for b, building it on first use.
func (c *Cache) Conn(b Backend) (*Conn, error) {
	c.mu.RLock()
	conn, ok := c.conns[b]
	c.mu.RUnlock()
	if ok {
		return conn, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if conn, ok := c.conns[b]; ok {
		return conn, nil
	}
	ep, ok := c.endpoints[b]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, b)
	}
	key := c.creds[b]
	if key == "" {
		return nil, fmt.Errorf("%w for backend %q", ErrMissingCredential, b)
	}

	conn = &Conn{backend: b, endpoint: ep, apiKey: key, http: c.http}
	c.conns[b] = conn
	return conn, nil
}

// UpdateCredentials replaces all credentials and invalidates every cached
// connection in one step.
func (c *Cache) UpdateCredentials(creds Credentials) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creds = creds.clone()
	c.conns = make(map[Backend]*Conn)
}

// Len returns the number of live connections.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.conns)
}

// Conn is a chat-completion connection to one backend.
type Conn struct {
	backend  Backend
	endpoint Endpoint
	apiKey   string
	http     *http.Client
}

// Backend returns the backend this connection talks to.
func (c *Conn) Backend() Backend { return c.backend }

// Model returns the model name sent with every request.
func (c *Conn) Model() string { return c.endpoint.Model }

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends msgs and returns the first choice's content. maxTokens of
// zero leaves the limit to the backend.
func (c *Conn) Complete(ctx context.Context, msgs []Message, maxTokens int) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:     c.endpoint.Model,
		Messages:  msgs,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(c.endpoint.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", c.backend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("%s: unexpected status %s: %s", c.backend, resp.Status, strings.TrimSpace(string(msg)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%s: decode response: %w", c.backend, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%s: %w", c.backend, ErrEmptyResponse)
	}
	return out.Choices[0].Message.Content, nil
}
