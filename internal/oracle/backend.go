// Package oracle classifies entries by asking an OpenAI-compatible chat
// completion backend, and parses the free-text answer into a decision.
package oracle

import (
	"context"
	"sort"
	"time"

	"github.com/fentz26/archivist/internal/models"
)

// Backend identifies a completion service. It is never a credential.
type Backend string

const (
	BackendDoubao   Backend = "doubao"
	BackendDeepSeek Backend = "deepseek"
)

// Endpoint is the fixed base URL and model used for a backend.
type Endpoint struct {
	BaseURL string
	Model   string
}

var defaultEndpoints = map[Backend]Endpoint{
	BackendDoubao: {
		BaseURL: "https://ark.cn-beijing.volces.com/api/v3",
		Model:   "doubao-pro-32k-241215",
	},
	BackendDeepSeek: {
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	},
}

// Backends returns the known backend identifiers in stable order.
func Backends() []Backend {
	out := make([]Backend, 0, len(defaultEndpoints))
	for b := range defaultEndpoints {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Known reports whether b has a built-in endpoint.
func Known(b Backend) bool {
	_, ok := defaultEndpoints[b]
	return ok
}

// Credentials maps each backend to its API key.
type Credentials map[Backend]string

func (c Credentials) clone() Credentials {
	out := make(Credentials, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Request is one classification question.
type Request struct {
	Name    string
	Kind    models.Kind
	Policy  string
	Backend Backend
	Timeout time.Duration
}

// Classifier turns a request into a validated decision.
type Classifier interface {
	// Ready reports whether the backend can be used at all, e.g. whether a
	// credential is configured.
	Ready(backend Backend) error

	// Classify returns a decision or a *models.Failure.
	Classify(ctx context.Context, req Request) (*models.Decision, error)
}
