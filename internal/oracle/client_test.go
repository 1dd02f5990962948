package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fentz26/archivist/internal/models"
)

// newBackend serves chat completions with the given handler and returns a
// cache pointing the deepseek backend at it.
func newBackend(t *testing.T, handler http.HandlerFunc) *Cache {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewCache(
		Credentials{BackendDeepSeek: "sk-test"},
		WithEndpoint(BackendDeepSeek, Endpoint{BaseURL: srv.URL, Model: "test-model"}),
	)
}

func answer(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"choices":[{"message":{"role":"assistant","content":%q}}]}`, content)
	}
}

func request(name string) Request {
	return Request{
		Name:    name,
		Kind:    models.KindFile,
		Policy:  "policy",
		Backend: BackendDeepSeek,
		Timeout: 2 * time.Second,
	}
}

func TestClassify_Success(t *testing.T) {
	var got chatRequest
	var auth string
	cache := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		answer("长期-Office")(w, r)
	})

	d, err := New(cache).Classify(context.Background(), request("minutes.txt"))
	require.NoError(t, err)
	assert.Equal(t, models.TierLongTerm, d.Tier)
	assert.Equal(t, "Office", d.Department)
	assert.Equal(t, "长期-Office", d.Raw)

	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, "test-model", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Contains(t, got.Messages[0].Content, "minutes.txt")
}

func TestClassify_FormatError(t *testing.T) {
	cache := newBackend(t, answer("garbage"))

	_, err := New(cache).Classify(context.Background(), request("a.txt"))
	assert.True(t, errors.Is(err, models.ErrFormat), "got %v", err)
}

func TestClassify_TransportErrors(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		cache := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"bad key"}`, http.StatusUnauthorized)
		})
		_, err := New(cache).Classify(context.Background(), request("a.txt"))
		assert.True(t, errors.Is(err, models.ErrTransport), "got %v", err)
		assert.Contains(t, err.Error(), "401")
	})

	t.Run("malformed", func(t *testing.T) {
		cache := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		})
		_, err := New(cache).Classify(context.Background(), request("a.txt"))
		assert.True(t, errors.Is(err, models.ErrTransport), "got %v", err)
	})

	t.Run("no choices", func(t *testing.T) {
		cache := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"choices":[]}`))
		})
		_, err := New(cache).Classify(context.Background(), request("a.txt"))
		assert.True(t, errors.Is(err, ErrEmptyResponse), "got %v", err)
	})

	t.Run("timeout", func(t *testing.T) {
		cache := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		})
		req := request("slow.txt")
		req.Timeout = 50 * time.Millisecond
		_, err := New(cache).Classify(context.Background(), req)
		assert.True(t, errors.Is(err, models.ErrTransport), "got %v", err)
		assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
	})
}

func TestClassify_MissingCredential(t *testing.T) {
	c := New(NewCache(Credentials{}))

	err := c.Ready(BackendDoubao)
	assert.True(t, errors.Is(err, models.ErrConfiguration))
	assert.True(t, errors.Is(err, ErrMissingCredential))

	_, err = c.Classify(context.Background(), Request{Name: "a", Backend: BackendDoubao})
	assert.True(t, errors.Is(err, models.ErrConfiguration))

	err = c.Ready(Backend("openai"))
	assert.True(t, errors.Is(err, ErrUnknownBackend))
}

func TestClassify_Observer(t *testing.T) {
	cache := newBackend(t, answer("短期-Office"))

	var calls []Call
	c := New(cache, WithObserver(ObserverFunc(func(ctx context.Context, call Call) {
		calls = append(calls, call)
	})))

	_, err := c.Classify(context.Background(), request("notes.txt"))
	require.NoError(t, err)

	require.Len(t, calls, 1)
	assert.Equal(t, "notes.txt", calls[0].Name)
	assert.Equal(t, BackendDeepSeek, calls[0].Backend)
	assert.Equal(t, "test-model", calls[0].Model)
	assert.Equal(t, "短期-Office", calls[0].Response)
	assert.LessOrEqual(t, len([]rune(calls[0].Request)), previewRunes+3)
	assert.NoError(t, calls[0].Err)
}

func TestClassifyAsync_Concurrent(t *testing.T) {
	var inflight, peak int32
	cache := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inflight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		atomic.AddInt32(&inflight, -1)
		answer("永久-Office")(w, r)
	})
	c := New(cache)

	var results []<-chan Result
	for i := 0; i < 5; i++ {
		results = append(results, c.ClassifyAsync(context.Background(), request(fmt.Sprintf("f%d", i))))
	}
	for _, ch := range results {
		res := <-ch
		require.NoError(t, res.Err)
		assert.Equal(t, models.TierPermanent, res.Decision.Tier)
		_, open := <-ch
		assert.False(t, open)
	}

	assert.Greater(t, atomic.LoadInt32(&peak), int32(1))
	assert.Equal(t, 1, cache.Len())
}

func TestCache_UpdateCredentials(t *testing.T) {
	cache := NewCache(Credentials{BackendDoubao: "old", BackendDeepSeek: "ds"})

	first, err := cache.Conn(BackendDoubao)
	require.NoError(t, err)
	again, err := cache.Conn(BackendDoubao)
	require.NoError(t, err)
	assert.Same(t, first, again)

	cache.UpdateCredentials(Credentials{BackendDoubao: "new"})
	assert.Equal(t, 0, cache.Len())

	fresh, err := cache.Conn(BackendDoubao)
	require.NoError(t, err)
	assert.NotSame(t, first, fresh)
	assert.Equal(t, "new", fresh.apiKey)

	_, err = cache.Conn(BackendDeepSeek)
	assert.True(t, errors.Is(err, ErrMissingCredential))
}

func TestCache_ConcurrentAccess(t *testing.T) {
	cache := NewCache(Credentials{BackendDoubao: "k"})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%5 == 0 {
				cache.UpdateCredentials(Credentials{BackendDoubao: fmt.Sprintf("k%d", i)})
				return
			}
			conn, err := cache.Conn(BackendDoubao)
			if assert.NoError(t, err) {
				assert.NotEmpty(t, conn.apiKey)
			}
		}(i)
	}
	wg.Wait()
}

func TestPing(t *testing.T) {
	var got chatRequest
	cache := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		answer("ok")(w, r)
	})

	require.NoError(t, New(cache).Ping(context.Background(), BackendDeepSeek, time.Second))
	assert.Equal(t, 10, got.MaxTokens)
}

func TestBackends(t *testing.T) {
	assert.Equal(t, []Backend{BackendDeepSeek, BackendDoubao}, Backends())
	assert.True(t, Known(BackendDoubao))
	assert.False(t, Known("openai"))
}
