package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(retries int) Config {
	cfg := DefaultConfig()
	cfg.MaxRetries = retries
	cfg.RetryWaitMin = time.Millisecond
	cfg.RetryWaitMax = 2 * time.Millisecond
	return cfg
}

// countingServer answers with statuses[i] on the i-th call and repeats the
// last status after that.
func countingServer(t *testing.T, statuses ...int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1)) - 1
		w.WriteHeader(statuses[min(n, len(statuses)-1)])
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Less(t, cfg.RetryWaitMin, cfg.RetryWaitMax)
}

func TestDo_RetryPolicy(t *testing.T) {
	tests := []struct {
		name      string
		method    string
		statuses  []int
		wantCalls int32
		wantCode  int
	}{
		{"read recovers after 5xx", http.MethodGet, []int{503, 502, 200}, 3, 200},
		{"read gives up after retries", http.MethodGet, []int{500}, 3, 500},
		{"head is retried", http.MethodHead, []int{503, 204}, 2, 204},
		{"4xx is final", http.MethodGet, []int{404, 200}, 1, 404},
		{"501 is final", http.MethodGet, []int{501, 200}, 1, 501},
		{"post is sent once", http.MethodPost, []int{503, 200}, 1, 503},
		{"patch is sent once", http.MethodPatch, []int{500, 200}, 1, 500},
		{"delete is sent once", http.MethodDelete, []int{502, 200}, 1, 502},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls := countingServer(t, tt.statuses...)
			req, err := http.NewRequest(tt.method, srv.URL+"/api/v1/cart", http.NoBody)
			require.NoError(t, err)

			resp, err := New(fastConfig(2)).Do(context.Background(), req)
			require.NoError(t, err)
			_ = resp.Body.Close()

			assert.Equal(t, tt.wantCode, resp.StatusCode)
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestDo_NetworkErrorRetriedThenReported(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/api/v1/wishlist"
	srv.Close()

	req, err := http.NewRequest(http.MethodGet, url, http.NoBody)
	require.NoError(t, err)
	_, err = New(fastConfig(1)).Do(context.Background(), req)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "GET /api/v1/wishlist (attempt 2)")
}

func TestDo_CanceledWhileWaiting(t *testing.T) {
	srv, calls := countingServer(t, 503)
	cfg := fastConfig(5)
	cfg.RetryWaitMin, cfg.RetryWaitMax = time.Hour, time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, err := http.NewRequest(http.MethodGet, srv.URL, http.NoBody)
	require.NoError(t, err)

	_, err = New(cfg).Do(ctx, req)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), calls.Load())
}

func TestBackoff_Bounds(t *testing.T) {
	c := New(Config{RetryWaitMin: 100 * time.Millisecond, RetryWaitMax: time.Second})
	for attempt, ceiling := range map[int]time.Duration{
		1: 100 * time.Millisecond,
		2: 200 * time.Millisecond,
		4: 800 * time.Millisecond,
		6: time.Second,
		70: time.Second,
	} {
		for range 50 {
			d := c.backoff(attempt)
			assert.GreaterOrEqual(t, d, ceiling/2, "attempt %d", attempt)
			assert.LessOrEqual(t, d, ceiling, "attempt %d", attempt)
		}
	}
}

func TestNewJSONRequest(t *testing.T) {
	req, err := NewJSONRequest(context.Background(), http.MethodPost, "http://cart.local/api/v1/cart", map[string]int{"product_id": 7})
	require.NoError(t, err)
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
	body, _ := io.ReadAll(req.Body)
	assert.JSONEq(t, `{"product_id":7}`, string(body))

	req, err = NewJSONRequest(context.Background(), http.MethodDelete, "http://cart.local/api/v1/cart/l1", nil)
	require.NoError(t, err)
	assert.Empty(t, req.Header.Get("Content-Type"))
	assert.Equal(t, http.NoBody, req.Body)

	_, err = NewJSONRequest(context.Background(), http.MethodPost, "http://cart.local", make(chan int))
	assert.ErrorContains(t, err, "marshal POST body")

	_, err = NewJSONRequest(context.Background(), http.MethodGet, "://bad", nil)
	assert.ErrorContains(t, err, "create GET request")
}
