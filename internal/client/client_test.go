package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/RowanDark/cryptex/internal/api"
	"github.com/RowanDark/cryptex/internal/cipher"
)

func newTestClient(t *testing.T, server string, retries int) (*Client, *[]time.Duration) {
	t.Helper()
	c, err := New(Config{Server: server, Retries: retries, Backoff: 10 * time.Millisecond})
	require.NoError(t, err)
	var delays []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return ctx.Err()
	}
	return c, &delays
}

func startAPI(t *testing.T) *httptest.Server {
	t.Helper()
	server, err := api.NewServer(api.Config{Addr: "127.0.0.1:0"})
	require.NoError(t, err)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestNewValidation(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)

	_, err = New(Config{Server: "localhost:8750", Retries: -1})
	require.Error(t, err)

	c, err := New(Config{Server: "localhost:8750/"})
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8750", c.base.String())
	require.Equal(t, DefaultBackoff, c.backoff)
}

func TestClientAgainstServer(t *testing.T) {
	ts := startAPI(t)
	c, _ := newTestClient(t, ts.URL, 0)
	ctx := context.Background()

	require.NoError(t, c.Health(ctx))

	out, err := c.Execute(ctx, "affine_encode", "HELLO", map[string]interface{}{"key": 185, "alphabet": cipher.UppercaseAlphabet})
	require.NoError(t, err)
	require.Equal(t, "AFCCX", out)

	steps := []cipher.OperationConfig{
		{Name: "caesar_encode", Parameters: map[string]interface{}{"shift": 8}},
		{Name: "rot13"},
	}
	enc, err := c.Pipeline(ctx, "HELLO WORLD", steps, false)
	require.NoError(t, err)
	dec, err := c.Pipeline(ctx, enc, steps, true)
	require.NoError(t, err)
	require.Equal(t, "HELLO WORLD", dec)

	detections, err := c.Detect(ctx, "... --- ...")
	require.NoError(t, err)
	require.Equal(t, "morse", detections[0].Encoding)

	ops, err := c.Operations(ctx)
	require.NoError(t, err)
	require.Len(t, ops, len(cipher.ListOperations()))
}

func TestStatusError(t *testing.T) {
	ts := startAPI(t)
	c, delays := newTestClient(t, ts.URL, 3)

	_, err := c.Execute(context.Background(), "morse_decode", "...---", nil)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusUnprocessableEntity, statusErr.StatusCode)
	require.Contains(t, statusErr.Message, "unknown morse token")
	require.NotEmpty(t, statusErr.RequestID)
	require.Empty(t, *delays, "422 is not retried")
}

func TestRetriesWithBackoff(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 4 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"output":"done"}`))
	}))
	t.Cleanup(ts.Close)

	c, delays := newTestClient(t, ts.URL, 5)
	out, err := c.Execute(context.Background(), "rot13", "x", nil)
	require.NoError(t, err)
	require.Equal(t, "done", out)
	require.Equal(t, int32(4), atomic.LoadInt32(&calls))
	require.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond}, *delays)
}

func TestRetryAfterHeader(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "3")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"output":"ok"}`))
	}))
	t.Cleanup(ts.Close)

	c, delays := newTestClient(t, ts.URL, 2)
	_, err := c.Execute(context.Background(), "rot13", "x", nil)
	require.NoError(t, err)
	require.Equal(t, []time.Duration{3 * time.Second}, *delays)
}

func TestRetriesExhausted(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"upstream down"}`))
	}))
	t.Cleanup(ts.Close)

	c, delays := newTestClient(t, ts.URL, 2)
	_, err := c.Execute(context.Background(), "rot13", "x", nil)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	require.Equal(t, "upstream down", statusErr.Message)
	require.Equal(t, int32(3), atomic.LoadInt32(&calls))
	require.Len(t, *delays, 2)
}

func TestTransportErrorsAreRetried(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	addr := ts.URL
	ts.Close()

	c, delays := newTestClient(t, addr, 2)
	err := c.Health(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "max retries exceeded")
	require.Len(t, *delays, 2)
}

func TestCancelledContextStopsRetries(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(ts.Close)

	c, err := New(Config{Server: ts.URL, Retries: 5, Backoff: time.Hour})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	err = c.Health(ctx)
	require.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestParseRetryAfter(t *testing.T) {
	require.Equal(t, time.Duration(0), parseRetryAfter(""))
	require.Equal(t, 2*time.Second, parseRetryAfter("2"))
	require.Equal(t, time.Duration(0), parseRetryAfter("-4"))
	require.Equal(t, time.Duration(0), parseRetryAfter("soon"))

	future := time.Now().Add(time.Hour).UTC().Format(http.TimeFormat)
	require.Greater(t, parseRetryAfter(future), 50*time.Minute)
}
