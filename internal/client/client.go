// Package client talks to a running cryptexd over its JSON API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/RowanDark/cryptex/internal/api"
	"github.com/RowanDark/cryptex/internal/cipher"
	"github.com/RowanDark/cryptex/internal/logging"
)

const (
	DefaultTimeout = 5 * time.Second
	DefaultRetries = 5
	DefaultBackoff = time.Second
)

// retryStatuses are answered with another attempt.
var retryStatuses = map[int]bool{
	http.StatusRequestEntityTooLarge: true,
	http.StatusTooManyRequests:       true,
	http.StatusInternalServerError:   true,
	http.StatusBadGateway:            true,
	http.StatusServiceUnavailable:    true,
	http.StatusGatewayTimeout:        true,
}

// Config configures a Client. Zero values take the package defaults, except
// Retries which is used as given.
type Config struct {
	Server     string
	Timeout    time.Duration
	Retries    int
	Backoff    time.Duration
	Logger     logging.Logger
	HTTPClient *http.Client
}

// Client calls the cryptexd API, retrying transient failures with
// exponential backoff.
type Client struct {
	base    *url.URL
	http    *http.Client
	retries int
	backoff time.Duration
	logger  logging.Logger
	sleep   func(context.Context, time.Duration) error
}

// StatusError is returned for a final non-2xx response.
type StatusError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// New returns a Client for cfg.Server.
func New(cfg Config) (*Client, error) {
	server := strings.TrimSpace(cfg.Server)
	if server == "" {
		return nil, errors.New("server address must be provided")
	}
	if !strings.Contains(server, "://") {
		server = "http://" + server
	}
	base, err := url.Parse(strings.TrimRight(server, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server address: %w", err)
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries cannot be negative, got %d", cfg.Retries)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Client{
		base:    base,
		http:    httpClient,
		retries: cfg.Retries,
		backoff: backoff,
		logger:  logger,
		sleep:   sleepContext,
	}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Execute runs one registered operation on the server.
func (c *Client) Execute(ctx context.Context, operation, input string, params map[string]interface{}) (string, error) {
	var resp api.CipherOperationResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/cipher/execute", api.CipherOperationRequest{
		Operation: operation,
		Input:     input,
		Config:    params,
	}, &resp)
	return resp.Output, err
}

// Pipeline runs steps in order, or their inverses in reverse order.
func (c *Client) Pipeline(ctx context.Context, input string, steps []cipher.OperationConfig, reverse bool) (string, error) {
	var resp api.CipherPipelineResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/cipher/pipeline", api.CipherPipelineRequest{
		Input:      input,
		Operations: steps,
		Reverse:    reverse,
	}, &resp)
	return resp.Output, err
}

func (c *Client) Detect(ctx context.Context, input string) ([]cipher.DetectionResult, error) {
	var resp api.CipherDetectResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/cipher/detect", api.CipherDetectRequest{Input: input}, &resp)
	return resp.Detections, err
}

func (c *Client) Operations(ctx context.Context) ([]api.OperationInfo, error) {
	var resp api.OperationListResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/cipher/operations", nil, &resp)
	return resp.Operations, err
}

// Health checks the server's /healthz endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}
	target := c.base.String() + path

	var lastErr error
	var retryAfter time.Duration
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			delay := retryAfter
			if delay <= 0 {
				delay = c.backoff * time.Duration(1<<uint(attempt-1))
			}
			c.logger.WithFields(log.Fields{
				"attempt": attempt,
				"delay":   delay,
				"path":    path,
			}).WithError(lastErr).Debug("retrying request")
			if err := c.sleep(ctx, delay); err != nil {
				return err
			}
		}
		retryAfter = 0

		req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json; charset=utf-8")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			continue
		}

		if retryStatuses[resp.StatusCode] && attempt < c.retries {
			retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
			lastErr = readStatusError(resp)
			continue
		}
		return decodeResponse(resp, out)
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func decodeResponse(resp *http.Response, out interface{}) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readStatusError(resp)
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// readStatusError consumes and closes the body of a failed response.
func readStatusError(resp *http.Response) *StatusError {
	defer resp.Body.Close()
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	statusErr := &StatusError{
		StatusCode: resp.StatusCode,
		RequestID:  resp.Header.Get(api.RequestIDHeader),
	}
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		statusErr.Message = body.Error
	} else {
		statusErr.Message = strings.TrimSpace(string(data))
	}
	return statusErr
}

// parseRetryAfter reads delta-seconds or an HTTP date.
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
