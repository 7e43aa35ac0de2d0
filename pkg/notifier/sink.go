package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"

	"github.com/bft-labs/assetcdn/internal/domain"
)

// ErrUpstreamDelivery wraps every failed attempt.
var ErrUpstreamDelivery = domain.ErrUpstreamDelivery

// ErrInvalidRequest marks an event or endpoint that can never be sent, such
// as a malformed URL. It is not retried.
var ErrInvalidRequest = errors.New("notifier: invalid request")

// maxErrorBody bounds how much of a rejection body is kept for logging.
const maxErrorBody = 4 << 10

// HTTPClient abstracts HTTP request execution for testing and custom transports.
// The standard *http.Client satisfies this interface.
type HTTPClient interface {
	// Do sends an HTTP request and returns an HTTP response.
	Do(req *http.Request) (*http.Response, error)
}

// Sink delivers one event. Implementations return nil on success, a
// *StatusError for HTTP rejections, or any other error for transport failures.
type Sink interface {
	Deliver(ctx context.Context, event domain.DeliveryEvent) error
}

// StatusError reports a non-2xx response from the sink endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Body)
}

// Unwrap lets callers match ErrUpstreamDelivery.
func (e *StatusError) Unwrap() error { return ErrUpstreamDelivery }

// Retryable reports whether err warrants another attempt. Server errors (5xx),
// transport failures and timeouts are retried. Any other status, including an
// unfollowed redirect, and ErrInvalidRequest are final.
func Retryable(err error) bool {
	if errors.Is(err, ErrInvalidRequest) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500
	}
	return true
}

// SinkConfig provides the endpoint and credentials of an HTTPSink.
type SinkConfig struct {
	// URL receives a POST with the JSON-encoded event.
	URL string

	// AuthKey is sent as a bearer token when set.
	AuthKey string

	// Hostname identifies this node. Defaults to os.Hostname().
	Hostname string
}

// HTTPSink implements Sink by POSTing JSON to a webhook endpoint.
type HTTPSink struct {
	client HTTPClient
	config SinkConfig
}

// NewHTTPSink creates a new HTTP sink.
func NewHTTPSink(client HTTPClient, cfg SinkConfig) *HTTPSink {
	if cfg.Hostname == "" {
		if h, err := os.Hostname(); err == nil {
			cfg.Hostname = h
		} else {
			cfg.Hostname = "unknown"
		}
	}
	return &HTTPSink{client: client, config: cfg}
}

// Deliver posts event to the configured URL.
func (s *HTTPSink) Deliver(ctx context.Context, event domain.DeliveryEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: marshal event: %v", ErrInvalidRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: create request: %v", ErrInvalidRequest, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "assetcdn-notifier/"+Version)
	req.Header.Set("X-Event-Id", event.ID)
	req.Header.Set("X-Agent-Hostname", s.config.Hostname)
	req.Header.Set("X-Agent-OSArch", runtime.GOOS+"/"+runtime.GOARCH)
	if s.config.AuthKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.AuthKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: send request: %v", ErrUpstreamDelivery, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
