// Package store talks to the reservation store that owns settings and
// reservations.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/example/equipment-booking/internal/booking"
	"github.com/example/equipment-booking/internal/logging"
)

const (
	tracerName       = "github.com/example/equipment-booking/internal/store"
	mutationMIMEType = "text/plain;charset=utf-8"
	maxResponseBytes = 8 << 20
)

// HTTPClient reaches the store over HTTP. Reads are GET <url>?action=getAllData
// and mutations are POST <url> with a {"action","payload"} body.
type HTTPClient struct {
	endpoint string
	http     *http.Client
	tracer   trace.Tracer
	now      func() time.Time
	logger   *slog.Logger
}

// HTTPClientOption customizes an HTTPClient.
type HTTPClientOption func(*HTTPClient)

// WithHTTPClient replaces the underlying client. Its transport is wrapped for tracing.
func WithHTTPClient(client *http.Client) HTTPClientOption {
	return func(c *HTTPClient) {
		if client != nil {
			c.http = client
		}
	}
}

// WithClock sets the clock used to stamp fetched snapshots.
func WithClock(now func() time.Time) HTTPClientOption {
	return func(c *HTTPClient) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the fallback logger used when the context carries none.
func WithLogger(logger *slog.Logger) HTTPClientOption {
	return func(c *HTTPClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewHTTPClient builds a client for endpoint. Requests time out after timeout
// unless a custom client is supplied.
func NewHTTPClient(endpoint string, timeout time.Duration, opts ...HTTPClientOption) (*HTTPClient, error) {
	endpoint = strings.TrimSpace(endpoint)
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("store: invalid endpoint %q", endpoint)
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	c := &HTTPClient{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	base := c.http.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	wrapped := *c.http
	wrapped.Transport = otelhttp.NewTransport(base)
	c.http = &wrapped
	c.tracer = otel.Tracer(tracerName)
	return c, nil
}

// FetchAll loads the full snapshot.
func (c *HTTPClient) FetchAll(ctx context.Context) (snapshot *booking.Snapshot, err error) {
	ctx, span := c.tracer.Start(ctx, "store.fetchAll")
	defer func() { endSpan(span, err) }()

	target, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", booking.ErrNetworkFailure, err)
	}
	query := target.Query()
	query.Set("action", "getAllData")
	target.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", booking.ErrNetworkFailure, err)
	}

	resp, err := c.do(ctx, req, "getAllData")
	if err != nil {
		return nil, err
	}
	return booking.DecodeSnapshot(resp.Data, c.now())
}

// Mutate posts a mutation and returns the successful envelope.
func (c *HTTPClient) Mutate(ctx context.Context, request booking.MutationRequest) (response booking.Response, err error) {
	ctx, span := c.tracer.Start(ctx, "store.mutate",
		trace.WithAttributes(attribute.String("booking.action", string(request.Action))),
	)
	defer func() { endSpan(span, err) }()

	body, err := json.Marshal(request)
	if err != nil {
		return booking.Response{}, fmt.Errorf("store: encode %s: %w", request.Action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return booking.Response{}, fmt.Errorf("%w: %v", booking.ErrNetworkFailure, err)
	}
	req.Header.Set("Content-Type", mutationMIMEType)

	return c.do(ctx, req, string(request.Action))
}

func (c *HTTPClient) do(ctx context.Context, req *http.Request, action string) (booking.Response, error) {
	logger := logging.FromContextOr(ctx, c.logger).With("component", "store", "action", action)

	started := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.WarnContext(ctx, "store request failed", "error", err)
		return booking.Response{}, fmt.Errorf("%w: %v", booking.ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return booking.Response{}, fmt.Errorf("%w: read body: %v", booking.ErrNetworkFailure, err)
	}

	logger.DebugContext(ctx, "store responded",
		"status_code", resp.StatusCode,
		"duration_ms", c.now().Sub(started).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := booking.ErrorMessage(payload)
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return booking.Response{}, fmt.Errorf("%w: %s", booking.ErrNetworkFailure, msg)
	}

	return booking.ParseResponse(payload)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		var svcErr *booking.ServiceError
		if !errors.As(err, &svcErr) {
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}
