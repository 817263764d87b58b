// Package downstream calls the next tier in the chain.
package downstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/tracechain/tracechain/internal/fault"
	"github.com/tracechain/tracechain/internal/metrics"
	"github.com/tracechain/tracechain/internal/middleware"
)

const (
	// DialTimeout is the connection timeout.
	DialTimeout = 10 * time.Second
	// MaxResponseBytes caps how much of a downstream body is read.
	MaxResponseBytes = 10 << 20
)

// NewHTTPClient creates an HTTP client for tier-to-tier calls.
// timeout bounds the whole round trip; it does not retry or follow redirects.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Client performs single-attempt GETs against the next tier.
type Client struct {
	http       *http.Client
	target     string
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
	metrics    metrics.Recorder
	logger     *slog.Logger
}

// New creates a Client. target names the downstream tier in metrics and faults.
func New(httpClient *http.Client, target string, tracer trace.Tracer, propagator propagation.TextMapPropagator, recorder metrics.Recorder, logger *slog.Logger) *Client {
	return &Client{
		http:       httpClient,
		target:     target,
		tracer:     tracer,
		propagator: propagator,
		metrics:    recorder,
		logger:     logger.With("component", "downstream", "target", target),
	}
}

// Target returns the name of the downstream tier.
func (c *Client) Target() string {
	return c.target
}

// Get fetches url and returns the downstream envelope verbatim.
// Transport errors, non-2xx statuses, non-object bodies and bodies carrying
// a top-level "error" field all become downstream faults.
func (c *Client) Get(ctx context.Context, url string) (json.RawMessage, error) {
	ctx, span := c.tracer.Start(ctx, "GET "+c.target,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.HTTPRequestMethodKey.String(http.MethodGet),
			semconv.URLFull(url),
			semconv.PeerService(c.target),
		),
	)
	defer span.End()

	body, status, err := c.do(ctx, url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.metrics.IncDownstreamRequest(c.target, statusLabel(status))
		c.logger.WarnContext(ctx, "downstream call failed",
			"url", url,
			"status", status,
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		return nil, err
	}

	span.SetAttributes(semconv.HTTPResponseStatusCode(status))
	c.metrics.IncDownstreamRequest(c.target, statusLabel(status))
	return body, nil
}

func (c *Client) do(ctx context.Context, url string) (json.RawMessage, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fault.Wrap(fault.KindInternal, "Invalid downstream address", err)
	}
	req.Header.Set("Accept", "application/json")
	if requestID := middleware.GetRequestID(ctx); requestID != "" {
		req.Header.Set(middleware.RequestIDHeader, requestID)
	}
	c.propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fault.Wrap(fault.KindDownstream, c.target+" unavailable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, c.failure(resp.StatusCode, nil, fmt.Errorf("read body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, c.failure(resp.StatusCode, raw, fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, resp.StatusCode, c.failure(resp.StatusCode, raw, fmt.Errorf("response is not a JSON object"))
	}
	if _, reported := fields["error"]; reported {
		return nil, resp.StatusCode, c.failure(resp.StatusCode, raw, fmt.Errorf("downstream reported an error"))
	}

	return json.RawMessage(raw), resp.StatusCode, nil
}

// failure builds the downstream fault, attaching the downstream body when it is JSON.
func (c *Client) failure(status int, raw []byte, cause error) *fault.Error {
	f := fault.Wrap(fault.KindDownstream, c.target+" request failed", cause).
		With("downstreamStatus", status)
	if len(raw) > 0 && json.Valid(raw) {
		f.With("downstream", json.RawMessage(raw))
	}
	return f
}

func statusLabel(status int) string {
	if status == 0 {
		return "error"
	}
	return strconv.Itoa(status)
}

// Probe checks that the next tier answers its health endpoint.
// It bypasses Client so readiness checks stay out of the forwarding
// metrics, spans and logs.
type Probe struct {
	http *http.Client
	url  string
}

// NewProbe creates a Probe for the tier at baseURL.
func NewProbe(httpClient *http.Client, baseURL string) *Probe {
	return &Probe{http: httpClient, url: strings.TrimSuffix(baseURL, "/") + "/api/health"}
}

// Ping issues one health request and expects a 2xx answer.
func (p *Probe) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return err
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, MaxResponseBytes))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("health returned HTTP %d", resp.StatusCode)
	}
	return nil
}
