// Package httpclient is the traced JSON client used to call the
// collaborating services. Endpoints are resolved by service name so
// the adapters stay ignorant of deployment details.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Resolver maps a logical service name to a base URL.
type Resolver interface {
	Resolve(serviceName string) (string, error)
}

// StaticResolver resolves from a fixed name → base URL table.
type StaticResolver map[string]string

func (r StaticResolver) Resolve(serviceName string) (string, error) {
	base, ok := r[serviceName]
	if !ok {
		return "", errors.Errorf("no endpoint configured for service %q", serviceName)
	}
	return base, nil
}

// Response is a decoded-enough view of the remote reply: the adapter
// owns status classification and body interpretation.
type Response struct {
	StatusCode int
	Body       []byte
}

// DecodeJSON unmarshals the body into v.
func (r *Response) DecodeJSON(v any) error {
	return errors.Wrap(json.Unmarshal(r.Body, v), "decoding response body")
}

// Client issues traced JSON requests with a bounded per-call timeout.
// The underlying http.Client carries no timeout of its own; every call
// is governed by the context derived here.
type Client struct {
	tracer   trace.Tracer
	http     *http.Client
	resolver Resolver
	timeout  time.Duration
}

func New(tracer trace.Tracer, resolver Resolver, timeout time.Duration) *Client {
	return &Client{
		tracer:   tracer,
		resolver: resolver,
		timeout:  timeout,
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
			},
		},
	}
}

// PostJSON sends payload to the named service. A transport-level
// failure (dial, timeout) returns an error; any HTTP status comes back
// in the Response for the adapter to classify.
func (c *Client) PostJSON(ctx context.Context, service, path string, payload any) (*Response, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrap(err, "encoding request body")
		}
		body = bytes.NewReader(raw)
	}
	return c.do(ctx, http.MethodPost, service, path, body)
}

// GetJSON issues a GET against the named service.
func (c *Client) GetJSON(ctx context.Context, service, path string) (*Response, error) {
	return c.do(ctx, http.MethodGet, service, path, nil)
}

func (c *Client) do(ctx context.Context, method, service, path string, body io.Reader) (*Response, error) {
	base, err := c.resolver.Resolve(service)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	spanName := fmt.Sprintf("call-%s", service)
	ctx, span := c.tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	url := strings.TrimSuffix(base, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	span.SetAttributes(
		attribute.String("http.url", url),
		attribute.String("http.method", method),
	)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.Wrapf(err, "calling %s", service)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.Wrapf(err, "reading %s response", service)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, resp.Status)
	}
	return &Response{StatusCode: resp.StatusCode, Body: raw}, nil
}
