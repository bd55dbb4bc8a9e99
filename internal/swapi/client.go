// Package swapi is a read-only client for the SWAPI starship catalog.
package swapi

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/starship-shop/internal/domain/catalog"
)

// DefaultBaseURL is the public SWAPI endpoint.
const DefaultBaseURL = "https://swapi.dev/api"

const maxBodySize = 4 << 20

var _ catalog.Client = (*Client)(nil)

// Options configures the Client.
type Options struct {
	// Timeout bounds a whole request. Zero means no client-side timeout.
	Timeout time.Duration
	// Transport is the underlying round tripper; http.DefaultTransport when nil.
	Transport      http.RoundTripper
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Client implements catalog.Client over HTTP. Failed requests are not retried.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client for baseURL (e.g. "https://swapi.dev/api").
func New(baseURL string, opts Options) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	var otelOpts []otelhttp.Option
	if opts.TracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(opts.TracerProvider))
	}
	if opts.MeterProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithMeterProvider(opts.MeterProvider))
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(base, otelOpts...),
		},
	}
}

// BaseURL returns the catalog root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// FetchPage returns one page of the starship listing.
func (c *Client) FetchPage(ctx context.Context, page int) (*catalog.Page, error) {
	const op = "fetch starships"

	data, err := c.get(ctx, op, "/starships/?page="+strconv.Itoa(page))
	if err != nil {
		return nil, err
	}
	p, err := decodePage(data)
	if err != nil {
		return nil, &catalog.NetworkError{Op: op, Err: errors.Wrap(err, "decode")}
	}
	return p, nil
}

// Search returns starships matching query. A blank query returns no results
// without contacting the catalog.
func (c *Client) Search(ctx context.Context, query string) ([]catalog.Item, error) {
	const op = "search starships"

	if strings.TrimSpace(query) == "" {
		return []catalog.Item{}, nil
	}
	data, err := c.get(ctx, op, "/starships/?search="+url.QueryEscape(query))
	if err != nil {
		return nil, err
	}
	p, err := decodePage(data)
	if err != nil {
		return nil, &catalog.NetworkError{Op: op, Err: errors.Wrap(err, "decode")}
	}
	return p.Items, nil
}

// Ping checks that the catalog root answers.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.get(ctx, "ping catalog", "/")
	return err
}

func (c *Client) get(ctx context.Context, op, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, &catalog.NetworkError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &catalog.NetworkError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, &catalog.NetworkError{Op: op, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &catalog.NetworkError{Op: op, Err: errors.Wrap(err, "read body")}
	}
	return data, nil
}
