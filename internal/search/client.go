package search

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/numdox/numdox/internal/fingerprint"
	"github.com/numdox/numdox/internal/query"
	"github.com/numdox/numdox/pkg/httpclient"
	"github.com/numdox/numdox/pkg/ratelimit"
	"github.com/numdox/numdox/pkg/useragent"
)

// DefaultBaseURL is the non-JS HTML endpoint of the search backend.
const DefaultBaseURL = "https://html.duckduckgo.com/html/"

// maxBodyBytes caps how much of a response body is read. Result pages are
// well under this; anything larger is junk.
const maxBodyBytes = 2 << 20

// Config configures a search client.
type Config struct {
	// BaseURL overrides the backend endpoint, mainly for tests.
	BaseURL string
	// Timeout bounds one request end to end. Defaults to 15s.
	Timeout time.Duration
	// Fingerprint selects the TLS profile presented to the backend.
	Fingerprint fingerprint.Profile
	// UAPool rotates User-Agent headers. Nil falls back to the default pool.
	UAPool *useragent.Pool
	// Pacer applies the inter-query delay before each request. It should be
	// shared process-wide so the aggregate outbound rate holds no matter how
	// many reports are being built. Nil disables pacing.
	Pacer *ratelimit.Pacer
	// Detectors override the block detectors. Nil uses DefaultDetectors.
	Detectors []Detector
	Logger    *slog.Logger
}

// Client executes single queries against the search backend. It never
// retries; a failed query surfaces as a BackendError or ParseError and the
// caller decides what to do next.
type Client struct {
	cfg       Config
	http      *httpclient.Client
	detectors []Detector
	logger    *slog.Logger
}

var _ Searcher = (*Client)(nil)

// New creates a search client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.UAPool == nil {
		cfg.UAPool = useragent.NewPool(nil)
	}
	if cfg.Fingerprint == "" {
		cfg.Fingerprint = fingerprint.ProfileChrome
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	transport, err := fingerprint.Transport(cfg.Fingerprint)
	if err != nil {
		return nil, fmt.Errorf("search: setup transport: %w", err)
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: 3,
		UseCookieJar: true,
		Transport:    transport,
	})
	if err != nil {
		return nil, fmt.Errorf("search: create client: %w", err)
	}

	detectors := cfg.Detectors
	if detectors == nil {
		detectors = DefaultDetectors()
	}

	return &Client{
		cfg:       cfg,
		http:      client,
		detectors: detectors,
		logger:    cfg.Logger,
	}, nil
}

// Execute runs one query and parses the response into hits. The configured
// pacing delay is applied before the request goes out, so even the first
// query of a new report waits if another query left the client recently.
// A context error from the pacing wait is returned as-is so callers can
// distinguish cancellation from backend failure.
func (c *Client) Execute(ctx context.Context, q query.Query) ([]Hit, error) {
	if c.cfg.Pacer != nil {
		if err := c.cfg.Pacer.Wait(ctx); err != nil {
			return nil, err
		}
	}

	reqURL := c.cfg.BaseURL + "?q=" + url.QueryEscape(q.Text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &BackendError{Query: q.Text, Err: err}
	}

	req.Header.Set("User-Agent", c.cfg.UAPool.Next())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	start := time.Now()
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, &BackendError{Query: q.Text, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &BackendError{Query: q.Text, StatusCode: resp.StatusCode, Err: err}
	}

	if blocked, source := DetectBlock(resp.StatusCode, resp.Header, body, c.detectors); blocked {
		return nil, &BackendError{Query: q.Text, StatusCode: resp.StatusCode, Source: source}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &BackendError{Query: q.Text, StatusCode: resp.StatusCode}
	}

	hits, err := parseHits(q.Text, body, MaxSnippetLen)
	if err != nil {
		return nil, &ParseError{Query: q.Text, Err: err}
	}

	c.logger.Debug("query executed",
		"query", q.Text,
		"kind", string(q.Kind),
		"hits", len(hits),
		"duration", time.Since(start),
	)

	return hits, nil
}
