package search

import (
	"context"
	"fmt"

	"github.com/numdox/numdox/internal/query"
)

// Hit is one raw search result parsed from a backend response page.
type Hit struct {
	Query   string `json:"query"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Searcher abstracts a search backend that can execute one query.
// Implementations may scrape HTML result pages or call structured APIs.
type Searcher interface {
	Execute(ctx context.Context, q query.Query) ([]Hit, error)
}

// BackendError reports a network, HTTP, or blocking failure for one query.
// It is never retried by the client; retries are a caller policy.
type BackendError struct {
	Query      string
	StatusCode int
	// Source names the blocking mechanism when the backend served a
	// challenge page instead of results (e.g. "DDGAnomaly", "Cloudflare").
	Source string
	Err    error
}

func (e *BackendError) Error() string {
	switch {
	case e.Source != "":
		return fmt.Sprintf("search: query %q blocked by %s (status %d)", e.Query, e.Source, e.StatusCode)
	case e.StatusCode != 0:
		return fmt.Sprintf("search: query %q failed with status %d", e.Query, e.StatusCode)
	default:
		return fmt.Sprintf("search: query %q failed: %v", e.Query, e.Err)
	}
}

func (e *BackendError) Unwrap() error { return e.Err }

// ParseError reports a response body that could not be interpreted as a
// result page at all. It is non-fatal to a scan: the caller records it and
// moves on with zero hits.
type ParseError struct {
	Query string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("search: query %q returned unparsable response: %v", e.Query, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
