package osint

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/numdox/numdox/internal/metrics"
	"github.com/numdox/numdox/internal/phone"
	"github.com/numdox/numdox/internal/query"
	"github.com/numdox/numdox/internal/report"
	"github.com/numdox/numdox/internal/search"
)

// DefaultMaxHits is the per-number cap on deduplicated hits.
const DefaultMaxHits = 5

// Aggregator runs a number's query list through a search backend and merges
// the results into one deduplicated, capped NumberReport. Individual query
// failures are recorded, never raised; only cancellation stops it early.
type Aggregator struct {
	searcher search.Searcher
	maxHits  int
	logger   *slog.Logger
}

// NewAggregator creates an aggregator. maxHits <= 0 falls back to
// DefaultMaxHits.
func NewAggregator(searcher search.Searcher, maxHits int, logger *slog.Logger) *Aggregator {
	if maxHits <= 0 {
		maxHits = DefaultMaxHits
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		searcher: searcher,
		maxHits:  maxHits,
		logger:   logger,
	}
}

// Run issues the queries strictly in order, stopping early once the
// deduplicated hit count reaches the cap. Hits are unique by (URL, title),
// first occurrence wins, discovery order preserved. The returned report's
// status is ok/partial/failed per query outcomes, or cancelled if the
// context fired mid-number.
func (a *Aggregator) Run(ctx context.Context, target phone.Target, queries []query.Query) report.NumberReport {
	nr := report.NewNumberReport(target)
	defer func() {
		nr.Duration = time.Since(nr.StartedAt)
	}()

	if !target.Valid {
		nr.Status = report.StatusFailed
		nr.Error = "target not validated"
		metrics.RecordNumber(string(nr.Status), 0)
		return nr
	}

	seen := make(map[string]struct{})
	var succeeded, failed int
	cancelled := false

	for _, q := range queries {
		// No point issuing further queries once the cap is reached.
		if len(nr.Hits) >= a.maxHits {
			break
		}
		if ctx.Err() != nil {
			cancelled = true
			break
		}

		start := time.Now()
		hits, err := a.searcher.Execute(ctx, q)
		elapsed := time.Since(start)

		outcome := report.QueryOutcome{Query: q.Text, Kind: string(q.Kind)}

		if err != nil {
			// The client returns the bare context error when cancellation
			// interrupts pacing; that is a stop signal, not a query failure.
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				cancelled = true
				break
			}

			failed++
			outcome.Error = err.Error()
			nr.Queries = append(nr.Queries, outcome)
			metrics.RecordQuery(string(q.Kind), classifyError(err), elapsed)
			a.logger.Warn("query failed",
				"number", target.E164,
				"query", q.Text,
				"err", err,
			)
			continue
		}

		succeeded++
		kept := 0
		for _, h := range hits {
			if len(nr.Hits) >= a.maxHits {
				break
			}
			rh := report.Hit{
				Query:   h.Query,
				Title:   h.Title,
				URL:     h.URL,
				Snippet: h.Snippet,
			}
			if _, dup := seen[rh.Key()]; dup {
				continue
			}
			seen[rh.Key()] = struct{}{}
			nr.Hits = append(nr.Hits, rh)
			kept++
		}

		outcome.Hits = kept
		nr.Queries = append(nr.Queries, outcome)
		metrics.RecordQuery(string(q.Kind), metrics.OutcomeOK, elapsed)
		a.logger.Debug("query succeeded",
			"number", target.E164,
			"query", q.Text,
			"raw_hits", len(hits),
			"kept", kept,
		)
	}

	switch {
	case cancelled:
		nr.Status = report.StatusCancelled
	case succeeded > 0 && failed == 0:
		nr.Status = report.StatusOK
	case succeeded > 0:
		nr.Status = report.StatusPartial
	default:
		nr.Status = report.StatusFailed
	}

	metrics.RecordNumber(string(nr.Status), len(nr.Hits))
	return nr
}

func classifyError(err error) string {
	var be *search.BackendError
	if errors.As(err, &be) {
		if be.Source != "" {
			return metrics.OutcomeBlocked
		}
		return metrics.OutcomeBackendError
	}
	var pe *search.ParseError
	if errors.As(err, &pe) {
		return metrics.OutcomeParseError
	}
	return metrics.OutcomeBackendError
}
