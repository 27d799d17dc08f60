package osint

import (
	"context"
	"log/slog"
	"time"

	"github.com/numdox/numdox/internal/metrics"
	"github.com/numdox/numdox/internal/phone"
	"github.com/numdox/numdox/internal/query"
	"github.com/numdox/numdox/internal/report"
	"github.com/numdox/numdox/pkg/ratelimit"
)

// Scanner orchestrates a scan over a list of raw phone numbers: validation,
// query building, aggregation, and inter-number pacing. Numbers are
// processed strictly sequentially so the outbound request rate stays a
// single ordered stream.
type Scanner struct {
	validator   *phone.Validator
	builder     *query.Builder
	aggregator  *Aggregator
	numberPacer *ratelimit.Pacer
	logger      *slog.Logger
}

// NewScanner creates a scanner. numberPacer applies the inter-number delay
// before each number after the first; nil disables it. It is distinct from
// (and additive with) the per-query pacing inside the search client.
func NewScanner(validator *phone.Validator, builder *query.Builder, aggregator *Aggregator, numberPacer *ratelimit.Pacer, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		validator:   validator,
		builder:     builder,
		aggregator:  aggregator,
		numberPacer: numberPacer,
		logger:      logger,
	}
}

// Run scans the numbers in input order and returns one NumberReport per
// input, in the same order, no matter how many of them fail. Invalid
// numbers short-circuit to a failed report with zero queries issued.
// Cancellation is cooperative: once the context fires, no new queries go
// out and every remaining number is reported as cancelled, preserving the
// work already done.
func (s *Scanner) Run(ctx context.Context, numbers []string) report.ScanReport {
	sr := report.NewScanReport()
	sr.Numbers = make([]report.NumberReport, 0, len(numbers))

	s.logger.Info("scan started", "scan_id", sr.ID, "numbers", len(numbers))

	for _, raw := range numbers {
		if ctx.Err() != nil {
			sr.Numbers = append(sr.Numbers, s.cancelledReport(raw))
			continue
		}

		target, err := s.validator.Validate(raw)
		if err != nil {
			nr := report.NewNumberReport(target)
			nr.Status = report.StatusFailed
			nr.Error = err.Error()
			sr.Numbers = append(sr.Numbers, nr)
			metrics.RecordNumber(string(nr.Status), 0)
			s.logger.Warn("number rejected", "raw", raw, "err", err)
			continue
		}

		queries, err := s.builder.Build(target)
		if err != nil {
			nr := report.NewNumberReport(target)
			nr.Status = report.StatusFailed
			nr.Error = err.Error()
			sr.Numbers = append(sr.Numbers, nr)
			metrics.RecordNumber(string(nr.Status), 0)
			continue
		}

		// Inter-number pacing, applied only to numbers that will actually
		// issue queries. Rejected inputs cost no network calls, so they
		// must not charge a delay against the next number either. The
		// pacer's first call is free.
		if err := s.numberPacer.Wait(ctx); err != nil {
			nr := report.NewNumberReport(target)
			nr.Status = report.StatusCancelled
			sr.Numbers = append(sr.Numbers, nr)
			metrics.RecordNumber(string(nr.Status), 0)
			continue
		}

		s.logger.Info("scanning number",
			"number", target.E164,
			"region", target.Region,
			"queries", len(queries),
		)

		nr := s.aggregator.Run(ctx, target, queries)
		sr.Numbers = append(sr.Numbers, nr)

		s.logger.Info("number done",
			"number", target.E164,
			"status", string(nr.Status),
			"hits", len(nr.Hits),
		)
	}

	sr.FinishedAt = time.Now().UTC()
	s.logger.Info("scan finished",
		"scan_id", sr.ID,
		"numbers", len(sr.Numbers),
		"hits", sr.TotalHits(),
		"duration", sr.FinishedAt.Sub(sr.StartedAt),
	)
	return sr
}

func (s *Scanner) cancelledReport(raw string) report.NumberReport {
	nr := report.NewNumberReport(phone.Target{Raw: raw})
	nr.Status = report.StatusCancelled
	metrics.RecordNumber(string(nr.Status), 0)
	return nr
}
