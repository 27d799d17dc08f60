package report

import (
	"time"

	"github.com/google/uuid"
	"github.com/numdox/numdox/internal/phone"
)

// Status summarizes how a number's scan went.
type Status string

const (
	// StatusOK means every query for the number succeeded.
	StatusOK Status = "ok"
	// StatusPartial means at least one query succeeded and at least one failed.
	StatusPartial Status = "partial"
	// StatusFailed means validation failed or every query failed.
	StatusFailed Status = "failed"
	// StatusCancelled means the scan was stopped before or during this number.
	StatusCancelled Status = "cancelled"
)

// Hit is one deduplicated web mention of a scanned number.
type Hit struct {
	Query   string `json:"query"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	// Confirmed is set when a searched number variant appears verbatim in
	// the title or snippet.
	Confirmed  bool `json:"confirmed"`
	MatchCount int  `json:"match_count"`
}

// Key identifies a hit for deduplication. Two hits are the same when URL and
// title match exactly, case-sensitive.
func (h Hit) Key() string {
	return h.URL + "\x00" + h.Title
}

// QueryOutcome records how one query fared, in emission order.
type QueryOutcome struct {
	Query string `json:"query"`
	Kind  string `json:"kind"`
	Hits  int    `json:"hits"`
	// Error is empty on success, otherwise the failure description.
	Error string `json:"error,omitempty"`
}

// NumberReport holds everything discovered about one input number.
// Hits are unique by (URL, title) and ordered by discovery; their count
// never exceeds the configured per-number maximum.
type NumberReport struct {
	ID            string         `json:"id"`
	Raw           string         `json:"raw"`
	E164          string         `json:"e164"`
	International string         `json:"international"`
	Region        string         `json:"region"`
	Valid         bool           `json:"valid"`
	Status        Status         `json:"status"`
	Hits          []Hit          `json:"hits"`
	Queries       []QueryOutcome `json:"queries,omitempty"`
	// Error carries the validation failure for invalid numbers.
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
}

// NewNumberReport creates a report shell for a target with a fresh ID.
func NewNumberReport(t phone.Target) NumberReport {
	return NumberReport{
		ID:            uuid.New().String(),
		Raw:           t.Raw,
		E164:          t.E164,
		International: t.International,
		Region:        t.Region,
		Valid:         t.Valid,
		StartedAt:     time.Now().UTC(),
	}
}

// ScanReport is the ordered result of one scan run: one NumberReport per
// input number, in input order, no number ever dropped.
type ScanReport struct {
	ID         string         `json:"id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Numbers    []NumberReport `json:"numbers"`
}

// NewScanReport creates an empty scan report with a fresh ID.
func NewScanReport() ScanReport {
	return ScanReport{
		ID:        uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}
}

// TotalHits sums deduplicated hits across all numbers.
func (r ScanReport) TotalHits() int {
	n := 0
	for _, nr := range r.Numbers {
		n += len(nr.Hits)
	}
	return n
}
