package history

import (
	"context"
	"time"

	"github.com/numdox/numdox/internal/report"
)

// Entry is one persisted number report together with scan metadata.
type Entry struct {
	ScanID    string              `json:"scan_id"`
	CreatedAt time.Time           `json:"created_at"`
	Report    report.NumberReport `json:"report"`
}

// Filter narrows a history query. Zero values mean "no constraint".
type Filter struct {
	E164   string
	Status string
	Since  *time.Time
	Limit  int
	Offset int
}

// Backend persists number reports across scan runs. Implementations return
// entries ordered most recent first.
type Backend interface {
	Save(ctx context.Context, scanID string, nr *report.NumberReport) error
	Query(ctx context.Context, filter Filter) ([]*Entry, error)
	Close() error
}
