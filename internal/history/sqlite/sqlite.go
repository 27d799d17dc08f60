// Package sqlite stores scan history in a local SQLite database. Hit and
// query lists are kept as JSON columns; the filterable fields get their own
// columns.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/numdox/numdox/internal/history"
	"github.com/numdox/numdox/internal/report"
	_ "modernc.org/sqlite"
)

var _ history.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS number_reports (
	id TEXT PRIMARY KEY,
	scan_id TEXT NOT NULL,
	raw TEXT NOT NULL,
	e164 TEXT,
	international TEXT,
	region TEXT,
	valid BOOLEAN NOT NULL,
	status TEXT NOT NULL,
	hits TEXT NOT NULL,
	queries TEXT NOT NULL,
	error TEXT,
	started_at DATETIME NOT NULL,
	duration_ms INTEGER NOT NULL,
	created_at DATETIME NOT NULL
);
`

// New opens a SQLite-backed history at the given DSN and creates the schema
// if missing.
func New(dsn string) (history.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite history: open: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite history: create schema: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Save(ctx context.Context, scanID string, nr *report.NumberReport) error {
	hitsJSON, err := json.Marshal(nr.Hits)
	if err != nil {
		return fmt.Errorf("sqlite history: marshal hits: %w", err)
	}
	queriesJSON, err := json.Marshal(nr.Queries)
	if err != nil {
		return fmt.Errorf("sqlite history: marshal queries: %w", err)
	}

	query := `
	INSERT INTO number_reports (
		id, scan_id, raw, e164, international, region, valid, status, hits, queries, error, started_at, duration_ms, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = b.db.ExecContext(ctx, query,
		nr.ID,
		scanID,
		nr.Raw,
		nr.E164,
		nr.International,
		nr.Region,
		nr.Valid,
		string(nr.Status),
		string(hitsJSON),
		string(queriesJSON),
		nr.Error,
		nr.StartedAt,
		nr.Duration.Milliseconds(),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite history: insert report: %w", err)
	}
	return nil
}

func (b *sqliteBackend) Query(ctx context.Context, filter history.Filter) ([]*history.Entry, error) {
	query := `SELECT id, scan_id, raw, e164, international, region, valid, status, hits, queries, error, started_at, duration_ms, created_at FROM number_reports WHERE 1=1`
	args := []any{}

	if filter.E164 != "" {
		query += ` AND e164 = ?`
		args = append(args, filter.E164)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, *filter.Since)
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		// SQLite rejects OFFSET without LIMIT; -1 means no limit.
		query += ` LIMIT -1`
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite history: query reports: %w", err)
	}
	defer rows.Close()

	var entries []*history.Entry
	for rows.Next() {
		var e history.Entry
		var status string
		var hitsJSON, queriesJSON string
		var durationMs int64

		err := rows.Scan(
			&e.Report.ID, &e.ScanID, &e.Report.Raw, &e.Report.E164, &e.Report.International,
			&e.Report.Region, &e.Report.Valid, &status, &hitsJSON, &queriesJSON,
			&e.Report.Error, &e.Report.StartedAt, &durationMs, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlite history: scan row: %w", err)
		}

		e.Report.Status = report.Status(status)
		e.Report.Duration = time.Duration(durationMs) * time.Millisecond
		if err := json.Unmarshal([]byte(hitsJSON), &e.Report.Hits); err != nil {
			return nil, fmt.Errorf("sqlite history: decode hits: %w", err)
		}
		if err := json.Unmarshal([]byte(queriesJSON), &e.Report.Queries); err != nil {
			return nil, fmt.Errorf("sqlite history: decode queries: %w", err)
		}

		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite history: iterate rows: %w", err)
	}

	return entries, nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
