// Package postgres stores scan history in PostgreSQL, for deployments where
// several operators share one history.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/numdox/numdox/internal/history"
	"github.com/numdox/numdox/internal/report"
)

var _ history.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
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
	hits JSONB NOT NULL,
	queries JSONB NOT NULL,
	error TEXT,
	started_at TIMESTAMPTZ NOT NULL,
	duration_ms BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
`

// New connects to Postgres, verifies the connection and creates the schema
// if missing.
func New(ctx context.Context, dsn string) (history.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres history: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres history: ping: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres history: create schema: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Save(ctx context.Context, scanID string, nr *report.NumberReport) error {
	hitsJSON, err := json.Marshal(nr.Hits)
	if err != nil {
		return fmt.Errorf("postgres history: marshal hits: %w", err)
	}
	queriesJSON, err := json.Marshal(nr.Queries)
	if err != nil {
		return fmt.Errorf("postgres history: marshal queries: %w", err)
	}

	query := `
	INSERT INTO number_reports (
		id, scan_id, raw, e164, international, region, valid, status, hits, queries, error, started_at, duration_ms, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = b.pool.Exec(ctx, query,
		nr.ID,
		scanID,
		nr.Raw,
		nr.E164,
		nr.International,
		nr.Region,
		nr.Valid,
		string(nr.Status),
		hitsJSON,
		queriesJSON,
		nr.Error,
		nr.StartedAt,
		nr.Duration.Milliseconds(),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("postgres history: insert report: %w", err)
	}
	return nil
}

func (b *postgresBackend) Query(ctx context.Context, filter history.Filter) ([]*history.Entry, error) {
	query := `SELECT id, scan_id, raw, e164, international, region, valid, status, hits, queries, error, started_at, duration_ms, created_at FROM number_reports WHERE 1=1`
	args := []any{}
	paramCount := 1

	if filter.E164 != "" {
		query += fmt.Sprintf(` AND e164 = $%d`, paramCount)
		args = append(args, filter.E164)
		paramCount++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, paramCount)
		args = append(args, filter.Status)
		paramCount++
	}
	if filter.Since != nil {
		query += fmt.Sprintf(` AND created_at >= $%d`, paramCount)
		args = append(args, *filter.Since)
		paramCount++
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, paramCount)
		args = append(args, filter.Limit)
		paramCount++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, paramCount)
		args = append(args, filter.Offset)
		paramCount++
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres history: query reports: %w", err)
	}
	defer rows.Close()

	var entries []*history.Entry
	for rows.Next() {
		var e history.Entry
		var status string
		var hitsJSON, queriesJSON []byte
		var durationMs int64

		err := rows.Scan(
			&e.Report.ID, &e.ScanID, &e.Report.Raw, &e.Report.E164, &e.Report.International,
			&e.Report.Region, &e.Report.Valid, &status, &hitsJSON, &queriesJSON,
			&e.Report.Error, &e.Report.StartedAt, &durationMs, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres history: scan row: %w", err)
		}

		e.Report.Status = report.Status(status)
		e.Report.Duration = time.Duration(durationMs) * time.Millisecond
		if err := json.Unmarshal(hitsJSON, &e.Report.Hits); err != nil {
			return nil, fmt.Errorf("postgres history: decode hits: %w", err)
		}
		if err := json.Unmarshal(queriesJSON, &e.Report.Queries); err != nil {
			return nil, fmt.Errorf("postgres history: decode queries: %w", err)
		}

		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres history: iterate rows: %w", err)
	}

	return entries, nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
