package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/numdox/numdox/internal/history"
	"github.com/numdox/numdox/internal/report"
)

func TestSQLiteBackend(t *testing.T) {
	dsn := "file::memory:?cache=shared"
	b, err := New(dsn)
	if err != nil {
		t.Fatalf("Failed to create SQLite backend: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	nr := &report.NumberReport{
		ID:            "test1234",
		Raw:           "+34911234567",
		E164:          "+34911234567",
		International: "+34 911 23 45 67",
		Region:        "ES",
		Valid:         true,
		Status:        report.StatusPartial,
		Hits: []report.Hit{
			{Query: `"+34911234567"`, Title: "Spam listing", URL: "https://example.com/1", Snippet: "reported", Confirmed: true, MatchCount: 2},
		},
		Queries: []report.QueryOutcome{
			{Query: `"+34911234567"`, Kind: "exact", Hits: 1},
			{Query: `"+34911234567" facebook`, Kind: "variant", Error: "backend refused"},
		},
		StartedAt: now,
		Duration:  1500 * time.Millisecond,
	}

	if err := b.Save(ctx, "scan-abc", nr); err != nil {
		t.Fatalf("Failed to save report: %v", err)
	}

	entries, err := b.Query(ctx, history.Filter{E164: "+34911234567"})
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}

	got := entries[0]
	if got.ScanID != "scan-abc" {
		t.Errorf("Expected scan ID scan-abc, got %s", got.ScanID)
	}
	if got.Report.ID != nr.ID {
		t.Errorf("Expected ID %s, got %s", nr.ID, got.Report.ID)
	}
	if got.Report.Status != report.StatusPartial {
		t.Errorf("Expected status partial, got %s", got.Report.Status)
	}
	if got.Report.International != nr.International {
		t.Errorf("Expected international %s, got %s", nr.International, got.Report.International)
	}
	if len(got.Report.Hits) != 1 || !got.Report.Hits[0].Confirmed || got.Report.Hits[0].MatchCount != 2 {
		t.Errorf("Hits not round-tripped: %+v", got.Report.Hits)
	}
	if len(got.Report.Queries) != 2 || got.Report.Queries[1].Error != "backend refused" {
		t.Errorf("Query outcomes not round-tripped: %+v", got.Report.Queries)
	}
	if got.Report.Duration.Milliseconds() != nr.Duration.Milliseconds() {
		t.Errorf("Expected duration %v, got %v", nr.Duration, got.Report.Duration)
	}
	if got.Report.StartedAt.Unix() != nr.StartedAt.Unix() {
		t.Errorf("Expected started at %v, got %v", nr.StartedAt, got.Report.StartedAt)
	}

	// Status filter
	failed, err := b.Query(ctx, history.Filter{Status: "failed"})
	if err != nil {
		t.Fatalf("Failed to query by status: %v", err)
	}
	if len(failed) != 0 {
		t.Errorf("Expected 0 failed entries, got %d", len(failed))
	}

	// Since filter
	past := now.Add(-time.Hour)
	recent, err := b.Query(ctx, history.Filter{Since: &past})
	if err != nil {
		t.Fatalf("Failed to query with Since: %v", err)
	}
	if len(recent) != 1 {
		t.Errorf("Expected 1 recent entry, got %d", len(recent))
	}
}

func TestSQLiteBackend_OrderAndLimit(t *testing.T) {
	b, err := New("file::memory:?cache=shared&test=order")
	if err != nil {
		t.Fatalf("Failed to create SQLite backend: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	for i, id := range []string{"r1", "r2", "r3"} {
		nr := &report.NumberReport{
			ID:        id,
			Raw:       "+34911234567",
			E164:      "+34911234567",
			Valid:     true,
			Status:    report.StatusOK,
			StartedAt: time.Now().UTC().Add(time.Duration(i) * time.Second),
		}
		if err := b.Save(ctx, "scan-1", nr); err != nil {
			t.Fatalf("Failed to save report %s: %v", id, err)
		}
		// Distinct created_at timestamps so ordering is deterministic.
		time.Sleep(5 * time.Millisecond)
	}

	entries, err := b.Query(ctx, history.Filter{Limit: 2})
	if err != nil {
		t.Fatalf("Failed to query with limit: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Report.ID != "r3" {
		t.Errorf("Expected most recent entry first, got %s", entries[0].Report.ID)
	}

	// Offset with no limit must still be valid SQL.
	skipped, err := b.Query(ctx, history.Filter{Offset: 1})
	if err != nil {
		t.Fatalf("Failed to query with offset only: %v", err)
	}
	if len(skipped) != 2 {
		t.Fatalf("Expected 2 entries after offset 1, got %d", len(skipped))
	}
	if skipped[0].Report.ID != "r2" {
		t.Errorf("Expected r2 first after offset, got %s", skipped[0].Report.ID)
	}
}

func TestSQLiteBackend_OffsetPastEnd(t *testing.T) {
	b, err := New("file::memory:?cache=shared&test=offset")
	if err != nil {
		t.Fatalf("Failed to create SQLite backend: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	nr := &report.NumberReport{
		ID:        "only",
		Raw:       "+34911234567",
		E164:      "+34911234567",
		Valid:     true,
		Status:    report.StatusOK,
		StartedAt: time.Now().UTC(),
	}
	if err := b.Save(ctx, "scan-1", nr); err != nil {
		t.Fatalf("Failed to save report: %v", err)
	}

	entries, err := b.Query(ctx, history.Filter{Offset: 5})
	if err != nil {
		t.Fatalf("Failed to query with offset: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected 0 entries past the end, got %d", len(entries))
	}
}
