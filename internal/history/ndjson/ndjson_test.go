package ndjson

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/numdox/numdox/internal/history"
	"github.com/numdox/numdox/internal/report"
)

func sampleReport(e164 string, status report.Status) *report.NumberReport {
	return &report.NumberReport{
		ID:        e164 + "-id",
		Raw:       e164,
		E164:      e164,
		Region:    "ES",
		Valid:     true,
		Status:    status,
		StartedAt: time.Now().UTC(),
		Hits: []report.Hit{
			{Query: `"` + e164 + `"`, Title: "Hit for " + e164, URL: "https://example.com/" + e164},
		},
	}
}

func TestNDJSONBackend_SaveAndQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.ndjson")
	b, err := New(path)
	if err != nil {
		t.Fatalf("Failed to create NDJSON backend: %v", err)
	}
	defer b.Close()

	ctx := context.Background()

	if err := b.Save(ctx, "scan-1", sampleReport("+34911234567", report.StatusOK)); err != nil {
		t.Fatalf("Failed to save report: %v", err)
	}
	if err := b.Save(ctx, "scan-1", sampleReport("+442079460000", report.StatusFailed)); err != nil {
		t.Fatalf("Failed to save report: %v", err)
	}

	entries, err := b.Query(ctx, history.Filter{})
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	// Most recent first.
	if entries[0].Report.E164 != "+442079460000" {
		t.Errorf("Expected newest entry first, got %s", entries[0].Report.E164)
	}
	if entries[0].ScanID != "scan-1" {
		t.Errorf("Expected scan ID preserved, got %s", entries[0].ScanID)
	}
	if len(entries[0].Report.Hits) != 1 {
		t.Errorf("Expected hits round-tripped, got %d", len(entries[0].Report.Hits))
	}
}

func TestNDJSONBackend_Filters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.ndjson")
	b, err := New(path)
	if err != nil {
		t.Fatalf("Failed to create NDJSON backend: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	_ = b.Save(ctx, "scan-1", sampleReport("+34911234567", report.StatusOK))
	_ = b.Save(ctx, "scan-2", sampleReport("+34911234567", report.StatusPartial))
	_ = b.Save(ctx, "scan-2", sampleReport("+442079460000", report.StatusOK))

	byNumber, err := b.Query(ctx, history.Filter{E164: "+34911234567"})
	if err != nil {
		t.Fatalf("Failed to query by E164: %v", err)
	}
	if len(byNumber) != 2 {
		t.Errorf("Expected 2 entries for number, got %d", len(byNumber))
	}

	byStatus, err := b.Query(ctx, history.Filter{Status: "partial"})
	if err != nil {
		t.Fatalf("Failed to query by status: %v", err)
	}
	if len(byStatus) != 1 {
		t.Errorf("Expected 1 partial entry, got %d", len(byStatus))
	}

	limited, err := b.Query(ctx, history.Filter{Limit: 1})
	if err != nil {
		t.Fatalf("Failed to query with limit: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("Expected 1 entry with limit, got %d", len(limited))
	}

	future := time.Now().UTC().Add(time.Hour)
	none, err := b.Query(ctx, history.Filter{Since: &future})
	if err != nil {
		t.Fatalf("Failed to query with Since: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("Expected 0 future entries, got %d", len(none))
	}
}

func TestNDJSONBackend_OffsetPastEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.ndjson")
	b, err := New(path)
	if err != nil {
		t.Fatalf("Failed to create NDJSON backend: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	_ = b.Save(ctx, "scan-1", sampleReport("+34911234567", report.StatusOK))

	entries, err := b.Query(ctx, history.Filter{Offset: 5})
	if err != nil {
		t.Fatalf("Failed to query with offset: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected 0 entries past the end, got %d", len(entries))
	}
}

func TestNDJSONBackend_QueryAfterSaveInterleaved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.ndjson")
	b, err := New(path)
	if err != nil {
		t.Fatalf("Failed to create NDJSON backend: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	_ = b.Save(ctx, "scan-1", sampleReport("+34911234567", report.StatusOK))

	if _, err := b.Query(ctx, history.Filter{}); err != nil {
		t.Fatalf("Failed first query: %v", err)
	}

	// The file pointer must be back at the end so this append lands after
	// the existing entries.
	_ = b.Save(ctx, "scan-1", sampleReport("+442079460000", report.StatusOK))

	entries, err := b.Query(ctx, history.Filter{})
	if err != nil {
		t.Fatalf("Failed second query: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("Expected 2 entries after interleaved save, got %d", len(entries))
	}
}
