// Package ndjson stores scan history as newline-delimited JSON, one entry
// per line. It needs no external service and is the default backend.
package ndjson

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/numdox/numdox/internal/history"
	"github.com/numdox/numdox/internal/report"
)

var _ history.Backend = (*ndjsonBackend)(nil)

type ndjsonBackend struct {
	mu   sync.Mutex
	file *os.File
}

// New opens (creating if needed) an append-only history file.
func New(path string) (history.Backend, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("ndjson history: open %s: %w", path, err)
	}
	return &ndjsonBackend{file: f}, nil
}

func (b *ndjsonBackend) Save(ctx context.Context, scanID string, nr *report.NumberReport) error {
	entry := history.Entry{
		ScanID:    scanID,
		CreatedAt: time.Now().UTC(),
		Report:    *nr,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("ndjson history: marshal entry: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("ndjson history: write entry: %w", err)
	}
	return nil
}

func (b *ndjsonBackend) Query(ctx context.Context, filter history.Filter) ([]*history.Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("ndjson history: seek: %w", err)
	}
	defer func() {
		// Restore pointer to end for appends.
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	// Everything is read and filtered in memory; ordering, offset and limit
	// are applied after the fact, which is fine at history-file scale.
	scanner := bufio.NewScanner(b.file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var matched []*history.Entry
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var e history.Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("ndjson history: decode entry: %w", err)
		}

		if filter.E164 != "" && e.Report.E164 != filter.E164 {
			continue
		}
		if filter.Status != "" && string(e.Report.Status) != filter.Status {
			continue
		}
		if filter.Since != nil && e.CreatedAt.Before(*filter.Since) {
			continue
		}

		matched = append(matched, &e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ndjson history: scan file: %w", err)
	}

	// Most recent first.
	for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
		matched[i], matched[j] = matched[j], matched[i]
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []*history.Entry{}, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}

	return matched, nil
}

func (b *ndjsonBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
