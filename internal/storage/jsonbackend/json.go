package jsonbackend

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/FranksOps/domscout/internal/storage"
)

// ensure jsonBackend implements storage.Backend
var _ storage.Backend = (*jsonBackend)(nil)

type jsonBackend struct {
	mu   sync.Mutex
	file *os.File
}

type record struct {
	ID         string    `json:"id"`
	Domain     string    `json:"domain"`
	Status     string    `json:"status"`
	Detail     string    `json:"detail,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	CheckedAt  time.Time `json:"checked_at"`
}

// New creates a new NDJSON-backed storage.Backend.
func New(filePath string) (storage.Backend, error) {
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("json backend: %w", err)
	}

	return &jsonBackend{
		file: f,
	}, nil
}

func (b *jsonBackend) Checkpoint(ctx context.Context, results []storage.ProbeResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.file.Truncate(0); err != nil {
		return fmt.Errorf("json backend: %w", err)
	}
	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("json backend: %w", err)
	}

	w := bufio.NewWriter(b.file)
	enc := json.NewEncoder(w)
	for _, r := range results {
		rec := record{
			ID:         r.ID,
			Domain:     r.Domain,
			Status:     r.Status.String(),
			Detail:     r.Detail,
			DurationMS: r.Duration.Milliseconds(),
			CheckedAt:  r.CheckedAt,
		}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("json backend: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("json backend: %w", err)
	}

	return b.file.Sync()
}

func (b *jsonBackend) Load(ctx context.Context) ([]storage.ProbeResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Seek to the beginning of the file to read all entries
	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("json backend: %w", err)
	}

	scanner := bufio.NewScanner(b.file)
	results := []storage.ProbeResult{}

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("json backend: %w", err)
		}
		status, err := storage.ParseStatus(rec.Status)
		if err != nil {
			return nil, fmt.Errorf("json backend: %w", err)
		}

		results = append(results, storage.ProbeResult{
			ID:        rec.ID,
			Domain:    rec.Domain,
			Status:    status,
			Detail:    rec.Detail,
			Duration:  time.Duration(rec.DurationMS) * time.Millisecond,
			CheckedAt: rec.CheckedAt,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("json backend: %w", err)
	}

	return results, nil
}

func (b *jsonBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
