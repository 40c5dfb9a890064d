package csvbackend

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/FranksOps/domscout/internal/storage"
)

// ensure csvBackend implements storage.Backend
var _ storage.Backend = (*csvBackend)(nil)

type csvBackend struct {
	mu   sync.Mutex
	file *os.File
}

// headers defines the CSV column order
var headers = []string{
	"id",
	"domain",
	"status",
	"detail",
	"duration_ms",
	"checked_at",
}

// New creates a new CSV-backed storage.Backend.
func New(filePath string) (storage.Backend, error) {
	// Open read-write, create if it doesn't exist. Existing content is kept
	// until the first checkpoint so it can be loaded for a resume.
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("csv backend: %w", err)
	}

	return &csvBackend{
		file: f,
	}, nil
}

func (b *csvBackend) Checkpoint(ctx context.Context, results []storage.ProbeResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.file.Truncate(0); err != nil {
		return fmt.Errorf("csv backend: %w", err)
	}
	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("csv backend: %w", err)
	}

	w := csv.NewWriter(b.file)
	if err := w.Write(headers); err != nil {
		return fmt.Errorf("csv backend: %w", err)
	}
	for _, r := range results {
		record := []string{
			r.ID,
			r.Domain,
			r.Status.String(),
			r.Detail,
			strconv.FormatInt(r.Duration.Milliseconds(), 10),
			r.CheckedAt.Format(time.RFC3339Nano),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("csv backend: %w", err)
		}
	}
	w.Flush()

	if err := w.Error(); err != nil {
		return fmt.Errorf("csv backend: %w", err)
	}

	return b.file.Sync()
}

func (b *csvBackend) Load(ctx context.Context) ([]storage.ProbeResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Seek to the beginning of the file to read all entries
	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("csv backend: %w", err)
	}

	r := csv.NewReader(b.file)

	// Read headers
	_, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return []storage.ProbeResult{}, nil
		}
		return nil, fmt.Errorf("csv backend: %w", err)
	}

	var results []storage.ProbeResult

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv backend: %w", err)
		}

		if len(record) != len(headers) {
			continue // skip malformed rows
		}

		status, err := storage.ParseStatus(record[2])
		if err != nil {
			return nil, fmt.Errorf("csv backend: %w", err)
		}
		durationMs, _ := strconv.ParseInt(record[4], 10, 64)
		checkedAt, _ := time.Parse(time.RFC3339Nano, record[5])

		results = append(results, storage.ProbeResult{
			ID:        record[0],
			Domain:    record[1],
			Status:    status,
			Detail:    record[3],
			Duration:  time.Duration(durationMs) * time.Millisecond,
			CheckedAt: checkedAt,
		})
	}

	return results, nil
}

func (b *csvBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
