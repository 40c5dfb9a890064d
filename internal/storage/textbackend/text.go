package textbackend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/FranksOps/domscout/internal/storage"
)

// ensure textBackend implements storage.Backend
var _ storage.Backend = (*textBackend)(nil)

const separator = " | "

type textBackend struct {
	mu   sync.Mutex
	path string
}

// New creates a storage.Backend that keeps results in a plain text file,
// one "<domain> | <status>" line per result.
func New(filePath string) (storage.Backend, error) {
	if filePath == "" {
		return nil, errors.New("text backend: empty file path")
	}
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("text backend: %w", err)
	}
	return &textBackend{path: filePath}, nil
}

// Encode serializes results in result-file format. Lines are joined with
// '\n' and there is no trailing newline.
func Encode(results []storage.ProbeResult) []byte {
	var buf bytes.Buffer
	for i, r := range results {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(r.Line())
	}
	return buf.Bytes()
}

// Checkpoint rewrites the whole file. The new content is written to a
// sibling temp file first and renamed over the target, so a crash mid-write
// leaves the previous checkpoint intact.
func (b *textBackend) Checkpoint(ctx context.Context, results []storage.ProbeResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data := Encode(results)

	b.mu.Lock()
	defer b.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(b.path), "."+filepath.Base(b.path)+".*")
	if err != nil {
		return fmt.Errorf("text backend: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("text backend: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("text backend: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("text backend: %w", err)
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		return fmt.Errorf("text backend: %w", err)
	}
	return nil
}

// Load parses a previously written result file. A missing file is an empty
// result set. Only domain and status survive the text format.
func (b *textBackend) Load(ctx context.Context) ([]storage.ProbeResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return []storage.ProbeResult{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("text backend: %w", err)
	}

	var results []storage.ProbeResult
	for n, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		idx := strings.LastIndex(line, separator)
		if idx < 0 {
			return nil, fmt.Errorf("text backend: line %d: missing separator", n+1)
		}
		status, err := storage.ParseStatus(line[idx+len(separator):])
		if err != nil {
			return nil, fmt.Errorf("text backend: line %d: %w", n+1, err)
		}
		results = append(results, storage.ProbeResult{
			Domain: line[:idx],
			Status: status,
		})
	}
	return results, nil
}

func (b *textBackend) Close() error {
	return nil
}
