package textbackend

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/FranksOps/domscout/internal/storage"
)

func TestTextBackend_CheckpointFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hasil_scrap.txt")

	b, err := New(path)
	if err != nil {
		t.Fatalf("Failed to create text backend: %v", err)
	}
	defer b.Close()

	results := []storage.ProbeResult{
		storage.NewResult("go.top", storage.StatusAvailable, ""),
		storage.NewResult("link.top", storage.StatusError, "navigation failed"),
	}

	if err := b.Checkpoint(context.Background(), results); err != nil {
		t.Fatalf("Checkpoint failed: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read result file: %v", err)
	}
	want := "go.top | tersedia\nlink.top | error"
	if string(got) != want {
		t.Errorf("result file = %q, want %q", got, want)
	}
}

func TestTextBackend_CheckpointOverwritesAndIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "results.txt")

	b, err := New(path)
	if err != nil {
		t.Fatalf("Failed to create text backend: %v", err)
	}
	ctx := context.Background()

	first := []storage.ProbeResult{
		storage.NewResult("a.top", storage.StatusUnavailable, ""),
		storage.NewResult("b.top", storage.StatusUnavailable, ""),
		storage.NewResult("c.top", storage.StatusUnavailable, ""),
	}
	if err := b.Checkpoint(ctx, first); err != nil {
		t.Fatalf("Checkpoint 1 failed: %v", err)
	}

	// A shorter set must fully replace the longer one.
	second := first[:1]
	if err := b.Checkpoint(ctx, second); err != nil {
		t.Fatalf("Checkpoint 2 failed: %v", err)
	}
	once, _ := os.ReadFile(path)
	if string(once) != "a.top | tidak tersedia" {
		t.Fatalf("expected overwrite, got %q", once)
	}

	if err := b.Checkpoint(ctx, second); err != nil {
		t.Fatalf("Checkpoint 3 failed: %v", err)
	}
	twice, _ := os.ReadFile(path)
	if !bytes.Equal(once, twice) {
		t.Errorf("re-serialization not byte-identical: %q vs %q", once, twice)
	}

	// No temp files left behind
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected only the result file, found %d entries", len(entries))
	}
}

func TestTextBackend_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.txt")
	b, err := New(path)
	if err != nil {
		t.Fatalf("Failed to create text backend: %v", err)
	}

	// Missing file is empty
	got, err := b.Load(context.Background())
	if err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no results, got %d", len(got))
	}

	content := "go.top | tersedia\r\nlink.top | tidak tersedia\nfast.top | error\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err = b.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}
	if got[1].Domain != "link.top" || got[1].Status != storage.StatusUnavailable {
		t.Errorf("unexpected second result %+v", got[1])
	}
	if got[2].Status != storage.StatusError {
		t.Errorf("expected error status for fast.top, got %v", got[2].Status)
	}

	if err := os.WriteFile(path, []byte("go.top tersedia"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Load(context.Background()); err == nil {
		t.Errorf("expected error for malformed line")
	}
}
