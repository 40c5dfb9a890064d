package storage

import (
	"context"
	"testing"
)

func TestStatus_Labels(t *testing.T) {
	cases := []struct {
		status Status
		label  string
	}{
		{StatusAvailable, "tersedia"},
		{StatusUnavailable, "tidak tersedia"},
		{StatusError, "error"},
	}
	for _, c := range cases {
		if got := c.status.String(); got != c.label {
			t.Errorf("String(%d) = %q, want %q", c.status, got, c.label)
		}
		parsed, err := ParseStatus(c.label)
		if err != nil {
			t.Fatalf("ParseStatus(%q): %v", c.label, err)
		}
		if parsed != c.status {
			t.Errorf("ParseStatus(%q) = %v, want %v", c.label, parsed, c.status)
		}
	}

	if _, err := ParseStatus("maybe"); err == nil {
		t.Errorf("expected error for unknown label")
	}
}

func TestNewResult(t *testing.T) {
	r := NewResult("go.top", StatusAvailable, "")
	if r.ID == "" {
		t.Errorf("expected non-empty UUID")
	}
	if r.CheckedAt.IsZero() {
		t.Errorf("expected CheckedAt to be set")
	}
	if got := r.Line(); got != "go.top | tersedia" {
		t.Errorf("unexpected line %q", got)
	}
}

func TestResultLog_AppendKeepsOrder(t *testing.T) {
	l := NewResultLog(3)
	l.Append(NewResult("a.top", StatusAvailable, ""))
	l.Append(NewResult("b.top", StatusError, "boom"))
	l.Append(NewResult("a.top", StatusUnavailable, ""))

	if l.Len() != 3 {
		t.Fatalf("expected 3 results, got %d", l.Len())
	}

	got := l.Results()
	want := []string{"a.top | tersedia", "b.top | error", "a.top | tidak tersedia"}
	for i, r := range got {
		if r.Line() != want[i] {
			t.Errorf("result %d = %q, want %q", i, r.Line(), want[i])
		}
	}

	// Results hands out a copy
	got[0].Domain = "mutated.top"
	if l.Results()[0].Domain != "a.top" {
		t.Errorf("ResultLog was mutated through Results()")
	}

	c := l.Counts()
	if c.Available != 1 || c.Unavailable != 1 || c.Errors != 1 {
		t.Errorf("unexpected counts %+v", c)
	}
	if c.Total() != l.Len() {
		t.Errorf("counts total %d != len %d", c.Total(), l.Len())
	}
}

// Ensure Backend interface exists and is implementable
type mockBackend struct{}

func (m *mockBackend) Checkpoint(ctx context.Context, results []ProbeResult) error { return nil }
func (m *mockBackend) Load(ctx context.Context) ([]ProbeResult, error) {
	return nil, nil
}
func (m *mockBackend) Close() error { return nil }

func TestBackendInterface(t *testing.T) {
	var b Backend = &mockBackend{}
	_ = b
}
