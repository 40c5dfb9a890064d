package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the tri-state outcome of a single availability probe.
type Status int

const (
	StatusError Status = iota
	StatusAvailable
	StatusUnavailable
)

// Labels written to the result file.
const (
	LabelAvailable   = "tersedia"
	LabelUnavailable = "tidak tersedia"
	LabelError       = "error"
)

func (s Status) String() string {
	switch s {
	case StatusAvailable:
		return LabelAvailable
	case StatusUnavailable:
		return LabelUnavailable
	default:
		return LabelError
	}
}

// ParseStatus maps a result-file label back to its Status.
func ParseStatus(label string) (Status, error) {
	switch label {
	case LabelAvailable:
		return StatusAvailable, nil
	case LabelUnavailable:
		return StatusUnavailable, nil
	case LabelError:
		return StatusError, nil
	}
	return StatusError, fmt.Errorf("unknown status label %q", label)
}

// ProbeResult represents the outcome of probing a single candidate domain.
// It is produced once per candidate and never mutated afterwards.
type ProbeResult struct {
	ID        string
	Domain    string
	Status    Status
	Detail    string // why the probe ended in StatusError, empty otherwise
	Duration  time.Duration
	CheckedAt time.Time
}

// NewResult builds a ProbeResult stamped with a fresh ID and the current time.
func NewResult(domain string, status Status, detail string) ProbeResult {
	return ProbeResult{
		ID:        uuid.New().String(),
		Domain:    domain,
		Status:    status,
		Detail:    detail,
		CheckedAt: time.Now().UTC(),
	}
}

// Line renders the result the way the result file stores it.
func (r ProbeResult) Line() string {
	return r.Domain + " | " + r.Status.String()
}

// Counts tallies results per status.
type Counts struct {
	Available   int
	Unavailable int
	Errors      int
}

// Total is the number of results counted.
func (c Counts) Total() int {
	return c.Available + c.Unavailable + c.Errors
}

// ResultLog is the append-only, ordered record of a run's probe results.
// It is owned by a single run loop and is not safe for concurrent use.
type ResultLog struct {
	results []ProbeResult
}

// NewResultLog returns an empty log with room for n results.
func NewResultLog(n int) *ResultLog {
	return &ResultLog{results: make([]ProbeResult, 0, n)}
}

// Append adds a result to the end of the log.
func (l *ResultLog) Append(r ProbeResult) {
	l.results = append(l.results, r)
}

// Len returns the number of results recorded so far.
func (l *ResultLog) Len() int {
	return len(l.results)
}

// Results returns a copy of the recorded results in insertion order.
func (l *ResultLog) Results() []ProbeResult {
	out := make([]ProbeResult, len(l.results))
	copy(out, l.results)
	return out
}

// Counts tallies the log per status.
func (l *ResultLog) Counts() Counts {
	return CountResults(l.results)
}

// CountResults tallies a slice of results per status.
func CountResults(results []ProbeResult) Counts {
	var c Counts
	for _, r := range results {
		switch r.Status {
		case StatusAvailable:
			c.Available++
		case StatusUnavailable:
			c.Unavailable++
		default:
			c.Errors++
		}
	}
	return c
}

// Backend defines the interface for persisting a run's results.
//
// Checkpoint replaces whatever the backend held with the full result set,
// so writing the same results twice leaves identical content behind.
type Backend interface {
	Checkpoint(ctx context.Context, results []ProbeResult) error
	Load(ctx context.Context) ([]ProbeResult, error)
	Close() error
}
