// Package probe decides whether a single candidate domain is available by
// reading the registrar's lookup page.
package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/FranksOps/domscout/internal/storage"
)

var (
	// ErrPollTimeout is returned by Page.Poll when the predicate never
	// became true within the timeout.
	ErrPollTimeout = errors.New("timed out waiting for result marker")
	// ErrAmbiguous means both markers, or neither, were shown after the
	// page settled.
	ErrAmbiguous = errors.New("ambiguous result markers")
)

// Prober checks one candidate. A returned error means the caller's context
// was cancelled; every other failure is reported as a StatusError result.
type Prober interface {
	Probe(ctx context.Context, candidate string) (storage.ProbeResult, error)
}

// Page is the slice of a browser tab the prober needs.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Sleep(ctx context.Context, d time.Duration) error
	// Poll re-evaluates predicate until it is true. It returns
	// ErrPollTimeout when timeout elapses first.
	Poll(ctx context.Context, predicate string, timeout time.Duration) error
	Evaluate(ctx context.Context, expr string) (bool, error)
}

// Timing bounds each phase of a probe.
type Timing struct {
	Navigation time.Duration
	Settle     time.Duration
	Poll       time.Duration
	// Grace is added to Poll for the Go-side deadline on the poll, and
	// bounds each marker read.
	Grace time.Duration
}

// DefaultTiming matches the registrar's observed rendering behaviour.
var DefaultTiming = Timing{
	Navigation: 60 * time.Second,
	Settle:     3 * time.Second,
	Poll:       60 * time.Second,
	Grace:      5 * time.Second,
}

// BrowserProber probes candidates through a single long-lived Page.
type BrowserProber struct {
	Page      Page
	Registrar Registrar
	Timing    Timing
}

// ensure BrowserProber implements Prober
var _ Prober = (*BrowserProber)(nil)

// New returns a BrowserProber with zero timing fields filled from DefaultTiming.
func New(page Page, reg Registrar, timing Timing) *BrowserProber {
	if timing.Navigation <= 0 {
		timing.Navigation = DefaultTiming.Navigation
	}
	if timing.Settle <= 0 {
		timing.Settle = DefaultTiming.Settle
	}
	if timing.Poll <= 0 {
		timing.Poll = DefaultTiming.Poll
	}
	if timing.Grace <= 0 {
		timing.Grace = DefaultTiming.Grace
	}
	return &BrowserProber{Page: page, Registrar: reg, Timing: timing}
}

// Warm opens the registrar's lookup page with an empty query so the
// session carries the site's cookies before the first candidate.
func (p *BrowserProber) Warm(ctx context.Context) error {
	target, err := p.Registrar.LookupURL("")
	if err != nil {
		return err
	}

	navCtx, cancel := context.WithTimeout(ctx, p.Timing.Navigation)
	defer cancel()
	if err := p.Page.Navigate(navCtx, target); err != nil {
		return fmt.Errorf("open registrar page: %w", err)
	}
	return nil
}

// Probe navigates to the lookup page for candidate, waits for the page to
// settle and for exactly one verdict marker, then reads it.
func (p *BrowserProber) Probe(ctx context.Context, candidate string) (storage.ProbeResult, error) {
	start := time.Now()

	status, err := p.check(ctx, candidate)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return storage.ProbeResult{}, ctxErr
	}

	var detail string
	if err != nil {
		status = storage.StatusError
		detail = err.Error()
	}

	res := storage.NewResult(candidate, status, detail)
	res.Duration = time.Since(start)
	return res, nil
}

func (p *BrowserProber) check(ctx context.Context, candidate string) (storage.Status, error) {
	target, err := p.Registrar.LookupURL(candidate)
	if err != nil {
		return storage.StatusError, err
	}

	navCtx, cancel := context.WithTimeout(ctx, p.Timing.Navigation)
	err = p.Page.Navigate(navCtx, target)
	cancel()
	if err != nil {
		return storage.StatusError, fmt.Errorf("navigate: %w", err)
	}

	if err := p.Page.Sleep(ctx, p.Timing.Settle); err != nil {
		return storage.StatusError, fmt.Errorf("settle: %w", err)
	}

	pollCtx, cancel := context.WithTimeout(ctx, p.Timing.Poll+p.Timing.Grace)
	err = p.Page.Poll(pollCtx, p.Registrar.verdictExpr(), p.Timing.Poll)
	cancel()
	if err != nil {
		if errors.Is(err, ErrPollTimeout) || (ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded)) {
			return storage.StatusError, ErrPollTimeout
		}
		return storage.StatusError, fmt.Errorf("poll: %w", err)
	}

	available, err := p.read(ctx, p.Registrar.AvailableSelector)
	if err != nil {
		return storage.StatusError, fmt.Errorf("read available marker: %w", err)
	}
	unavailable, err := p.read(ctx, p.Registrar.UnavailableSelector)
	if err != nil {
		return storage.StatusError, fmt.Errorf("read unavailable marker: %w", err)
	}

	switch {
	case available && !unavailable:
		return storage.StatusAvailable, nil
	case unavailable && !available:
		return storage.StatusUnavailable, nil
	}
	return storage.StatusError, ErrAmbiguous
}

// read reports whether the marker matched by selector is shown, giving up
// after Timing.Grace.
func (p *BrowserProber) read(ctx context.Context, selector string) (bool, error) {
	readCtx, cancel := context.WithTimeout(ctx, p.Timing.Grace)
	defer cancel()
	return p.Page.Evaluate(readCtx, shownExpr(selector))
}
