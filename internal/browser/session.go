// Package browser drives a single Chrome tab over the DevTools protocol.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/FranksOps/domscout/internal/probe"
)

// ensure Session implements probe.Page
var _ probe.Page = (*Session)(nil)

// Options configures the browser process.
type Options struct {
	Headless bool
	// NoSandbox adds --no-sandbox and --disable-setuid-sandbox.
	NoSandbox   bool
	ExecPath    string
	ProxyServer string
	UserAgent   string
	// NavigationTimeout bounds Navigate when the caller's context has no
	// earlier deadline.
	NavigationTimeout time.Duration
	// PollInterval is how often Poll re-evaluates its predicate.
	PollInterval time.Duration
	Logger       *slog.Logger
}

// Session is one browser process with one tab. It is reused for every
// candidate in a run and is not safe for concurrent use.
type Session struct {
	opts Options

	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc

	closeOnce sync.Once
	closeErr  error
}

// Launch starts the browser and opens its tab.
func Launch(ctx context.Context, opts Options) (*Session, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 100 * time.Millisecond
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
	)
	if opts.NoSandbox {
		allocOpts = append(allocOpts,
			chromedp.NoSandbox,
			chromedp.Flag("disable-setuid-sandbox", true),
		)
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.ProxyServer != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.ProxyServer))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)

	logger := opts.Logger
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...), "source", "chromedp")
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...), "source", "chromedp")
		}),
	)

	// The first Run starts the process and attaches to the tab.
	if err := chromedp.Run(tabCtx, page.SetLifecycleEventsEnabled(true)); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	logger.Info("browser launched", "headless", opts.Headless, "no_sandbox", opts.NoSandbox)

	return &Session{
		opts:        opts,
		allocCancel: allocCancel,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
	}, nil
}

// runContext derives a context from the tab that is also cancelled when ctx
// is done.
func (s *Session) runContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(s.tabCtx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(s.tabCtx)
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

// callerErr prefers the caller's context error over err so that deadlines
// and cancellation set by the caller surface unchanged.
func callerErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

// Navigate loads url and returns once the load event has fired and the main
// frame's network has gone almost idle (no more than two open connections).
func (s *Session) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := s.runContext(ctx, s.opts.NavigationTimeout)
	defer cancel()

	var (
		mu     sync.Mutex
		idled  = make(map[cdp.LoaderID]bool)
		notify = make(chan struct{}, 1)
	)
	listenCtx, stopListening := context.WithCancel(runCtx)
	defer stopListening()
	chromedp.ListenTarget(listenCtx, func(ev any) {
		e, ok := ev.(*page.EventLifecycleEvent)
		if !ok || e.Name != "networkAlmostIdle" {
			return
		}
		mu.Lock()
		idled[e.LoaderID] = true
		mu.Unlock()
		select {
		case notify <- struct{}{}:
		default:
		}
	})

	var loader cdp.LoaderID
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			loader = tree.Frame.LoaderID
			return nil
		}),
	)
	if err != nil {
		return callerErr(ctx, fmt.Errorf("navigate %s: %w", url, err))
	}

	for {
		mu.Lock()
		done := idled[loader]
		mu.Unlock()
		if done {
			return nil
		}
		select {
		case <-notify:
		case <-runCtx.Done():
			return callerErr(ctx, fmt.Errorf("wait for network idle: %w", runCtx.Err()))
		}
	}
}

// Sleep pauses for d or until ctx is done.
func (s *Session) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Poll re-evaluates predicate in the page until it is truthy. It returns
// probe.ErrPollTimeout if timeout elapses first.
func (s *Session) Poll(ctx context.Context, predicate string, timeout time.Duration) error {
	runCtx, cancel := s.runContext(ctx, 0)
	defer cancel()

	var ok bool
	err := chromedp.Run(runCtx, chromedp.Poll(predicate, &ok,
		chromedp.WithPollingTimeout(timeout),
		chromedp.WithPollingInterval(s.opts.PollInterval),
	))
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, chromedp.ErrPollingTimeout), errors.Is(err, context.DeadlineExceeded):
		return probe.ErrPollTimeout
	}
	return fmt.Errorf("poll: %w", err)
}

// Evaluate runs a JS expression that yields a boolean.
func (s *Session) Evaluate(ctx context.Context, expr string) (bool, error) {
	runCtx, cancel := s.runContext(ctx, 0)
	defer cancel()

	var res bool
	if err := chromedp.Run(runCtx, chromedp.Evaluate(expr, &res)); err != nil {
		return false, callerErr(ctx, fmt.Errorf("evaluate: %w", err))
	}
	return res, nil
}

// Close closes the tab and then the browser process. Calling it more than
// once is safe.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if err := chromedp.Cancel(s.tabCtx); err != nil && !errors.Is(err, context.Canceled) {
			s.closeErr = fmt.Errorf("close browser: %w", err)
		}
		s.tabCancel()
		s.allocCancel()
		s.opts.Logger.Info("browser closed")
	})
	return s.closeErr
}
