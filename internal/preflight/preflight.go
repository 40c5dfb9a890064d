// Package preflight fetches a registrar lookup page over plain HTTP and
// reports whether its markup still carries the result markers the browser
// prober depends on.
package preflight

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/FranksOps/domscout/internal/probe"
)

// maxBody caps how much of the lookup page is read.
const maxBody = 4 << 20

// Config provides parameters for a preflight check.
type Config struct {
	Registrar probe.Registrar
	Candidate string
	UserAgent string
	Client    *http.Client
	Logger    *slog.Logger
}

// Report is the outcome of a preflight check.
type Report struct {
	URL               string
	StatusCode        int
	Title             string
	AvailableMarker   bool
	UnavailableMarker bool
	// Challenge names the bot-protection vendor whose challenge page was
	// served, if any.
	Challenge string
	Duration  time.Duration
}

// OK reports whether the page can be probed: both markers are present and no
// challenge was served.
func (r *Report) OK() bool {
	return r.Challenge == "" && r.AvailableMarker && r.UnavailableMarker
}

// Problems lists what is wrong with the page in plain words.
func (r *Report) Problems() []string {
	var out []string
	if r.Challenge != "" {
		out = append(out, fmt.Sprintf("%s challenge served (status %d)", r.Challenge, r.StatusCode))
	}
	if !r.AvailableMarker {
		out = append(out, "available marker not found in markup")
	}
	if !r.UnavailableMarker {
		out = append(out, "unavailable marker not found in markup")
	}
	return out
}

// Check fetches the lookup page for cfg.Candidate and inspects it. It returns
// an error only if the page could not be fetched or parsed.
func Check(ctx context.Context, cfg Config) (*Report, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}

	target, err := cfg.Registrar.LookupURL(cfg.Candidate)
	if err != nil {
		return nil, fmt.Errorf("preflight: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("preflight: %w", err)
	}
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "id-ID,id;q=0.9,en-US;q=0.8,en;q=0.7")

	start := time.Now()
	logger.Debug("fetching lookup page", "url", target)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("preflight: fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("preflight: read body: %w", err)
	}

	report := &Report{
		URL:        target,
		StatusCode: resp.StatusCode,
		Challenge:  DetectChallenge(resp.StatusCode, resp.Header, body, DefaultDetectors()),
		Duration:   time.Since(start),
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("preflight: parse html: %w", err)
	}
	report.Title = strings.TrimSpace(doc.Find("title").First().Text())
	report.AvailableMarker = doc.Find(cfg.Registrar.AvailableSelector).Length() > 0
	report.UnavailableMarker = doc.Find(cfg.Registrar.UnavailableSelector).Length() > 0

	logger.Info("preflight finished",
		"url", target,
		"status", report.StatusCode,
		"available_marker", report.AvailableMarker,
		"unavailable_marker", report.UnavailableMarker,
		"challenge", report.Challenge,
		"duration", report.Duration,
	)

	return report, nil
}
