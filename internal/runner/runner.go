// Package runner walks a candidate list through a Prober one candidate at a
// time, recording every outcome and checkpointing the results as it goes.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/FranksOps/domscout/internal/metrics"
	"github.com/FranksOps/domscout/internal/probe"
	"github.com/FranksOps/domscout/internal/storage"
)

// DefaultCheckpointEvery is how many candidates pass between checkpoints.
const DefaultCheckpointEvery = 100

// finalCheckpointTimeout bounds the flush after the run context is cancelled.
const finalCheckpointTimeout = 30 * time.Second

// Config provides parameters for a run.
type Config struct {
	// CheckpointEvery triggers a checkpoint after every Nth candidate
	// (1-indexed). A checkpoint also always follows the last candidate.
	CheckpointEvery int
}

// Runner owns the result log of a single run.
type Runner struct {
	cfg     Config
	prober  probe.Prober
	backend storage.Backend
	logger  *slog.Logger
}

// New creates a Runner.
func New(cfg Config, prober probe.Prober, backend storage.Backend, logger *slog.Logger) *Runner {
	if cfg.CheckpointEvery <= 0 {
		cfg.CheckpointEvery = DefaultCheckpointEvery
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		cfg:     cfg,
		prober:  prober,
		backend: backend,
		logger:  logger,
	}
}

// Run probes every candidate in order and returns the full result log.
//
// resumed holds results from an earlier run; the longest in-order prefix of
// it that matches candidates is kept and those candidates are not probed
// again. A probe error or panic never stops the run: the candidate is
// recorded as an error and the loop moves on. Run returns an error only when
// ctx is cancelled or the final checkpoint fails.
func (r *Runner) Run(ctx context.Context, candidates []string, resumed []storage.ProbeResult) (*storage.ResultLog, error) {
	total := len(candidates)
	log := storage.NewResultLog(total)

	prefix := ResumablePrefix(candidates, resumed)
	for _, res := range prefix {
		log.Append(res)
	}
	if len(prefix) > 0 {
		r.logger.Info("resuming from previous results", "resumed", len(prefix))
	}
	metrics.SetProgress(log.Len(), total)

	r.logger.Info(fmt.Sprintf("Total kombinasi domain yang akan dicek: %d", total))

	for i := len(prefix); i < total; i++ {
		if ctx.Err() != nil {
			return log, r.abort(ctx, log)
		}

		domain := candidates[i]
		start := time.Now()
		r.logger.Debug(fmt.Sprintf("Mengecek domain: %s", domain))

		res, err := r.probeOne(ctx, domain)
		if err != nil {
			if ctx.Err() != nil {
				return log, r.abort(ctx, log)
			}
			res = storage.NewResult(domain, storage.StatusError, err.Error())
			res.Duration = time.Since(start)
		}
		if res.Status == storage.StatusError {
			r.logger.Error(fmt.Sprintf("Error untuk domain %s: %s", domain, res.Detail))
		}

		log.Append(res)
		metrics.RecordProbe(res)
		metrics.SetProgress(i+1, total)

		pct := float64(i+1) / float64(total) * 100
		r.logger.Info(fmt.Sprintf("[%d/%d] (%.2f%%) %s", i+1, total, pct, res.Line()))

		if (i+1)%r.cfg.CheckpointEvery == 0 && i+1 < total {
			if err := r.checkpoint(ctx, log); err != nil {
				r.logger.Error("checkpoint failed, continuing", "results", log.Len(), "err", err)
			} else {
				r.logger.Info("Hasil disimpan", "results", log.Len())
			}
		}
	}

	if err := r.checkpoint(ctx, log); err != nil {
		return log, fmt.Errorf("final checkpoint: %w", err)
	}

	r.logger.Info("Semua domain sudah dicek.", "results", log.Len())
	r.logSummary(log.Counts())
	return log, nil
}

// probeOne shields the loop from a panicking prober.
func (r *Runner) probeOne(ctx context.Context, domain string) (res storage.ProbeResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return r.prober.Probe(ctx, domain)
}

func (r *Runner) checkpoint(ctx context.Context, log *storage.ResultLog) error {
	err := r.backend.Checkpoint(ctx, log.Results())
	metrics.RecordCheckpoint(err)
	return err
}

// abort flushes what was gathered before ctx was cancelled and returns the
// context error.
func (r *Runner) abort(ctx context.Context, log *storage.ResultLog) error {
	r.logger.Warn("run interrupted, saving partial results", "results", log.Len())

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalCheckpointTimeout)
	defer cancel()
	if err := r.checkpoint(flushCtx, log); err != nil {
		r.logger.Error("checkpoint after interrupt failed", "results", log.Len(), "err", err)
	}

	r.logSummary(log.Counts())
	return ctx.Err()
}

func (r *Runner) logSummary(c storage.Counts) {
	r.logger.Info("=== RINGKASAN ===")
	r.logger.Info(fmt.Sprintf("Domain Tersedia: %d", c.Available))
	r.logger.Info(fmt.Sprintf("Domain Tidak Tersedia: %d", c.Unavailable))
	r.logger.Info(fmt.Sprintf("Error: %d", c.Errors))
}

// ResumablePrefix returns the leading results of stored whose domains match
// candidates position by position. It stops at the first mismatch.
func ResumablePrefix(candidates []string, stored []storage.ProbeResult) []storage.ProbeResult {
	n := 0
	for n < len(stored) && n < len(candidates) && stored[n].Domain == candidates[n] {
		n++
	}
	return stored[:n]
}
