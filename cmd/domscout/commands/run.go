package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/FranksOps/domscout/internal/browser"
	"github.com/FranksOps/domscout/internal/candidate"
	"github.com/FranksOps/domscout/internal/config"
	"github.com/FranksOps/domscout/internal/metrics"
	"github.com/FranksOps/domscout/internal/probe"
	"github.com/FranksOps/domscout/internal/runner"
	"github.com/FranksOps/domscout/internal/storage"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Checks every candidate domain and writes the results.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChecks(cmd.Context(), cfg)
	},
}

func init() {
	f := runCmd.Flags()
	f.String("names-file", "", "Read candidate names from this file instead of the built-in table.")
	f.String("tld", "", "TLD appended to every name.")
	f.Bool("triples", false, "Also check every three-letter name from aaa to zzz first.")

	f.Int("checkpoint-every", 0, "Save results after every N candidates.")
	f.Bool("resume", false, "Skip candidates already recorded in the result store.")

	f.Bool("headless", false, "Run the browser without a window.")
	f.Bool("no-sandbox", true, "Launch the browser with --no-sandbox and --disable-setuid-sandbox.")
	f.String("chrome-path", "", "Path to the Chrome or Chromium binary.")

	f.Duration("nav-timeout", 0, "Navigation timeout per candidate.")
	f.Duration("settle", 0, "Pause after navigation before polling for the result.")
	f.Duration("poll-timeout", 0, "How long to wait for a result marker.")

	f.String("metrics-addr", "", "Expose Prometheus metrics on this address, e.g. :9090.")

	for key, name := range map[string]string{
		"names.file":              "names-file",
		"names.tld":               "tld",
		"names.triples":           "triples",
		"output.checkpoint_every": "checkpoint-every",
		"output.resume":           "resume",
		"browser.headless":        "headless",
		"browser.no_sandbox":      "no-sandbox",
		"browser.exec_path":       "chrome-path",
		"timing.navigation":       "nav-timeout",
		"timing.settle":           "settle",
		"timing.poll":             "poll-timeout",
		"metrics.addr":            "metrics-addr",
	} {
		mustBind(key, f.Lookup(name))
	}

	rootCmd.AddCommand(runCmd)
}

// buildCandidates produces the ordered candidate list from the names settings.
func buildCandidates(nc config.NamesConfig) ([]string, error) {
	names := candidate.DefaultNames()
	if nc.File != "" {
		var err error
		names, err = candidate.LoadFile(nc.File)
		if err != nil {
			return nil, err
		}
	}

	g := candidate.Generator{Names: names, TLD: nc.TLD, IncludeTriples: nc.Triples}
	return g.Generate(), nil
}

func runChecks(ctx context.Context, cfg *config.Config) error {
	candidates, err := buildCandidates(cfg.Names)
	if err != nil {
		return err
	}

	backend, err := openBackend(ctx, cfg.Output)
	if err != nil {
		return fmt.Errorf("open result store: %w", err)
	}
	defer backend.Close()

	var resumed []storage.ProbeResult
	if cfg.Output.Resume {
		resumed, err = backend.Load(ctx)
		if err != nil {
			return fmt.Errorf("load previous results: %w", err)
		}
	}

	logger.Info("Membuka browser...")
	session, err := browser.Launch(ctx, browser.Options{
		Headless:          cfg.Browser.Headless,
		NoSandbox:         cfg.Browser.NoSandbox,
		ExecPath:          cfg.Browser.ExecPath,
		ProxyServer:       cfg.Browser.Proxy,
		UserAgent:         cfg.Browser.UserAgent,
		NavigationTimeout: cfg.Timing.Navigation,
		Logger:            logger,
	})
	if err != nil {
		return err
	}
	defer session.Close()

	prober := probe.New(session, cfg.Registrar.Registrar(), cfg.Timing.Timing())

	logger.Info("Membuka halaman registrar...")
	if err := prober.Warm(ctx); err != nil {
		return err
	}
	logger.Info("Halaman berhasil dibuka. Memulai checking domain...")

	r := runner.New(runner.Config{CheckpointEvery: cfg.Output.CheckpointEvery}, prober, backend, logger)

	var srv *metrics.Server
	if cfg.Metrics.Addr != "" {
		srv, err = metrics.Start(cfg.Metrics.Addr, logger)
		if err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	done, finish := context.WithCancel(gctx)
	defer finish()

	g.Go(func() error {
		defer finish()
		_, err := r.Run(gctx, candidates, resumed)
		return err
	})
	if srv != nil {
		g.Go(func() error {
			<-done.Done()
			return srv.Stop(context.Background())
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("Hasil disimpan ke: " + resultLocation(cfg.Output))
	return nil
}

func resultLocation(out config.OutputConfig) string {
	if out.Backend == config.BackendPostgres {
		return "postgres table " + out.Table
	}
	return out.Path
}
