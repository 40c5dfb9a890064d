package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/FranksOps/domscout/internal/config"
	"github.com/FranksOps/domscout/internal/logging"
)

var (
	v       = config.New()
	cfgFile string

	cfg       *config.Config
	logger    *slog.Logger
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "domscout",
	Short: "domscout checks domain availability through a registrar's web lookup.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(v, cfgFile)
		if err != nil {
			return err
		}

		logger, logCloser, err = logging.New(cfg.Log, os.Stdout)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default ./domscout.yaml if present).")
	pf.String("log-file", "", "Append log lines to this file.")
	pf.String("log-level", "", "Log level: debug, info, warn or error.")
	pf.Bool("no-color", false, "Disable colored console output.")

	pf.String("backend", "", "Result store: text, csv, json, sqlite or postgres.")
	pf.StringP("output", "o", "", "Result file path (database file for sqlite).")
	pf.String("dsn", "", "Postgres connection string for the postgres backend.")

	pf.String("proxy", "", "Proxy server, e.g. socks5://127.0.0.1:1080.")
	pf.String("user-agent", "", "Override the user agent.")

	mustBind("log.file", pf.Lookup("log-file"))
	mustBind("log.level", pf.Lookup("log-level"))
	mustBind("log.no_color", pf.Lookup("no-color"))
	mustBind("output.backend", pf.Lookup("backend"))
	mustBind("output.path", pf.Lookup("output"))
	mustBind("output.dsn", pf.Lookup("dsn"))
	mustBind("browser.proxy", pf.Lookup("proxy"))
	mustBind("browser.user_agent", pf.Lookup("user-agent"))
}

// ExecuteContext runs the CLI and returns the process exit code.
func ExecuteContext(ctx context.Context) int {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		if logger != nil {
			logger.Error("Fatal error: " + err.Error())
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
	}
	if logCloser != nil {
		_ = logCloser.Close()
		logCloser = nil
	}
	if err != nil {
		return 1
	}
	return 0
}
