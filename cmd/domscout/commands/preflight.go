package commands

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/FranksOps/domscout/internal/preflight"
)

var (
	preflightCandidate string
	preflightProfile   string
	preflightTimeout   time.Duration
)

var preflightCmd = &cobra.Command{
	Use:   "preflight",
	Short: "Fetches one lookup page over HTTP and checks that the result markers are still there.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var proxyURL *url.URL
		if cfg.Browser.Proxy != "" {
			u, err := url.Parse(cfg.Browser.Proxy)
			if err != nil {
				return fmt.Errorf("proxy: %w", err)
			}
			proxyURL = u
		}

		transport, err := preflight.NewTransport(preflight.TransportConfig{
			Profile: preflight.Profile(preflightProfile),
			Proxy:   proxyURL,
		})
		if err != nil {
			return err
		}
		client, err := preflight.NewClient(preflight.ClientConfig{
			Timeout:      preflightTimeout,
			MaxRedirects: 5,
			Transport:    transport,
		})
		if err != nil {
			return err
		}

		report, err := preflight.Check(cmd.Context(), preflight.Config{
			Registrar: cfg.Registrar.Registrar(),
			Candidate: preflightCandidate,
			UserAgent: cfg.Browser.UserAgent,
			Client:    client,
			Logger:    logger,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "URL:                %s\n", report.URL)
		fmt.Fprintf(out, "Status:             %d\n", report.StatusCode)
		fmt.Fprintf(out, "Title:              %s\n", report.Title)
		fmt.Fprintf(out, "Available marker:   %t\n", report.AvailableMarker)
		fmt.Fprintf(out, "Unavailable marker: %t\n", report.UnavailableMarker)
		if report.Challenge != "" {
			fmt.Fprintf(out, "Challenge:          %s\n", report.Challenge)
		}

		if !report.OK() {
			return fmt.Errorf("preflight failed: %s", strings.Join(report.Problems(), "; "))
		}
		return nil
	},
}

func init() {
	f := preflightCmd.Flags()
	f.StringVar(&preflightCandidate, "candidate", "go.top", "Domain to look up.")
	f.StringVar(&preflightProfile, "profile", string(preflight.ProfileChrome), "TLS fingerprint: chrome, firefox or go.")
	f.DurationVar(&preflightTimeout, "timeout", 30*time.Second, "HTTP timeout.")

	rootCmd.AddCommand(preflightCmd)
}
