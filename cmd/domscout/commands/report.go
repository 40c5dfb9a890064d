package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/FranksOps/domscout/internal/report"
)

var (
	reportFormat string
	reportOut    string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarizes the stored results as text, JSON or HTML.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := openBackend(cmd.Context(), cfg.Output)
		if err != nil {
			return fmt.Errorf("open result store: %w", err)
		}
		defer backend.Close()

		results, err := backend.Load(cmd.Context())
		if err != nil {
			return fmt.Errorf("load results: %w", err)
		}
		summary := report.GenerateSummary(results)

		var w io.Writer = cmd.OutOrStdout()
		if reportOut != "" {
			f, err := os.Create(reportOut)
			if err != nil {
				return fmt.Errorf("create report: %w", err)
			}
			defer f.Close()
			w = f
		}

		switch reportFormat {
		case "text":
			err = report.WriteText(w, summary)
		case "json":
			err = report.WriteJSON(w, summary)
		case "html":
			err = report.WriteHTML(w, summary)
		default:
			return fmt.Errorf("unknown report format %q", reportFormat)
		}
		if err != nil {
			return err
		}

		if reportOut != "" {
			logger.Info("report written", "path", reportOut, "format", reportFormat, "results", summary.Total)
		}
		return nil
	},
}

func init() {
	f := reportCmd.Flags()
	f.StringVar(&reportFormat, "format", "text", "Report format: text, json or html.")
	f.StringVar(&reportOut, "report-out", "", "Write the report to this file instead of stdout.")

	rootCmd.AddCommand(reportCmd)
}
