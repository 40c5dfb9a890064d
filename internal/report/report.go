package report

import (
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"io"
	"text/template"
	"time"

	"github.com/FranksOps/domscout/internal/storage"
)

// Summary contains aggregated counts about an availability run.
type Summary struct {
	Total            int
	Available        int
	Unavailable      int
	Errors           int
	AvailableDomains []string
	ErrorsByDetail   map[string]int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}

// GenerateSummary processes a slice of probe results to generate summary
// counts. Available+Unavailable+Errors always equals Total.
func GenerateSummary(results []storage.ProbeResult) Summary {
	s := Summary{
		AvailableDomains: []string{},
		ErrorsByDetail:   make(map[string]int),
	}

	if len(results) == 0 {
		return s
	}

	s.StartTime = results[0].CheckedAt
	s.EndTime = results[0].CheckedAt

	for _, r := range results {
		s.Total++
		switch r.Status {
		case storage.StatusAvailable:
			s.Available++
			s.AvailableDomains = append(s.AvailableDomains, r.Domain)
		case storage.StatusUnavailable:
			s.Unavailable++
		default:
			s.Errors++
			detail := r.Detail
			if detail == "" {
				detail = "unknown"
			}
			s.ErrorsByDetail[detail]++
		}

		if r.CheckedAt.IsZero() {
			continue
		}
		if s.StartTime.IsZero() || r.CheckedAt.Before(s.StartTime) {
			s.StartTime = r.CheckedAt
		}
		if r.CheckedAt.After(s.EndTime) {
			s.EndTime = r.CheckedAt
		}
	}

	s.Duration = s.EndTime.Sub(s.StartTime)
	return s
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("write json report: %w", err)
	}
	return nil
}

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	const textTmpl = `=== RINGKASAN ===
Time:                  {{.StartTime.Format "2006-01-02 15:04:05"}} - {{.EndTime.Format "2006-01-02 15:04:05"}}
Duration:              {{.Duration}}
Total:                 {{.Total}}
Domain Tersedia:       {{.Available}}
Domain Tidak Tersedia: {{.Unavailable}}
Error:                 {{.Errors}}

Available Domains:
{{- range .AvailableDomains}}
  {{.}}
{{- else}}
  None
{{- end}}

Errors By Detail:
{{- range $detail, $count := .ErrorsByDetail}}
  {{$detail}}: {{$count}}
{{- else}}
  None
{{- end}}
`

	t, err := template.New("textReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("write text report: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("write text report: %w", err)
	}

	return nil
}

// WriteHTML writes a basic HTML report to the provided writer.
func WriteHTML(w io.Writer, summary Summary) error {
	const htmlTmpl = `<!DOCTYPE html>
<html>
<head>
<title>Domain Availability Report</title>
<style>
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  .stat-card { display: inline-block; padding: 20px; margin: 10px 10px 10px 0; background: #f4f4f4; border-radius: 5px; min-width: 150px; }
  .stat-val { font-size: 24px; font-weight: bold; }
  table { border-collapse: collapse; margin-top: 10px; }
  th, td { padding: 8px 12px; border: 1px solid #ccc; text-align: left; }
  th { background: #eaeaea; }
</style>
</head>
<body>
  <h1>Domain Availability Report</h1>
  <p><strong>Time:</strong> {{.StartTime.Format "2006-01-02 15:04:05"}} to {{.EndTime.Format "2006-01-02 15:04:05"}} ({{.Duration}})</p>

  <div class="stat-card">
    <div>Checked</div>
    <div class="stat-val">{{.Total}}</div>
  </div>
  <div class="stat-card">
    <div>Tersedia</div>
    <div class="stat-val" style="color: green;">{{.Available}}</div>
  </div>
  <div class="stat-card">
    <div>Tidak Tersedia</div>
    <div class="stat-val">{{.Unavailable}}</div>
  </div>
  <div class="stat-card">
    <div>Error</div>
    <div class="stat-val" style="color: {{if gt .Errors 0}}red{{else}}green{{end}};">{{.Errors}}</div>
  </div>

  <h3>Available Domains</h3>
  <table>
    <tr><th>Domain</th></tr>
    {{- range .AvailableDomains}}
    <tr><td>{{.}}</td></tr>
    {{- else}}
    <tr><td>None</td></tr>
    {{- end}}
  </table>

  <h3>Errors By Detail</h3>
  <table>
    <tr><th>Detail</th><th>Count</th></tr>
    {{- range $detail, $count := .ErrorsByDetail}}
    <tr><td>{{$detail}}</td><td>{{$count}}</td></tr>
    {{- else}}
    <tr><td colspan="2">None</td></tr>
    {{- end}}
  </table>
</body>
</html>
`
	t, err := htmltemplate.New("htmlReport").Parse(htmlTmpl)
	if err != nil {
		return fmt.Errorf("write html report: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("write html report: %w", err)
	}

	return nil
}
