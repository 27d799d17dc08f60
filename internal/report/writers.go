package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"io"
	"strconv"
	"text/template"
)

// WriteJSON writes the scan report to the provided writer in indented JSON,
// mirroring the report structure field for field.
func WriteJSON(w io.Writer, r ScanReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("report: encode json: %w", err)
	}
	return nil
}

// WriteText writes a human-readable report: one block per number with a
// numbered hit list.
func WriteText(w io.Writer, r ScanReport) error {
	const textTmpl = `Numdox Scan Report
==================
Scan ID:  {{.ID}}
Started:  {{.StartedAt.Format "2006-01-02 15:04:05"}}
Finished: {{.FinishedAt.Format "2006-01-02 15:04:05"}}
Numbers:  {{len .Numbers}}
{{range .Numbers}}
------------------------------------------------------------
Number:   {{if .Valid}}{{.E164}}{{else}}{{.Raw}}{{end}}
{{- if .Valid}}
Region:   {{.Region}}
Intl:     {{.International}}
{{- end}}
Status:   {{.Status}}
{{- if .Error}}
Error:    {{.Error}}
{{- end}}
{{- if .Hits}}
Findings ({{len .Hits}}):
{{- range $i, $h := .Hits}}
  {{inc $i}}. {{$h.Title}}
     Query:   {{$h.Query}}
     URL:     {{$h.URL}}
     Snippet: {{$h.Snippet}}
{{- if $h.Confirmed}}
     Number appears verbatim ({{$h.MatchCount}}x)
{{- end}}
{{- end}}
{{- else}}
No findings.
{{- end}}
{{end}}`

	t, err := template.New("textReport").Funcs(template.FuncMap{
		"inc": func(i int) int { return i + 1 },
	}).Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("report: parse text template: %w", err)
	}

	if err := t.Execute(w, r); err != nil {
		return fmt.Errorf("report: render text: %w", err)
	}
	return nil
}

// csvHeaders defines the CSV column order: one row per hit, flattened.
var csvHeaders = []string{
	"e164",
	"raw",
	"region",
	"international",
	"valid",
	"status",
	"query",
	"title",
	"url",
	"snippet",
	"confirmed",
}

// WriteCSV flattens the report to one row per hit. Numbers with zero hits
// still produce a placeholder row so no number silently disappears from
// tabular output.
func WriteCSV(w io.Writer, r ScanReport) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeaders); err != nil {
		return fmt.Errorf("report: write csv header: %w", err)
	}

	for _, nr := range r.Numbers {
		base := []string{
			nr.E164,
			nr.Raw,
			nr.Region,
			nr.International,
			strconv.FormatBool(nr.Valid),
			string(nr.Status),
		}

		if len(nr.Hits) == 0 {
			row := append(append([]string{}, base...), "", "", "", "", "")
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("report: write csv row: %w", err)
			}
			continue
		}

		for _, h := range nr.Hits {
			row := append(append([]string{}, base...),
				h.Query,
				h.Title,
				h.URL,
				h.Snippet,
				strconv.FormatBool(h.Confirmed),
			)
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("report: write csv row: %w", err)
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("report: flush csv: %w", err)
	}
	return nil
}

// WriteHTML writes a basic standalone HTML report.
func WriteHTML(w io.Writer, r ScanReport) error {
	const htmlTmpl = `<!DOCTYPE html>
<html>
<head>
<title>Numdox Scan Report</title>
<style>
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  .number { margin: 20px 0; padding: 15px; background: #f4f4f4; border-radius: 5px; }
  .status-ok { color: green; }
  .status-partial { color: orange; }
  .status-failed, .status-cancelled { color: red; }
  table { border-collapse: collapse; margin-top: 10px; width: 100%; }
  th, td { padding: 8px 12px; border: 1px solid #ccc; text-align: left; vertical-align: top; }
  th { background: #eaeaea; }
</style>
</head>
<body>
  <h1>Numdox Scan Report</h1>
  <p><strong>Scan:</strong> {{.ID}} &mdash; {{.StartedAt.Format "2006-01-02 15:04:05"}} to {{.FinishedAt.Format "2006-01-02 15:04:05"}}</p>
  <p><strong>Numbers:</strong> {{len .Numbers}} &mdash; <strong>Findings:</strong> {{.TotalHits}}</p>
{{range .Numbers}}
  <div class="number">
    <h3>{{if .Valid}}{{.E164}} ({{.Region}}){{else}}{{.Raw}}{{end}}
      <span class="status-{{.Status}}">[{{.Status}}]</span></h3>
    {{- if .Error}}<p>{{.Error}}</p>{{end}}
    {{- if .Hits}}
    <table>
      <tr><th>Title</th><th>URL</th><th>Snippet</th><th>Query</th></tr>
      {{- range .Hits}}
      <tr><td>{{.Title}}</td><td>{{.URL}}</td><td>{{.Snippet}}</td><td>{{.Query}}</td></tr>
      {{- end}}
    </table>
    {{- else}}
    <p>No findings.</p>
    {{- end}}
  </div>
{{end}}
</body>
</html>
`
	// html/template so scraped titles and snippets are escaped.
	t, err := htmltemplate.New("htmlReport").Parse(htmlTmpl)
	if err != nil {
		return fmt.Errorf("report: parse html template: %w", err)
	}

	if err := t.Execute(w, r); err != nil {
		return fmt.Errorf("report: render html: %w", err)
	}
	return nil
}
