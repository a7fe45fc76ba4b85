package renderer

import (
	"html/template"
	"io"

	"github.com/rtxscan/rtx/internal/report"
)

const htmlTmpl = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>rtx report: {{.Path}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: left; }
tr.verdict-CRITICAL td, tr.verdict-HIGH td { background: #fbe1e1; }
tr.verdict-MEDIUM td { background: #fff6d8; }
</style>
</head>
<body>
<h1>Dependency trust report</h1>
<p>{{.Path}} &mdash; generated {{.GeneratedAt.Format "2006-01-02T15:04:05Z07:00"}}</p>
<p>{{len .Findings}} findings, exit code {{.ExitCode}}</p>
<table>
<tr><th>Coordinate</th><th>Direct</th><th>Verdict</th><th>Score</th><th>Advisories</th><th>Signals</th></tr>
{{range .Findings}}
<tr class="verdict-{{.Verdict}}">
<td>{{.Dependency.Coordinate}}</td>
<td>{{.Dependency.Direct}}</td>
<td>{{.Verdict}}</td>
<td>{{printf "%.2f" .Score}}</td>
<td>{{range .Advisories}}{{.Identifier}} {{end}}</td>
<td>{{range .Signals}}{{.Category}} {{end}}</td>
</tr>
{{end}}
</table>
</body>
</html>
`

// HTML renders rep as a single self-contained HTML document. It is a
// minimal stand-in for a templated report viewer; the persisted JSON
// report is the canonical artifact consumers should parse.
func HTML(w io.Writer, rep report.Report) error {
	tmpl, err := template.New("report").Parse(htmlTmpl)
	if err != nil {
		return err
	}
	data := struct {
		report.Report
		ExitCode int
	}{Report: rep, ExitCode: rep.ExitCode()}
	return tmpl.Execute(w, data)
}
