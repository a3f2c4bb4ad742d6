package annotate

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/phillip-england/shiftrecon/internal/reconcile"
)

//go:embed templates/summary.html
var templatesFS embed.FS

var summaryTmpl = template.Must(template.New("summary.html").Funcs(template.FuncMap{
	"stamp": func(t *time.Time) string { return formatStamp(t) },
	"when":  func(t time.Time) string { return t.Format(stampLayout) },
	"rows":  joinRows,
	"minutes": func(d time.Duration) int {
		return int(d.Minutes())
	},
}).ParseFS(templatesFS, "templates/summary.html"))

// HTML renders a standalone page summarizing the run.
func HTML(report *reconcile.Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := summaryTmpl.Execute(&buf, report); err != nil {
		return nil, fmt.Errorf("render summary: %w", err)
	}
	return buf.Bytes(), nil
}
