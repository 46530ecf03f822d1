// # internal/ui/report/runs.go
package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"nekoscript/internal/data/store"
)

// RenderRunsTSV writes one row per run, oldest columns first.
func RenderRunsTSV(runs []store.RunRecord) []byte {
	var buf strings.Builder
	buf.WriteString("ID\tStarted\tMode\tSource\tLines\tEvents\tErrors\tDurationMS\n")
	for _, r := range runs {
		buf.WriteString(fmt.Sprintf("%s\t%s\t%s\t%s\t%d\t%d\t%d\t%.3f\n",
			r.ID,
			r.StartedAt.UTC().Format(time.RFC3339),
			r.Mode,
			r.SourceName,
			r.LineCount,
			r.EventCount,
			r.ErrorCount,
			r.DurationMS,
		))
	}
	return []byte(buf.String())
}

func RenderRunsJSON(runs []store.RunRecord) ([]byte, error) {
	return json.MarshalIndent(runs, "", "  ")
}

// Runs prints a compact table of recent runs.
func (c *Console) Runs(runs []store.RunRecord) {
	if len(runs) == 0 {
		c.Muted("Aucune exécution enregistrée.")
		return
	}
	for _, r := range runs {
		source := r.SourceName
		if source == "" {
			source = "-"
		}
		line := fmt.Sprintf("%s  %-9s  %3d lignes  %3d erreurs  %8.2fms  %s",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Mode, r.LineCount, r.ErrorCount, r.DurationMS, source)
		if r.ErrorCount > 0 {
			fmt.Fprintln(c.w, c.failure.Render(line))
		} else {
			fmt.Fprintln(c.w, c.standard.Render(line))
		}
	}
}
