// Package renderer provides the two minimal out-of-scope renderers
// (table, HTML) cmd/rtx needs to satisfy the --format flag; the SBOM and
// JSON representations are the specified report artifacts.
package renderer

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rtxscan/rtx/internal/report"
)

// Table writes a human-readable fixed-column summary of a report.
func Table(w io.Writer, rep report.Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COORDINATE\tDIRECT\tVERDICT\tSCORE")
	for _, f := range rep.Findings {
		fmt.Fprintf(tw, "%s\t%v\t%s\t%.2f\n", f.Dependency.Coordinate(), f.Dependency.Direct, f.Verdict(), f.Score)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d findings, exit code %d\n", len(rep.Findings), rep.ExitCode())
	return nil
}
