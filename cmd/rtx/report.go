package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rtxscan/rtx/internal/advisory"
	"github.com/rtxscan/rtx/internal/depmodel"
	"github.com/rtxscan/rtx/internal/policy"
	"github.com/rtxscan/rtx/internal/renderer"
	"github.com/rtxscan/rtx/internal/report"
)

// storedReport mirrors the persisted JSON report shape closely enough to
// recover a report.Report for re-rendering. signal_summary is not read:
// it is derived from the findings again at render time. report.New
// derives Stats from the findings but cannot know the graph counts, so the
// stored stats block is restored over it as a whole.
type storedReport struct {
	Summary struct {
		Path        string   `json:"path"`
		Managers    []string `json:"managers"`
		GeneratedAt string   `json:"generated_at"`
	} `json:"summary"`
	Findings []struct {
		Ecosystem  string               `json:"ecosystem"`
		Name       string               `json:"name"`
		Version    string               `json:"version"`
		Direct     bool                 `json:"direct"`
		Manifest   string               `json:"manifest"`
		Metadata   map[string]any       `json:"metadata"`
		Score      float64              `json:"score"`
		Advisories []advisory.Advisory  `json:"advisories"`
		Signals    []policy.TrustSignal `json:"signals"`
	} `json:"findings"`
	Stats report.Stats `json:"stats"`
}

// cmdReport re-renders a previously generated JSON report file in a
// different format. A read or parse failure returns the dedicated exit
// code reserved for report-file errors.
func cmdReport(ctx context.Context, cfg envConfig, args []string) int {
	fs := flag.NewFlagSet("rtx report", flag.ContinueOnError)
	input := fs.String("input", "", "path to a previously generated JSON report file")
	format := fs.String("format", "table", "output format: table|html")
	output := fs.String("output", "", "output file path; defaults to stdout for table")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *input == "" {
		fmt.Fprintln(os.Stderr, "rtx: report requires -input")
		return 2
	}

	data, err := os.ReadFile(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rtx: reading report file: %v\n", err)
		return 4
	}

	rep, err := decodeReport(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rtx: parsing report file: %v\n", err)
		return 4
	}

	var renderErr error
	switch *format {
	case "html":
		if *output == "" {
			fmt.Fprintln(os.Stderr, "rtx: -output is required for html format")
			return 2
		}
		f, err := createAtomic(*output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "rtx: %v\n", err)
			return 2
		}
		defer f.close()
		renderErr = renderer.HTML(f.w, rep)
	default:
		if *output != "" && *output != "-" {
			f, err := createAtomic(*output)
			if err != nil {
				fmt.Fprintf(os.Stderr, "rtx: %v\n", err)
				return 2
			}
			defer f.close()
			renderErr = renderer.Table(f.w, rep)
		} else {
			renderErr = renderer.Table(os.Stdout, rep)
		}
	}
	if renderErr != nil {
		fmt.Fprintf(os.Stderr, "rtx: %v\n", renderErr)
		return 2
	}
	return rep.ExitCode()
}

func decodeReport(data []byte) (report.Report, error) {
	var stored storedReport
	if err := json.Unmarshal(data, &stored); err != nil {
		return report.Report{}, err
	}

	findings := make([]policy.Finding, 0, len(stored.Findings))
	for _, jf := range stored.Findings {
		findings = append(findings, policy.Finding{
			Dependency: depmodel.Dependency{
				Ecosystem: jf.Ecosystem,
				Name:      jf.Name,
				Version:   jf.Version,
				Direct:    jf.Direct,
				Manifest:  jf.Manifest,
				Metadata:  jf.Metadata,
			},
			Advisories: jf.Advisories,
			Signals:    jf.Signals,
			Score:      jf.Score,
		})
	}

	generatedAt, _ := time.Parse(time.RFC3339, stored.Summary.GeneratedAt)
	rep := report.New(stored.Summary.Path, stored.Summary.Managers, findings, generatedAt)
	rep.Stats = stored.Stats
	return rep, nil
}
