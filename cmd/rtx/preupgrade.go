package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rtxscan/rtx/internal/depmodel"
)

// cmdPreUpgrade evaluates a single dependency at its current and proposed
// versions without running a full project scan, so a developer can check
// a version bump's trust signals before adopting it.
func cmdPreUpgrade(ctx context.Context, cfg envConfig, args []string) int {
	fs := flag.NewFlagSet("rtx pre-upgrade", flag.ContinueOnError)
	ecosystem := fs.String("ecosystem", "", "package ecosystem, e.g. pypi, npm, crates")
	name := fs.String("name", "", "package name")
	from := fs.String("from", "", "current version")
	to := fs.String("to", "", "proposed version")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *ecosystem == "" || *name == "" || *from == "" || *to == "" {
		fmt.Fprintln(os.Stderr, "rtx: pre-upgrade requires -ecosystem, -name, -from, and -to")
		return 2
	}

	orch, resolver, err := buildOrchestrator(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rtx: %v\n", err)
		return 2
	}
	defer resolver.Close()

	before := depmodel.Dependency{Ecosystem: *ecosystem, Name: *name, Version: *from, Direct: true}
	after := depmodel.Dependency{Ecosystem: *ecosystem, Name: *name, Version: *to, Direct: true}

	beforeFinding, err := orch.AnalyzeOne(ctx, before)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rtx: evaluate current version: %v\n", err)
		return 2
	}
	afterFinding, err := orch.AnalyzeOne(ctx, after)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rtx: evaluate proposed version: %v\n", err)
		return 2
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tVERDICT\tSCORE\tADVISORIES\tSIGNALS")
	fmt.Fprintf(tw, "%s (current)\t%s\t%.2f\t%d\t%d\n", *from, beforeFinding.Verdict(), beforeFinding.Score, len(beforeFinding.Advisories), len(beforeFinding.Signals))
	fmt.Fprintf(tw, "%s (proposed)\t%s\t%.2f\t%d\t%d\n", *to, afterFinding.Verdict(), afterFinding.Score, len(afterFinding.Advisories), len(afterFinding.Signals))
	tw.Flush()

	if afterFinding.Verdict() > beforeFinding.Verdict() {
		fmt.Printf("\nwarning: proposed version %s has a higher verdict than %s\n", *to, *from)
	}

	switch afterFinding.Verdict().String() {
	case "CRITICAL", "HIGH":
		return 2
	case "MEDIUM":
		return 1
	default:
		return 0
	}
}
