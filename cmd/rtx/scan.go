package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/quay/zlog"

	"github.com/rtxscan/rtx/internal/errs"
	"github.com/rtxscan/rtx/internal/renderer"
	"github.com/rtxscan/rtx/internal/report"
	"github.com/rtxscan/rtx/internal/sbom"
)

// cmdScan implements the scan subcommand: walk root, run scanners, fetch
// advisories, run policy analysis, and render the resulting report.
func cmdScan(ctx context.Context, cfg envConfig, args []string) int {
	fs := flag.NewFlagSet("rtx scan", flag.ContinueOnError)
	format := fs.String("format", "table", "output format: table|json|html|sbom")
	output := fs.String("output", "", "output file path; \"-\" streams to stdout; required for json/html/sbom")
	managers := fs.String("managers", "", "comma-separated list of scanner names or aliases to force-run")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	root := "."
	if fs.NArg() > 0 {
		root = fs.Arg(0)
	}

	var managerList []string
	if *managers != "" {
		for _, m := range strings.Split(*managers, ",") {
			if m = strings.TrimSpace(m); m != "" {
				managerList = append(managerList, m)
			}
		}
	}

	orch, resolver, err := buildOrchestrator(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rtx: %v\n", err)
		return 2
	}
	defer resolver.Close()

	rep, err := orch.Scan(ctx, root, managerList)
	if err != nil {
		var rtxErr *errs.Error
		if errors.As(err, &rtxErr) {
			switch rtxErr.Kind {
			case errs.ErrManifestNotFound:
				fmt.Fprintf(os.Stderr, "rtx: no manifests found under %s\n", root)
				return 3
			case errs.ErrUsage:
				fmt.Fprintf(os.Stderr, "rtx: %v\n", err)
				return 2
			}
		}
		zlog.Error(ctx).Err(err).Msg("rtx: scan failed")
		fmt.Fprintf(os.Stderr, "rtx: %v\n", err)
		return 2
	}

	if err := writeReport(rep, *format, *output); err != nil {
		fmt.Fprintf(os.Stderr, "rtx: %v\n", err)
		return 2
	}
	return rep.ExitCode()
}

// writeReport renders rep in the requested format and writes it to
// output: table may stream to stdout, json/html/sbom require an
// explicit path ("-" streams json to stdout only).
func writeReport(rep report.Report, format, output string) error {
	switch format {
	case "table":
		w := os.Stdout
		if output != "" && output != "-" {
			f, err := createAtomic(output)
			if err != nil {
				return err
			}
			defer f.close()
			return renderer.Table(f.w, rep)
		}
		return renderer.Table(w, rep)
	case "json":
		data, err := rep.ToJSON()
		if err != nil {
			return &errs.Error{Op: "cmd.writeReport", Kind: errs.ErrReportRendering, Inner: err}
		}
		return writeBytes(data, output, true)
	case "html":
		if output == "" || output == "-" {
			return &errs.Error{Op: "cmd.writeReport", Kind: errs.ErrReportRendering, Message: "--output (a real path, not \"-\") is required for html format"}
		}
		f, err := createAtomic(output)
		if err != nil {
			return err
		}
		defer f.close()
		return renderer.HTML(f.w, rep)
	case "sbom":
		if output == "" || output == "-" {
			return &errs.Error{Op: "cmd.writeReport", Kind: errs.ErrReportRendering, Message: "--output (a real path, not \"-\") is required for sbom format"}
		}
		bom := sbom.Generate(rep, rep.GeneratedAt)
		f, err := createAtomic(output)
		if err != nil {
			return err
		}
		defer f.close()
		return sbom.Encode(f.w, bom)
	default:
		return &errs.Error{Op: "cmd.writeReport", Kind: errs.ErrReportRendering, Message: fmt.Sprintf("unknown format %q", format)}
	}
}
