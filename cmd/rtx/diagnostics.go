package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/rtxscan/rtx/internal/scanner"
)

// cmdDiagnostics prints the effective configuration and registered
// scanners, useful for confirming environment-variable overrides took
// effect before running a real scan.
func cmdDiagnostics(ctx context.Context, cfg envConfig, args []string) int {
	fmt.Fprintln(os.Stdout, "rtx diagnostics")
	fmt.Fprintf(os.Stdout, "  log level:              %s\n", cfg.LogLevel)
	fmt.Fprintf(os.Stdout, "  http timeout (s):       %d\n", cfg.HTTPTimeoutSeconds)
	fmt.Fprintf(os.Stdout, "  http retries:           %d\n", cfg.HTTPRetries)
	fmt.Fprintf(os.Stdout, "  osv batch size:         %d\n", cfg.OSVBatchSize)
	fmt.Fprintf(os.Stdout, "  osv max concurrency:    %d\n", cfg.OSVMaxConcurrency)
	fmt.Fprintf(os.Stdout, "  osv cache size:         %d\n", cfg.OSVCacheSize)
	fmt.Fprintf(os.Stdout, "  osv disabled:           %v\n", cfg.DisableOSV)
	fmt.Fprintf(os.Stdout, "  github max concurrency: %d\n", cfg.GitHubMaxConcurrency)
	fmt.Fprintf(os.Stdout, "  github token set:       %v\n", cfg.githubToken() != "")
	fmt.Fprintf(os.Stdout, "  github disabled:        %v\n", cfg.DisableGitHub)
	fmt.Fprintf(os.Stdout, "  gomod concurrency:      %d\n", cfg.GomodConcurrency)
	fmt.Fprintf(os.Stdout, "  policy concurrency:     %d\n", policyConcurrency(cfg))
	fmt.Fprintf(os.Stdout, "  cache dir:              %s\n", cfg.CacheDir)
	fmt.Fprintln(os.Stdout, "  thresholds:")
	t := thresholds(cfg)
	fmt.Fprintf(os.Stdout, "    abandonment days:      %d\n", t.AbandonmentDays)
	fmt.Fprintf(os.Stdout, "    churn high/medium:     %d/%d\n", t.ChurnHigh, t.ChurnMedium)
	fmt.Fprintf(os.Stdout, "    low maturity minimum:  %d\n", t.LowMaturityMinimum)
	fmt.Fprintf(os.Stdout, "    typosquat max distance: %d\n", t.TyposquatMaxDistance)

	names := make([]string, 0)
	for name := range scanner.Registered() {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintf(os.Stdout, "  registered scanners:    %v\n", names)
	return 0
}
