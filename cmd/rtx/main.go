// Command rtx scans a project directory for third-party dependencies,
// enriches them with registry metadata and vulnerability advisories, runs
// them through the trust policy engine, and emits a report.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/crgimenes/goconfig"
	"github.com/quay/zlog"
	"github.com/rs/zerolog"

	"github.com/rtxscan/rtx/internal/advisory"
	"github.com/rtxscan/rtx/internal/orchestrator"
	"github.com/rtxscan/rtx/internal/policy"
	"github.com/rtxscan/rtx/internal/registry"
	"github.com/rtxscan/rtx/internal/scanner"

	_ "github.com/rtxscan/rtx/internal/scanner/gomod"
	_ "github.com/rtxscan/rtx/internal/scanner/npm"
	_ "github.com/rtxscan/rtx/internal/scanner/pypi"
)

var cleanup sync.WaitGroup

// envConfig holds every RTX_* environment-variable-driven parameter.
// Command-specific arguments (root path, --format, --output, ...) are
// parsed per-subcommand with the standard flag package instead.
type envConfig struct {
	LogLevel string `cfgDefault:"info" cfg:"RTX_LOG_LEVEL" cfgHelper:"Log levels: debug, info, warn, error"`

	HTTPTimeoutSeconds int `cfgDefault:"5" cfg:"RTX_HTTP_TIMEOUT" cfgHelper:"HTTP timeout in seconds shared by the registry resolver and advisory aggregator"`
	HTTPRetries        int `cfgDefault:"2" cfg:"RTX_HTTP_RETRIES" cfgHelper:"Maximum retry attempts for idempotent upstream requests"`

	OSVBatchSize      int    `cfgDefault:"18" cfg:"RTX_OSV_BATCH_SIZE"`
	OSVMaxConcurrency int    `cfgDefault:"4" cfg:"RTX_OSV_MAX_CONCURRENCY"`
	OSVCacheSize      int    `cfgDefault:"512" cfg:"RTX_OSV_CACHE_SIZE"`
	DisableOSV        bool   `cfgDefault:"false" cfg:"RTX_DISABLE_OSV"`

	GitHubMaxConcurrency int    `cfgDefault:"6" cfg:"RTX_GITHUB_MAX_CONCURRENCY"`
	GitHubToken          string `cfgDefault:"" cfg:"RTX_GITHUB_TOKEN" cfgHelper:"falls back to GITHUB_TOKEN if unset"`
	DisableGitHub        bool   `cfgDefault:"false" cfg:"RTX_DISABLE_GITHUB_ADVISORIES"`

	GomodConcurrency  int `cfgDefault:"5" cfg:"RTX_GOMOD_CONCURRENCY"`
	PolicyConcurrency int `cfgDefault:"0" cfg:"RTX_POLICY_CONCURRENCY" cfgHelper:"0 selects min(32, NumCPU)"`

	CacheDir string `cfgDefault:"" cfg:"RTX_CACHE_DIR" cfgHelper:"directory for the on-disk metadata cache; empty disables it"`

	AbandonmentDays      int `cfgDefault:"365" cfg:"RTX_ABANDONMENT_DAYS"`
	ChurnHigh            int `cfgDefault:"10" cfg:"RTX_CHURN_HIGH"`
	ChurnMedium          int `cfgDefault:"5" cfg:"RTX_CHURN_MEDIUM"`
	LowMaturityMinimum   int `cfgDefault:"3" cfg:"RTX_LOW_MATURITY_MINIMUM"`
	TyposquatMaxDistance int `cfgDefault:"2" cfg:"RTX_TYPOSQUAT_MAX_DISTANCE"`
}

func (c envConfig) githubToken() string {
	if c.GitHubToken != "" {
		return c.GitHubToken
	}
	return os.Getenv("GITHUB_TOKEN")
}

type subcmd func(context.Context, envConfig, []string) int

func main() {
	os.Exit(run())
}

func run() int {
	ctx, done := context.WithCancel(context.Background())
	defer done()
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT)
		<-ch
		done()
	}()

	var cfg envConfig
	if err := goconfig.Parse(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "rtx: failed to parse configuration: %v\n", err)
		return 2
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}).
		With().Timestamp().Logger().
		Level(parseLevel(cfg.LogLevel))
	zlog.Set(&log)

	args := os.Args[1:]
	if len(args) == 0 {
		usage()
		return 2
	}

	var cmd subcmd
	switch args[0] {
	case "scan":
		cmd = cmdScan
	case "pre-upgrade":
		cmd = cmdPreUpgrade
	case "report":
		cmd = cmdReport
	case "diagnostics":
		cmd = cmdDiagnostics
	case "list-managers":
		cmd = cmdListManagers
	case "-h", "--help", "help":
		usage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "rtx: unknown subcommand %q\n", args[0])
		usage()
		return 2
	}

	exitCh := make(chan int, 1)
	go func() {
		defer cleanup.Wait()
		exitCh <- cmd(ctx, cfg, args[1:])
	}()

	select {
	case <-ctx.Done():
		log.Error().Err(ctx.Err()).Msg("rtx: interrupted")
		return 2
	case code := <-exitCh:
		return code
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: rtx <subcommand> [flags]

Subcommands:
  scan           scan a project directory and emit a trust report
  pre-upgrade    evaluate a single dependency version bump before adopting it
  report         re-render a previously generated JSON report
  diagnostics    print effective configuration and registered scanners
  list-managers  list every registered scanner name and its aliases
`)
}

func parseLevel(s string) zerolog.Level {
	if l, err := zerolog.ParseLevel(strings.ToLower(s)); err == nil {
		return l
	}
	return zerolog.InfoLevel
}

// buildResolver constructs the registry.Resolver shared by scan and
// pre-upgrade.
func buildResolver(cfg envConfig) (*registry.Resolver, error) {
	diskPath := ""
	if cfg.CacheDir != "" {
		if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
			return nil, fmt.Errorf("rtx: create cache dir: %w", err)
		}
		diskPath = filepath.Join(cfg.CacheDir, "metadata.db")
	}
	return registry.New(registry.Config{
		HTTPTimeout:      httpTimeout(cfg),
		HTTPRetries:      cfg.HTTPRetries,
		GomodConcurrency: int64(cfg.GomodConcurrency),
		DiskCachePath:    diskPath,
	})
}

// buildAggregator constructs the advisory.Aggregator shared by scan and
// pre-upgrade.
func buildAggregator(cfg envConfig) (*advisory.Aggregator, error) {
	return advisory.New(advisory.Config{
		BatchSize:         cfg.OSVBatchSize,
		MaxConcurrency:    int64(cfg.OSVMaxConcurrency),
		CacheSize:         cfg.OSVCacheSize,
		DisableOSV:        cfg.DisableOSV,
		GitHubToken:       cfg.githubToken(),
		GitHubConcurrency: int64(cfg.GitHubMaxConcurrency),
		DisableGitHub:     cfg.DisableGitHub,
		HTTPTimeout:       httpTimeout(cfg),
		HTTPRetries:       cfg.HTTPRetries,
	})
}

func thresholds(cfg envConfig) policy.Thresholds {
	t := policy.DefaultThresholds()
	t.AbandonmentDays = cfg.AbandonmentDays
	t.ChurnHigh = cfg.ChurnHigh
	t.ChurnMedium = cfg.ChurnMedium
	t.LowMaturityMinimum = cfg.LowMaturityMinimum
	t.TyposquatMaxDistance = cfg.TyposquatMaxDistance
	return t
}

func policyConcurrency(cfg envConfig) int64 {
	if cfg.PolicyConcurrency > 0 {
		return int64(cfg.PolicyConcurrency)
	}
	n := runtime.NumCPU()
	if n > 32 {
		n = 32
	}
	return int64(n)
}

// buildOrchestrator wires scanner registry, resolver, aggregator, and
// policy engine into one Orchestrator.
func buildOrchestrator(cfg envConfig) (*orchestrator.Orchestrator, *registry.Resolver, error) {
	resolver, err := buildResolver(cfg)
	if err != nil {
		return nil, nil, err
	}
	aggregator, err := buildAggregator(cfg)
	if err != nil {
		resolver.Close()
		return nil, nil, err
	}
	engine, err := policy.New(resolver, thresholds(cfg))
	if err != nil {
		resolver.Close()
		return nil, nil, err
	}
	orch := orchestrator.New(scanner.Registered(), scanner.Aliases(), aggregator, engine, policyConcurrency(cfg))
	return orch, resolver, nil
}

func httpTimeout(cfg envConfig) time.Duration {
	return time.Duration(cfg.HTTPTimeoutSeconds) * time.Second
}
