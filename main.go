package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/saucelabs/sauce-playwright-reporter/internal/config"
	"github.com/saucelabs/sauce-playwright-reporter/internal/ledger"
	"github.com/saucelabs/sauce-playwright-reporter/internal/logger"
	"github.com/saucelabs/sauce-playwright-reporter/internal/playwright"
	"github.com/saucelabs/sauce-playwright-reporter/internal/reporter"
	"github.com/saucelabs/sauce-playwright-reporter/internal/sauce"
)

var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// errReported marks a failure that has already been written to the log.
var errReported = errors.New("reporting failed")

type options struct {
	configPath  string
	resultsPath string
	envPath     string
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.configPath, "c", "", "Path to configuration file (short)")
	flag.StringVar(&opts.resultsPath, "results", "results.json", "Path to the Playwright JSON report")
	flag.StringVar(&opts.envPath, "env", ".env", "Path to a dotenv file")
	flag.Parse()

	if err := run(opts); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "%v\n", err)
		}
		os.Exit(1)
	}
}

// run reports the Playwright results in opts. Failures after the logger is
// up are logged and returned wrapped in errReported.
func run(opts options) error {
	if err := config.LoadEnvFile(opts.envPath); err != nil {
		return fmt.Errorf("failed to load environment: %w", err)
	}

	// Load configuration
	cfg, err := config.LoadAndValidate(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	log, err := logger.New(logger.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		log = logger.NewFallback()
		log.Warn("Failed to initialize logger, using stderr", "error", err)
	}
	defer log.Sync()

	log.Debug("Starting Sauce Playwright reporter",
		"version", version,
		"build_time", buildTime,
		"git_commit", gitCommit,
	)

	results, err := playwright.Load(opts.resultsPath)
	if err != nil {
		log.Error("Failed to load Playwright results", "path", opts.resultsPath, "error", err)
		return fmt.Errorf("%w: %v", errReported, err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var reporterOpts []reporter.Option
	if cfg.Sauce.HasCredentials() && cfg.Reporter.ShouldUpload() {
		reporterOpts = append(reporterOpts, reporter.WithAPI(sauce.NewClient(sauce.ClientConfig{
			Region:    cfg.Sauce.Region,
			TLD:       cfg.Sauce.TLD,
			Username:  cfg.Sauce.Username,
			AccessKey: cfg.Sauce.AccessKey,
			Timeout:   cfg.Sauce.Timeout,
			Version:   version,
		}, log.Named("sauce"))))
	}

	if cfg.Ledger.Path != "" {
		l, err := ledger.Open(cfg.Ledger.Path)
		if err != nil {
			log.Error("Failed to open job ledger", "path", cfg.Ledger.Path, "error", err)
			return fmt.Errorf("%w: %v", errReported, err)
		}
		defer l.Close()
		reporterOpts = append(reporterOpts, reporter.WithLedger(l))
	}

	r, err := reporter.New(cfg, log, reporterOpts...)
	if err != nil {
		log.Error("Failed to create reporter", "error", err)
		return fmt.Errorf("%w: %v", errReported, err)
	}

	r.OnBegin(results)
	jobs, err := r.OnEnd(ctx)
	if err != nil {
		log.Error("Failed to report results", "error", err)
		return fmt.Errorf("%w: %v", errReported, err)
	}

	log.Debug("Reporting complete", "run_id", r.RunID(), "jobs", len(jobs))
	return nil
}
