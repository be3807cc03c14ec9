// Package reporter turns Playwright results into Sauce Labs jobs.
package reporter

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/saucelabs/sauce-playwright-reporter/internal/config"
	"github.com/saucelabs/sauce-playwright-reporter/internal/ledger"
	"github.com/saucelabs/sauce-playwright-reporter/internal/logger"
	"github.com/saucelabs/sauce-playwright-reporter/internal/playwright"
	"github.com/saucelabs/sauce-playwright-reporter/internal/report"
	"github.com/saucelabs/sauce-playwright-reporter/internal/sauce"
	"github.com/saucelabs/sauce-playwright-reporter/internal/video"
)

// API is the part of the Sauce Labs client the reporter uses.
type API interface {
	CreateReport(ctx context.Context, req sauce.CreateReportRequest) (*sauce.Job, error)
	UploadAssets(ctx context.Context, jobID string, assets []sauce.Asset) (*sauce.UploadResponse, error)
	CreateTestRuns(ctx context.Context, runs []sauce.TestRun) error
}

// Reporter builds one Sauce report per Playwright project and uploads it.
type Reporter struct {
	cfg    *config.Config
	logger *logger.Logger
	api    API
	ledger *ledger.Ledger
	out    io.Writer
	now    func() time.Time

	// newSyncer picks the video syncer of a project.
	newSyncer func() video.Syncer

	runID             string
	playwrightVersion string
	results           *playwright.Report
	startedAt         time.Time
	endedAt           time.Time
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithAPI sets the Sauce Labs client used for uploads.
func WithAPI(api API) Option {
	return func(r *Reporter) { r.api = api }
}

// WithLedger records every reported job in l.
func WithLedger(l *ledger.Ledger) Option {
	return func(r *Reporter) { r.ledger = l }
}

// WithOutput sets where the reported jobs summary is printed.
func WithOutput(w io.Writer) Option {
	return func(r *Reporter) { r.out = w }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) { r.now = now }
}

// New creates a reporter. The web assets directory is created when set.
func New(cfg *config.Config, log *logger.Logger, opts ...Option) (*Reporter, error) {
	r := &Reporter{
		cfg:               cfg,
		logger:            log,
		out:               os.Stdout,
		now:               time.Now,
		runID:             uuid.NewString(),
		playwrightVersion: "unknown",
	}
	r.newSyncer = r.selectSyncer
	for _, opt := range opts {
		opt(r)
	}

	if dir := cfg.Reporter.WebAssetsDir; dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create web assets directory: %w", err)
		}
	}

	return r, nil
}

// RunID identifies this reporter's jobs in the ledger.
func (r *Reporter) RunID() string {
	return r.runID
}

// OnBegin takes the results to report. The run's start and end times come
// from the results' stats when present.
func (r *Reporter) OnBegin(results *playwright.Report) {
	r.results = results
	r.startedAt = r.now()
	if results.Config.Version != "" {
		r.playwrightVersion = results.Config.Version
	}
	if stats := results.Stats; stats != nil && !stats.StartTime.IsZero() {
		r.startedAt = stats.StartTime
		r.endedAt = stats.StartTime.Add(time.Duration(stats.Duration * float64(time.Millisecond)))
	}
}

// ReportedJob is a job created for a project.
type ReportedJob struct {
	Name string
	ID   string
	URL  string
}

// OnEnd reports every project and writes the combined report to the output
// file. Upload failures are logged and do not fail the run.
func (r *Reporter) OnEnd(ctx context.Context) ([]ReportedJob, error) {
	if r.results == nil {
		return nil, nil
	}
	if r.endedAt.IsZero() {
		r.endedAt = r.now()
	}

	var jobs []ReportedJob
	var suites []*report.Suite
	for _, projectSuite := range r.results.ProjectSuites() {
		job, suite := r.reportProject(ctx, projectSuite)
		suites = append(suites, suite)
		if job != nil {
			jobs = append(jobs, *job)
		}
	}

	r.displayReportedJobs(jobs)

	if r.cfg.Reporter.OutputFile != "" {
		combined := report.NewTestRun()
		for _, s := range suites {
			combined.AddSuite(s)
		}
		if err := combined.WriteFile(r.cfg.Reporter.OutputFile); err != nil {
			return jobs, fmt.Errorf("failed to write %s: %w", r.cfg.Reporter.OutputFile, err)
		}
		r.logger.Info("Wrote Sauce report", "path", r.cfg.Reporter.OutputFile)
	}

	return jobs, nil
}

func (r *Reporter) reportProject(ctx context.Context, projectSuite *playwright.Suite) (*ReportedJob, *report.Suite) {
	log := r.logger.With("project", projectSuite.Title)

	run, assets, merge := r.createSauceReport(ctx, projectSuite)
	defer func() {
		if err := merge.Cleanup(); err != nil {
			log.Warn("Failed to clean up merged video", "error", err)
		}
	}()

	if r.webAssetSyncEnabled() {
		r.syncAssets(assets)
	}

	var job *ReportedJob
	if r.uploadEnabled() {
		job = r.reportToSauce(ctx, projectSuite, run, assets)
	}

	if job != nil && r.ledger != nil {
		entry := ledger.Entry{
			RunID:   r.runID,
			Project: projectSuite.Title,
			JobID:   job.ID,
			URL:     job.URL,
			Passed:  run.ComputeStatus() == report.StatusPassed,
		}
		if merge.used {
			entry.VideoMerge = merge.Kind.String()
		}
		if err := r.ledger.Record(ctx, entry); err != nil {
			log.Warn("Failed to record job", "job_id", job.ID, "error", err)
		}
	}

	return job, run.Suites[0]
}

// projectMerge is the merge outcome of a project. used is false when the
// project was not synced by merging.
type projectMerge struct {
	video.MergeResult
	used bool
}

// createSauceReport converts a project into a Sauce report, syncing and
// merging videos on the way.
func (r *Reporter) createSauceReport(ctx context.Context, projectSuite *playwright.Suite) (*report.TestRun, []sauce.Asset, projectMerge) {
	syncer := r.newSyncer()

	suite, assets := r.constructSauceSuite(projectSuite, syncer)

	var merge projectMerge
	if merger, ok := syncer.(video.Merger); ok {
		merge = projectMerge{MergeResult: merger.Merge(ctx), used: true}
		switch merge.Kind {
		case video.MergeOK:
			assets = append(assets, sauce.Asset{Filename: mergedVideoName, Path: merge.Path})
		case video.MergeFailed:
			r.logger.Warn("Failed to merge video", "project", projectSuite.Title, "error", merge.Err)
		}
	}

	run := report.NewTestRun()
	run.AddSuite(suite)
	run.ComputeStatus()
	return run, assets, merge
}

// selectSyncer prefers a configured display video start time over merging
// the per-test recordings. It returns nil when neither applies.
func (r *Reporter) selectSyncer() video.Syncer {
	if start, ok := r.cfg.Video.VideoStart(); ok {
		return video.NewOffsetSyncer(start)
	}
	if r.cfg.Reporter.MergeVideos {
		return video.NewMergeSyncer(video.MergeSyncerConfig{
			FFmpegPath: r.cfg.Video.FFmpegPath,
			TempDir:    r.cfg.Reporter.TempDir,
			Timeout:    r.cfg.Video.MergeTimeout,
		}, r.logger.Named("video"))
	}
	return nil
}

func (r *Reporter) uploadEnabled() bool {
	return r.api != nil && r.cfg.Sauce.HasCredentials() && r.cfg.Reporter.ShouldUpload()
}
