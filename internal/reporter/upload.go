package reporter

import (
	"context"
	"time"

	"github.com/saucelabs/sauce-playwright-reporter/internal/playwright"
	"github.com/saucelabs/sauce-playwright-reporter/internal/report"
	"github.com/saucelabs/sauce-playwright-reporter/internal/sauce"
)

// reportToSauce creates the project's job, uploads its assets and sends the
// test run to insights. It returns nil when the job could not be created.
func (r *Reporter) reportToSauce(ctx context.Context, projectSuite *playwright.Suite, run *report.TestRun, assets []sauce.Asset) *ReportedJob {
	log := r.logger.With("project", projectSuite.Title)
	b := r.browserOf(projectSuite.Title)

	job, err := r.api.CreateReport(ctx, sauce.CreateReportRequest{
		Name:             projectSuite.Title,
		BrowserName:      "playwright-" + b.name,
		BrowserVersion:   b.version,
		PlatformName:     platformName(),
		Framework:        "playwright",
		FrameworkVersion: r.playwrightVersion,
		Passed:           run.ComputeStatus() == report.StatusPassed,
		StartTime:        isoTime(r.startedAt),
		EndTime:          isoTime(r.endedAt),
		Build:            r.cfg.Reporter.BuildName,
		Tags:             r.cfg.Reporter.Tags,
	})
	if err != nil {
		log.Error("Failed to create job", "error", err)
		return nil
	}

	r.uploadAssets(ctx, job.ID, consoleLog(projectSuite), run, assets)
	r.reportTestRun(ctx, projectSuite, run, job.ID)

	return &ReportedJob{Name: projectSuite.Title, ID: job.ID, URL: job.URL}
}

func (r *Reporter) uploadAssets(ctx context.Context, jobID, console string, run *report.TestRun, assets []sauce.Asset) {
	data, err := run.Marshal()
	if err != nil {
		r.logger.Error("Failed to encode report", "job_id", jobID, "error", err)
		return
	}

	uploads := make([]sauce.Asset, 0, len(assets)+2)
	uploads = append(uploads, assets...)
	uploads = append(uploads,
		sauce.Asset{Filename: consoleLogName, Data: []byte(console)},
		sauce.Asset{Filename: reportName, Data: data},
	)

	resp, err := r.api.UploadAssets(ctx, jobID, uploads)
	if err != nil {
		r.logger.Error("Failed to upload assets", "job_id", jobID, "error", err)
		return
	}
	for _, uploadErr := range resp.Errors {
		r.logger.Error("Failed to upload asset", "job_id", jobID, "error", uploadErr)
	}
}

func (r *Reporter) reportTestRun(ctx context.Context, projectSuite *playwright.Suite, run *report.TestRun, jobID string) {
	b := r.browserOf(projectSuite.Title)

	req := sauce.TestRun{
		Name:      projectSuite.Title,
		StartTime: isoTime(r.startedAt),
		EndTime:   isoTime(r.endedAt),
		Duration:  projectDuration(projectSuite),
		Platform:  "other",
		Type:      "web",
		Framework: "playwright",
		Status:    string(run.ComputeStatus()),
		Errors:    projectErrors(projectSuite),
		SauceJob:  &sauce.SauceJob{ID: jobID, Name: projectSuite.Title},
		Browser:   "playwright-" + b.name,
		Tags:      r.cfg.Reporter.Tags,
		BuildName: r.cfg.Reporter.BuildName,
		OS:        platformName(),
		CI:        sauce.DetectCI(),
	}

	if err := r.api.CreateTestRuns(ctx, []sauce.TestRun{req}); err != nil {
		r.logger.Warn("Failed to send report to insights", "job_id", jobID, "error", err)
	}
}

// projectDuration sums the final attempt of every test, in milliseconds.
func projectDuration(projectSuite *playwright.Suite) int64 {
	var total int64
	for _, tc := range projectSuite.AllTests() {
		if last, ok := tc.LastResult(); ok {
			total += last.Duration
		}
	}
	return total
}

func projectErrors(projectSuite *playwright.Suite) []sauce.TestRunError {
	var errs []sauce.TestRunError
	for _, tc := range projectSuite.AllTests() {
		last, ok := tc.LastResult()
		if !ok || last.Error == nil {
			continue
		}
		e := sauce.TestRunError{Message: stripANSI(last.Error.Message)}
		if loc := last.Error.Location; loc != nil {
			e.Path = loc.File
			e.Line = loc.Line
		}
		errs = append(errs, e)
	}
	return errs
}

func isoTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
