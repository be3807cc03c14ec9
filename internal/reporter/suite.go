package reporter

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/saucelabs/sauce-playwright-reporter/internal/playwright"
	"github.com/saucelabs/sauce-playwright-reporter/internal/report"
	"github.com/saucelabs/sauce-playwright-reporter/internal/sauce"
	"github.com/saucelabs/sauce-playwright-reporter/internal/video"
)

var ansiPattern = regexp.MustCompile(
	`[\x{1b}\x{9b}][[\]()#;?]*(?:(?:(?:[a-zA-Z\d]*(?:;[-a-zA-Z\d/#&.:=?%@~_]*)*)?\x{07})|(?:(?:\d{1,4}(?:;\d{0,4})*)?[\dA-PR-TZcf-ntqry=><~]))`,
)

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

// constructSauceSuite converts s and its descendants. Every test is synced
// with syncer, when set, in tree order.
func (r *Reporter) constructSauceSuite(s *playwright.Suite, syncer video.Syncer) (*report.Suite, []sauce.Asset) {
	suite := report.NewSuite(s.Title)
	var assets []sauce.Asset

	for _, tc := range s.Tests {
		assets = append(assets, r.addTest(suite, tc, syncer)...)
	}

	for _, child := range s.Suites {
		sub, subAssets := r.constructSauceSuite(child, syncer)
		suite.AddSuite(sub)
		assets = append(assets, subAssets...)
	}

	return suite, assets
}

func (r *Reporter) addTest(suite *report.Suite, tc *playwright.TestCase, syncer video.Syncer) []sauce.Asset {
	// A test has no results when it was skipped by annotation, filtered out
	// or never ran because the run stopped early.
	lastResult, ok := tc.LastResult()
	if !ok {
		lastResult = playwright.TestResult{
			Status:    "skipped",
			StartTime: r.startedAt,
		}
	}

	test := suite.WithTest(tc.Title, testStatus(tc))
	test.StartTime = lastResult.StartTime
	test.Duration = lastResult.Duration
	test.Metadata = testMetadata(tc)
	if lastResult.Error != nil {
		test.Output = stripANSI(errorToMessage(lastResult.Error))
	}

	lines, err := tc.StepLines(r.results.Config.RootDir)
	if err != nil {
		r.logger.Debug("Could not read test source", "test", tc.Title, "file", tc.Location.File, "error", err)
	}
	test.Code = &report.Code{Lines: lines}
	if lines == nil {
		test.Code.Lines = []string{}
	}

	var assets []sauce.Asset
	for _, a := range lastResult.Attachments {
		if a.Path == "" && len(a.Body) == 0 {
			continue
		}

		name := a.Name
		if a.Path != "" {
			name = filepath.Base(a.Path)
		}
		filename := r.resolveAssetName(test.Name, name)
		test.Attach(report.Attachment{
			Name:        a.Name,
			Path:        filename,
			ContentType: a.ContentType,
		})

		if a.Path != "" {
			assets = append(assets, sauce.Asset{Filename: filename, Path: a.Path})
		} else {
			assets = append(assets, sauce.Asset{Filename: filename, Data: a.Body})
		}
	}

	if syncer != nil {
		segment := video.VideoFile{
			Path:     videoPath(lastResult.Attachments),
			Duration: time.Duration(lastResult.Duration) * time.Millisecond,
		}
		if ts, ok := syncer.Sync(lastResult.StartTime, segment); ok {
			test.SetVideoTimestamp(ts)
		}
	}

	return assets
}

func testStatus(tc *playwright.TestCase) report.Status {
	switch {
	case tc.Outcome() == playwright.OutcomeSkipped:
		return report.StatusSkipped
	case tc.OK():
		return report.StatusPassed
	default:
		return report.StatusFailed
	}
}

func testMetadata(tc *playwright.TestCase) map[string]any {
	metadata := map[string]any{}
	if tc.ID != "" {
		metadata["id"] = tc.ID
	}
	if len(tc.Tags) > 0 {
		metadata["tags"] = tc.Tags
	}
	if len(tc.Annotations) > 0 {
		metadata["annotations"] = tc.Annotations
	}
	return metadata
}

// videoPath returns the path of the first video attachment.
func videoPath(attachments []playwright.Attachment) string {
	for _, a := range attachments {
		if strings.Contains(a.ContentType, "video") {
			return a.Path
		}
	}
	return ""
}

func errorToMessage(err *playwright.TestError) string {
	var b strings.Builder
	b.WriteString(err.Message)
	if err.Value != "" {
		fmt.Fprintf(&b, ":  %s", err.Value)
	}
	if err.Stack != "" && err.Stack != err.Message {
		fmt.Fprintf(&b, "\n\n%s", err.Stack)
	}
	return b.String()
}
