package playwright

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T) *Report {
	t.Helper()
	report, err := Load("testdata/results.json")
	require.NoError(t, err)
	return report
}

func testsByTitle(s *Suite) map[string]*TestCase {
	byTitle := make(map[string]*TestCase)
	for _, tc := range s.AllTests() {
		byTitle[tc.Title] = tc
	}
	return byTitle
}

func TestLoad(t *testing.T) {
	report := loadFixture(t)

	assert.Equal(t, "1.44.1", report.Config.Version)
	assert.Equal(t, "testdata", report.Config.RootDir)
	require.Len(t, report.Config.Projects, 2)
	require.NotNil(t, report.Stats)
	assert.Equal(t, 1, report.Stats.Flaky)

	safari, ok := report.Project("Mobile Safari")
	require.True(t, ok)
	assert.Contains(t, safari.Use.UserAgent, "iPhone")

	_, ok = report.Project("firefox")
	assert.False(t, ok)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load("testdata/does-not-exist.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open results")
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse(strings.NewReader(`{"suites": [`))
	assert.Error(t, err)
}

func TestProjectSuites(t *testing.T) {
	report := loadFixture(t)

	projects := report.ProjectSuites()
	require.Len(t, projects, 2)
	assert.Equal(t, "chromium", projects[0].Title)
	assert.Equal(t, "Mobile Safari", projects[1].Title)

	chromium := projects[0]
	require.Len(t, chromium.Suites, 1)
	file := chromium.Suites[0]
	assert.Equal(t, "example.spec.ts", file.Title)
	require.Len(t, file.Tests, 1)
	assert.Equal(t, "has title", file.Tests[0].Title)
	require.Len(t, file.Suites, 1)
	assert.Equal(t, "navigation", file.Suites[0].Title)
	assert.Len(t, file.Suites[0].Tests, 2)

	// The describe block has no Safari tests and is dropped from that tree.
	safari := projects[1]
	require.Len(t, safari.Suites, 1)
	assert.Empty(t, safari.Suites[0].Suites)
	require.Len(t, safari.Suites[0].Tests, 1)
	assert.Equal(t, "Mobile Safari", safari.Suites[0].Tests[0].ProjectName)
}

func TestProjectSuites_UnconfiguredProject(t *testing.T) {
	report, err := Parse(strings.NewReader(`{
		"config": {"projects": []},
		"suites": [{"title": "a.spec.ts", "file": "a.spec.ts", "specs": [
			{"title": "t", "tests": [{"projectName": "webkit", "results": []}]}
		]}]
	}`))
	require.NoError(t, err)

	projects := report.ProjectSuites()
	require.Len(t, projects, 1)
	assert.Equal(t, "webkit", projects[0].Title)
}

func TestAllTests_DepthFirst(t *testing.T) {
	chromium := loadFixture(t).ProjectSuites()[0]

	var titles []string
	for _, tc := range chromium.AllTests() {
		titles = append(titles, tc.Title)
	}
	assert.Equal(t, []string{"has title", "get started link", "not ready"}, titles)
}

func TestTestCase_ReportedOutcome(t *testing.T) {
	projects := loadFixture(t).ProjectSuites()
	chromium := testsByTitle(projects[0])
	safari := testsByTitle(projects[1])

	assert.Equal(t, OutcomeExpected, chromium["has title"].Outcome())
	assert.Equal(t, OutcomeFlaky, chromium["get started link"].Outcome())
	assert.Equal(t, OutcomeSkipped, chromium["not ready"].Outcome())
	assert.Equal(t, OutcomeUnexpected, safari["has title"].Outcome())

	assert.True(t, chromium["has title"].OK())
	assert.True(t, chromium["get started link"].OK())
	assert.True(t, chromium["not ready"].OK())
	assert.False(t, safari["has title"].OK())
}

func TestTestCase_DerivedOutcome(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		statuses []string
		want     string
	}{
		{"no results", "passed", nil, OutcomeSkipped},
		{"all skipped", "passed", []string{"skipped"}, OutcomeSkipped},
		{"passed", "passed", []string{"passed"}, OutcomeExpected},
		{"passed on retry", "passed", []string{"failed", "passed"}, OutcomeFlaky},
		{"failed", "passed", []string{"failed", "failed"}, OutcomeUnexpected},
		{"expected failure", "failed", []string{"failed"}, OutcomeExpected},
		{"timed out", "", []string{"timedOut"}, OutcomeUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := &TestCase{ExpectedStatus: tt.expected}
			for _, s := range tt.statuses {
				tc.Results = append(tc.Results, TestResult{Status: s})
			}
			assert.Equal(t, tt.want, tc.Outcome())
		})
	}
}

func TestTestCase_LastResult(t *testing.T) {
	chromium := testsByTitle(loadFixture(t).ProjectSuites()[0])

	last, ok := chromium["get started link"].LastResult()
	require.True(t, ok)
	assert.Equal(t, 1, last.Retry)
	assert.Equal(t, int64(2500), last.Duration)
	require.Len(t, last.Attachments, 1)
	assert.Equal(t, "test-results/get-started-chromium-retry1/video.webm", last.Attachments[0].Path)

	_, ok = chromium["not ready"].LastResult()
	assert.False(t, ok)
}

func TestAttachment_InlineBody(t *testing.T) {
	safari := testsByTitle(loadFixture(t).ProjectSuites()[1])

	last, ok := safari["has title"].LastResult()
	require.True(t, ok)
	require.Len(t, last.Attachments, 2)
	assert.Equal(t, "hello from the test", string(last.Attachments[1].Body))
	require.NotNil(t, last.Error)
	assert.Contains(t, last.Error.Message, "toHaveTitle")
}

func TestTestCase_StepLines(t *testing.T) {
	report := loadFixture(t)
	chromium := testsByTitle(report.ProjectSuites()[0])

	lines, err := chromium["has title"].StepLines(report.Config.RootDir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"await page.goto('https://playwright.dev/');",
		"await expect(page).toHaveTitle(/Playwright/);",
	}, lines)

	lines, err = chromium["get started link"].StepLines(report.Config.RootDir)
	require.NoError(t, err)
	assert.Empty(t, lines)

	lines, err = chromium["not ready"].StepLines(report.Config.RootDir)
	require.NoError(t, err)
	assert.Nil(t, lines)
}

func TestTestCase_StepLinesMissingSource(t *testing.T) {
	chromium := testsByTitle(loadFixture(t).ProjectSuites()[0])

	_, err := chromium["has title"].StepLines(t.TempDir())
	assert.Error(t, err)
}
