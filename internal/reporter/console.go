package reporter

import (
	"fmt"
	"strings"

	"github.com/saucelabs/sauce-playwright-reporter/internal/playwright"
)

// consoleLog renders the project's results as the job's console.log.
func consoleLog(projectSuite *playwright.Suite) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project: %s\n", projectSuite.Title)
	for _, fileSuite := range projectSuite.Suites {
		fmt.Fprintf(&b, "\nFile: %s\n\n", fileSuite.Title)
		writeTests(&b, fileSuite.Tests, "")
		for _, s := range fileSuite.Suites {
			writeSuite(&b, s, 0)
		}
	}
	return b.String()
}

func writeSuite(b *strings.Builder, s *playwright.Suite, level int) {
	padding := strings.Repeat("  ", level)
	fmt.Fprintf(b, "\n%s%s:\n", padding, s.Title)
	writeTests(b, s.Tests, padding)
	for _, child := range s.Suites {
		writeSuite(b, child, level+1)
	}
}

func writeTests(b *strings.Builder, tests []*playwright.TestCase, padding string) {
	for _, tc := range tests {
		icon := "✗"
		for _, res := range tc.Results {
			if res.Status == "passed" {
				icon = "✓"
				break
			}
		}
		fmt.Fprintf(b, "%s%s %s\n", padding, icon, tc.Title)
	}
}

func (r *Reporter) displayReportedJobs(jobs []ReportedJob) {
	if !r.cfg.Sauce.HasCredentials() && r.cfg.Reporter.ShouldUpload() {
		fmt.Fprintln(r.out, "\nNo results reported to Sauce Labs. SAUCE_USERNAME and SAUCE_ACCESS_KEY environment variables must be defined in order for reports to be uploaded to Sauce.")
		fmt.Fprintln(r.out)
		return
	}
	if len(jobs) == 0 {
		fmt.Fprintln(r.out)
		return
	}

	fmt.Fprintln(r.out, "\nReported jobs to Sauce Labs:")
	for _, job := range jobs {
		fmt.Fprintf(r.out, "  - %s: %s\n", job.Name, job.URL)
	}
	fmt.Fprintln(r.out)
}
