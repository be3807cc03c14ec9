package playwright

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Test outcomes as reported by Playwright.
const (
	OutcomeExpected   = "expected"
	OutcomeUnexpected = "unexpected"
	OutcomeFlaky      = "flaky"
	OutcomeSkipped    = "skipped"
)

// Suite is a node of a project's test tree: the project itself, a file or a
// describe block.
type Suite struct {
	Title  string
	File   string
	Tests  []*TestCase
	Suites []*Suite
}

// TestCase is one spec as executed by one project.
type TestCase struct {
	Title          string
	ID             string
	ProjectName    string
	Tags           []string
	Annotations    []Annotation
	Location       Location
	ExpectedStatus string
	Status         string
	Results        []TestResult
}

// Load reads a Playwright JSON report from disk.
func Load(path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open results: %w", err)
	}
	defer f.Close()

	report, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if report.Config.RootDir == "" {
		report.Config.RootDir = filepath.Dir(path)
	}
	return report, nil
}

// Parse decodes a Playwright JSON report.
func Parse(r io.Reader) (*Report, error) {
	var report Report
	if err := json.NewDecoder(r).Decode(&report); err != nil {
		return nil, err
	}
	return &report, nil
}

// Project returns the configuration of the named project.
func (r *Report) Project(name string) (Project, bool) {
	for _, p := range r.Config.Projects {
		if p.Name == name {
			return p, true
		}
	}
	return Project{}, false
}

// ProjectSuites regroups the file-oriented report into one root suite per
// project, in configuration order. Suites without tests for a project are
// left out of that project's tree.
func (r *Report) ProjectSuites() []*Suite {
	var names []string
	seen := make(map[string]bool)
	for _, p := range r.Config.Projects {
		if !seen[p.Name] {
			seen[p.Name] = true
			names = append(names, p.Name)
		}
	}
	var collect func(fs *FileSuite)
	collect = func(fs *FileSuite) {
		for _, spec := range fs.Specs {
			for _, t := range spec.Tests {
				if !seen[t.ProjectName] {
					seen[t.ProjectName] = true
					names = append(names, t.ProjectName)
				}
			}
		}
		for _, child := range fs.Suites {
			collect(child)
		}
	}
	for _, fs := range r.Suites {
		collect(fs)
	}

	projects := make([]*Suite, 0, len(names))
	for _, name := range names {
		root := &Suite{Title: name}
		for _, fs := range r.Suites {
			if s := projectSuite(fs, name); s != nil {
				root.Suites = append(root.Suites, s)
			}
		}
		projects = append(projects, root)
	}
	return projects
}

func projectSuite(fs *FileSuite, project string) *Suite {
	suite := &Suite{Title: fs.Title, File: fs.File}

	for _, spec := range fs.Specs {
		for _, t := range spec.Tests {
			if t.ProjectName != project {
				continue
			}
			suite.Tests = append(suite.Tests, &TestCase{
				Title:          spec.Title,
				ID:             spec.ID,
				ProjectName:    t.ProjectName,
				Tags:           spec.Tags,
				Annotations:    t.Annotations,
				Location:       Location{File: spec.File, Line: spec.Line, Column: spec.Column},
				ExpectedStatus: t.ExpectedStatus,
				Status:         t.Status,
				Results:        t.Results,
			})
		}
	}

	for _, child := range fs.Suites {
		if s := projectSuite(child, project); s != nil {
			suite.Suites = append(suite.Suites, s)
		}
	}

	if len(suite.Tests) == 0 && len(suite.Suites) == 0 {
		return nil
	}
	return suite
}

// AllTests returns the tests of s and its descendants, depth first.
func (s *Suite) AllTests() []*TestCase {
	tests := append([]*TestCase(nil), s.Tests...)
	for _, child := range s.Suites {
		tests = append(tests, child.AllTests()...)
	}
	return tests
}

// LastResult returns the final attempt of the test. A test has no results
// when it was skipped by annotation, filtered out or never ran.
func (t *TestCase) LastResult() (TestResult, bool) {
	if len(t.Results) == 0 {
		return TestResult{}, false
	}
	return t.Results[len(t.Results)-1], true
}

// Outcome returns the test's overall outcome, deriving it from the results
// when the report does not carry one.
func (t *TestCase) Outcome() string {
	if t.Status != "" {
		return t.Status
	}

	last, ok := t.LastResult()
	if !ok {
		return OutcomeSkipped
	}
	allSkipped := true
	for _, r := range t.Results {
		if r.Status != "skipped" {
			allSkipped = false
			break
		}
	}
	if allSkipped {
		return OutcomeSkipped
	}

	expected := t.ExpectedStatus
	if expected == "" {
		expected = "passed"
	}
	if last.Status != expected {
		return OutcomeUnexpected
	}
	if len(t.Results) > 1 {
		return OutcomeFlaky
	}
	return OutcomeExpected
}

// OK reports whether the test did not fail.
func (t *TestCase) OK() bool {
	switch t.Outcome() {
	case OutcomeExpected, OutcomeFlaky, OutcomeSkipped:
		return true
	}
	return false
}

// StepLines returns the trimmed source lines of the top-level steps of the
// last attempt, in file order. rootDir resolves relative test file paths.
func (t *TestCase) StepLines(rootDir string) ([]string, error) {
	last, ok := t.LastResult()
	if !ok || t.Location.File == "" {
		return nil, nil
	}

	stepLines := make(map[int]bool)
	for _, step := range last.Steps {
		if step.Location != nil {
			stepLines[step.Location.Line] = true
		}
	}
	if len(stepLines) == 0 {
		return nil, nil
	}

	path := t.Location.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(rootDir, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for n := 1; scanner.Scan(); n++ {
		if stepLines[n] {
			lines = append(lines, strings.TrimSpace(scanner.Text()))
		}
	}
	return lines, scanner.Err()
}
