// Package report models the Sauce Labs JSON test report.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Status is the outcome of a test, suite or whole run.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

// Version of the report format.
const Version = 1

// TestRun is the root of a report.
type TestRun struct {
	Version     int            `json:"version"`
	Status      Status         `json:"status"`
	Attachments []Attachment   `json:"attachments"`
	Suites      []*Suite       `json:"suites"`
	Metadata    map[string]any `json:"metadata"`
}

// Suite groups tests and nested suites.
type Suite struct {
	Name        string         `json:"name"`
	Status      Status         `json:"status"`
	Metadata    map[string]any `json:"metadata"`
	Suites      []*Suite       `json:"suites"`
	Attachments []Attachment   `json:"attachments"`
	Tests       []*Test        `json:"tests"`
}

// Test is a single test result.
type Test struct {
	Name           string         `json:"name"`
	Status         Status         `json:"status"`
	StartTime      time.Time      `json:"startTime"`
	Duration       int64          `json:"duration"` // milliseconds
	Output         string         `json:"output,omitempty"`
	Code           *Code          `json:"code,omitempty"`
	VideoTimestamp *float64       `json:"videoTimestamp,omitempty"` // seconds into the job video
	Attachments    []Attachment   `json:"attachments"`
	Metadata       map[string]any `json:"metadata"`
}

// Code holds the source lines that make up a test.
type Code struct {
	Lines []string `json:"lines"`
}

// Attachment references an uploaded asset by its file name.
type Attachment struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	ContentType string `json:"contentType"`
}

// NewTestRun returns an empty report.
func NewTestRun() *TestRun {
	return &TestRun{
		Version:     Version,
		Status:      StatusSkipped,
		Attachments: []Attachment{},
		Suites:      []*Suite{},
		Metadata:    map[string]any{},
	}
}

// NewSuite returns an empty suite.
func NewSuite(name string) *Suite {
	return &Suite{
		Name:        name,
		Status:      StatusSkipped,
		Metadata:    map[string]any{},
		Suites:      []*Suite{},
		Attachments: []Attachment{},
		Tests:       []*Test{},
	}
}

// AddSuite appends a suite to the run.
func (r *TestRun) AddSuite(s *Suite) {
	r.Suites = append(r.Suites, s)
}

// AddSuite appends a nested suite.
func (s *Suite) AddSuite(child *Suite) {
	s.Suites = append(s.Suites, child)
}

// WithTest creates a test, appends it to the suite and returns it.
func (s *Suite) WithTest(name string, status Status) *Test {
	t := &Test{
		Name:        name,
		Status:      status,
		Attachments: []Attachment{},
		Metadata:    map[string]any{},
	}
	s.Tests = append(s.Tests, t)
	return t
}

// Attach adds an attachment to the test.
func (t *Test) Attach(a Attachment) {
	t.Attachments = append(t.Attachments, a)
}

// SetVideoTimestamp records where the test starts in the job video.
func (t *Test) SetVideoTimestamp(seconds float64) {
	t.VideoTimestamp = &seconds
}

// ComputeStatus derives the suite status from its tests and nested suites,
// updating every suite on the way.
func (s *Suite) ComputeStatus() Status {
	statuses := make([]Status, 0, len(s.Tests)+len(s.Suites))
	for _, t := range s.Tests {
		statuses = append(statuses, t.Status)
	}
	for _, child := range s.Suites {
		statuses = append(statuses, child.ComputeStatus())
	}
	s.Status = aggregate(statuses)
	return s.Status
}

// ComputeStatus derives the run status from its suites. A run with any failed
// or errored test has failed; a run where nothing ran is skipped.
func (r *TestRun) ComputeStatus() Status {
	statuses := make([]Status, 0, len(r.Suites))
	for _, s := range r.Suites {
		statuses = append(statuses, s.ComputeStatus())
	}
	r.Status = aggregate(statuses)
	return r.Status
}

func aggregate(statuses []Status) Status {
	if len(statuses) == 0 {
		return StatusSkipped
	}
	allSkipped := true
	for _, st := range statuses {
		switch st {
		case StatusFailed, StatusError:
			return StatusFailed
		case StatusSkipped:
		default:
			allSkipped = false
		}
	}
	if allSkipped {
		return StatusSkipped
	}
	return StatusPassed
}

// Marshal computes the run status and encodes the report.
func (r *TestRun) Marshal() ([]byte, error) {
	r.ComputeStatus()
	return json.MarshalIndent(r, "", "  ")
}

// WriteFile writes the report to path, creating parent directories. The file
// is replaced atomically.
func (r *TestRun) WriteFile(path string) error {
	data, err := r.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close report: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to set report permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move report into place: %w", err)
	}
	return nil
}
