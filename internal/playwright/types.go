package playwright

import "time"

// Report is the document written by Playwright's JSON reporter.
type Report struct {
	Config Config       `json:"config"`
	Suites []*FileSuite `json:"suites"`
	Errors []TestError  `json:"errors,omitempty"`
	Stats  *ReportStats `json:"stats,omitempty"`
}

// ReportStats summarizes the whole run.
type ReportStats struct {
	StartTime  time.Time `json:"startTime"`
	Duration   float64   `json:"duration"` // milliseconds
	Expected   int       `json:"expected"`
	Unexpected int       `json:"unexpected"`
	Skipped    int       `json:"skipped"`
	Flaky      int       `json:"flaky"`
}

// Config is the subset of the resolved Playwright config the reporter needs.
type Config struct {
	Version  string    `json:"version"`
	RootDir  string    `json:"rootDir"`
	Projects []Project `json:"projects"`
}

// Project is one configured Playwright project.
type Project struct {
	Name string         `json:"name"`
	ID   string         `json:"id,omitempty"`
	Use  ProjectOptions `json:"use,omitempty"`
}

// ProjectOptions are the "use" options relevant for browser detection.
type ProjectOptions struct {
	BrowserName string `json:"browserName,omitempty"`
	UserAgent   string `json:"userAgent,omitempty"`
}

// FileSuite is a suite as serialized by the JSON reporter: a spec file or a
// describe block, holding specs and nested suites.
type FileSuite struct {
	Title  string       `json:"title"`
	File   string       `json:"file"`
	Line   int          `json:"line"`
	Column int          `json:"column"`
	Specs  []Spec       `json:"specs"`
	Suites []*FileSuite `json:"suites,omitempty"`
}

// Spec is a single test declaration; it runs once per project.
type Spec struct {
	Title  string     `json:"title"`
	ID     string     `json:"id"`
	OK     bool       `json:"ok"`
	Tags   []string   `json:"tags"`
	File   string     `json:"file"`
	Line   int        `json:"line"`
	Column int        `json:"column"`
	Tests  []SpecTest `json:"tests"`
}

// SpecTest is one project's execution of a spec.
type SpecTest struct {
	ProjectName    string       `json:"projectName"`
	ProjectID      string       `json:"projectId"`
	Timeout        int          `json:"timeout"`
	Annotations    []Annotation `json:"annotations"`
	ExpectedStatus string       `json:"expectedStatus"`
	Status         string       `json:"status"` // expected, unexpected, flaky or skipped
	Results        []TestResult `json:"results"`
}

// Annotation is a test annotation such as skip, fixme or issue.
type Annotation struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// TestResult is one attempt of a test.
type TestResult struct {
	WorkerIndex   int          `json:"workerIndex"`
	ParallelIndex int          `json:"parallelIndex"`
	Status        string       `json:"status"`   // passed, failed, timedOut, skipped, interrupted
	Duration      int64        `json:"duration"` // milliseconds
	Error         *TestError   `json:"error,omitempty"`
	Errors        []TestError  `json:"errors"`
	Retry         int          `json:"retry"`
	StartTime     time.Time    `json:"startTime"`
	Attachments   []Attachment `json:"attachments"`
	Steps         []TestStep   `json:"steps,omitempty"`
}

// TestError describes a failure.
type TestError struct {
	Message  string    `json:"message,omitempty"`
	Stack    string    `json:"stack,omitempty"`
	Value    string    `json:"value,omitempty"`
	Snippet  string    `json:"snippet,omitempty"`
	Location *Location `json:"location,omitempty"`
}

// Attachment is a file or inline body attached to a result. Body is base64
// encoded in the JSON report.
type Attachment struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Path        string `json:"path,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// TestStep is a step executed by a test.
type TestStep struct {
	Title    string     `json:"title"`
	Duration int64      `json:"duration"`
	Location *Location  `json:"location,omitempty"`
	Steps    []TestStep `json:"steps,omitempty"`
}

// Location points into a source file.
type Location struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}
