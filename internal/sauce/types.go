package sauce

// CreateReportRequest describes a job to be created for a test run.
type CreateReportRequest struct {
	Name             string   `json:"name"`
	BrowserName      string   `json:"browserName"`
	BrowserVersion   string   `json:"browserVersion"`
	PlatformName     string   `json:"platformName"`
	Framework        string   `json:"framework"`
	FrameworkVersion string   `json:"frameworkVersion"`
	Passed           bool     `json:"passed"`
	StartTime        string   `json:"startTime"`
	EndTime          string   `json:"endTime"`
	Build            string   `json:"build"`
	Tags             []string `json:"tags"`
}

// Job is a created Sauce Labs job.
type Job struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type createReportResponse struct {
	ID string `json:"ID"`
}

// Asset is a file uploaded to a job. Either Path or Data is set.
type Asset struct {
	Filename string
	Path     string
	Data     []byte
}

// UploadResponse lists the uploaded file names and per-file failures.
type UploadResponse struct {
	Uploaded []string `json:"uploaded"`
	Errors   []string `json:"errors,omitempty"`
}

// TestRun is a test run submitted to the insights API.
type TestRun struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	StartTime string         `json:"start_time"`
	EndTime   string         `json:"end_time"`
	Duration  int64          `json:"duration"`
	Platform  string         `json:"platform"`
	Type      string         `json:"type"`
	Framework string         `json:"framework"`
	Status    string         `json:"status"`
	Errors    []TestRunError `json:"errors,omitempty"`
	SauceJob  *SauceJob      `json:"sauce_job,omitempty"`
	Browser   string         `json:"browser,omitempty"`
	Tags      []string       `json:"tags,omitempty"`
	BuildName string         `json:"build_name,omitempty"`
	OS        string         `json:"os,omitempty"`
	CI        *CI            `json:"ci,omitempty"`
}

// TestRunError is a failure reported with a test run.
type TestRunError struct {
	Message string `json:"message,omitempty"`
	Path    string `json:"path,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// SauceJob links a test run to its job.
type SauceJob struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// CI describes the pipeline that produced a test run.
type CI struct {
	RefName    string `json:"ref_name"`
	CommitSHA  string `json:"commit_sha"`
	Repository string `json:"repository"`
	Branch     string `json:"branch"`
}

type testRunsRequest struct {
	TestRuns []TestRun `json:"test_runs"`
}
