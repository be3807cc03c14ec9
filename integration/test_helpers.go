package integration

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/saucelabs/sauce-playwright-reporter/internal/playwright"
	"github.com/saucelabs/sauce-playwright-reporter/internal/sauce"
)

// FakeSauce is an in-process Sauce Labs API
type FakeSauce struct {
	Server *httptest.Server

	mu       sync.Mutex
	jobs     []sauce.CreateReportRequest
	uploads  map[string]map[string][]byte
	testRuns []sauce.TestRun
}

// StartFakeSauce starts a fake API accepting the given credentials
func StartFakeSauce(t *testing.T, username, accessKey string) *FakeSauce {
	gin.SetMode(gin.TestMode)
	fake := &FakeSauce{uploads: make(map[string]map[string][]byte)}

	router := gin.New()
	api := router.Group("/", gin.BasicAuth(gin.Accounts{username: accessKey}))
	api.POST("/v1/testcomposer/reports", fake.createReport)
	api.PUT("/v1/testcomposer/reports/:id/upload", fake.upload)
	api.POST("/test-runs/v1/", fake.createTestRuns)

	fake.Server = httptest.NewServer(router)
	t.Cleanup(fake.Server.Close)
	return fake
}

func (f *FakeSauce) createReport(c *gin.Context) {
	var req sauce.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	f.mu.Lock()
	f.jobs = append(f.jobs, req)
	id := "job-" + req.Name
	f.mu.Unlock()
	c.JSON(http.StatusCreated, gin.H{"ID": id})
}

func (f *FakeSauce) upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	files := make(map[string][]byte)
	uploaded := []string{}
	for _, fh := range form.File["files"] {
		r, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
			return
		}
		data, _ := io.ReadAll(r)
		r.Close()
		files[fh.Filename] = data
		uploaded = append(uploaded, fh.Filename)
	}
	f.mu.Lock()
	f.uploads[c.Param("id")] = files
	f.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"uploaded": uploaded})
}

func (f *FakeSauce) createTestRuns(c *gin.Context) {
	var req struct {
		TestRuns []sauce.TestRun `json:"test_runs"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	f.mu.Lock()
	f.testRuns = append(f.testRuns, req.TestRuns...)
	f.mu.Unlock()
	c.Status(http.StatusNoContent)
}

// Jobs returns the created jobs
func (f *FakeSauce) Jobs() []sauce.CreateReportRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sauce.CreateReportRequest(nil), f.jobs...)
}

// Uploads returns the files uploaded to a job
func (f *FakeSauce) Uploads(jobID string) map[string][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploads[jobID]
}

// TestRuns returns the submitted test runs
func (f *FakeSauce) TestRuns() []sauce.TestRun {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sauce.TestRun(nil), f.testRuns...)
}

// WriteResults writes a Playwright JSON report with one passing and one
// failing test per project into dir and returns its path.
func WriteResults(t *testing.T, dir string, projects ...string) string {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	videoPath := filepath.Join(dir, "test-results", "video.webm")
	if err := os.MkdirAll(filepath.Dir(videoPath), 0755); err != nil {
		t.Fatalf("Failed to create results dir: %v", err)
	}
	if err := os.WriteFile(videoPath, []byte("webm"), 0644); err != nil {
		t.Fatalf("Failed to write video: %v", err)
	}

	results := playwright.Report{
		Config: playwright.Config{Version: "1.44.1"},
		Stats:  &playwright.ReportStats{StartTime: start, Duration: 3000},
	}
	var passing, failing []playwright.SpecTest
	for _, name := range projects {
		results.Config.Projects = append(results.Config.Projects, playwright.Project{
			Name: name,
			Use:  playwright.ProjectOptions{BrowserName: name},
		})
		passing = append(passing, playwright.SpecTest{
			ProjectName: name,
			Status:      playwright.OutcomeExpected,
			Results: []playwright.TestResult{{
				Status:      "passed",
				Duration:    1200,
				StartTime:   start,
				Attachments: []playwright.Attachment{{Name: "video", ContentType: "video/webm", Path: videoPath}},
			}},
		})
		failing = append(failing, playwright.SpecTest{
			ProjectName: name,
			Status:      playwright.OutcomeUnexpected,
			Results: []playwright.TestResult{{
				Status:    "failed",
				Duration:  800,
				StartTime: start.Add(1200 * time.Millisecond),
				Error:     &playwright.TestError{Message: "expected 1 to be 2"},
			}},
		})
	}
	results.Suites = []*playwright.FileSuite{{
		Title: "login.spec.ts",
		File:  "login.spec.ts",
		Specs: []playwright.Spec{
			{Title: "logs in", Tests: passing},
			{Title: "rejects bad password", Tests: failing},
		},
	}}

	data, err := json.Marshal(results)
	if err != nil {
		t.Fatalf("Failed to encode results: %v", err)
	}
	path := filepath.Join(dir, "results.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write results: %v", err)
	}
	return path
}
