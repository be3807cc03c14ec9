// Package sauce is a client for the Sauce Labs job and insights APIs.
package sauce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/saucelabs/sauce-playwright-reporter/internal/logger"
)

const (
	DefaultRegion  = "us-west-1"
	DefaultTimeout = 60 * time.Second
)

// Client talks to the Sauce Labs REST API.
type Client struct {
	baseURL    string
	appURL     string
	username   string
	accessKey  string
	userAgent  string
	httpClient *http.Client
	logger     *logger.Logger
}

// ClientConfig contains configuration for the Sauce Labs client
type ClientConfig struct {
	Region    string
	TLD       string
	Username  string
	AccessKey string
	Timeout   time.Duration
	Version   string // reporter version sent in the User-Agent header
	BaseURL   string // overrides the endpoint derived from Region
}

// APIURL returns the REST API endpoint for a region.
func APIURL(region, tld string) string {
	if region == "staging" {
		return "https://api.staging.saucelabs.net"
	}
	if tld == "" {
		tld = "com"
	}
	return fmt.Sprintf("https://api.%s.saucelabs.%s", region, tld)
}

// AppURL returns the web app endpoint for a region.
func AppURL(region, tld string) string {
	if region == "staging" {
		return "https://app.staging.saucelabs.net"
	}
	if tld == "" {
		tld = "com"
	}
	return fmt.Sprintf("https://app.%s.saucelabs.%s", region, tld)
}

// NewClient creates a new Sauce Labs client
func NewClient(config ClientConfig, log *logger.Logger) *Client {
	if config.Region == "" {
		config.Region = DefaultRegion
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.Version == "" {
		config.Version = "unknown"
	}
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = APIURL(config.Region, config.TLD)
	}

	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		appURL:    AppURL(config.Region, config.TLD),
		username:  config.Username,
		accessKey: config.AccessKey,
		userAgent: "playwright-reporter/" + config.Version,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: log,
	}
}

// JobURL returns the link to a job in the Sauce Labs app.
func (c *Client) JobURL(jobID string) string {
	return fmt.Sprintf("%s/tests/%s", c.appURL, jobID)
}

// CreateReport creates a job for a finished test run.
func (c *Client) CreateReport(ctx context.Context, req CreateReportRequest) (*Job, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "/v1/testcomposer/reports", "application/json", bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}

	var resp createReportResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("job created without an id")
	}

	c.logger.Debug("Created job", "job_id", resp.ID, "name", req.Name)
	return &Job{ID: resp.ID, URL: c.JobURL(resp.ID)}, nil
}

// UploadAssets uploads files to an existing job in a single multipart request.
func (c *Client) UploadAssets(ctx context.Context, jobID string, assets []Asset) (*UploadResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, asset := range assets {
		if err := writePart(mw, asset); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	path := fmt.Sprintf("/v1/testcomposer/reports/%s/upload", jobID)
	body, err := c.do(ctx, http.MethodPut, path, mw.FormDataContentType(), &buf)
	if err != nil {
		return nil, err
	}

	var resp UploadResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	c.logger.Debug("Uploaded assets", "job_id", jobID, "uploaded", len(resp.Uploaded), "errors", len(resp.Errors))
	return &resp, nil
}

func writePart(mw *multipart.Writer, asset Asset) error {
	part, err := mw.CreateFormFile("files", asset.Filename)
	if err != nil {
		return fmt.Errorf("failed to create form file %s: %w", asset.Filename, err)
	}

	if asset.Path == "" {
		_, err = part.Write(asset.Data)
		return err
	}

	f, err := os.Open(asset.Path)
	if err != nil {
		return fmt.Errorf("failed to open asset %s: %w", asset.Path, err)
	}
	defer f.Close()

	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("failed to read asset %s: %w", asset.Path, err)
	}
	return nil
}

// CreateTestRuns submits test runs to the insights API. Runs without an id
// are assigned a random one.
func (c *Client) CreateTestRuns(ctx context.Context, runs []TestRun) error {
	for i := range runs {
		if runs[i].ID == "" {
			runs[i].ID = uuid.NewString()
		}
	}

	jsonData, err := json.Marshal(testRunsRequest{TestRuns: runs})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	if _, err := c.do(ctx, http.MethodPost, "/test-runs/v1/", "application/json", bytes.NewReader(jsonData)); err != nil {
		return err
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, error) {
	url := c.baseURL + path
	httpReq, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.SetBasicAuth(c.username, c.accessKey)

	c.logger.Debug("Sending request", "method", method, "url", url)
	startTime := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Method: method, URL: url, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	c.logger.Debug("Request completed", "method", method, "url", url, "status", resp.StatusCode, "elapsed", time.Since(startTime))
	return respBody, nil
}

// APIError is returned for non-2xx responses.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s returned status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}
