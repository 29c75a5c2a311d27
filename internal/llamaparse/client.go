// Package llamaparse submits PDFs to the LlamaParse structuring API and
// retrieves the structured Markdown result.
package llamaparse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// MarkdownFile is the fixed name of the persisted result, written beside the
// source document.
const MarkdownFile = "structured_data.md"

// Job statuses reported by the service. Any other status is treated as still
// in progress.
const (
	StatusPending = "PENDING"
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// Sentinel errors for structuring operations.
var (
	// ErrMissingJobID indicates the upload succeeded but returned no job id.
	ErrMissingJobID = errors.New("no job id in upload response")

	// ErrJobFailed indicates the service reported the job as FAILED.
	ErrJobFailed = errors.New("structuring job failed")

	// ErrPollTimeout indicates the job stayed pending past the poll bound.
	ErrPollTimeout = errors.New("structuring job timed out")

	// ErrUnexpectedStatus indicates a non-2xx HTTP response.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
)

// Config holds configuration for the LlamaParse client.
type Config struct {
	// APIKey authenticates requests. Required.
	APIKey string

	// BaseURL is the API root.
	// Default: https://api.cloud.llamaindex.ai
	BaseURL string

	// PollInterval is the fixed delay between job status checks.
	// Default: 10s
	PollInterval time.Duration

	// MaxPolls bounds the status poll loop. Exhaustion returns
	// ErrPollTimeout rather than waiting indefinitely on a stuck job.
	// Default: 60
	MaxPolls int
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.cloud.llamaindex.ai"
	}
	if c.PollInterval == 0 {
		c.PollInterval = 10 * time.Second
	}
	if c.MaxPolls == 0 {
		c.MaxPolls = 60
	}
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("API key is required")
	}
	return nil
}

// Client talks to the LlamaParse API.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

// uploadResponse is the body returned by the upload endpoint.
type uploadResponse struct {
	ID string `json:"id"`
}

// statusResponse is the body returned by the job status endpoint.
type statusResponse struct {
	Status string `json:"status"`
}

// resultResponse is the body returned by the markdown result endpoint.
type resultResponse struct {
	Markdown string `json:"markdown"`
}

// NewClient creates a LlamaParse client.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger.Named("llamaparse"),
	}, nil
}

// Process uploads the PDF, waits for the structuring job to finish, and
// persists the structured Markdown as structured_data.md beside the PDF.
//
// Returns the Markdown file path. Job failure, a transport or HTTP error at
// any stage, or poll-bound exhaustion all return an error; there is no retry.
func (c *Client) Process(ctx context.Context, pdfPath string) (string, error) {
	jobID, err := c.upload(ctx, pdfPath)
	if err != nil {
		return "", err
	}
	c.logger.Info("structuring job submitted", zap.String("job_id", jobID))

	markdown, err := c.waitForResult(ctx, jobID)
	if err != nil {
		return "", err
	}

	mdPath := filepath.Join(filepath.Dir(pdfPath), MarkdownFile)
	if err := os.WriteFile(mdPath, []byte(markdown), 0o644); err != nil {
		return "", fmt.Errorf("writing structured markdown: %w", err)
	}
	c.logger.Info("structured markdown saved", zap.String("path", mdPath))
	return mdPath, nil
}

// upload submits the PDF as multipart form data and returns the job id.
func (c *Client) upload(ctx context.Context, pdfPath string) (string, error) {
	f, err := os.Open(pdfPath)
	if err != nil {
		return "", fmt.Errorf("opening document: %w", err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		part, err := writer.CreateFormFile("file", "file.pdf")
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, f); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(writer.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/parsing/upload", pr)
	if err != nil {
		return "", fmt.Errorf("creating upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	var parsed uploadResponse
	if err := c.doJSON(req, &parsed); err != nil {
		return "", fmt.Errorf("uploading document: %w", err)
	}
	if parsed.ID == "" {
		return "", ErrMissingJobID
	}
	return parsed.ID, nil
}

// waitForResult polls the job status at the fixed interval until a terminal
// state or the poll bound, then fetches the Markdown result on success.
func (c *Client) waitForResult(ctx context.Context, jobID string) (string, error) {
	statusURL := fmt.Sprintf("%s/api/parsing/job/%s", c.config.BaseURL, jobID)

	for poll := 0; poll < c.config.MaxPolls; poll++ {
		status, err := c.jobStatus(ctx, statusURL)
		if err != nil {
			return "", err
		}

		switch status {
		case StatusSuccess:
			return c.fetchMarkdown(ctx, jobID)
		case StatusFailed:
			return "", fmt.Errorf("%w: job %s", ErrJobFailed, jobID)
		default:
			c.logger.Info("job still in progress",
				zap.String("job_id", jobID),
				zap.String("status", status))
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.config.PollInterval):
		}
	}

	return "", fmt.Errorf("%w: job %s still pending after %d polls",
		ErrPollTimeout, jobID, c.config.MaxPolls)
}

func (c *Client) jobStatus(ctx context.Context, statusURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating status request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	var parsed statusResponse
	if err := c.doJSON(req, &parsed); err != nil {
		return "", fmt.Errorf("checking job status: %w", err)
	}
	return parsed.Status, nil
}

func (c *Client) fetchMarkdown(ctx context.Context, jobID string) (string, error) {
	resultURL := fmt.Sprintf("%s/api/parsing/job/%s/result/markdown", c.config.BaseURL, jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resultURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating result request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	var parsed resultResponse
	if err := c.doJSON(req, &parsed); err != nil {
		return "", fmt.Errorf("fetching result: %w", err)
	}
	return parsed.Markdown, nil
}

// doJSON executes the request and decodes a 2xx JSON body into out.
func (c *Client) doJSON(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %d: %s", ErrUnexpectedStatus, resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
