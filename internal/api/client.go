// Package api is the HTTP client for the video generation service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"clipforge/internal/model"
)

// Client talks to the video generation API.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

// New creates a client for the given base URL. authToken is attached as a
// bearer header when non-empty. Timeout can be tuned via
// CLIPFORGE_CLIENT_TIMEOUT (default 30s; submits and polls are short calls).
func New(baseURL, authToken string) *Client {
	timeout := 30 * time.Second
	if t := os.Getenv("CLIPFORGE_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		authToken: authToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// RequestError is a failure reported by the service. Message carries the
// server's detail text when one was provided.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

type generateRequest struct {
	Script   string `json:"script"`
	Duration int    `json:"duration"`
	Title    string `json:"title"`
}

type generateResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// errorBody is the service's failure payload, e.g. {"detail": "..."}.
type errorBody struct {
	Detail string `json:"detail"`
}

// DownloadLinks is the payload of GET /api/videos/download/{job_id}.
type DownloadLinks struct {
	JobID       string `json:"job_id"`
	PremiereURL string `json:"premiere_url"`
	CapcutURL   string `json:"capcut_url"`
	ExpiresAt   string `json:"expires_at"`
	ClipsCount  int    `json:"clips_count"`
	ImagesCount int    `json:"images_count"`
}

// QueueStats is the payload of GET /api/videos/queue/status.
type QueueStats struct {
	PendingJobs          int `json:"pending_jobs"`
	ProcessingJobs       int `json:"processing_jobs"`
	CompletedJobs        int `json:"completed_jobs"`
	FailedJobs           int `json:"failed_jobs"`
	EstimatedWaitSeconds int `json:"estimated_wait_time_seconds"`
}

// SubmitJob issues the one-shot creation request and returns the job id.
func (c *Client) SubmitJob(ctx context.Context, script string, durationSeconds int, title string) (string, error) {
	req := generateRequest{
		Script:   script,
		Duration: durationSeconds,
		Title:    title,
	}
	var resp generateResponse
	if err := c.do(ctx, http.MethodPost, "/api/videos/generate", req, &resp); err != nil {
		return "", err
	}
	if resp.JobID == "" {
		return "", &RequestError{StatusCode: http.StatusOK, Message: "service accepted the job but returned no job id"}
	}
	return resp.JobID, nil
}

// GetJobStatus fetches the current status snapshot for a job.
func (c *Client) GetJobStatus(ctx context.Context, jobID string) (model.StatusResponse, error) {
	var resp model.StatusResponse
	err := c.do(ctx, http.MethodGet, "/api/videos/status/"+url.PathEscape(jobID), nil, &resp)
	return resp, err
}

// GetDownloadLinks fetches the artifact locators for a completed job.
func (c *Client) GetDownloadLinks(ctx context.Context, jobID string) (DownloadLinks, error) {
	var links DownloadLinks
	err := c.do(ctx, http.MethodGet, "/api/videos/download/"+url.PathEscape(jobID), nil, &links)
	return links, err
}

// DeleteJob removes a job and its artifacts from the service.
func (c *Client) DeleteJob(ctx context.Context, jobID string) error {
	return c.do(ctx, http.MethodDelete, "/api/videos/"+url.PathEscape(jobID), nil, nil)
}

// GetQueueStatus fetches service-wide queue statistics.
func (c *Client) GetQueueStatus(ctx context.Context) (QueueStats, error) {
	var stats QueueStats
	err := c.do(ctx, http.MethodGet, "/api/videos/queue/status", nil, &stats)
	return stats, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.Unmarshal(raw, &eb)
		return &RequestError{StatusCode: resp.StatusCode, Message: eb.Detail}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}
