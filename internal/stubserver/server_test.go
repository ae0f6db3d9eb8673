package stubserver

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"clipforge/internal/model"

	"github.com/golang-jwt/jwt/v5"
)

func newTestServer(t *testing.T, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := New(opts)
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return s, ts
}

func postGenerate(t *testing.T, baseURL, script string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]any{"script": script, "duration": 120, "title": ""})
	resp, err := http.Post(baseURL+"/api/videos/generate", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("generate returned %d: %s", resp.StatusCode, raw)
	}
	var out struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.JobID == "" {
		t.Fatal("expected a job id")
	}
	return out.JobID
}

func getStatus(t *testing.T, baseURL, jobID string) model.StatusResponse {
	t.Helper()
	resp, err := http.Get(baseURL + "/api/videos/status/" + jobID)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out model.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestPipelineRunsToCompletionWithResult(t *testing.T) {
	_, ts := newTestServer(t, Options{StepInterval: time.Millisecond})
	jobID := postGenerate(t, ts.URL, "a script about otters")

	deadline := time.Now().Add(5 * time.Second)
	var last model.StatusResponse
	for time.Now().Before(deadline) {
		last = getStatus(t, ts.URL, jobID)
		if model.IsTerminal(last.Status) {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}

	if last.Status != model.StatusCompleted {
		t.Fatalf("expected completed, got %+v", last)
	}
	if last.Progress != 100 || last.Result == nil {
		t.Fatalf("expected full result, got %+v", last)
	}
	if last.Result.PremiereURL == "" || last.Result.CapcutURL == "" || last.Result.ExpiresAt == "" {
		t.Fatalf("incomplete result bundle: %+v", last.Result)
	}

	// Download links match the status result.
	resp, err := http.Get(ts.URL + "/api/videos/download/" + jobID)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("download returned %d", resp.StatusCode)
	}
	var links struct {
		PremiereURL string `json:"premiere_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&links); err != nil {
		t.Fatal(err)
	}
	if links.PremiereURL != last.Result.PremiereURL {
		t.Fatalf("download links disagree with status result: %q vs %q", links.PremiereURL, last.Result.PremiereURL)
	}
}

func TestDownloadRejectedBeforeCompletion(t *testing.T) {
	_, ts := newTestServer(t, Options{StepInterval: time.Hour})
	jobID := postGenerate(t, ts.URL, "slow job")

	resp, err := http.Get(ts.URL + "/api/videos/download/" + jobID)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(body.Detail, "not completed") {
		t.Fatalf("unexpected detail %q", body.Detail)
	}
}

func TestFailedJobReportsErrorAndStopsPipeline(t *testing.T) {
	s, ts := newTestServer(t, Options{StepInterval: 20 * time.Millisecond})
	jobID := postGenerate(t, ts.URL, "doomed job")

	if !s.Fail(jobID, "Failed to parse AI analysis") {
		t.Fatal("Fail returned false for a live job")
	}

	status := getStatus(t, ts.URL, jobID)
	if status.Status != model.StatusFailed || status.Error != "Failed to parse AI analysis" {
		t.Fatalf("unexpected status: %+v", status)
	}

	// The pipeline goroutine must not resurrect the job.
	time.Sleep(100 * time.Millisecond)
	status = getStatus(t, ts.URL, jobID)
	if status.Status != model.StatusFailed {
		t.Fatalf("failed job was resurrected: %+v", status)
	}
}

func TestDeleteRemovesJob(t *testing.T) {
	_, ts := newTestServer(t, Options{StepInterval: time.Hour})
	jobID := postGenerate(t, ts.URL, "temp job")

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/videos/"+jobID, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete returned %d", resp.StatusCode)
	}

	check, err := http.Get(ts.URL + "/api/videos/status/" + jobID)
	if err != nil {
		t.Fatal(err)
	}
	check.Body.Close()
	if check.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", check.StatusCode)
	}
}

func TestQueueStatusCountsJobs(t *testing.T) {
	_, ts := newTestServer(t, Options{StepInterval: time.Hour})
	postGenerate(t, ts.URL, "job one")
	postGenerate(t, ts.URL, "job two")

	resp, err := http.Get(ts.URL + "/api/videos/queue/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var stats struct {
		PendingJobs int `json:"pending_jobs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.PendingJobs != 2 {
		t.Fatalf("expected 2 pending jobs, got %d", stats.PendingJobs)
	}
}

func TestAuthMiddleware(t *testing.T) {
	const secret = "test-secret"
	_, ts := newTestServer(t, Options{StepInterval: time.Hour, JWTSecret: secret})

	resp, err := http.Get(ts.URL + "/api/videos/queue/status")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/videos/queue/status", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	authed, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	authed.Body.Close()
	if authed.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with valid token, got %d", authed.StatusCode)
	}
}

func TestGenerateRequiresScript(t *testing.T) {
	_, ts := newTestServer(t, Options{StepInterval: time.Hour})
	resp, err := http.Post(ts.URL+"/api/videos/generate", "application/json", strings.NewReader(`{"duration": 60}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}
