package session

import (
	"testing"

	"clipforge/internal/model"
)

func TestInitialScreenIsInputWhenAuthDisabled(t *testing.T) {
	s := New(AuthDisabled)
	if got := s.Screen(); got != ScreenInput {
		t.Fatalf("expected input screen, got %s", got)
	}
}

func TestInitialScreenIsAuthWhenBearerEnabled(t *testing.T) {
	s := New(AuthBearer)
	if got := s.Screen(); got != ScreenAuth {
		t.Fatalf("expected auth screen, got %s", got)
	}
	s.MarkAuthenticated()
	if got := s.Screen(); got != ScreenInput {
		t.Fatalf("expected input screen after auth, got %s", got)
	}
}

func TestSubmitSuccessSeedsRecordAndProgressScreen(t *testing.T) {
	s := New(AuthDisabled)
	tok := s.BeginSubmit()
	if !s.ApplySubmitSuccess(tok, "job-1") {
		t.Fatal("expected fresh submit result to apply")
	}

	job, ok := s.Job()
	if !ok {
		t.Fatal("expected a live job record")
	}
	if job.JobID != "job-1" || job.Status != model.StatusQueued || job.Progress != 0 || job.CurrentStep != "Starting..." {
		t.Fatalf("unexpected seeded record: %+v", job)
	}
	if s.Screen() != ScreenProgress {
		t.Fatalf("expected progress screen, got %s", s.Screen())
	}
	if s.ErrorMessage() != "" {
		t.Fatalf("expected empty error slot, got %q", s.ErrorMessage())
	}
}

func TestSubmitFailureLeavesInputScreenAndNoRecord(t *testing.T) {
	s := New(AuthDisabled)
	tok := s.BeginSubmit()
	if !s.ApplySubmitFailure(tok, "Rate limit exceeded") {
		t.Fatal("expected fresh failure to apply")
	}
	if _, ok := s.Job(); ok {
		t.Fatal("submission failure must not create a job record")
	}
	if s.Screen() != ScreenInput {
		t.Fatalf("expected input screen, got %s", s.Screen())
	}
	if s.ErrorMessage() != "Rate limit exceeded" {
		t.Fatalf("unexpected error slot: %q", s.ErrorMessage())
	}
}

func TestSubmitFailureFallsBackToGenericMessage(t *testing.T) {
	s := New(AuthDisabled)
	tok := s.BeginSubmit()
	s.ApplySubmitFailure(tok, "")
	if s.ErrorMessage() == "" {
		t.Fatal("expected a fallback error message")
	}
}

func submitJob(t *testing.T, s *Session) {
	t.Helper()
	tok := s.BeginSubmit()
	if !s.ApplySubmitSuccess(tok, "job-1") {
		t.Fatal("submit did not apply")
	}
}

func TestPollReplacesRecordWholesale(t *testing.T) {
	s := New(AuthDisabled)
	submitJob(t, s)

	eta := 120
	tok := s.NextToken()
	outcome, applied := s.ApplyStatus(tok, model.StatusResponse{
		Status:      model.StatusProcessing,
		Progress:    40,
		CurrentStep: "Videos found",
		ETASeconds:  &eta,
	})
	if !applied || outcome != OutcomeContinue {
		t.Fatalf("expected applied continue, got applied=%v outcome=%d", applied, outcome)
	}

	// Next response omits optional fields; they must revert to absent.
	tok = s.NextToken()
	outcome, applied = s.ApplyStatus(tok, model.StatusResponse{
		Status:   model.StatusProcessing,
		Progress: 35, // progress may regress per contract, shown as-is
	})
	if !applied || outcome != OutcomeContinue {
		t.Fatalf("expected applied continue, got applied=%v outcome=%d", applied, outcome)
	}

	job, _ := s.Job()
	if job.JobID != "job-1" {
		t.Fatalf("job id must carry forward, got %q", job.JobID)
	}
	if job.Progress != 35 {
		t.Fatalf("progress must be displayed as-is, got %d", job.Progress)
	}
	if job.CurrentStep != "" || job.ETASeconds != nil {
		t.Fatalf("omitted optional fields must be absent, got %+v", job)
	}
}

func TestCompletedWithResultEntersDownloadExactlyThen(t *testing.T) {
	s := New(AuthDisabled)
	submitJob(t, s)

	tok := s.NextToken()
	s.ApplyStatus(tok, model.StatusResponse{Status: model.StatusProcessing, Progress: 90})
	if s.Screen() != ScreenProgress {
		t.Fatalf("must not enter download before completion, got %s", s.Screen())
	}

	result := &model.ResultBundle{
		PremiereURL: "https://cdn.example/premiere.zip",
		CapcutURL:   "https://cdn.example/capcut.zip",
		ClipsCount:  7,
		ImagesCount: 3,
		ExpiresAt:   "2026-08-24T00:00:00Z",
	}
	tok = s.NextToken()
	outcome, applied := s.ApplyStatus(tok, model.StatusResponse{
		Status:   model.StatusCompleted,
		Progress: 100,
		Result:   result,
	})
	if !applied || outcome != OutcomeCompleted {
		t.Fatalf("expected completed outcome, got applied=%v outcome=%d", applied, outcome)
	}
	if s.Screen() != ScreenDownload {
		t.Fatalf("expected download screen, got %s", s.Screen())
	}
	job, _ := s.Job()
	if job.Result == nil || job.Result.ClipsCount != 7 {
		t.Fatalf("result bundle missing from record: %+v", job)
	}
}

func TestCompletedWithoutResultStaysOnProgress(t *testing.T) {
	s := New(AuthDisabled)
	submitJob(t, s)

	tok := s.NextToken()
	outcome, applied := s.ApplyStatus(tok, model.StatusResponse{
		Status:   model.StatusCompleted,
		Progress: 100,
	})
	if !applied || outcome != OutcomeCompletedNoResult {
		t.Fatalf("expected completed-no-result outcome, got applied=%v outcome=%d", applied, outcome)
	}
	if s.Screen() != ScreenProgress {
		t.Fatalf("must not enter download without a result, got %s", s.Screen())
	}
	if s.ErrorMessage() == "" {
		t.Fatal("expected the inconsistency to be surfaced in the error slot")
	}
}

func TestFailedSurfacesErrorAndStaysOnProgress(t *testing.T) {
	s := New(AuthDisabled)
	submitJob(t, s)

	tok := s.NextToken()
	outcome, applied := s.ApplyStatus(tok, model.StatusResponse{
		Status:   model.StatusFailed,
		Progress: 60,
		Error:    "Failed to parse AI analysis",
	})
	if !applied || outcome != OutcomeFailed {
		t.Fatalf("expected failed outcome, got applied=%v outcome=%d", applied, outcome)
	}
	if s.Screen() != ScreenProgress {
		t.Fatalf("failed jobs stay on progress, got %s", s.Screen())
	}
	if s.ErrorMessage() != "Failed to parse AI analysis" {
		t.Fatalf("unexpected error slot: %q", s.ErrorMessage())
	}
}

func TestFailedWithoutMessageUsesDefault(t *testing.T) {
	s := New(AuthDisabled)
	submitJob(t, s)

	tok := s.NextToken()
	s.ApplyStatus(tok, model.StatusResponse{Status: model.StatusFailed})
	if s.ErrorMessage() == "" {
		t.Fatal("expected a default failure message")
	}
}

func TestStaleTokenResponsesAreDiscarded(t *testing.T) {
	s := New(AuthDisabled)
	submitJob(t, s)

	older := s.NextToken()
	newer := s.NextToken() // a second fetch overlapped the first

	if _, applied := s.ApplyStatus(newer, model.StatusResponse{Status: model.StatusProcessing, Progress: 50}); !applied {
		t.Fatal("fresh response must apply")
	}
	if _, applied := s.ApplyStatus(older, model.StatusResponse{Status: model.StatusProcessing, Progress: 20}); applied {
		t.Fatal("stale response must be discarded")
	}

	job, _ := s.Job()
	if job.Progress != 50 {
		t.Fatalf("stale response regressed the record to %d", job.Progress)
	}
}

func TestResetFromAnyStateReturnsToInitial(t *testing.T) {
	s := New(AuthDisabled)
	submitJob(t, s)
	inFlight := s.NextToken()

	s.Reset()

	if _, ok := s.Job(); ok {
		t.Fatal("reset must clear the job record")
	}
	if s.ErrorMessage() != "" {
		t.Fatal("reset must clear the error slot")
	}
	if s.Screen() != ScreenInput {
		t.Fatalf("expected input screen after reset, got %s", s.Screen())
	}
	if _, applied := s.ApplyStatus(inFlight, model.StatusResponse{Status: model.StatusProcessing}); applied {
		t.Fatal("responses from before the reset must not apply")
	}
}

func TestInvalidateOrphansInFlightWork(t *testing.T) {
	s := New(AuthDisabled)
	submitJob(t, s)
	inFlight := s.NextToken()

	s.Invalidate()

	if _, applied := s.ApplyStatus(inFlight, model.StatusResponse{Status: model.StatusCompleted}); applied {
		t.Fatal("responses must not apply after teardown")
	}
}

func TestStaleSubmitResultDiscardedAfterReset(t *testing.T) {
	s := New(AuthDisabled)
	tok := s.BeginSubmit()
	s.Reset()
	if s.ApplySubmitSuccess(tok, "job-zombie") {
		t.Fatal("a submit result from before the reset must not resurrect a session")
	}
	if _, ok := s.Job(); ok {
		t.Fatal("no job record expected")
	}
}
