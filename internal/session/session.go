// Package session holds the state core of the submit/poll lifecycle: the
// live job record, the single-slot error message, the derived screen, and
// the token discipline that discards stale async results.
package session

import "clipforge/internal/model"

// Screen is the presentation state derived from session state. It is never
// stored independently of the job record and error slot.
type Screen int

const (
	ScreenAuth Screen = iota
	ScreenInput
	ScreenProgress
	ScreenDownload
)

func (s Screen) String() string {
	switch s {
	case ScreenAuth:
		return "auth"
	case ScreenInput:
		return "input"
	case ScreenProgress:
		return "progress"
	case ScreenDownload:
		return "download"
	default:
		return "unknown"
	}
}

// AuthCapability selects whether the screen machine includes the Auth state.
type AuthCapability int

const (
	AuthDisabled AuthCapability = iota
	AuthBearer
)

// Outcome tells the polling loop what a successfully applied status
// response means for its own lifetime.
type Outcome int

const (
	// OutcomeContinue: non-terminal status, keep ticking.
	OutcomeContinue Outcome = iota
	// OutcomeCompleted: terminal success with a result bundle, stop ticking.
	OutcomeCompleted
	// OutcomeCompletedNoResult: terminal success without a result bundle.
	// Polling stops but the download screen is not entered.
	OutcomeCompletedNoResult
	// OutcomeFailed: terminal failure, stop ticking.
	OutcomeFailed
)

const (
	startingStep = "Starting..."

	genericSubmitError = "Failed to start video generation. Please try again."
	genericJobError    = "Video generation failed. Please try again."
	missingResultError = "Job reported completed but no result was delivered. Please start over."
)

// Session owns at most one live job. Every async operation (submit, each
// status fetch) is issued with a token from NextToken; results are applied
// only while their token is still the session's current one. Reset and
// teardown advance the token, which orphans all in-flight work.
type Session struct {
	auth          AuthCapability
	authenticated bool

	token  uint64
	job    *model.JobRecord
	errMsg string
}

func New(auth AuthCapability) *Session {
	return &Session{auth: auth}
}

// Screen derives the active presentation screen.
func (s *Session) Screen() Screen {
	if s.auth == AuthBearer && !s.authenticated {
		return ScreenAuth
	}
	if s.job == nil {
		return ScreenInput
	}
	if s.job.Status == model.StatusCompleted && s.job.Result != nil {
		return ScreenDownload
	}
	return ScreenProgress
}

// MarkAuthenticated leaves the Auth screen. No-op when auth is disabled.
func (s *Session) MarkAuthenticated() {
	s.authenticated = true
}

// Job returns a snapshot of the live job record, if any.
func (s *Session) Job() (model.JobRecord, bool) {
	if s.job == nil {
		return model.JobRecord{}, false
	}
	return *s.job, true
}

// ErrorMessage returns the most recent user-visible error, or "".
func (s *Session) ErrorMessage() string {
	return s.errMsg
}

// Token returns the current generation token.
func (s *Session) Token() uint64 {
	return s.token
}

// NextToken advances the generation token and returns it. Each issued fetch
// carries the value it got here; an arriving result with an older token is
// stale and must be dropped.
func (s *Session) NextToken() uint64 {
	s.token++
	return s.token
}

// BeginSubmit clears the error slot and returns the token for the submit
// call. The previous session's in-flight work is orphaned by the bump.
func (s *Session) BeginSubmit() uint64 {
	s.errMsg = ""
	return s.NextToken()
}

// ApplySubmitSuccess seeds the job record for a freshly accepted job and
// reports whether the result was applied (false means it was stale).
func (s *Session) ApplySubmitSuccess(token uint64, jobID string) bool {
	if token != s.token {
		return false
	}
	s.job = &model.JobRecord{
		JobID:       jobID,
		Status:      model.StatusQueued,
		Progress:    0,
		CurrentStep: startingStep,
	}
	s.errMsg = ""
	return true
}

// ApplySubmitFailure surfaces a submission error. No job record is created
// and the screen stays wherever it was (Input).
func (s *Session) ApplySubmitFailure(token uint64, msg string) bool {
	if token != s.token {
		return false
	}
	if msg == "" {
		msg = genericSubmitError
	}
	s.errMsg = msg
	return true
}

// ApplyStatus replaces the job record wholesale with a poll response and
// classifies the outcome. The job id is carried forward; every other field
// comes from the response verbatim, including optional fields reverting to
// absent when omitted. Returns applied=false for stale tokens or when no
// job is live.
func (s *Session) ApplyStatus(token uint64, resp model.StatusResponse) (Outcome, bool) {
	if token != s.token || s.job == nil {
		return OutcomeContinue, false
	}

	s.job = &model.JobRecord{
		JobID:       s.job.JobID,
		Status:      resp.Status,
		Progress:    resp.Progress,
		CurrentStep: resp.CurrentStep,
		ETASeconds:  resp.ETASeconds,
		Error:       resp.Error,
		Result:      resp.Result,
	}

	switch resp.Status {
	case model.StatusCompleted:
		if resp.Result == nil {
			s.errMsg = missingResultError
			return OutcomeCompletedNoResult, true
		}
		return OutcomeCompleted, true
	case model.StatusFailed:
		if resp.Error != "" {
			s.errMsg = resp.Error
		} else {
			s.errMsg = genericJobError
		}
		return OutcomeFailed, true
	default:
		return OutcomeContinue, true
	}
}

// Reset returns the session to its initial state: no job, empty error slot,
// Input screen. The token bump guarantees no tick or in-flight response from
// the prior incarnation is applied afterward.
func (s *Session) Reset() {
	s.NextToken()
	s.job = nil
	s.errMsg = ""
}

// Invalidate orphans all in-flight work without touching visible state.
// Used on teardown, where no further results may be applied.
func (s *Session) Invalidate() {
	s.NextToken()
}
