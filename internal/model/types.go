package model

// ResultBundle describes the artifacts delivered for a completed job.
type ResultBundle struct {
	PremiereURL string `json:"premiere_url"`
	CapcutURL   string `json:"capcut_url"`
	ClipsCount  int    `json:"clips_count"`
	ImagesCount int    `json:"images_count"`
	ExpiresAt   string `json:"expires_at"`
}

// StatusResponse is the wire shape of GET /api/videos/status/{job_id}.
type StatusResponse struct {
	JobID       string        `json:"job_id"`
	Status      string        `json:"status"`
	Progress    int           `json:"progress"`
	CurrentStep string        `json:"current_step,omitempty"`
	ETASeconds  *int          `json:"eta_seconds,omitempty"`
	Error       string        `json:"error,omitempty"`
	Result      *ResultBundle `json:"result,omitempty"`
}

// JobRecord is the client-side snapshot of one job. Every successful status
// fetch replaces it wholesale; only the job id survives across responses, so
// a field omitted from a response is absent in the new record too.
type JobRecord struct {
	JobID       string
	Status      string
	Progress    int
	CurrentStep string
	ETASeconds  *int
	Error       string
	Result      *ResultBundle
}
