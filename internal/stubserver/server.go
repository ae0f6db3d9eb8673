// Package stubserver is a local in-memory implementation of the video
// generation API, used by `clipforge serve` for development and by tests.
// Jobs walk the real pipeline's progress checkpoints on a fixed interval.
package stubserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"clipforge/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Options configures the stub server.
type Options struct {
	Addr         string
	StepInterval time.Duration
	JWTSecret    string // empty disables auth, mirroring the real service
	Logger       *slog.Logger
}

// Server holds the in-memory job store.
type Server struct {
	opts Options
	log  *slog.Logger

	mu   sync.Mutex
	jobs map[string]*jobEntry
}

type jobEntry struct {
	resp    model.StatusResponse
	title   string
	seconds int
	created time.Time
	deleted bool
}

type pipelineStep struct {
	progress int
	step     string
	eta      int
}

// Checkpoints mirrored from the production pipeline.
var pipelineSteps = []pipelineStep{
	{10, "Analyzing script with AI...", 240},
	{20, "Script analyzed", 180},
	{30, "Searching for videos...", 150},
	{40, "Videos found", 120},
	{50, "Downloading videos...", 90},
	{60, "Extracting clips...", 60},
	{80, "Generating AI images...", 40},
	{90, "Exporting to Premiere & CapCut...", 20},
}

func New(opts Options) *Server {
	if opts.StepInterval <= 0 {
		opts.StepInterval = 3 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Server{
		opts: opts,
		log:  opts.Logger,
		jobs: make(map[string]*jobEntry),
	}
}

type generateRequest struct {
	Script   string `json:"script" binding:"required"`
	Duration int    `json:"duration"`
	Title    string `json:"title"`
}

// Router builds the gin engine implementing the remote contract.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogMiddleware(s.log))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	videos := r.Group("/api/videos")
	if s.opts.JWTSecret != "" {
		videos.Use(authMiddleware(s.opts.JWTSecret))
	}
	videos.POST("/generate", s.generate)
	videos.GET("/status/:job_id", s.status)
	videos.GET("/download/:job_id", s.download)
	videos.GET("/queue/status", s.queueStatus)
	videos.DELETE("/:job_id", s.deleteJob)

	return r
}

// Run serves until the listener fails.
func (s *Server) Run() error {
	addr := s.opts.Addr
	if addr == "" {
		addr = ":8080"
	}
	s.log.Info("stub server listening", "addr", addr, "step_interval", s.opts.StepInterval.String())
	return s.Router().Run(addr)
}

func (s *Server) generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "script is required"})
		return
	}
	if req.Duration <= 0 {
		req.Duration = 60
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "Untitled Video"
	}

	jobID := uuid.NewString()
	entry := &jobEntry{
		resp: model.StatusResponse{
			JobID:    jobID,
			Status:   model.StatusQueued,
			Progress: 0,
		},
		title:   title,
		seconds: req.Duration,
		created: time.Now().UTC(),
	}

	s.mu.Lock()
	s.jobs[jobID] = entry
	s.mu.Unlock()

	go s.runPipeline(jobID)

	s.log.Info("job accepted", "job_id", jobID, "title", title, "duration", req.Duration)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"job_id":  jobID,
		"status":  model.StatusQueued,
		"message": "Video generation started. Check status with /api/videos/status/{job_id}",
	})
}

func (s *Server) status(c *gin.Context) {
	jobID := c.Param("job_id")
	s.mu.Lock()
	entry, ok := s.jobs[jobID]
	var resp model.StatusResponse
	if ok {
		resp = entry.resp
	}
	s.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Job not found"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) download(c *gin.Context) {
	jobID := c.Param("job_id")
	s.mu.Lock()
	entry, ok := s.jobs[jobID]
	var resp model.StatusResponse
	if ok {
		resp = entry.resp
	}
	s.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Job not found"})
		return
	}
	if resp.Status != model.StatusCompleted || resp.Result == nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("Job not completed yet. Status: %s", resp.Status)})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"job_id":       jobID,
		"premiere_url": resp.Result.PremiereURL,
		"capcut_url":   resp.Result.CapcutURL,
		"expires_at":   resp.Result.ExpiresAt,
		"clips_count":  resp.Result.ClipsCount,
		"images_count": resp.Result.ImagesCount,
	})
}

func (s *Server) deleteJob(c *gin.Context) {
	jobID := c.Param("job_id")
	s.mu.Lock()
	entry, ok := s.jobs[jobID]
	if ok {
		entry.deleted = true
		delete(s.jobs, jobID)
	}
	s.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Job not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Job deleted successfully"})
}

func (s *Server) queueStatus(c *gin.Context) {
	s.mu.Lock()
	var pending, processing, completed, failed int
	for _, entry := range s.jobs {
		switch entry.resp.Status {
		case model.StatusQueued:
			pending++
		case model.StatusProcessing:
			processing++
		case model.StatusCompleted:
			completed++
		case model.StatusFailed:
			failed++
		}
	}
	s.mu.Unlock()

	stepsLeft := pending*len(pipelineSteps) + processing*len(pipelineSteps)/2
	c.JSON(http.StatusOK, gin.H{
		"pending_jobs":                pending,
		"processing_jobs":             processing,
		"completed_jobs":              completed,
		"failed_jobs":                 failed,
		"estimated_wait_time_seconds": int(s.opts.StepInterval.Seconds()) * stepsLeft,
	})
}

// runPipeline advances a job through the checkpoint table and finishes it
// with a result bundle. A deleted job stops advancing.
func (s *Server) runPipeline(jobID string) {
	for _, step := range pipelineSteps {
		time.Sleep(s.opts.StepInterval)
		if !s.advance(jobID, step) {
			return
		}
	}
	time.Sleep(s.opts.StepInterval)
	s.complete(jobID)
}

func (s *Server) advance(jobID string, step pipelineStep) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.jobs[jobID]
	if !ok || entry.deleted || model.IsTerminal(entry.resp.Status) {
		return false
	}
	if err := model.Transition(&entry.resp, model.StatusProcessing); err != nil {
		s.log.Error("pipeline transition rejected", "job_id", jobID, "error", err)
		return false
	}
	eta := step.eta
	entry.resp.Progress = step.progress
	entry.resp.CurrentStep = step.step
	entry.resp.ETASeconds = &eta
	return true
}

func (s *Server) complete(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.jobs[jobID]
	if !ok || entry.deleted || model.IsTerminal(entry.resp.Status) {
		return
	}
	if err := model.Transition(&entry.resp, model.StatusCompleted); err != nil {
		s.log.Error("pipeline completion rejected", "job_id", jobID, "error", err)
		return
	}

	clips := entry.seconds / 60
	if clips < 1 {
		clips = 1
	}
	entry.resp.Progress = 100
	entry.resp.CurrentStep = "Done"
	entry.resp.ETASeconds = nil
	entry.resp.Result = &model.ResultBundle{
		PremiereURL: fmt.Sprintf("/downloads/%s/premiere.zip", jobID),
		CapcutURL:   fmt.Sprintf("/downloads/%s/capcut.zip", jobID),
		ClipsCount:  clips,
		ImagesCount: clips / 2,
		ExpiresAt:   time.Now().UTC().Add(24 * time.Hour).Format(time.RFC3339),
	}
}

// Fail marks a live job as failed with the given message. Exposed so tests
// and demos can exercise the failure path.
func (s *Server) Fail(jobID, message string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.jobs[jobID]
	if !ok || model.IsTerminal(entry.resp.Status) {
		return false
	}
	if err := model.Transition(&entry.resp, model.StatusFailed); err != nil {
		return false
	}
	entry.resp.Error = message
	entry.resp.ETASeconds = nil
	return true
}

func requestLogMiddleware(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

func authMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "No authorization header"})
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")
		token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": fmt.Sprintf("Invalid token: %v", err)})
			return
		}
		c.Next()
	}
}
