// Package server exposes jobs, runs and metrics over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"MarketPrompt/internal/components"
	"MarketPrompt/internal/config"
	"MarketPrompt/internal/pipeline"
	"MarketPrompt/internal/recorder"
)

const maxBodyBytes = 8 << 20

// JobRunner runs configured jobs.
type JobRunner interface {
	Jobs() []config.Job
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
	RunFreqtrade(ctx context.Context, req pipeline.Request, body []byte) (*pipeline.Result, error)
}

// Options configures a Server. Only Runner is required.
type Options struct {
	Runner   JobRunner
	Recorder recorder.Recorder
	Metrics  http.Handler
	// NextRun reports the next scheduled run of a job.
	NextRun func(name string) (time.Time, bool)
	// SetLogLevel changes the process log level; nil disables the endpoint.
	SetLogLevel func(level string) error
	Log         logrus.FieldLogger
	Debug       bool
}

// Server is the HTTP API.
type Server struct {
	router *gin.Engine
	opts   Options
	log    logrus.FieldLogger
}

// New creates the server and registers its routes.
func New(opts Options) *Server {
	if !opts.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	if opts.Recorder == nil {
		opts.Recorder = recorder.NewNoopRecorder()
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	s := &Server{router: router, opts: opts, log: log}
	s.registerRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/health", s.health)
		api.GET("/jobs", s.listJobs)
		api.POST("/jobs/:name/run", s.runJob)
		api.GET("/runs", s.listRuns)
		api.POST("/freqtrade/:name", s.freqtrade)
		if s.opts.SetLogLevel != nil {
			api.PUT("/log-level", s.setLogLevel)
		}
	}
	if s.opts.Metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.opts.Metrics))
	}
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.log.Info("http server stopped")
	return nil
}

func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		began := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(began),
		}).Debug("http request")
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "jobs": len(s.opts.Runner.Jobs())})
}

type jobView struct {
	Name       string     `json:"name"`
	Cron       string     `json:"cron,omitempty"`
	NextRun    *time.Time `json:"next_run,omitempty"`
	Components int        `json:"components"`
	Stream     bool       `json:"stream"`
	Notify     bool       `json:"notify"`
}

func (s *Server) listJobs(c *gin.Context) {
	jobs := s.opts.Runner.Jobs()
	out := make([]jobView, 0, len(jobs))
	for _, j := range jobs {
		v := jobView{Name: j.Name, Cron: j.Cron, Components: len(j.Components), Stream: j.Stream, Notify: j.Notify}
		if s.opts.NextRun != nil {
			if next, ok := s.opts.NextRun(j.Name); ok {
				v.NextRun = &next
			}
		}
		out = append(out, v)
	}
	c.JSON(http.StatusOK, out)
}

type runResponse struct {
	Job      string `json:"job"`
	Prompt   string `json:"prompt"`
	Response string `json:"response"`
	Words    int    `json:"prompt_words"`
	Chars    int    `json:"prompt_characters"`
	Duration string `json:"duration"`
}

func newRunResponse(res *pipeline.Result) runResponse {
	return runResponse{
		Job:      res.Job,
		Prompt:   res.Prompt,
		Response: res.Response,
		Words:    res.PromptWords,
		Chars:    res.PromptChars,
		Duration: res.Duration.String(),
	}
}

func (s *Server) runJob(c *gin.Context) {
	dryRun, err := queryBool(c, "dry_run")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := s.opts.Runner.Run(c.Request.Context(), pipeline.Request{
		Job:     c.Param("name"),
		Trigger: pipeline.TriggerHTTP,
		DryRun:  dryRun,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newRunResponse(res))
}

func (s *Server) freqtrade(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read body: " + err.Error()})
		return
	}
	dryRun, err := queryBool(c, "dry_run")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := s.opts.Runner.RunFreqtrade(c.Request.Context(), pipeline.Request{
		Job:     c.Param("name"),
		Trigger: pipeline.TriggerHTTP,
		DryRun:  dryRun,
	}, body)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newRunResponse(res))
}

type runView struct {
	ID            int64     `json:"id"`
	Job           string    `json:"job"`
	Trigger       string    `json:"trigger"`
	StartedAt     time.Time `json:"started_at"`
	DurationMs    int64     `json:"duration_ms"`
	PromptWords   int       `json:"prompt_words"`
	PromptChars   int       `json:"prompt_characters"`
	ResponseChars int       `json:"response_characters"`
	DryRun        bool      `json:"dry_run"`
	Error         string    `json:"error,omitempty"`
}

func (s *Server) listRuns(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	runs, err := s.opts.Recorder.Recent(c.Query("job"), limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]runView, 0, len(runs))
	for _, r := range runs {
		out = append(out, runView{
			ID:            r.ID,
			Job:           r.Job,
			Trigger:       r.Trigger,
			StartedAt:     r.StartedAt,
			DurationMs:    r.Duration.Milliseconds(),
			PromptWords:   r.PromptWords,
			PromptChars:   r.PromptChars,
			ResponseChars: r.ResponseChars,
			DryRun:        r.DryRun,
			Error:         r.Error,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) setLogLevel(c *gin.Context) {
	var body struct {
		Level string `json:"level" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.opts.SetLogLevel(body.Level); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.log.WithField("level", body.Level).Info("log level changed")
	c.JSON(http.StatusOK, gin.H{"level": body.Level})
}

func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, pipeline.ErrUnknownJob):
		status = http.StatusNotFound
	case errors.Is(err, components.ErrFreqtradeBody):
		status = http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	if status == http.StatusInternalServerError {
		s.log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func queryBool(c *gin.Context, key string) (bool, error) {
	v := c.Query(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean", key)
	}
	return b, nil
}
