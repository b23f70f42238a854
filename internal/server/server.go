// Package server exposes the pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mrhapile/metadeploy/internal/pipeline"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Runner executes one change request.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Outcome, error)
}

// DeployResponse is returned by POST /deploy on success.
type DeployResponse struct {
	Status        string `json:"status"`
	DeploymentURL string `json:"deployment_url"`
	RunID         string `json:"run_id"`
}

// ErrorResponse is returned for every failed request. It carries the error
// message only.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Server serializes runs: the pipeline shares one work dir.
type Server struct {
	runner Runner
	logger *zap.Logger
	mu     sync.Mutex
}

// New creates a server. logger may be nil.
func New(runner Runner, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{runner: runner, logger: logger}
}

// Handler returns the routes.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())

	r.GET("/", s.home)
	r.GET("/healthz", s.health)
	r.POST("/deploy", s.deploy)
	return r
}

func (s *Server) home(c *gin.Context) {
	c.String(http.StatusOK, "Metadata deploy API is running!")
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) deploy(c *gin.Context) {
	var req pipeline.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	s.mu.Lock()
	out, err := s.runner.Run(c.Request.Context(), req)
	s.mu.Unlock()
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, DeployResponse{
		Status:        statusSuccess,
		DeploymentURL: out.Location,
		RunID:         out.RunID,
	})
}

func respondWithError(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, ErrorResponse{Status: statusError, Message: message})
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
