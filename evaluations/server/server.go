/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package server

import (
	"errors"
	"net/http"
	"time"

	"chainguard.dev/docscore/agents/executor"
	"chainguard.dev/docscore/evaluations"
	"chainguard.dev/docscore/progress"
	"github.com/chainguard-dev/clog"
	"github.com/gin-gonic/gin"
)

// DefaultClientBuffer is the number of events queued per stream client.
const DefaultClientBuffer = 64

// Server exposes an evaluations.Service over HTTP.
type Server struct {
	svc    *evaluations.Service
	relay  *progress.Relay
	buffer int
}

// Option configures a Server.
type Option func(*Server)

// WithClientBuffer overrides DefaultClientBuffer.
func WithClientBuffer(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.buffer = n
		}
	}
}

// New creates a Server for svc, streaming progress from relay.
func New(svc *evaluations.Service, relay *progress.Relay, opts ...Option) *Server {
	s := &Server{svc: svc, relay: relay, buffer: DefaultClientBuffer}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.GET("/rubrics", s.listRubrics)
	api.POST("/evaluations", s.submit)
	api.GET("/evaluations/:id", s.status)
	api.GET("/evaluations/:id/stream", s.stream)
	api.GET("/evaluations/:id/report", s.report)
	return r
}

// requestLogger logs each request through clog.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		clog.FromContext(c.Request.Context()).
			With("method", c.Request.Method).
			With("path", c.FullPath()).
			With("status", c.Writer.Status()).
			With("duration", time.Since(start)).
			Info("Handled request")
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func (s *Server) submit(c *gin.Context) {
	var in evaluations.SubmitRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	id, err := s.svc.Submit(c.Request.Context(), in)
	var ve *evaluations.ValidationError
	var ce *executor.ConfigurationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, errorResponse{Error: ve.Error(), Field: ve.Field})
	case errors.As(err, &ce):
		c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: ce.Error()})
	case errors.Is(err, evaluations.ErrClosed):
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	case err != nil:
		clog.FromContext(c.Request.Context()).With("error", err).Error("Failed to submit evaluation")
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to submit evaluation"})
	default:
		c.JSON(http.StatusAccepted, gin.H{"evaluationId": id})
	}
}

func (s *Server) status(c *gin.Context) {
	rec, err := s.svc.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.lookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) report(c *gin.Context) {
	text, err := s.svc.Report(c.Request.Context(), c.Param("id"))
	if errors.Is(err, evaluations.ErrNotReady) {
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		s.lookupError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="evaluation-`+c.Param("id")+`.txt"`)
	c.String(http.StatusOK, text)
}

type rubricSummary struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Format      string   `json:"format"`
	Criteria    []string `json:"criteria"`
	Questions   int      `json:"questions"`
}

func (s *Server) listRubrics(c *gin.Context) {
	rubrics := s.svc.Rubrics()
	out := make([]rubricSummary, 0, len(rubrics))
	for _, r := range rubrics {
		out = append(out, rubricSummary{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			Format:      string(r.Format),
			Criteria:    r.Criteria,
			Questions:   len(r.Questions),
		})
	}
	c.JSON(http.StatusOK, gin.H{"rubrics": out})
}

func (s *Server) lookupError(c *gin.Context, err error) {
	if errors.Is(err, evaluations.ErrNotFound) {
		c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	clog.FromContext(c.Request.Context()).With("error", err).Error("Failed to load evaluation")
	c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to load evaluation"})
}
