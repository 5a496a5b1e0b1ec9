// Package api exposes the generation service over HTTP.
//
// Routes:
//
//	POST /api/generate                 start a job, 202 with its id
//	GET  /api/generate/{id}/status     poll a job
//	GET  /api/generate/{id}/download   fetch the zip of a completed job
//	GET  /api/features?architecture=   list selectable features
//	GET  /healthz
//	GET  /metrics
package api

import (
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/simonhull/firebird-suite/roost/internal/apperr"
	"github.com/simonhull/firebird-suite/roost/internal/feature"
	"github.com/simonhull/firebird-suite/roost/internal/generation"
	"github.com/simonhull/firebird-suite/roost/internal/logger"
	"github.com/simonhull/firebird-suite/roost/internal/strategy"
)

// Server routes HTTP requests to a generation service
type Server struct {
	jobs      *generation.Service
	templates fs.FS
	log       logger.Logger
}

// NewServer creates a server. templates is the pack the catalog is read from.
func NewServer(jobs *generation.Service, templates fs.FS, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	return &Server{
		jobs:      jobs,
		templates: templates,
		log:       log.WithFields(logger.F("component", "api")),
	}
}

// Handler returns the routed handler wrapped in recovery and access logging
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("GET /api/generate/{id}/status", s.handleStatus)
	mux.HandleFunc("GET /api/generate/{id}/download", s.handleDownload)
	mux.HandleFunc("GET /api/features", s.handleFeatures)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		_ = writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.jobs.Registry(), promhttp.HandlerOpts{}))

	return s.recoverer(s.accessLog(mux))
}

type generateResponse struct {
	GenerationID string            `json:"generationId"`
	Status       generation.Status `json:"status"`
}

type statusResponse struct {
	Status      generation.Status `json:"status"`
	DownloadURL string            `json:"downloadUrl,omitempty"`
	Error       *apperr.Payload   `json:"error,omitempty"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req strategy.Request
	if err := bindAndValidate(w, r, &req); err != nil {
		_ = writeError(w, err)
		return
	}

	id, err := s.jobs.Start(req)
	if err != nil {
		_ = writeError(w, err)
		return
	}
	_ = writeJSON(w, http.StatusAccepted, generateResponse{GenerationID: id, Status: generation.StatusPending})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	snap, err := s.jobs.Status(id)
	if err != nil {
		_ = writeError(w, err)
		return
	}

	resp := statusResponse{Status: snap.Status, Error: snap.Error}
	if snap.Status == generation.StatusCompleted {
		resp.DownloadURL = fmt.Sprintf("/api/generate/%s/download", id)
	}
	_ = writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	data, err := s.jobs.Archive(id)
	if err != nil {
		_ = writeError(w, err)
		return
	}

	name := "project"
	if snap, err := s.jobs.Status(id); err == nil && snap.ProjectName != "" {
		name = snap.ProjectName
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".zip"))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleFeatures(w http.ResponseWriter, r *http.Request) {
	arch, err := feature.ParseArchitecture(r.URL.Query().Get("architecture"))
	if err != nil {
		_ = writeError(w, err)
		return
	}

	nodes, err := feature.Catalog(s.templates, arch)
	if err != nil {
		_ = writeError(w, err)
		return
	}
	if nodes == nil {
		nodes = []feature.Node{}
	}
	_ = writeJSON(w, http.StatusOK, map[string]any{
		"architecture": arch.String(),
		"features":     nodes,
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		began := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("request",
			logger.F("method", r.Method),
			logger.F("path", r.URL.Path),
			logger.F("status", rec.status),
			logger.F("duration", time.Since(began).String()))
	})
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				s.log.Error("handler panicked", logger.F("path", r.URL.Path), logger.F("panic", v))
				_ = writeError(w, apperr.Unknown(fmt.Errorf("internal error")))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
