package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lccweb/agentwave/internal/buildinfo"
	"github.com/lccweb/agentwave/internal/control"
	"github.com/lccweb/agentwave/internal/daemon/store"
	"github.com/lccweb/agentwave/internal/models"
)

// listJobs returns active jobs and up to limit recent ones, preferring the
// persisted history when one is configured.
func (s *Server) listJobs(ctx context.Context, limit int) (*control.JobList, error) {
	if limit <= 0 {
		limit = s.opts.HistoryLimit
	}
	list := &control.JobList{Active: s.opts.Queue.Snapshot()}

	active := make(map[string]bool, len(list.Active))
	for _, j := range list.Active {
		active[j.ID] = true
	}

	var recent []*models.Job
	if s.opts.History != nil {
		jobs, err := s.opts.History.ListJobs(ctx, limit+len(list.Active))
		if err != nil {
			return nil, err
		}
		recent = jobs
	} else {
		recent = s.opts.Queue.Recent()
	}

	list.Recent = make([]*models.Job, 0, limit)
	for _, j := range recent {
		if active[j.ID] {
			continue
		}
		if len(list.Recent) == limit {
			break
		}
		list.Recent = append(list.Recent, j)
	}
	return list, nil
}

// findJob looks a job up in the queue, then in the history.
func (s *Server) findJob(ctx context.Context, id string) (*models.Job, error) {
	if job, ok := s.opts.Queue.Get(id); ok {
		return job, nil
	}
	if s.opts.History == nil {
		return nil, store.ErrNotFound
	}
	return s.opts.History.GetJob(ctx, id)
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	list, err := s.listJobs(r.Context(), 0)
	if err != nil {
		s.logger.Warn("failed to list jobs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.findJob(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		s.logger.Warn("failed to get job", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}
