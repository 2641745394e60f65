package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/lccweb/agentwave/internal/daemon/logbook"
	"github.com/lccweb/agentwave/internal/models"
)

// fileParam returns the file query parameter, defaulting to latest.log.
func fileParam(r *http.Request) string {
	if name := r.URL.Query().Get("file"); name != "" {
		return name
	}
	return logbook.LatestFileName
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	files, err := s.opts.Book.List()
	if err != nil {
		s.logger.Warn("failed to list logs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if files == nil {
		files = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

func (s *Server) handleTail(w http.ResponseWriter, r *http.Request) {
	offset, err := strconv.ParseInt(r.URL.Query().Get("offset"), 10, 64)
	if err != nil {
		offset = 0
	}
	lines, size, err := s.opts.Book.Tail(fileParam(r), offset)
	if err != nil {
		s.logger.Warn("failed to tail log", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"lines": lines, "size": size})
}

func (s *Server) handleChanges(w http.ResponseWriter, _ *http.Request) {
	changes := []models.FileChange{}
	if s.opts.Bridge != nil {
		found, err := s.opts.Bridge.Changes()
		if err != nil {
			s.logger.Warn("failed to read file bridge", zap.Error(err))
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if found != nil {
			changes = found
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": changes})
}

type clearRequest struct {
	File textField `json:"file"`
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	var req clearRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	name := string(req.File)
	if name == "" {
		name = logbook.LatestFileName
	}
	if err := s.opts.Book.Clear(name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeOK(w)
}

type ingestRequest struct {
	Agent textField       `json:"agent"`
	Role  textField       `json:"role"`
	Phase textField       `json:"phase"`
	Text  textField       `json:"text"`
	File  textField       `json:"file"`
	Meta  json.RawMessage `json:"meta"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	line := &models.LogLine{
		Agent: defaultString(string(req.Agent), models.AgentBrowserConsole),
		Role:  defaultString(string(req.Role), models.RoleConsole),
		Phase: models.Phase(strings.ToUpper(defaultString(string(req.Phase), string(models.PhaseInfo)))),
		Text:  string(req.Text),
		Meta:  req.Meta,
	}
	if err := s.opts.Book.Ingest(defaultString(string(req.File), logbook.LatestFileName), line); err != nil {
		s.logger.Warn("failed to ingest log line", zap.Error(err))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeOK(w)
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
