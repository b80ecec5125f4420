// Package api exposes the run-orchestration HTTP surface: registering
// prediction archives, listing runs, and serving parsed camera summaries to
// the viewer.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"

	"github.com/reconlab/scene.report/internal/config"
	"github.com/reconlab/scene.report/internal/httputil"
	"github.com/reconlab/scene.report/internal/monitoring"
	"github.com/reconlab/scene.report/internal/npy"
	"github.com/reconlab/scene.report/internal/prediction"
	"github.com/reconlab/scene.report/internal/preview"
	"github.com/reconlab/scene.report/internal/report"
	"github.com/reconlab/scene.report/internal/runstore"
	"github.com/reconlab/scene.report/internal/security"
)

type Server struct {
	store *runstore.Store
	cfg   config.AppConfig
	feed  *Feed
}

func NewServer(store *runstore.Store, cfg config.AppConfig) *Server {
	return &Server{
		store: store,
		cfg:   cfg,
		feed:  NewFeed(),
	}
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /runs", s.createRun)
	mux.HandleFunc("GET /runs", s.listRuns)
	mux.HandleFunc("GET /runs/{id}", s.getRun)
	mux.HandleFunc("GET /runs/{id}/summary", s.getSummary)
	mux.HandleFunc("GET /runs/{id}/report", s.getReport)
	mux.HandleFunc("GET /ws", s.feed.HandleWS)
	return mux
}

type createRunRequest struct {
	Label       string `json:"label"`
	ArchivePath string `json:"archivePath"`
}

// createRun registers a predictions archive already on disk (the path the
// run-orchestration collaborator hands over once the remote job completes)
// and parses it inline.
func (s *Server) createRun(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, fmt.Sprintf("bad request body: %v", err))
		return
	}
	if req.ArchivePath == "" {
		httputil.WriteError(w, http.StatusBadRequest, "archivePath is required")
		return
	}
	if err := security.ValidateArchivePath(req.ArchivePath, s.cfg.AllowedArchiveDirs); err != nil {
		httputil.WriteError(w, http.StatusForbidden, err.Error())
		return
	}

	run, err := s.store.CreateRun(req.Label, req.ArchivePath)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, fmt.Sprintf("failed to create run: %v", err))
		return
	}
	s.transition(run.ID, runstore.StateRunning, "")

	rec, sum, err := prediction.ParseArchiveFile(req.ArchivePath, s.cfg.AlignY180)
	if err != nil {
		s.transition(run.ID, runstore.StateFailed, err.Error())
		status := http.StatusInternalServerError
		if errors.Is(err, npy.ErrFormat) || errors.Is(err, npy.ErrUnsupportedDtype) ||
			errors.Is(err, npy.ErrTruncated) || errors.Is(err, prediction.ErrMissingField) {
			status = http.StatusUnprocessableEntity
		}
		httputil.WriteError(w, status, fmt.Sprintf("failed to parse archive: %v", err))
		return
	}

	summaryJSON, err := json.Marshal(sum)
	if err != nil {
		s.transition(run.ID, runstore.StateFailed, err.Error())
		httputil.WriteError(w, http.StatusInternalServerError, fmt.Sprintf("failed to encode summary: %v", err))
		return
	}
	if err := s.store.SetSummary(run.ID, sum.FrameCount, summaryJSON); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, fmt.Sprintf("failed to store summary: %v", err))
		return
	}
	s.feed.Broadcast(RunEvent{RunID: run.ID, State: runstore.StateComplete})

	// Frame thumbnails are a best-effort extra; a failure here does not fail
	// the run.
	if dir := s.cfg.RunsDir; dir != "" {
		if _, err := preview.WritePNGs(filepath.Join(dir, run.ID, "thumbs"), rec, s.cfg.ThumbnailMaxDim); err != nil {
			monitoring.Logf("run %s: thumbnail generation failed: %v", run.ID, err)
		}
	}

	updated, err := s.store.GetRun(run.ID)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load run: %v", err))
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, updated)
}

// transition updates the stored state and pushes the change to websocket
// subscribers.
func (s *Server) transition(runID, state, errMsg string) {
	if err := s.store.SetState(runID, state, errMsg); err != nil {
		monitoring.Logf("run %s: state update failed: %v", runID, err)
	}
	s.feed.Broadcast(RunEvent{RunID: runID, State: state, Error: errMsg})
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns()
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list runs: %v", err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, runs)
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.PathValue("id"))
	if errors.Is(err, runstore.ErrNotFound) {
		httputil.WriteError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load run: %v", err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, run)
}

// getSummary serves the cached parse summary, as JSON by default or CBOR
// when the client asks for it.
func (s *Server) getSummary(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.PathValue("id"))
	if errors.Is(err, runstore.ErrNotFound) {
		httputil.WriteError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load run: %v", err))
		return
	}
	if len(run.SummaryJSON) == 0 {
		httputil.WriteError(w, http.StatusConflict, fmt.Sprintf("run is %s, no summary available", run.State))
		return
	}

	if r.Header.Get("Accept") == "application/cbor" {
		var sum prediction.Summary
		if err := json.Unmarshal(run.SummaryJSON, &sum); err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, fmt.Sprintf("failed to decode cached summary: %v", err))
			return
		}
		payload, err := cbor.Marshal(&sum)
		if err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, fmt.Sprintf("failed to encode summary: %v", err))
			return
		}
		w.Header().Set("Content-Type", "application/cbor")
		w.Write(payload)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(run.SummaryJSON)
}

// getReport re-parses the archive and renders the interactive trajectory
// page.
func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.PathValue("id"))
	if errors.Is(err, runstore.ErrNotFound) {
		httputil.WriteError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load run: %v", err))
		return
	}

	rec, sum, err := prediction.ParseArchiveFile(run.ArchivePath, s.cfg.AlignY180)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, fmt.Sprintf("failed to parse archive: %v", err))
		return
	}

	label := run.Label
	if label == "" {
		label = run.ID
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.RenderTrajectoryHTML(w, sum, rec, label); err != nil {
		monitoring.Logf("run %s: report render failed: %v", run.ID, err)
	}
}
