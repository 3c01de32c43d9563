package host

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sealbox/sealbox/internal/events"
	"github.com/sealbox/sealbox/internal/secret"
	"github.com/sealbox/sealbox/internal/workflow"
)

// ActionsRequest is the host's "what can I do with this selection" query.
type ActionsRequest struct {
	Selection []string `json:"selection"`
}

type ActionsResponse struct {
	Actions []workflow.ActionInfo `json:"actions"`
	// HSMAvailable lets the host offer hardware-token passphrase
	// sourcing only when a whitelisted PKCS#11 module is present.
	HSMAvailable bool `json:"hsm_available"`
}

// SubmitJobRequest starts a job. For decrypt jobs the host supplies the
// passphrase it collected; for encrypt jobs the bridge mints one and
// returns it so the host can display it exactly once.
type SubmitJobRequest struct {
	Action          string   `json:"action"`
	Targets         []string `json:"targets"`
	DeleteOriginals bool     `json:"delete_originals"`
	Passphrase      string   `json:"passphrase,omitempty"`
}

type SubmitJobResponse struct {
	JobID      string `json:"job_id"`
	Passphrase string `json:"passphrase,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthzResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthzResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
	})
}

// handleActions handles POST /actions.
func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	var req ActionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resp := ActionsResponse{
		Actions: workflow.Applicable(req.Selection, s.suffix),
	}
	if s.HSMAvailable != nil {
		resp.HSMAvailable = s.HSMAvailable()
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleSubmitJob handles POST /jobs. The job runs in the background;
// the host follows progress on /events and outcomes on /jobs/recent.
func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req SubmitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Targets) == 0 {
		s.writeError(w, http.StatusBadRequest, "targets must not be empty")
		return
	}

	mode, ok := workflow.ModeFor(req.Action)
	if !ok {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown action %q", req.Action))
		return
	}

	resp := SubmitJobResponse{}
	var pass *secret.Passphrase
	switch mode {
	case workflow.ModeEncrypt:
		minted, err := s.generate()
		if err != nil {
			s.logger.Error("passphrase generation failed", "error", err)
			s.writeError(w, http.StatusInternalServerError, "passphrase generation failed")
			return
		}
		// The host shows this to the user once; it never touches the journal.
		resp.Passphrase = minted
		pass = secret.FromString(minted)
	case workflow.ModeDecrypt:
		if req.Passphrase == "" {
			s.writeError(w, http.StatusBadRequest, "decrypt requires a passphrase")
			return
		}
		pass = secret.FromString(req.Passphrase)
	}

	job := workflow.NewJob(mode, req.Action, req.Targets, pass)
	job.DeleteOriginals = req.DeleteOriginals
	job.Bundle = req.Action == workflow.ActionEncryptBundle
	resp.JobID = job.ID

	// The job outlives the request; its context must not be the request's.
	go func() {
		if _, err := s.runner.Run(context.Background(), job); err != nil {
			s.logger.Error("job failed before running targets", "job_id", job.ID, "error", err)
		}
	}()

	respondJSON(w, http.StatusAccepted, resp)
}

// handleRecentJobs handles GET /jobs/recent?limit=N.
func (s *Server) handleRecentJobs(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		s.writeError(w, http.StatusNotFound, "journal disabled")
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	jobs, err := s.journal.RecentJobs(r.Context(), limit)
	if err != nil {
		s.logger.Error("recent jobs query failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "journal query failed")
		return
	}
	respondJSON(w, http.StatusOK, jobs)
}

// handleJobTargets handles GET /jobs/{jobID}/targets.
func (s *Server) handleJobTargets(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		s.writeError(w, http.StatusNotFound, "journal disabled")
		return
	}
	targets, err := s.journal.JobTargets(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		s.logger.Error("job targets query failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "journal query failed")
		return
	}
	respondJSON(w, http.StatusOK, targets)
}

// handleEvents handles GET /events as an SSE stream.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	lastID := parseLastEventID(r.Header.Get("Last-Event-ID"))
	// Send buffered events first for late clients.
	for _, ev := range s.hub.SnapshotSince(lastID) {
		if err := writeSSE(w, ev); err != nil {
			return
		}
	}
	flusher.Flush()

	ch, cancel := s.hub.Subscribe()
	defer cancel()

	keepAlive := time.NewTicker(15 * time.Second)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := writeSSE(w, ev); err != nil {
				return
			}
			flusher.Flush()
		case <-keepAlive.C:
			// SSE comment line as keep-alive.
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func parseLastEventID(v string) int64 {
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func writeSSE(w http.ResponseWriter, ev events.Event) error {
	if _, err := fmt.Fprintf(w, "id: %d\n", ev.ID); err != nil {
		return err
	}
	if ev.Type != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", ev.Type); err != nil {
			return err
		}
	}
	// json.Marshal never emits newlines, so one "data:" line suffices.
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", body); err != nil {
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}
