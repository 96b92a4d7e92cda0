// Package handlers implements the dashboard REST endpoints: sessions and
// their documents, the coverage matrix, findings, background jobs, and
// the challenge mode.
package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medbilldozer/medbilldozer/internal/analyzer"
	"github.com/medbilldozer/medbilldozer/internal/api/middleware"
	"github.com/medbilldozer/medbilldozer/internal/challenge"
	"github.com/medbilldozer/medbilldozer/internal/jobs"
	"github.com/medbilldozer/medbilldozer/internal/session"
)

// SessionsHandler handles session and document endpoints.
type SessionsHandler struct {
	store     *session.Store
	analyzer  analyzer.Analyzer
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(store *session.Store, an analyzer.Analyzer, publisher jobs.Publisher, log zerolog.Logger) *SessionsHandler {
	return &SessionsHandler{
		store:     store,
		analyzer:  an,
		publisher: publisher,
		log:       log,
	}
}

// CreateSession handles POST /api/sessions
func (h *SessionsHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	s := h.store.CreateSession()
	middleware.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"session_id": s.ID,
		"created_at": s.CreatedAt,
	})
}

// AddDocument handles POST /api/sessions/:sessionId/documents
//
// The body carries a pasted document. With ?sync=1 the document is
// analyzed inline and the response includes its record; otherwise an
// analyze job is enqueued and the response is 202 with the job ID.
func (h *SessionsHandler) AddDocument(w http.ResponseWriter, r *http.Request, sessionID string) {
	s, err := h.store.GetSession(sessionID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Session not found")
		return
	}

	var req struct {
		Name string `json:"name"`
		Text string `json:"text"`
		// Uploaded files arrive base64-encoded with their MIME type.
		Data     string `json:"data,omitempty"`
		MIMEType string `json:"mime_type,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var fileData []byte
	if req.Data != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.Data)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid base64 data")
			return
		}
		fileData = decoded
	}
	if strings.TrimSpace(req.Text) == "" && len(fileData) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "Document text or data is required")
		return
	}
	if req.Name == "" {
		req.Name = "pasted document"
	}

	doc := analyzer.Document{
		DocumentID: uuid.NewString(),
		Name:       req.Name,
		Text:       req.Text,
		MIMEType:   req.MIMEType,
		Data:       fileData,
	}

	if r.URL.Query().Get("sync") == "1" {
		analysis, err := h.analyzer.AnalyzeDocument(r.Context(), doc)
		if err != nil {
			h.log.Error().Err(err).Str("document_id", doc.DocumentID).Msg("Document analysis failed")
			middleware.WriteError(w, http.StatusBadGateway, "Document analysis failed")
			return
		}
		record := s.AddDocument(doc, analysis)
		middleware.WriteJSON(w, http.StatusOK, record)
		return
	}

	job := &jobs.AnalyzeDocumentJob{
		SessionID:    sessionID,
		DocumentID:   doc.DocumentID,
		DocumentName: doc.Name,
		DocumentText: doc.Text,
		DocumentData: doc.Data,
		MIMEType:     doc.MIMEType,
	}
	if err := h.publisher.PublishAnalyzeDocument(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue analyze job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue analyze job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("document_id", doc.DocumentID).Msg("Analyze job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":      job.JobID,
		"document_id": doc.DocumentID,
		"status":      string(job.Status),
	})
}

// ListDocuments handles GET /api/sessions/:sessionId/documents
func (h *SessionsHandler) ListDocuments(w http.ResponseWriter, r *http.Request, sessionID string) {
	s, err := h.store.GetSession(sessionID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Session not found")
		return
	}

	docs := s.Documents()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"count":     len(docs),
	})
}

// Coverage handles GET /api/sessions/:sessionId/coverage
//
// The matrix is rebuilt from the session's full document set on every
// request; rows come back in first-seen fingerprint order.
func (h *SessionsHandler) Coverage(w http.ResponseWriter, r *http.Request, sessionID string) {
	s, err := h.store.GetSession(sessionID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Session not found")
		return
	}

	rows := s.Matrix()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"rows":  rows,
		"count": len(rows),
	})
}

// Findings handles GET /api/sessions/:sessionId/findings
func (h *SessionsHandler) Findings(w http.ResponseWriter, r *http.Request, sessionID string) {
	s, err := h.store.GetSession(sessionID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Session not found")
		return
	}

	findings := s.Findings()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"findings": findings,
		"count":    len(findings),
	})
}

// JobsHandler handles job status endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{store: store, log: log}
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := jobs.JobFilter{
		SessionID:  query.Get("session_id"),
		DocumentID: query.Get("document_id"),
		Status:     jobs.JobStatus(query.Get("status")),
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		filter.Limit = limit
	}

	list, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  list,
		"count": len(list),
	})
}

// GetJob handles GET /api/jobs/:jobId
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}

// ChallengeHandler handles challenge-mode endpoints.
type ChallengeHandler struct {
	log zerolog.Logger
}

// NewChallengeHandler creates a new challenge handler.
func NewChallengeHandler(log zerolog.Logger) *ChallengeHandler {
	return &ChallengeHandler{log: log}
}

// ListScenarios handles GET /api/challenge/scenarios
func (h *ChallengeHandler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	scenarios := challenge.Scenarios()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"scenarios": scenarios,
		"count":     len(scenarios),
	})
}

// ScoreAttempt handles POST /api/challenge/score
func (h *ChallengeHandler) ScoreAttempt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID  string   `json:"scenario_id"`
		FoundCodes  []string `json:"found_codes"`
		TotalPoints int      `json:"total_points"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ScenarioID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "scenario_id is required")
		return
	}

	result, err := challenge.Score(req.ScenarioID, req.FoundCodes)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Unknown scenario")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"result":       result,
		"achievements": challenge.Achievements(req.TotalPoints + result.Points),
	})
}
