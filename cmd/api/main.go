// Command api runs the medBillDozer dashboard backend: session and
// document endpoints, the coverage matrix, findings, job status, and the
// challenge mode, with an embedded in-memory worker for async analysis.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/medbilldozer/medbilldozer/internal/analyzer"
	"github.com/medbilldozer/medbilldozer/internal/api/handlers"
	"github.com/medbilldozer/medbilldozer/internal/api/middleware"
	"github.com/medbilldozer/medbilldozer/internal/jobs"
	"github.com/medbilldozer/medbilldozer/internal/jobs/inmemory"
	"github.com/medbilldozer/medbilldozer/internal/logger"
	"github.com/medbilldozer/medbilldozer/internal/session"
)

func main() {
	// Parse command-line flags
	var (
		port    = flag.String("port", "8080", "HTTP server port")
		model   = flag.String("model", analyzer.DefaultModelName, "Gemini model for document analysis")
		workers = flag.Int("workers", 5, "concurrent analyze-job workers")
		buffer  = flag.Int("queue-buffer", 100, "analyze-job queue buffer size")
	)
	flag.Parse()

	// Initialize logger
	log := logger.New()

	if os.Getenv("GEMINI_API_KEY") == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set - document analysis will fail")
	}

	ctx := context.Background()

	gemini, err := analyzer.NewGeminiAnalyzer(ctx, *model, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create analyzer")
	}

	sessions := session.NewStore(log)

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(*buffer, *workers, jobStore)

	// Start worker in background to process jobs
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	// Job handler: analyze the document and fold the result into its
	// session. The session append is mutex-serialized, so concurrent
	// workers cannot lose documents.
	jobHandler := func(ctx context.Context, job jobs.Job) error {
		analyzeJob, ok := job.(*jobs.AnalyzeDocumentJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", analyzeJob.JobID).
			Str("session_id", analyzeJob.SessionID).
			Str("document_id", analyzeJob.DocumentID).
			Msg("Processing analyze job")

		s, err := sessions.GetSession(analyzeJob.SessionID)
		if err != nil {
			// The session is gone; retrying cannot succeed.
			log.Warn().Str("job_id", analyzeJob.JobID).Msg("Session no longer exists, dropping job")
			return nil
		}

		doc := analyzer.Document{
			DocumentID: analyzeJob.DocumentID,
			Name:       analyzeJob.DocumentName,
			Text:       analyzeJob.DocumentText,
			MIMEType:   analyzeJob.MIMEType,
			Data:       analyzeJob.DocumentData,
		}

		analysis, err := gemini.AnalyzeDocument(ctx, doc)
		if err != nil {
			log.Error().
				Err(err).
				Str("job_id", analyzeJob.JobID).
				Str("document_id", analyzeJob.DocumentID).
				Msg("Document analysis failed")
			return err
		}

		s.AddDocument(doc, analysis)

		log.Info().
			Str("job_id", analyzeJob.JobID).
			Str("document_id", analyzeJob.DocumentID).
			Msg("Analyze job completed")

		return nil
	}

	// Start job consumer in background
	go func() {
		log.Info().Int("workers", *workers).Msg("Starting job worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	// Initialize handlers
	sessionsHandler := handlers.NewSessionsHandler(sessions, gemini, jobQueue, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)
	challengeHandler := handlers.NewChallengeHandler(log)

	// Create router
	mux := http.NewServeMux()

	// Sessions endpoints
	mux.HandleFunc("/api/sessions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			sessionsHandler.CreateSession(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// /api/sessions/:sessionId/{documents,coverage,findings}
	mux.HandleFunc("/api/sessions/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
		parts := strings.SplitN(rest, "/", 2)
		sessionID := parts[0]
		if sessionID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Session ID is required")
			return
		}
		sub := ""
		if len(parts) == 2 {
			sub = parts[1]
		}

		switch {
		case sub == "documents" && r.Method == http.MethodPost:
			sessionsHandler.AddDocument(w, r, sessionID)
		case sub == "documents" && r.Method == http.MethodGet:
			sessionsHandler.ListDocuments(w, r, sessionID)
		case sub == "coverage" && r.Method == http.MethodGet:
			sessionsHandler.Coverage(w, r, sessionID)
		case sub == "findings" && r.Method == http.MethodGet:
			sessionsHandler.Findings(w, r, sessionID)
		default:
			middleware.WriteError(w, http.StatusNotFound, "Not found")
		}
	})

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Challenge endpoints
	mux.HandleFunc("/api/challenge/scenarios", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			challengeHandler.ListScenarios(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/challenge/score", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			challengeHandler.ScoreAttempt(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // sync analysis waits on the model
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Cancel worker context
	cancelWorker()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Server exited")
}
