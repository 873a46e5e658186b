// Package api exposes the workflow, the archive and document downloads over
// HTTP.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/dharsanguruparan/omnigo/internal/archive"
	"github.com/dharsanguruparan/omnigo/internal/auth"
	"github.com/dharsanguruparan/omnigo/internal/config"
	"github.com/dharsanguruparan/omnigo/internal/logger"
	"github.com/dharsanguruparan/omnigo/internal/metrics"
	"github.com/dharsanguruparan/omnigo/internal/signing"
	"github.com/dharsanguruparan/omnigo/internal/simulate"
	"github.com/dharsanguruparan/omnigo/internal/storage"
	"github.com/dharsanguruparan/omnigo/internal/summary"
	"github.com/dharsanguruparan/omnigo/internal/workflow"
)

// Artifacts stores generated documents and issues download URLs for them.
// It is satisfied by the S3 store and by the in-memory signed-URL store.
type Artifacts interface {
	Put(ctx context.Context, key, name string, data []byte) error
	URL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Deps are the collaborators a Server needs.
type Deps struct {
	Sessions  *storage.MemoryStore
	Archive   archive.Store
	Reporter  *summary.Reporter
	Artifacts Artifacts
	// Local serves /download when Artifacts is the in-memory store. Nil when
	// downloads are presigned by an object store.
	Local    *storage.ArtifactStore
	Signer   *signing.Signer
	Verifier *auth.Verifier
}

// Server exposes HTTP endpoints for the workflow and the archive.
type Server struct {
	cfg  *config.Config
	deps Deps

	handler http.Handler
	server  *http.Server
	once    sync.Once
}

// New constructs a Server.
func New(cfg *config.Config, deps Deps) *Server {
	s := &Server{cfg: cfg, deps: deps}
	s.handler = s.routes()
	return s
}

// Handler returns the fully wrapped router.
func (s *Server) Handler() http.Handler { return s.handler }

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.once.Do(func() {
		s.server = &http.Server{
			Addr:              s.cfg.Address,
			Handler:           s.handler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go s.sweep(ctx)
	})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	slog.Info("api listening", "address", s.cfg.Address)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// sweep drops idle sessions and stale artifacts once a minute.
func (s *Server) sweep(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.deps.Sessions.Sweep(s.cfg.Workflow.SessionIdleLimit); n > 0 {
				slog.Info("idle sessions dropped", "count", n)
			}
			if s.deps.Local != nil {
				s.deps.Local.Sweep(s.cfg.SignedURLTTL)
			}
		}
	}
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(metricsMiddleware)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	if s.deps.Local != nil {
		r.HandleFunc("/download", s.handleDownload).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.Use(auth.Middleware(s.deps.Verifier, s.cfg.SignInURL), sessionMiddleware)

	wf := api.PathPrefix("/workflow").Subrouter()
	wf.HandleFunc("", s.handleSnapshot).Methods(http.MethodGet)
	wf.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)
	wf.HandleFunc("/files", s.handleStage).Methods(http.MethodPost)
	wf.HandleFunc("/files/{id:[0-9]+}", s.handleRemove).Methods(http.MethodDelete)
	wf.HandleFunc("/files/{id}/approve", s.handleDecision(true)).Methods(http.MethodPost)
	wf.HandleFunc("/files/{id}/reject", s.handleDecision(false)).Methods(http.MethodPost)
	wf.HandleFunc("/channels/{channel}/approve", s.handleChannelDecision(true)).Methods(http.MethodPost)
	wf.HandleFunc("/channels/{channel}/reject", s.handleChannelDecision(false)).Methods(http.MethodPost)
	wf.HandleFunc("/upload", s.handleUpload).Methods(http.MethodPost)
	wf.HandleFunc("/process", s.handleProcess).Methods(http.MethodPost)
	wf.HandleFunc("/submit", s.handleSubmit).Methods(http.MethodPost)
	wf.HandleFunc("/cancel", s.handleCancel).Methods(http.MethodPost)
	wf.HandleFunc("/reset", s.handleReset).Methods(http.MethodPost)
	wf.HandleFunc("/warning", s.handleDismissWarning).Methods(http.MethodDelete)

	api.HandleFunc("/jobs", s.handleRecentJobs).Methods(http.MethodGet)
	api.HandleFunc("/resume-jobs", s.handleResumeJobs).Methods(http.MethodGet)
	api.HandleFunc("/archive", s.handleArchiveList).Methods(http.MethodGet)
	api.HandleFunc("/archive/{id}", s.handleArchiveJob).Methods(http.MethodGet)
	api.HandleFunc("/archive/{id}/files/{fileId}/download-url", s.handleArchiveDownloadURL).Methods(http.MethodGet)
	api.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)
	api.HandleFunc("/files/{id}/download-url", s.handleFileDownloadURL).Methods(http.MethodGet)

	return requestIDMiddleware(corsMiddleware(loggingMiddleware(recoveryMiddleware(r))))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// session returns the caller's workflow, creating it on first use.
func (s *Server) session(r *http.Request) *workflow.Workflow {
	return s.deps.Sessions.GetOrCreate(logger.SessionID(r.Context()))
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("encode response", "error", err)
	}
}

const msgpackType = "application/msgpack"

// respond writes msgpack when the client asks for it and JSON otherwise. The
// msgpack keys follow the json tags so both encodings carry the same shape.
func respond(w http.ResponseWriter, r *http.Request, status int, payload interface{}) {
	if !strings.Contains(r.Header.Get("Accept"), msgpackType) {
		respondJSON(w, status, payload)
		return
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(payload); err != nil {
		respondError(w, newInternalError("failed to encode msgpack", err))
		return
	}
	w.Header().Set("Content-Type", msgpackType)
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func respondError(w http.ResponseWriter, err error) {
	apiErr := fromError(err)
	respondJSON(w, apiErr.Status, apiErr)
}

// SessionFactory builds workflows for new sessions from cfg. Every session
// shares rnd, reporter and recorder.
func SessionFactory(cfg *config.Config, rnd simulate.Source, reporter *summary.Reporter, recorder workflow.Recorder) storage.Factory {
	uploader := simulate.NewUploader(rnd, simulate.UploaderConfig{
		Step:        cfg.Workflow.UploadStep,
		Jitter:      cfg.Workflow.UploadJitter,
		FailureRate: cfg.Workflow.UploadFailure,
		Settle:      cfg.Workflow.SettleDelay,
	})
	classifier := simulate.NewClassifier(rnd)
	return func(sessionID string) *workflow.Workflow {
		return workflow.New(workflow.Options{
			SessionID:    sessionID,
			AllowLists:   cfg.Workflow.EntryPoints,
			DefaultEntry: cfg.Workflow.DefaultEntry,
			WarningTTL:   cfg.Workflow.WarningTTL,
			Uploader:     uploader,
			Classifier:   classifier,
			Reporter:     reporter,
			Recorder:     recorder,
		})
	}
}
