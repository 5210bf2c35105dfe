// Package api provides the HTTP API server for flowcanvas.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/flowcanvas/flowcanvas/internal/config"
	"github.com/flowcanvas/flowcanvas/internal/errdefs"
	"github.com/flowcanvas/flowcanvas/internal/logging"
	"github.com/flowcanvas/flowcanvas/internal/storage"
	"github.com/flowcanvas/flowcanvas/internal/workflow"
)

// Server represents the HTTP API server.
type Server struct {
	httpServer  *http.Server
	store       storage.Storage
	workflowMgr *workflow.Manager
	log         logging.Logger
	apiKey      string
	maxUpload   int64
	corsOrigins []string
	now         func() time.Time
}

// Config holds server configuration.
type Config struct {
	Addr          string
	APIKey        string // Optional API key for authentication
	MaxUploadSize int64
	CORSOrigins   []string
}

// New creates a new API server on an initialized store. The server owns
// the store from then on and closes it on Shutdown.
func New(cfg *Config, store storage.Storage, log logging.Logger) *Server {
	if log == nil {
		log = logging.Discard()
	}
	maxUpload := cfg.MaxUploadSize
	if maxUpload <= 0 {
		maxUpload = config.DefaultMaxUploadSize
	}
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s := &Server{
		store:       store,
		workflowMgr: workflow.NewManager(store, log),
		log:         log,
		apiKey:      cfg.APIKey,
		maxUpload:   maxUpload,
		corsOrigins: origins,
		now:         func() time.Time { return time.Now().UTC() },
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Handler returns the routed handler, CORS included.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", s.handleHealth)

	// Workflow endpoints
	mux.HandleFunc("GET /api/workflows", s.authMiddleware(s.handleListWorkflows))
	mux.HandleFunc("POST /api/workflows", s.authMiddleware(s.handleCreateWorkflow))
	mux.HandleFunc("GET /api/workflows/{id}", s.authMiddleware(s.handleGetWorkflow))
	mux.HandleFunc("PUT /api/workflows/{id}", s.authMiddleware(s.handleUpdateWorkflow))
	mux.HandleFunc("DELETE /api/workflows/{id}", s.authMiddleware(s.handleDeleteWorkflow))
	mux.HandleFunc("POST /api/workflows/{id}/validate", s.authMiddleware(s.handleValidateWorkflow))
	mux.HandleFunc("POST /api/workflows/{id}/execute", s.authMiddleware(s.handleExecuteWorkflow))

	// Document endpoints
	mux.HandleFunc("POST /api/documents/upload", s.authMiddleware(s.handleUploadDocument))
	mux.HandleFunc("GET /api/documents", s.authMiddleware(s.handleListDocuments))
	mux.HandleFunc("GET /api/documents/{id}", s.authMiddleware(s.handleGetDocument))
	mux.HandleFunc("DELETE /api/documents/{id}", s.authMiddleware(s.handleDeleteDocument))

	return s.corsMiddleware(mux)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.log.Info("starting API server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.store.Close()
	return err
}

// Addr returns the server address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// authMiddleware checks for API key authentication if configured.
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				auth = r.Header.Get("X-API-Key")
			} else {
				auth = strings.TrimPrefix(auth, "Bearer ")
			}

			if auth != s.apiKey {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
		}
		next(w, r)
	}
}

// corsMiddleware adds CORS headers.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case slices.Contains(s.corsOrigins, "*"):
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(s.corsOrigins, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// fail maps err to a status and writes it. notFound replaces the message
// of not-found errors.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	status := statusFor(err)
	message := errdefs.Message(err)
	if message == "" || status == http.StatusInternalServerError {
		message = "internal server error"
	}
	if status == http.StatusNotFound && notFound != "" {
		message = notFound
	}
	s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	writeError(w, status, message)
}

func statusFor(err error) int {
	switch errdefs.Code(err) {
	case errdefs.CodeNotFound:
		return http.StatusNotFound
	case errdefs.CodeValidationRejected, errdefs.CodeDecode:
		return http.StatusBadRequest
	case errdefs.CodeSaveInFlight, errdefs.CodeStaleResponse:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"detail": message})
}

// decodeJSON decodes JSON from the request body.
func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
