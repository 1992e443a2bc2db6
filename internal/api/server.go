package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/yangwenmai/latentvault/internal/engine"
	"github.com/yangwenmai/latentvault/internal/model"
	"github.com/yangwenmai/latentvault/internal/vault"
)

const (
	// maxRequestBody is the maximum allowed request body size (16 MB). Records
	// carry their images as data URLs.
	maxRequestBody int64 = 16 << 20

	importPath = "/api/vault/import"
)

// Options configures the server's middleware.
type Options struct {
	CORSOrigin     string
	MaxImportBytes int64
	Logger         *zap.Logger
}

// Server holds the HTTP handlers and dependencies.
type Server struct {
	vault   *vault.Service
	session *engine.Session
	opts    Options
	log     *zap.Logger
	mux     *http.ServeMux
}

// New creates a new API server.
func New(v *vault.Service, sess *engine.Session, opts Options) *Server {
	if opts.CORSOrigin == "" {
		opts.CORSOrigin = "*"
	}
	if opts.MaxImportBytes <= 0 {
		opts.MaxImportBytes = 64 << 20
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	srv := &Server{vault: v, session: sess, opts: opts, log: log, mux: http.NewServeMux()}
	srv.routes()
	return srv
}

// Handler returns the root http.Handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.cors(s.limitBody(jsonContent(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/vault", s.handleList)
	s.mux.HandleFunc("DELETE /api/vault", s.handleClear)
	s.mux.HandleFunc("GET /api/vault/summaries", s.handleSummaries)
	s.mux.HandleFunc("GET /api/vault/export", s.handleExport)
	s.mux.HandleFunc("POST "+importPath, s.handleImport)
	s.mux.HandleFunc("POST /api/vault/batch/delete", s.handleBatchDelete)
	s.mux.HandleFunc("GET /api/vault/{id}", s.handleGet)
	s.mux.HandleFunc("PUT /api/vault/{id}", s.handlePut)
	s.mux.HandleFunc("DELETE /api/vault/{id}", s.handleDelete)
	s.mux.HandleFunc("POST /api/vault/{id}/favorite", s.handleFavorite)
	s.mux.HandleFunc("PUT /api/vault/{id}/grading", s.handleGrading)
	s.mux.HandleFunc("POST /api/usage/{shortId}", s.handleUsage)

	s.mux.HandleFunc("GET /api/slots", s.handleSlots)
	s.mux.HandleFunc("PUT /api/slots/{domain}", s.handleSetSlot)
	s.mux.HandleFunc("DELETE /api/slots/{domain}", s.handleClearSlot)

	s.mux.HandleFunc("POST /api/generate", s.handleGenerate)
	s.mux.HandleFunc("POST /api/commit", s.handleCommit)
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

// cors sets CORS headers for the configured origin.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.opts.CORSOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limitBody restricts the request body to maxRequestBody bytes, or to the
// configured import limit for imports.
func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit := maxRequestBody
		if r.URL.Path == importPath {
			limit = s.opts.MaxImportBytes
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit)
		next.ServeHTTP(w, r)
	})
}

func jsonContent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// logRequests logs one line per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeVaultError maps a vault error to its status. Server-side failures
// are logged and reported with the generic msg.
func (s *Server) writeVaultError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrMalformedImport), errors.Is(err, model.ErrInvalidRecord):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error(msg, zap.Error(err))
		writeError(w, http.StatusInternalServerError, msg)
	}
}

func decodeBody(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}
