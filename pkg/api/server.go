package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/vvikramc/promexpo/pkg/storage"
	"github.com/vvikramc/promexpo/pkg/types"
)

// Server implements the HTTP API server.
type Server struct {
	storage storage.Storage
	logger  *zap.Logger
	addr    string
	server  *http.Server
}

// NewServer creates a new API server.
func NewServer(addr string, store storage.Storage, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		storage: store,
		logger:  logger,
		addr:    addr,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/ingest", s.handleIngest)
	mux.HandleFunc("/api/v1/query", s.handleQuery)
	mux.HandleFunc("/api/v1/names", s.handleNames)
	mux.HandleFunc("/health", s.handleHealth)

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// tenantID extracts the tenant from the request header (multi-tenancy
// support), defaulting to "default".
func tenantID(r *http.Request) string {
	if id := r.Header.Get("X-Tenant-ID"); id != "" {
		return id
	}
	return "default"
}

// handleIngest accepts an exposition-format payload in the request body,
// parses it and stores the resulting metric snapshots. Malformed payloads are
// rejected whole; nothing is stored.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
		return
	}

	tenant := tenantID(r)
	n, err := s.storage.Ingest(r.Context(), tenant, string(body))
	if err != nil {
		s.logger.Warn("ingest rejected",
			zap.String("tenant", tenant),
			zap.Error(err))
		http.Error(w, fmt.Sprintf("Ingest failed: %v", err), http.StatusBadRequest)
		return
	}

	s.logger.Info("payload ingested",
		zap.String("tenant", tenant),
		zap.Int("metrics", n),
		zap.Int("bytes", len(body)))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(types.IngestResponse{
		Status:  "success",
		Metrics: n,
	})
}

// handleQuery returns one stored metric snapshot by name.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "Missing name parameter", http.StatusBadRequest)
		return
	}

	tenant := tenantID(r)
	m, err := s.storage.Fetch(r.Context(), tenant, name)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "Metric not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("fetch failed",
			zap.String("tenant", tenant),
			zap.String("name", name),
			zap.Error(err))
		http.Error(w, fmt.Sprintf("Query failed: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(types.QueryResponse{Metric: m})
}

// handleNames lists stored metric names. Query parameters act as a label
// selector; every pair must match some sample of a metric for it to appear.
func (s *Server) handleNames(w http.ResponseWriter, r *http.Request) {
	tenant := tenantID(r)

	selector := make(map[string]string)
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			selector[key] = values[0]
		}
	}

	names, err := s.storage.Names(r.Context(), tenant, selector)
	if err != nil {
		http.Error(w, fmt.Sprintf("Listing failed: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(types.NamesResponse{Names: names})
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	})
}
