// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package serve exposes Unitrad searches over a small local HTTP API that
// waits for one library system's results and answers with flat book records.
package serve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pdiddy/unitrad/internal/mapcache"
	"github.com/pdiddy/unitrad/internal/query"
	"github.com/pdiddy/unitrad/internal/report"
	"github.com/pdiddy/unitrad/internal/unitrad"
	"github.com/pdiddy/unitrad/pkg/types"
)

const (
	contentTypeJSON        = "application/json"
	defaultAddr            = ":8080"
	defaultWaitTimeout     = 30 * time.Second
	defaultShutdownTimeout = 5 * time.Second
)

// Server answers book and mapping requests by running Unitrad sessions.
type Server struct {
	requester  unitrad.Requester
	cfg        types.ServeConfig
	logger     *slog.Logger
	cache      *mapcache.Cache
	cacheTTL   time.Duration
	sessOpts   []unitrad.Option
	httpServer *http.Server

	// Addr is the bound listen address once Start returns.
	Addr string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMappingCache serves mapping requests from c while entries are younger
// than ttl, and stores fresh fetches in it.
func WithMappingCache(c *mapcache.Cache, ttl time.Duration) Option {
	return func(s *Server) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithSessionOptions applies opts to every search session the server runs.
func WithSessionOptions(opts ...unitrad.Option) Option {
	return func(s *Server) { s.sessOpts = append(s.sessOpts, opts...) }
}

// NewServer creates a server that sends requests through r.
func NewServer(r unitrad.Requester, cfg types.ServeConfig, opts ...Option) *Server {
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = defaultWaitTimeout
	}
	s := &Server{
		requester: r,
		cfg:       cfg,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.handleHealth)
	r.Get("/v1/books", s.handleBooks)
	r.Get("/v1/mapping", s.handleMapping)

	return r
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	s.Addr = ln.Addr().String()
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	s.logger.Info("HTTP server started", "addr", s.Addr)
	return nil
}

// Stop shuts the server down, waiting briefly for open requests.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	return nil
}

// BooksResponse is the body of GET /v1/books. Pending is true when the
// answer was cut short before the source finished.
type BooksResponse struct {
	Books   []types.BookSummary `json:"books"`
	Pending bool                `json:"pending"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := query.FromValues(params)
	if query.IsEmpty(q) {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "empty query"})
		return
	}
	if q[types.RegionField] == "" {
		q[types.RegionField] = s.cfg.Region
	}
	library := params.Get("library")
	if library == "" {
		library = s.cfg.Library
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.WaitTimeout)
	defer cancel()

	ready := make(chan struct{}, 1)
	onSnapshot := func(snap types.Snapshot) {
		if s.sourceDone(snap) {
			select {
			case ready <- struct{}{}:
			default:
			}
		}
	}

	sess, err := unitrad.Search(ctx, s.requester, q, onSnapshot, s.sessOpts...)
	if err != nil {
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	select {
	case <-ready:
	case <-sess.Done():
	case <-ctx.Done():
	}
	sess.Cancel()

	snap, ok := sess.Snapshot()
	if !ok {
		if ctx.Err() != nil {
			s.writeJSON(w, http.StatusGatewayTimeout, errorResponse{Error: "no response from unitrad"})
			return
		}
		msg := "search failed"
		if err := sess.Err(); err != nil {
			msg = err.Error()
		}
		s.writeJSON(w, http.StatusBadGateway, errorResponse{Error: msg})
		return
	}
	pending := !s.sourceDone(snap)

	resp := BooksResponse{Books: make([]types.BookSummary, 0), Pending: pending}
	for _, b := range snap.Books {
		if library != "" && !report.HeldBy(b, library) {
			continue
		}
		resp.Books = append(resp.Books, report.Summarize(b, library))
	}
	s.logger.Info("books request served",
		"uuid", snap.UUID, "version", snap.Version, "books", len(resp.Books), "pending", pending)
	s.writeJSON(w, http.StatusOK, resp)
}

// sourceDone reports whether snap no longer waits on the configured source.
// Without a source only completion counts.
func (s *Server) sourceDone(snap types.Snapshot) bool {
	if !snap.Running {
		return true
	}
	return s.cfg.Source != "" && !slices.Contains(snap.Remains, s.cfg.Source)
}

func (s *Server) handleMapping(w http.ResponseWriter, r *http.Request) {
	region := r.URL.Query().Get("region")
	if region == "" {
		region = s.cfg.Region
	}
	if region == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing region"})
		return
	}

	if s.cache != nil {
		if data, ok := s.cache.Get(region, s.cacheTTL); ok {
			s.writeRaw(w, data)
			return
		}
	}

	var data json.RawMessage
	unitrad.FetchMapping(r.Context(), s.requester, s.logger, region, func(raw json.RawMessage) {
		data = raw
	})
	if data == nil {
		s.writeJSON(w, http.StatusBadGateway, errorResponse{Error: "mapping unavailable"})
		return
	}
	if s.cache != nil {
		if err := s.cache.Put(region, data); err != nil {
			s.logger.Warn("caching mapping failed", "region", region, "error", err)
		}
	}
	s.writeRaw(w, data)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("Error encoding response", "error", err)
	}
}

func (s *Server) writeRaw(w http.ResponseWriter, data json.RawMessage) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Warn("Error writing response", "error", err)
	}
}
