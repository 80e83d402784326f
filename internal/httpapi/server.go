// Package httpapi implements hanatv's HTTP surface (spec.md §6): the
// live-stream connect/mpegts-passthrough endpoint, the four LL-HLS
// endpoints, and the recorded-segment endpoint. Grounded on the teacher's
// internal/http package, but built directly on chi rather than chi+huma:
// hanatv's surface is a small streaming API, not an OpenAPI-documented CRUD
// admin surface, so huma's schema/validation machinery has no component to
// serve here (see DESIGN.md's dropped-dependencies section).
package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/hanatv/hanatv/internal/config"
	"github.com/hanatv/hanatv/internal/httpapi/middleware"
)

// Server wraps a chi.Router and the stdlib http.Server hosting it.
type Server struct {
	config     config.ServerConfig
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
}

// Handlers supplies the request handlers Server mounts onto its router. Kept
// as plain http.HandlerFunc values (rather than a fatter interface) so
// each one can be wired independently of the others (cmd/hanatv/cmd/serve.go
// fills them through NewHandlers).
type Handlers struct {
	LiveStream      http.HandlerFunc // GET /api/streams/live/{displayChannelId}/{quality}/{clientType}
	Playlist        http.HandlerFunc // GET /api/streams/live/{displayChannelId}/{quality}/playlist.m3u8
	Init            http.HandlerFunc // GET /api/streams/live/{displayChannelId}/{quality}/init.mp4
	Segment         http.HandlerFunc // GET /api/streams/live/{displayChannelId}/{quality}/segment/{msn}.m4s
	Part            http.HandlerFunc // GET /api/streams/live/{displayChannelId}/{quality}/part/{msn}/{part}.m4s
	RecordedSegment http.HandlerFunc // GET /api/videos/{id}/{quality}/segment/{n}
}

// NewServer builds a Server with its full middleware chain and route table
// mounted: RealIP -> RequestID -> Logging -> Recovery, the teacher's ordering
// minus Compress, CORS and huma. No compression middleware is mounted.
func NewServer(cfg config.ServerConfig, logger *slog.Logger, h Handlers) *Server {
	router := chi.NewRouter()
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.RequestID)
	router.Use(middleware.NewLoggingMiddleware(logger))
	router.Use(middleware.Recovery(logger))

	router.Get("/api/streams/live/{displayChannelId}/{quality}/{clientType}", h.LiveStream)
	router.Get("/api/streams/live/{displayChannelId}/{quality}/playlist.m3u8", h.Playlist)
	router.Get("/api/streams/live/{displayChannelId}/{quality}/init.mp4", h.Init)
	router.Get("/api/streams/live/{displayChannelId}/{quality}/segment/{msn}.m4s", h.Segment)
	router.Get("/api/streams/live/{displayChannelId}/{quality}/part/{msn}/{part}.m4s", h.Part)
	router.Get("/api/videos/{id}/{quality}/segment/{n}", h.RecordedSegment)

	return &Server{
		config: cfg,
		router: router,
		logger: logger,
		httpServer: &http.Server{
			Addr:         cfg.Address(),
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}
}

// Router exposes the underlying chi.Router, mainly so tests can issue
// requests against it directly without going through ListenAndServe.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe runs the server until ctx is cancelled, then shuts it down
// within config.ShutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully drains in-flight requests, bounded by
// config.ShutdownTimeout. LL-HLS requests that are long-polling for a
// not-yet-produced part are cut short at the deadline rather than held open
// indefinitely.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("httpapi: shutting down server: %w", err)
	}
	return nil
}
