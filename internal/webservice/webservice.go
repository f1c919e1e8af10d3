// Package webservice provides an HTTP server that scores play states with the
// served win probability model and reports version information.
package webservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/maxpolokov/nflwin/internal/webservice/handlers"
	"github.com/maxpolokov/nflwin/internal/webservice/metrics"
	"github.com/maxpolokov/nflwin/internal/wp"
	"github.com/prometheus/client_golang/prometheus"
)

// Server is a struct that holds the HTTP server and its configuration.
type Server struct {
	httpServer *http.Server
	mm         dModelManager

	// This context is used to interrupt any action.
	// It must be the parent of gracefulCtx.
	ctx    context.Context
	cancel context.CancelFunc

	// This context waits until in-flight requests finish before interrupting.
	gracefulCtx    context.Context
	gracefulCancel context.CancelFunc
}

// StaticConfig holds the static configuration for the server.
type StaticConfig struct {
	ModelPath string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RequestTimeout  time.Duration
	MaxHeaderBytes  int
	MaxRequestBytes int

	ListenHost string
	ListenPort int
}

type dModelManager interface {
	Load() error
	Watch(context.Context) (<-chan struct{}, <-chan error, error)
	Model() *wp.Model
}

// New creates a new Server instance serving the model provided by mm.
func New(ctx context.Context, mm dModelManager, sc StaticConfig, registry prometheus.Registerer) (*Server, error) {
	if err := mm.Load(); err != nil {
		return nil, fmt.Errorf("failed to load model: %v", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	gCtx, gCancel := context.WithCancel(ctx)

	s := Server{
		mm:     mm,
		ctx:    ctx,
		cancel: cancel,

		gracefulCtx:    gCtx,
		gracefulCancel: gCancel}

	endpointMetrics := metrics.NewEndpointMiddleware(registry)
	playsScored := metrics.NewPlayCounter(registry)

	predictHandler := handlers.NewPredict(mm, int64(sc.MaxRequestBytes), playsScored)
	mux := http.NewServeMux()
	mux.Handle("POST /api/v1/wp", endpointMetrics.Wrap("predict", predictHandler))
	mux.Handle("GET /version", endpointMetrics.Wrap("version", http.HandlerFunc(handlers.VersionHandler)))

	s.httpServer = &http.Server{
		Addr:           fmt.Sprintf("%s:%d", sc.ListenHost, sc.ListenPort),
		ReadTimeout:    sc.ReadTimeout,
		WriteTimeout:   sc.WriteTimeout,
		Handler:        http.TimeoutHandler(mux, sc.RequestTimeout, ""),
		MaxHeaderBytes: sc.MaxHeaderBytes,
	}

	return &s, nil
}

// Run starts the HTTP server and listens for incoming requests.
func (s *Server) Run() error {
	slog.Info("Starting server", "addr", s.httpServer.Addr)

	// already asked to quit?
	select {
	case <-s.gracefulCtx.Done():
		return errors.New("server is already shutting down")
	default:
	}

	_, watchErr, err := s.mm.Watch(s.gracefulCtx)
	if err != nil {
		return fmt.Errorf("failed to start watching the model artifact: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-s.gracefulCtx.Done():
		slog.Info("Graceful shutdown initiated")
		// use parent ctx so if you call s.cancel() elsewhere it unblocks Shutdown immediately
		if err := s.httpServer.Shutdown(s.ctx); err != nil {
			slog.Error("Graceful shutdown failed", "err", err)
			return err
		}
		slog.Info("Server shut down gracefully")
		// now kill everything else (watchers, handlers, etc.)
		s.cancel()
		return nil

	case err := <-serverErr:
		if err != nil {
			slog.Error("Server encountered error", "err", err)
			s.cancel()
			return err
		}
		// unlikely: ListenAndServe returned nil
		s.cancel()
		return nil
	case err := <-watchErr:
		if err != nil {
			slog.Error("Model watcher encountered unrecoverable error", "err", err)
		}
		errC := s.httpServer.Close()
		s.cancel()

		return errors.Join(err, errC)
	}
}

// Quit shuts down the HTTP server gracefully.
func (s *Server) Quit(force bool) {
	defer s.cancel()

	if force {
		s.httpServer.Close()
		s.cancel()
	} else {
		s.gracefulCancel()
	}
	slog.Info("Server quit")
}
