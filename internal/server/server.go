// Package server serves the health, metrics and REST endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/shaharia-lab/finance-notifier/internal/api"
)

// Server is the HTTP server of the notification service.
type Server struct {
	service    string
	logger     *slog.Logger
	now        func() time.Time
	httpServer *http.Server
}

// Options configures New.
type Options struct {
	Addr     string
	Service  string
	Gatherer prometheus.Gatherer
	API      *api.Server
	// TracerProvider instruments incoming requests; nil uses the global provider.
	TracerProvider trace.TracerProvider
}

// New creates a new Server.
func New(opts Options, logger *slog.Logger) *Server {
	s := &Server{
		service: opts.Service,
		logger:  logger,
		now:     time.Now,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))

	if opts.API != nil {
		r.Route("/api", func(r chi.Router) {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{http.MethodGet, http.MethodOptions},
				AllowedHeaders: []string{"Accept", "Content-Type"},
				MaxAge:         300,
			}))
			opts.API.Mount(r)
		})
	}

	var otelOpts []otelhttp.Option
	if opts.TracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(opts.TracerProvider))
	}

	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           otelhttp.NewHandler(r, opts.Service, otelOpts...),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root handler, including instrumentation.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run starts the HTTP server and blocks until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	lc := &net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.httpServer.Addr, err)
	}
	s.logger.Info("http server listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("shutting down server")
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

type healthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp int64  `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(healthResponse{
		Status:    "healthy",
		Service:   s.service,
		Timestamp: s.now().UnixMilli(),
	})
}

// requestLogger is a chi middleware that logs each incoming request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
