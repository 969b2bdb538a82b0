package http

import (
	"context"
	"net"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/fleshka4/dex-aggregator/internal/config"
	"github.com/fleshka4/dex-aggregator/internal/service"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Server represents the HTTP transport layer.
type Server struct {
	svc     service.Service
	mux     *http.ServeMux
	intents *intentBook
	log     *zap.Logger

	graceTimeout      time.Duration
	readHeaderTimeout time.Duration
	requestTimeout    time.Duration
}

// NewServer creates a new HTTP server with registered routes.
func NewServer(svc service.Service, cfg config.Config, log *zap.Logger) *Server {
	s := &Server{
		svc:     svc,
		mux:     http.NewServeMux(),
		intents: newIntentBook(),
		log:     log,

		graceTimeout:      cfg.GraceTimeout,
		readHeaderTimeout: cfg.ReadHeaderTimeout,
		requestTimeout:    cfg.RequestTimeout,
	}

	s.mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("pong")); err != nil {
			s.log.Warn("ping write error", zap.Error(err))
		}
	})
	s.mux.HandleFunc("/tokens", s.handleTokens)
	s.mux.HandleFunc("/quote", s.handleQuote)
	s.mux.HandleFunc("/prices", s.handlePrices)
	s.mux.HandleFunc("/intents", s.handleIntent)
	s.mux.HandleFunc("/swaps", s.handleSwap)
	s.mux.HandleFunc("/balances", s.handleBalances)
	s.mux.HandleFunc("/refresh", s.handleRefresh)
	s.mux.HandleFunc("/positions", s.handlePosition)
	s.mux.HandleFunc("/liquidity/add", s.handleAddLiquidity)
	s.mux.HandleFunc("/liquidity/remove", s.handleRemoveLiquidity)
	s.mux.HandleFunc("/chain", s.handleChain)

	return s
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrap(err, "net.Listen")
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.logMiddleware(s.mux),
		ReadHeaderTimeout: s.readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server starting", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return errors.Wrap(err, "srv.Serve")
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.graceTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "srv.Shutdown")
	}
	s.log.Info("server stopped gracefully")
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// logMiddleware logs each HTTP request and the time taken to process it.
func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

// requestContext bounds read-only requests. Transaction submissions only
// follow the client connection.
func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.requestTimeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), s.requestTimeout)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("response write error", zap.Error(err))
	}
}
