package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultRequestTimeout = 15 * time.Second

type Server struct {
	mux     *chi.Mux
	timeout time.Duration
	logger  zerolog.Logger
}

type Option func(*Server)

// WithRequestTimeout bounds how long one request may take, ledger round
// trips included. Non-positive values keep the default.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger replaces the global logger for request logs.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

func New(opts ...Option) *Server {
	s := &Server{
		mux:     chi.NewRouter(),
		timeout: defaultRequestTimeout,
		logger:  log.Logger,
	}
	for _, o := range opts {
		o(s)
	}

	// RealIP first: the rate limiter and the request log read RemoteAddr.
	// Observe wraps Recoverer and Timeout so it records the 500 or 503 they
	// answer with, not the status the handler was about to write.
	s.mux.Use(chimw.RealIP)
	s.mux.Use(chimw.RequestID)
	s.mux.Use(Observe(s.logger))
	s.mux.Use(chimw.Recoverer)
	s.mux.Use(Timeout(s.timeout))

	return s
}

func (s *Server) Mux() http.Handler { return s.mux }

// Mount attaches an extra handler, e.g. /metrics, next to the API routes.
func (s *Server) Mount(path string, h http.Handler) {
	s.mux.Handle(path, h)
}
