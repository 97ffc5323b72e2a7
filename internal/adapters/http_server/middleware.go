package httpserver

import (
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"luxury_hotel/internal/adapters/observability"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 64 << 10

const timeoutBody = `{"type":"about:blank","title":"Timeout","status":503,"detail":"request took too long"}`

func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler { return http.TimeoutHandler(next, d, timeoutBody) }
}

// LimitBody caps request bodies at maxBodyBytes.
func LimitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// recorder remembers the status and size of a response.
type recorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *recorder) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *recorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func (w *recorder) code() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// Observe records request metrics and writes one http_request log line per
// request. Server errors are logged at warn so they stand out.
func Observe(l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &recorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			elapsed := time.Since(start)

			// the pattern is only known once chi has routed the request
			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			observability.ObserveHTTP(route, r.Method, rec.code(), elapsed)

			ev := l.Info()
			if rec.code() >= http.StatusInternalServerError {
				ev = l.Warn()
			}
			ev.Str("route", route).
				Str("request_id", chimw.GetReqID(r.Context())).
				Str("method", r.Method).
				Int("status", rec.code()).
				Int("bytes", rec.bytes).
				Dur("duration", elapsed).
				Str("remote", clientIP(r)).
				Str("ua", r.UserAgent()).
				Msg("http_request")
		})
	}
}

// clientIP is the host part of RemoteAddr. chimw.RealIP has already replaced
// it with X-Forwarded-For / X-Real-IP when a proxy set them.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
