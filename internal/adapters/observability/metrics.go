package observability

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const namespace = "hotel"

var (
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	httpLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	// event: hit|miss|set|del|error
	cacheEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_events_total",
		Help:      "Availability cache events.",
	}, []string{"cache", "event"})

	// outcome: booked|invalid|no_availability|ledger_fault
	bookings = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bookings_total",
		Help:      "Booking submissions by outcome.",
	}, []string{"outcome"})

	// result: ledger|cache|fault
	availabilityQueries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "availability_queries_total",
		Help:      "Availability lookups by where the answer came from.",
	}, []string{"result"})

	// Admissions wait on the slot lock, so the upper buckets matter more
	// than for plain reads.
	ledgerLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "ledger_op_duration_seconds",
		Help:      "Ledger operation duration seconds.",
		Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"op"})
)

// InitRegistry returns a private registry holding every collector above.
func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(httpRequests, httpLatency, cacheEvents, bookings, availabilityQueries, ledgerLatency)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Serve exposes reg on a side port in the background. Empty addr disables it.
func Serve(addr string, reg *prometheus.Registry) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(reg))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	httpLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveCache(cache, event string) { cacheEvents.WithLabelValues(cache, event).Inc() }

func ObserveBooking(outcome string) { bookings.WithLabelValues(outcome).Inc() }

func ObserveAvailability(result string) { availabilityQueries.WithLabelValues(result).Inc() }

// ObserveLedger records the time since start, e.g.
// defer ObserveLedger("admit", time.Now()).
func ObserveLedger(op string, start time.Time) {
	ledgerLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
