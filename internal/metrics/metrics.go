package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "notesync",
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests received",
	}, []string{"method", "path", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "notesync",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	// ConnectionsActive is the number of open room WebSocket connections.
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "notesync",
		Name:      "ws_connections_active",
		Help:      "Current number of open room connections",
	})

	// RoomsActive is the number of rooms resident in memory. Rooms are never
	// evicted, so this only grows within a process lifetime.
	RoomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "notesync",
		Name:      "rooms_active",
		Help:      "Current number of in-memory rooms",
	})

	// SavesTotal counts document save attempts by outcome (ok/error).
	SavesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "notesync",
		Name:      "document_saves_total",
		Help:      "Total number of document save requests by outcome",
	}, []string{"outcome"})

	// HydrationsTotal counts room hydrations by outcome
	// (applied/discarded/empty/error).
	HydrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "notesync",
		Name:      "room_hydrations_total",
		Help:      "Total number of room hydrations by outcome",
	}, []string{"outcome"})
)

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack must be forwarded so the WebSocket upgrade works behind this
// middleware.
func (r *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := r.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, fmt.Errorf("metrics: underlying ResponseWriter does not support hijacking")
}

// Middleware records request count and latency per route.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		labels := prometheus.Labels{
			"method": r.Method,
			"path":   r.URL.Path,
			"status": strconv.Itoa(rec.status),
		}
		httpRequests.With(labels).Inc()
		httpLatency.With(labels).Observe(time.Since(start).Seconds())
	})
}

// Handler exposes the default Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
