// Package metrics exposes pure observability counters for the sanitizer
// pipeline: spec.md is silent on observability, but every deployment of
// a guard-boundary tool needs to know what it's quarantining. Built on
// prometheus/client_golang the way the mobilecombackup example pairs it
// with a cobra-driven CLI; metrics never influence classification
// decisions.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mailsanitizer"

// Metrics is the set of counters/histograms the Sanitizer facade reports
// into after each dispatch and each sanitized message. A nil *Metrics is valid and every
// method on it is a no-op, so callers that don't care about metrics
// (library use, most tests) can simply leave it unset.
type Metrics struct {
	registry          *prometheus.Registry
	AttachmentsTotal  *prometheus.CounterVec
	MessagesTotal     prometheus.Counter
	ArchiveBombsTotal prometheus.Counter
	RecursionLimit    prometheus.Counter
	AttachmentBytes   prometheus.Histogram
}

// New creates a fresh Metrics registered against its own prometheus
// registry, so multiple Sanitizer instances in the same process (e.g.
// one per worker) don't collide on prometheus's default registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		AttachmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attachments_total",
			Help:      "Attachments processed, by final danger state.",
		}, []string{"state"}),
		MessagesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Messages sanitized.",
		}),
		ArchiveBombsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_bombs_total",
			Help:      "Archive-within-archive recursion refused.",
		}),
		RecursionLimit: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recursion_limit_total",
			Help:      "Nested message/* recursion limit reached.",
		}),
		AttachmentBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "attachment_bytes",
			Help:      "Size in bytes of inspected attachments.",
			Buckets:   []float64{1024, 10240, 102400, 1048576, 10485760, 104857600},
		}),
	}
	reg.MustRegister(m.AttachmentsTotal, m.MessagesTotal, m.ArchiveBombsTotal, m.RecursionLimit, m.AttachmentBytes)
	return m
}

func (m *Metrics) IncAttachment(state string, size int) {
	if m == nil {
		return
	}
	m.AttachmentsTotal.WithLabelValues(state).Inc()
	m.AttachmentBytes.Observe(float64(size))
}

func (m *Metrics) IncMessage() {
	if m == nil {
		return
	}
	m.MessagesTotal.Inc()
}

func (m *Metrics) IncArchiveBomb() {
	if m == nil {
		return
	}
	m.ArchiveBombsTotal.Inc()
}

func (m *Metrics) IncRecursionLimit() {
	if m == nil {
		return
	}
	m.RecursionLimit.Inc()
}

// Server exposes /metrics and /healthz for `mailsanitized serve`.
type Server struct {
	httpServer *http.Server
}

// NewServer builds an HTTP server bound to addr, serving m's registry at
// /metrics and a trivial liveness probe at /healthz.
func NewServer(addr string, m *Metrics) *Server {
	mux := http.NewServeMux()
	if m != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &Server{httpServer: &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}}
}

// ListenAndServe blocks serving metrics/health until the server errors or
// is shut down.
func (s *Server) ListenAndServe() error {
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
