package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/curdside/cheese-chat/internal/core/domain"
)

// ChatMetrics collects chat pipeline and HTTP server metrics on a private
// registry. It implements ports.TurnObserver.
type ChatMetrics struct {
	service  string
	registry *prometheus.Registry

	turnsTotal      *prometheus.CounterVec
	fallbacksTotal  prometheus.Counter
	noMatchTotal    prometheus.Counter
	degradedTotal   prometheus.Counter
	contextItems    prometheus.Histogram
	turnDuration    *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge
}

func NewChatMetrics(service string) *ChatMetrics {
	registry := prometheus.NewRegistry()

	turnsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cheesechat",
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Chat turns processed, by verdict and retrieval path.",
		},
		[]string{"service", "verdict", "query_type"},
	)
	fallbacksTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cheesechat",
		Subsystem: "chat",
		Name:      "retrieval_fallbacks_total",
		Help:      "Retrieval calls answered by the alternate modality.",
	})
	noMatchTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cheesechat",
		Subsystem: "chat",
		Name:      "no_match_total",
		Help:      "Turns answered with the canned no-match response.",
	})
	degradedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cheesechat",
		Subsystem: "chat",
		Name:      "degraded_total",
		Help:      "Turns that completed on a degraded path.",
	})
	contextItems := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cheesechat",
		Subsystem: "chat",
		Name:      "context_items",
		Help:      "Catalog items returned as grounding context per turn.",
		Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
	})
	turnDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cheesechat",
			Subsystem: "chat",
			Name:      "turn_duration_seconds",
			Help:      "End-to-end duration of one ask call.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "query_type"},
	)
	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cheesechat",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cheesechat",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "cheesechat",
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "HTTP requests currently being served.",
	})

	registry.MustRegister(
		turnsTotal, fallbacksTotal, noMatchTotal, degradedTotal,
		contextItems, turnDuration, requestTotal, requestDuration, requestInFlight,
	)

	return &ChatMetrics{
		service:         service,
		registry:        registry,
		turnsTotal:      turnsTotal,
		fallbacksTotal:  fallbacksTotal,
		noMatchTotal:    noMatchTotal,
		degradedTotal:   degradedTotal,
		contextItems:    contextItems,
		turnDuration:    turnDuration,
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		requestInFlight: requestInFlight,
	}
}

func (m *ChatMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveChatTurn records the outcome of one ask call.
func (m *ChatMetrics) ObserveChatTurn(event domain.ChatTurnEvent) {
	queryType := string(event.QueryType)
	m.turnsTotal.WithLabelValues(m.service, string(event.Verdict), queryType).Inc()
	m.turnDuration.WithLabelValues(m.service, queryType).Observe(event.DurationMS / 1000.0)
	m.contextItems.Observe(float64(event.ItemCount))

	switch event.QueryType {
	case domain.QueryTypeStructuredSemantic, domain.QueryTypeSemanticLexical:
		m.fallbacksTotal.Inc()
	}
	if event.Degraded {
		m.degradedTotal.Inc()
	}
	if event.Verdict == domain.VerdictRetrievable && event.ItemCount == 0 && !event.Degraded {
		m.noMatchTotal.Inc()
	}
}

// InstrumentHandler wraps an HTTP handler with request counters.
func (m *ChatMetrics) InstrumentHandler(path string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		recorder := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(m.service, r.Method, path, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(m.service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
