package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drop reasons for MessagesDropped.
const (
	DropMalformed = "malformed"
	DropUnknown   = "unknown_type"
	DropNotReady  = "not_ready"
	DropClosed    = "closed"
)

// Metrics holds all Prometheus metrics. A nil *Metrics records nothing.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Bridge metrics
	MessagesSent     *prometheus.CounterVec
	MessagesReceived *prometheus.CounterVec
	MessagesDropped  *prometheus.CounterVec
	PendingCommands  prometheus.Gauge
	HandlerFaults    *prometheus.CounterVec
	ReadyDuration    prometheus.Histogram
	EditorsActive    prometheus.Gauge

	// WebSocket metrics
	WSConnections prometheus.Gauge

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	// Snapshot for the health endpoint
	snapshot Snapshot

	mu sync.RWMutex
}

// Snapshot holds current values for the JSON health endpoint.
type Snapshot struct {
	ActiveEditors int64   `json:"active_editors"`
	MessagesSent  int64   `json:"messages_sent"`
	MessagesIn    int64   `json:"messages_received"`
	Dropped       int64   `json:"messages_dropped"`
	Faults        int64   `json:"handler_faults"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	ActiveSockets int64   `json:"active_sockets"`
}

// NewMetrics registers the bridge metrics on reg. A nil reg uses the
// default Prometheus registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	m := &Metrics{
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "richbridge_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "richbridge_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		// Bridge metrics
		MessagesSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "richbridge_messages_sent_total",
				Help: "Messages injected into sandboxes",
			},
			[]string{"type"},
		),
		MessagesReceived: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "richbridge_messages_received_total",
				Help: "Messages received from sandboxes",
			},
			[]string{"type"},
		),
		MessagesDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "richbridge_messages_dropped_total",
				Help: "Inbound or outbound messages that were dropped",
			},
			[]string{"reason"},
		),
		PendingCommands: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "richbridge_pending_commands",
				Help: "Commands buffered while editors await readiness",
			},
		),
		HandlerFaults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "richbridge_handler_faults_total",
				Help: "Extension callbacks that failed or panicked",
			},
			[]string{"extension"},
		),
		ReadyDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "richbridge_ready_seconds",
				Help:    "Time from editor construction to the ready signal",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),
		EditorsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "richbridge_editors_active",
				Help: "Number of mounted editors",
			},
		),

		// WebSocket metrics
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "richbridge_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),

		// System metrics
		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "richbridge_uptime_seconds",
				Help: "Process uptime in seconds",
			},
		),
	}
	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordSent records a message injected into a sandbox
func (m *Metrics) RecordSent(msgType string) {
	if m == nil {
		return
	}
	m.MessagesSent.WithLabelValues(msgType).Inc()
	m.mu.Lock()
	m.snapshot.MessagesSent++
	m.mu.Unlock()
}

// RecordReceived records a message received from a sandbox
func (m *Metrics) RecordReceived(msgType string) {
	if m == nil {
		return
	}
	m.MessagesReceived.WithLabelValues(msgType).Inc()
	m.mu.Lock()
	m.snapshot.MessagesIn++
	m.mu.Unlock()
}

// RecordDropped records a dropped message
func (m *Metrics) RecordDropped(reason string) {
	if m == nil {
		return
	}
	m.MessagesDropped.WithLabelValues(reason).Inc()
	m.mu.Lock()
	m.snapshot.Dropped++
	m.mu.Unlock()
}

// RecordFault records an isolated extension failure
func (m *Metrics) RecordFault(extension string) {
	if m == nil {
		return
	}
	m.HandlerFaults.WithLabelValues(extension).Inc()
	m.mu.Lock()
	m.snapshot.Faults++
	m.mu.Unlock()
}

// AddPending adjusts the pending command gauge by delta
func (m *Metrics) AddPending(delta int) {
	if m == nil {
		return
	}
	m.PendingCommands.Add(float64(delta))
}

// ObserveReady records how long an editor took to become ready
func (m *Metrics) ObserveReady(d time.Duration) {
	if m == nil {
		return
	}
	m.ReadyDuration.Observe(d.Seconds())
}

// IncEditors increments mounted editors
func (m *Metrics) IncEditors() {
	if m == nil {
		return
	}
	m.EditorsActive.Inc()
	m.mu.Lock()
	m.snapshot.ActiveEditors++
	m.mu.Unlock()
}

// DecEditors decrements mounted editors
func (m *Metrics) DecEditors() {
	if m == nil {
		return
	}
	m.EditorsActive.Dec()
	m.mu.Lock()
	m.snapshot.ActiveEditors--
	m.mu.Unlock()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveSockets++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveSockets--
	m.mu.Unlock()
}

// GetSnapshot returns current values and refreshes the uptime gauge
func (m *Metrics) GetSnapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	uptime := time.Since(m.startTime).Seconds()
	m.Uptime.Set(uptime)

	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.snapshot
	s.UptimeSeconds = uptime
	return s
}
