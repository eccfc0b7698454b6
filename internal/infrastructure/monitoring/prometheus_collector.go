package monitoring

import (
	"time"

	"vigilcam/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector records connection supervisor and alert telemetry.
type PrometheusCollector struct {
	// Gauges
	connectionStatus *prometheus.GaugeVec

	// Counters
	attemptsTotal *prometheus.CounterVec
	retriesTotal  *prometheus.CounterVec
	eventsTotal   *prometheus.CounterVec

	// Histograms
	negotiationDuration *prometheus.HistogramVec
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		connectionStatus: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vigilcam_connection_status",
			Help: "Current connection status (1 for the active status, 0 otherwise)",
		}, []string{"status"}),

		attemptsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vigilcam_connection_attempts_total",
			Help: "Total number of stream connection attempts",
		}, []string{"transport"}),

		retriesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vigilcam_connection_retries_total",
			Help: "Total number of stream connection retries",
		}, []string{"transport"}),

		eventsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vigilcam_camera_events_total",
			Help: "Total number of ingested camera events",
		}, []string{"type"}),

		negotiationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vigilcam_whep_negotiation_duration_seconds",
			Help:    "Duration of WHEP negotiation attempts",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"outcome"}),
	}
}

var allStatuses = []domain.ConnectionStatus{
	domain.StatusConnecting,
	domain.StatusConnected,
	domain.StatusError,
	domain.StatusOffline,
}

// SetConnectionStatus marks the given status active and all others inactive.
func (c *PrometheusCollector) SetConnectionStatus(status domain.ConnectionStatus) {
	for _, s := range allStatuses {
		v := 0.0
		if s == status {
			v = 1.0
		}
		c.connectionStatus.WithLabelValues(string(s)).Set(v)
	}
}

func (c *PrometheusCollector) IncAttempt(transport domain.TransportKind) {
	c.attemptsTotal.WithLabelValues(string(transport)).Inc()
}

func (c *PrometheusCollector) IncRetry(transport domain.TransportKind) {
	c.retriesTotal.WithLabelValues(string(transport)).Inc()
}

func (c *PrometheusCollector) ObserveNegotiation(d time.Duration, ok bool) {
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	c.negotiationDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (c *PrometheusCollector) IncEvent(eventType domain.EventType) {
	c.eventsTotal.WithLabelValues(string(eventType)).Inc()
}
