package obs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics implements the recorder ports of the buses, the calendar cache,
// the proximity handlers and the outbox worker.
type Metrics struct {
	messages         *prometheus.CounterVec
	messageDuration  *prometheus.HistogramVec
	cacheLookups     *prometheus.CounterVec
	cacheEvictions   prometheus.Counter
	proximityResults *prometheus.HistogramVec
	outboxPublishes  *prometheus.CounterVec
}

// NewMetrics registers collectors on reg, or the default registerer when
// reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		messages: f.NewCounterVec(prometheus.CounterOpts{
			Name: "staycal_bus_messages_total",
			Help: "Commands and queries handled by kind, key and outcome",
		}, []string{"kind", "key", "outcome"}),
		messageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "staycal_bus_message_duration_seconds",
			Help:    "Time spent handling commands and queries",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"kind", "key"}),
		cacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "staycal_calendar_cache_lookups_total",
			Help: "Calendar range cache lookups by result",
		}, []string{"result"}),
		cacheEvictions: f.NewCounter(prometheus.CounterOpts{
			Name: "staycal_calendar_cache_evictions_total",
			Help: "Cached calendar ranges evicted after writes",
		}),
		proximityResults: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "staycal_proximity_results_count",
			Help:    "Listings returned by proximity searches",
			Buckets: []float64{0, 1, 5, 10, 20, 50, 100, 500},
		}, []string{"kind"}),
		outboxPublishes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "staycal_outbox_publishes_total",
			Help: "Outbox records published by event and outcome",
		}, []string{"event", "outcome"}),
	}
}

func (m *Metrics) ObserveMessage(kind, key, outcome string, elapsed time.Duration) {
	m.messages.WithLabelValues(kind, key, outcome).Inc()
	m.messageDuration.WithLabelValues(kind, key).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveCacheEvictions(n int) {
	m.cacheEvictions.Add(float64(n))
}

func (m *Metrics) ObserveProximity(kind string, n int) {
	m.proximityResults.WithLabelValues(kind).Observe(float64(n))
}

func (m *Metrics) ObservePublish(event string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.outboxPublishes.WithLabelValues(event, outcome).Inc()
}
