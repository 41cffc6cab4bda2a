package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal *prometheus.CounterVec
	votesTotal        *prometheus.CounterVec
	realtimeViewers   prometheus.Gauge
	registerOnce      sync.Once
)

// Register initializes Prometheus metrics on the default registry.
func Register() {
	registerOnce.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livepoll",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests processed by the poll API.",
		}, []string{"method", "path", "status"})

		votesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livepoll",
			Name:      "votes_total",
			Help:      "Committed vote ledger mutations by kind.",
		}, []string{"action"})

		realtimeViewers = promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "livepoll",
			Name:      "realtime_viewers",
			Help:      "Currently connected realtime subscribers.",
		})
	})
}

// IncRequest increments the http_requests_total counter with the given labels.
func IncRequest(method, path string, status int) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

// IncVote counts a committed cast, change or retract.
func IncVote(action string) {
	if votesTotal == nil {
		return
	}
	votesTotal.WithLabelValues(action).Inc()
}

func ViewerConnected() {
	if realtimeViewers != nil {
		realtimeViewers.Inc()
	}
}

func ViewerDisconnected() {
	if realtimeViewers != nil {
		realtimeViewers.Dec()
	}
}
