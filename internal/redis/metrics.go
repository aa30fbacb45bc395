package redis

import (
	"github.com/hnimtadd/craft-redis/internal/redis/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	commands         *prometheus.CounterVec
	commandDuration  *prometheus.HistogramVec
	protocolErrors   *prometheus.CounterVec
	connections      prometheus.Gauge
	connectionsTotal prometheus.Counter
}

func newMetrics(reg prometheus.Registerer, data *store.Store) *metrics {
	factory := promauto.With(reg)
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "redis_keys",
		Help: "Entries held by the keyspace, including expired ones not yet read.",
	}, func() float64 {
		return float64(data.Len())
	})
	return &metrics{
		commands: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "redis_commands_total",
			Help: "Commands executed, by verb.",
		}, []string{"command"}),
		commandDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "redis_command_duration_seconds",
			Help:    "Time spent executing a command.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
		}, []string{"command"}),
		protocolErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "redis_protocol_errors_total",
			Help: "Requests rejected by the decoder, by error kind.",
		}, []string{"kind"}),
		connections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "redis_connected_clients",
			Help: "Client connections currently open.",
		}),
		connectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "redis_connections_received_total",
			Help: "Client connections accepted.",
		}),
	}
}
