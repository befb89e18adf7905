package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Relay holds Prometheus metrics for the broadcaster/listener relay.
type Relay struct {
	ProducerConnected  prometheus.Gauge
	Consumers          prometheus.Gauge
	ProducerRejections prometheus.Counter
	FramesRelayed      prometheus.Counter
	BytesReceived      prometheus.Counter
	Deliveries         prometheus.Counter
	DeliveryFailures   prometheus.Counter
	BroadcastDuration  prometheus.Histogram
}

// NewRelay creates and registers relay metrics on the given registry.
func NewRelay(reg prometheus.Registerer) *Relay {
	m := &Relay{
		ProducerConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "producer_connected",
			Help:      "1 while a broadcaster holds the producer slot, 0 otherwise.",
		}),
		Consumers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "consumers",
			Help:      "Number of registered listeners.",
		}),
		ProducerRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "producer_rejections_total",
			Help:      "Broadcaster connections rejected because the slot was taken.",
		}),
		FramesRelayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "frames_total",
			Help:      "Frames received from the broadcaster and fanned out.",
		}),
		BytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "received_bytes_total",
			Help:      "Payload bytes received from the broadcaster.",
		}),
		Deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "deliveries_total",
			Help:      "Frames handed to listener connections.",
		}),
		DeliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "delivery_failures_total",
			Help:      "Listener sends that failed and removed the listener.",
		}),
		BroadcastDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "broadcast_duration_seconds",
			Help:      "Time spent fanning a single frame out to all listeners.",
			Buckets:   []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1},
		}),
	}

	reg.MustRegister(
		m.ProducerConnected,
		m.Consumers,
		m.ProducerRejections,
		m.FramesRelayed,
		m.BytesReceived,
		m.Deliveries,
		m.DeliveryFailures,
		m.BroadcastDuration,
	)
	return m
}

// ObserveBroadcast records the outcome of one fan-out pass.
func (m *Relay) ObserveBroadcast(size, delivered, failed int, took time.Duration) {
	m.FramesRelayed.Inc()
	m.BytesReceived.Add(float64(size))
	m.Deliveries.Add(float64(delivered))
	m.DeliveryFailures.Add(float64(failed))
	m.BroadcastDuration.Observe(took.Seconds())
}

// SetOccupancy updates the slot and listener gauges.
func (m *Relay) SetOccupancy(producer bool, consumers int) {
	if producer {
		m.ProducerConnected.Set(1)
	} else {
		m.ProducerConnected.Set(0)
	}
	m.Consumers.Set(float64(consumers))
}
