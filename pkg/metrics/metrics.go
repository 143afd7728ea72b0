// Package metrics holds the Prometheus collectors shared by the k-core
// capability handles.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const (
	ResultOK    = "ok"
	ResultError = "error"
)

type collectors struct {
	once sync.Once

	dispatchOps      *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	embedQueueWait   prometheus.Histogram
	embedInFlight    prometheus.Gauge
}

var m collectors

func (c *collectors) init() {
	c.once.Do(func() {
		buckets := []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

		c.dispatchOps = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kcore_dispatch_ops_total",
			Help: "Operations forwarded by a capability handle to its backend",
		}, []string{"capability", "backend", "op", "result"})

		c.dispatchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kcore_dispatch_duration_seconds",
			Help:    "Duration of operations forwarded by a capability handle",
			Buckets: buckets,
		}, []string{"capability", "backend", "op"})

		c.embedQueueWait = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kcore_embedding_queue_wait_seconds",
			Help:    "Time an embedding job waited for a free worker",
			Buckets: buckets,
		})

		c.embedInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kcore_embedding_in_flight",
			Help: "Embedding jobs currently held by a worker",
		})

		prometheus.MustRegister(c.dispatchOps, c.dispatchDuration, c.embedQueueWait, c.embedInFlight)
	})
}

// ObserveDispatch records one forwarded operation.
func ObserveDispatch(capability, backend, op string, start time.Time, err error) {
	m.init()
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.dispatchOps.WithLabelValues(capability, backend, op, result).Inc()
	m.dispatchDuration.WithLabelValues(capability, backend, op).Observe(time.Since(start).Seconds())
}

// ObserveQueueWait records how long an embedding job waited for a worker.
func ObserveQueueWait(d time.Duration) {
	m.init()
	m.embedQueueWait.Observe(d.Seconds())
}

// EmbedStarted and EmbedFinished track the in-flight gauge.
func EmbedStarted()  { m.init(); m.embedInFlight.Inc() }
func EmbedFinished() { m.init(); m.embedInFlight.Dec() }

// DispatchCount returns the current value of the dispatch counter for the
// given labels. Intended for tests.
func DispatchCount(capability, backend, op, result string) float64 {
	m.init()
	c, err := m.dispatchOps.GetMetricWithLabelValues(capability, backend, op, result)
	if err != nil {
		return 0
	}
	var pb dto.Metric
	if err := c.Write(&pb); err != nil {
		return 0
	}
	return pb.GetCounter().GetValue()
}
