// Package metrics exports CDBMS client activity to Prometheus.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dan-strohschein/cdbms-driver/transport"
)

// Outcome labels for CommandsTotal.
const (
	OutcomeOK        = "ok"
	OutcomeTransport = "transport_error"
	OutcomeProtocol  = "protocol_error"
	OutcomeCodec     = "codec_error"
	OutcomeInvalid   = "invalid"
)

// Collector owns the client metrics. Nothing is exported until Register is
// called with a registry.
type Collector struct {
	CommandsTotal   *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec
	BytesSent       prometheus.Counter
	BytesReceived   prometheus.Counter
	RowsDecoded     prometheus.Counter

	namespace  string
	mu         sync.Mutex
	transports map[string]transport.Transport
}

// NewCollector creates the metric vectors under namespace (default "cdbms").
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "cdbms"
	}

	return &Collector{
		CommandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "Total number of commands sent, by verb and outcome",
			},
			[]string{"verb", "outcome"},
		),
		CommandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "command_duration_seconds",
				Help:      "Round-trip latency of commands in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 16),
			},
			[]string{"verb"},
		),
		BytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "command_bytes_sent_total",
			Help:      "Total command bytes written, terminators included",
		}),
		BytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "response_bytes_received_total",
			Help:      "Total response bytes received",
		}),
		RowsDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_decoded_total",
			Help:      "Total fixed-width rows decoded from get responses",
		}),
		namespace:  namespace,
		transports: make(map[string]transport.Transport),
	}
}

// Register adds every metric, plus the transport gauges, to reg.
func (c *Collector) Register(reg prometheus.Registerer) error {
	for _, m := range []prometheus.Collector{
		c.CommandsTotal,
		c.CommandDuration,
		c.BytesSent,
		c.BytesReceived,
		c.RowsDecoded,
		newTransportCollector(c),
	} {
		if err := reg.Register(m); err != nil {
			return err
		}
	}
	return nil
}

// ObserveCommand records one finished command.
func (c *Collector) ObserveCommand(verb, outcome string, d time.Duration, sent, received int) {
	c.CommandsTotal.WithLabelValues(verb, outcome).Inc()
	c.CommandDuration.WithLabelValues(verb).Observe(d.Seconds())
	c.BytesSent.Add(float64(sent))
	c.BytesReceived.Add(float64(received))
}

// ObserveRows records decoded rows.
func (c *Collector) ObserveRows(n int) {
	c.RowsDecoded.Add(float64(n))
}

// Watch exposes a transport's own counters under the given session label.
func (c *Collector) Watch(session string, t transport.Transport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transports[session] = t
}

// Unwatch stops exposing a transport.
func (c *Collector) Unwatch(session string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.transports, session)
}

// transportCollector reads transport snapshots at scrape time.
type transportCollector struct {
	parent      *Collector
	drained     *prometheus.Desc
	errors      *prometheus.Desc
	connections *prometheus.Desc
	open        *prometheus.Desc
}

func newTransportCollector(c *Collector) *transportCollector {
	label := []string{"session"}
	return &transportCollector{
		parent: c,
		drained: prometheus.NewDesc(prometheus.BuildFQName(c.namespace, "session", "bytes_drained_total"),
			"Stale bytes discarded before sending a command", label, nil),
		errors: prometheus.NewDesc(prometheus.BuildFQName(c.namespace, "session", "errors_total"),
			"Failed exchanges seen by the session", label, nil),
		connections: prometheus.NewDesc(prometheus.BuildFQName(c.namespace, "session", "connections_total"),
			"Connections opened by the session", label, nil),
		open: prometheus.NewDesc(prometheus.BuildFQName(c.namespace, "session", "open"),
			"1 while the session holds a live connection", label, nil),
	}
}

func (tc *transportCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- tc.drained
	ch <- tc.errors
	ch <- tc.connections
	ch <- tc.open
}

func (tc *transportCollector) Collect(ch chan<- prometheus.Metric) {
	tc.parent.mu.Lock()
	watched := make(map[string]transport.Transport, len(tc.parent.transports))
	for k, v := range tc.parent.transports {
		watched[k] = v
	}
	tc.parent.mu.Unlock()

	for name, t := range watched {
		m := t.GetMetrics()
		open := 0.0
		if t.IsOpen() {
			open = 1
		}
		ch <- prometheus.MustNewConstMetric(tc.drained, prometheus.CounterValue, float64(m.BytesDrained), name)
		ch <- prometheus.MustNewConstMetric(tc.errors, prometheus.CounterValue, float64(m.TotalErrors), name)
		ch <- prometheus.MustNewConstMetric(tc.connections, prometheus.CounterValue, float64(m.ConnectionsCreated), name)
		ch <- prometheus.MustNewConstMetric(tc.open, prometheus.GaugeValue, open, name)
	}
}
