// Package metrics exports the structural events of a partrie.Trie and the
// state of its epoch collector as Prometheus metrics.
package metrics

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/aglyzov/partrie/epoch"
)

type metricDefinition struct {
	Name string
	Help string
	Type string
}

var (
	insertsOpts = prometheus.CounterOpts{
		Name: "partrie_inserts_total",
		Help: "Number of sequences inserted",
	}
	findsOpts = prometheus.HistogramOpts{
		Name:    "partrie_find_results",
		Help:    "Number of sequences returned by a search",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	}
	growthsOpts = prometheus.CounterOpts{
		Name: "partrie_growths_total",
		Help: "Number of array resizes, per level (root or node)",
	}
	capacityOpts = prometheus.GaugeOpts{
		Name: "partrie_capacity",
		Help: "Capacity of the last array grown, per level",
	}
	retiredOpts = prometheus.CounterOpts{
		Name: "partrie_retired_arrays_total",
		Help: "Number of old arrays reclaimed after a grace period",
	}
	rootLenOpts = prometheus.GaugeOpts{
		Name: "partrie_root_len",
		Help: "Number of distinct first elements",
	}
	epochOpts = prometheus.GaugeOpts{
		Name: "epoch_global",
		Help: "Current global epoch of the collector",
	}
	participantsOpts = prometheus.GaugeOpts{
		Name: "epoch_participants",
		Help: "Number of currently pinned guards",
	}
	pendingOpts = prometheus.GaugeOpts{
		Name: "epoch_pending_destructors",
		Help: "Number of destructors waiting for their grace period",
	}
	reclaimedOpts = prometheus.CounterOpts{
		Name: "epoch_reclaimed_total",
		Help: "Number of destructors run",
	}
)

var metricsOpts = []metricDefinition{
	{insertsOpts.Name, insertsOpts.Help, "counter"},
	{findsOpts.Name, findsOpts.Help, "histogram"},
	{growthsOpts.Name, growthsOpts.Help, "counter"},
	{capacityOpts.Name, capacityOpts.Help, "gauge"},
	{retiredOpts.Name, retiredOpts.Help, "counter"},
	{rootLenOpts.Name, rootLenOpts.Help, "gauge"},
	{epochOpts.Name, epochOpts.Help, "gauge"},
	{participantsOpts.Name, participantsOpts.Help, "gauge"},
	{pendingOpts.Name, pendingOpts.Help, "gauge"},
	{reclaimedOpts.Name, reclaimedOpts.Help, "counter"},
}

// Metrics implements partrie.Observer.
type Metrics struct {
	reg prometheus.Registerer

	inserts  prometheus.Counter
	finds    prometheus.Histogram
	growths  *prometheus.CounterVec
	capacity *prometheus.GaugeVec
	retired  prometheus.Counter
	rootLen  prometheus.Gauge
}

// New registers the trie metrics with reg (prometheus.DefaultRegisterer when
// nil).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &Metrics{
		reg:      reg,
		inserts:  factory.NewCounter(insertsOpts),
		finds:    factory.NewHistogram(findsOpts),
		growths:  factory.NewCounterVec(growthsOpts, []string{"level"}),
		capacity: factory.NewGaugeVec(capacityOpts, []string{"level"}),
		retired:  factory.NewCounter(retiredOpts),
		rootLen:  factory.NewGauge(rootLenOpts),
	}
}

func (m *Metrics) ObserveInsert(rootLen int) {
	m.inserts.Inc()
	m.rootLen.Set(float64(rootLen))
}

func (m *Metrics) ObserveFind(results int) {
	m.finds.Observe(float64(results))
}

func (m *Metrics) ObserveGrowth(level string, capacity int) {
	m.growths.WithLabelValues(level).Inc()
	m.capacity.WithLabelValues(level).Set(float64(capacity))
}

func (m *Metrics) ObserveRetire() {
	m.retired.Inc()
}

// TrackCollector exports the state of c, read at scrape time.
func (m *Metrics) TrackCollector(c *epoch.Collector) {
	factory := promauto.With(m.reg)

	factory.NewGaugeFunc(epochOpts, func() float64 { return float64(c.Epoch()) })
	factory.NewGaugeFunc(participantsOpts, func() float64 { return float64(c.Participants()) })
	factory.NewGaugeFunc(pendingOpts, func() float64 { return float64(c.Pending()) })
	factory.NewCounterFunc(reclaimedOpts, func() float64 { return float64(c.Reclaimed()) })
}

// GetDocumentation returns a markdown description of every exported metric.
func GetDocumentation() string {
	var b strings.Builder

	for _, opts := range metricsOpts {
		fmt.Fprintf(&b,
			`
### %s
| **Name** | %s |
|:---|:---|
| **Description** | %s |
| **Type** | %s |

`,
			opts.Name,
			opts.Name,
			opts.Help,
			opts.Type,
		)
	}

	return b.String()
}
