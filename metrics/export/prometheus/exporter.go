package prometheus

import (
	"net/http"

	"github.com/MrEthical07/goOTP/metrics/export/internaldefs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector reads engine metrics on each scrape.
type Collector struct {
	source     internaldefs.Source
	counters   []*prometheus.Desc
	histograms []*prometheus.Desc
	bounds     []float64

	auditDropped *prometheus.Desc
	mailSent     *prometheus.Desc
	mailFailed   *prometheus.Desc
	mailDropped  *prometheus.Desc
}

// NewCollector returns a collector over source. *goOTP.Engine is the usual source.
func NewCollector(source internaldefs.Source) *Collector {
	c := &Collector{
		source:       source,
		counters:     make([]*prometheus.Desc, len(internaldefs.CounterDefs)),
		histograms:   make([]*prometheus.Desc, len(internaldefs.HistogramDefs)),
		bounds:       internaldefs.HistogramBounds(),
		auditDropped: prometheus.NewDesc(internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, nil, nil),
		mailSent:     prometheus.NewDesc(internaldefs.MailSentName, internaldefs.MailSentHelp, nil, nil),
		mailFailed:   prometheus.NewDesc(internaldefs.MailFailedName, internaldefs.MailFailedHelp, nil, nil),
		mailDropped:  prometheus.NewDesc(internaldefs.MailDroppedName, internaldefs.MailDroppedHelp, nil, nil),
	}
	for i, def := range internaldefs.CounterDefs {
		c.counters[i] = prometheus.NewDesc(def.Name, def.Help, nil, nil)
	}
	for i, def := range internaldefs.HistogramDefs {
		c.histograms[i] = prometheus.NewDesc(def.Name, def.Help, nil, nil)
	}
	return c
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.counters {
		ch <- d
	}
	for _, d := range c.histograms {
		ch <- d
	}
	ch <- c.auditDropped
	ch <- c.mailSent
	ch <- c.mailFailed
	ch <- c.mailDropped
}

// Collect implements prometheus.Collector. A disabled engine yields
// only the dispatcher counters.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c == nil || c.source == nil {
		return
	}

	snapshot := c.source.MetricsSnapshot()
	if len(snapshot.Counters) > 0 {
		for i, def := range internaldefs.CounterDefs {
			ch <- prometheus.MustNewConstMetric(c.counters[i], prometheus.CounterValue, float64(snapshot.Counters[def.ID]))
		}
	}

	for i, def := range internaldefs.HistogramDefs {
		raw, ok := snapshot.Histograms[def.ID]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		buckets := make(map[float64]uint64, len(c.bounds))
		for j, le := range c.bounds {
			buckets[le] = cumulative[j]
		}
		// The engine keeps bucket counts only, so the sum is reported as zero.
		ch <- prometheus.MustNewConstHistogram(c.histograms[i], cumulative[len(cumulative)-1], 0, buckets)
	}

	sent, failed, dropped := c.source.MailStats()
	ch <- prometheus.MustNewConstMetric(c.auditDropped, prometheus.CounterValue, float64(c.source.AuditDropped()))
	ch <- prometheus.MustNewConstMetric(c.mailSent, prometheus.CounterValue, float64(sent))
	ch <- prometheus.MustNewConstMetric(c.mailFailed, prometheus.CounterValue, float64(failed))
	ch <- prometheus.MustNewConstMetric(c.mailDropped, prometheus.CounterValue, float64(dropped))
}

// Handler serves this collector, plus Go runtime and process metrics, from
// a private registry.
func (c *Collector) Handler() http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		c,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
