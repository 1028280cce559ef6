package stats

import (
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Summary quantiles exported for every SummaryStat.
var defaultObjectives = map[float64]float64{
	0.5:  0.05,
	0.9:  0.01,
	0.99: 0.001,
}

type promCollector struct {
	labels    []string
	counter   *prometheus.CounterVec
	gauge     *prometheus.GaugeVec
	summary   *prometheus.SummaryVec
	collector prometheus.Collector
}

// PrometheusFactory registers one vector per metric name.  Tag names become
// label names, so every use of a metric must pass the same set of tag
// names; a mismatched set gets a no-op stat.
type PrometheusFactory struct {
	registerer prometheus.Registerer
	namespace  string

	mu         sync.Mutex
	collectors map[string]*promCollector
}

func NewPrometheusFactory(
	registerer prometheus.Registerer,
	namespace string) *PrometheusFactory {

	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	return &PrometheusFactory{
		registerer: registerer,
		namespace:  sanitizeMetricName(namespace),
		collectors: make(map[string]*promCollector),
	}
}

// Prometheus names only allow [a-zA-Z0-9_:].
func sanitizeMetricName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '_', r == ':':
			return r
		default:
			return '_'
		}
	}, name)
}

func sameLabels(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func labelValues(names []string, tags map[string]string) []string {
	values := make([]string, len(names))
	for i, name := range names {
		values[i] = tags[name]
	}
	return values
}

func (f *PrometheusFactory) lookup(
	metric string,
	tags map[string]string,
	build func(name string, labels []string) *promCollector) *promCollector {

	name := sanitizeMetricName(metric)
	labels := tagNames(tags)
	for i := range labels {
		labels[i] = sanitizeMetricName(labels[i])
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.collectors[name]; ok {
		if !sameLabels(c.labels, labels) {
			return nil
		}
		return c
	}

	c := build(name, labels)
	if err := f.registerer.Register(c.collector); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil
		}
		// Someone else registered the same vector on this registry; reuse it.
		c.counter, c.gauge, c.summary = nil, nil, nil
		switch existing := are.ExistingCollector.(type) {
		case *prometheus.CounterVec:
			c.counter = existing
		case *prometheus.GaugeVec:
			c.gauge = existing
		case *prometheus.SummaryVec:
			c.summary = existing
		default:
			return nil
		}
	}
	f.collectors[name] = c
	return c
}

func rawTags(tags map[string]string) map[string]string {
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		out[sanitizeMetricName(k)] = v
	}
	return out
}

func (f *PrometheusFactory) NewCounter(
	metric string, tags map[string]string) CounterStat {

	c := f.lookup(metric, tags, func(name string, labels []string) *promCollector {
		vec := prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: f.namespace,
			Name:      name,
			Help:      metric,
		}, labels)
		return &promCollector{labels: labels, counter: vec, collector: vec}
	})
	if c == nil || c.counter == nil {
		return noopStat{}
	}
	return c.counter.WithLabelValues(labelValues(c.labels, rawTags(tags))...)
}

type promGauge struct {
	prometheus.Gauge

	mu sync.Mutex
	v  float64
}

func (g *promGauge) Set(v float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.v = v
	g.Gauge.Set(v)
}

func (g *promGauge) Add(v float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.v += v
	g.Gauge.Add(v)
}

func (g *promGauge) Sub(v float64) { g.Add(-v) }
func (g *promGauge) Inc()          { g.Add(1) }
func (g *promGauge) Dec()          { g.Add(-1) }

// Value as seen through this handle only.
func (g *promGauge) Get() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.v
}

func (f *PrometheusFactory) NewGauge(
	metric string, tags map[string]string) GaugeStat {

	c := f.lookup(metric, tags, func(name string, labels []string) *promCollector {
		vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: f.namespace,
			Name:      name,
			Help:      metric,
		}, labels)
		return &promCollector{labels: labels, gauge: vec, collector: vec}
	})
	if c == nil || c.gauge == nil {
		return noopStat{}
	}
	return &promGauge{
		Gauge: c.gauge.WithLabelValues(labelValues(c.labels, rawTags(tags))...),
	}
}

func (f *PrometheusFactory) NewSummary(
	metric string, tags map[string]string) SummaryStat {

	c := f.lookup(metric, tags, func(name string, labels []string) *promCollector {
		vec := prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Namespace:  f.namespace,
			Name:       name,
			Help:       metric,
			Objectives: defaultObjectives,
		}, labels)
		return &promCollector{labels: labels, summary: vec, collector: vec}
	})
	if c == nil || c.summary == nil {
		return noopStat{}
	}
	return c.summary.WithLabelValues(labelValues(c.labels, rawTags(tags))...)
}

// Serves the gatherer's metrics.  The handler accepts both HTTP/1.1 and
// cleartext HTTP/2 so scrapers can keep a single multiplexed connection.
func NewMetricsHandler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return h2c.NewHandler(mux, &http2.Server{})
}
