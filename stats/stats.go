// Package stats is a small metrics abstraction.  Instrumented code asks a
// StatsFactory for counters, gauges and summaries by name and tags, and the
// factory decides where the observations go (nowhere, memory, Prometheus,
// or several of those at once).
package stats

import (
	"sort"
	"strings"
)

type CounterStat interface {
	Inc()
	Add(float64)
}

type GaugeStat interface {
	Set(float64)
	Get() float64

	Inc()
	Add(float64)

	Dec()
	Sub(float64)
}

type SummaryStat interface {
	Observe(float64)
}

type StatsFactory interface {
	NewCounter(
		metric string,
		tags map[string]string) CounterStat

	NewGauge(
		metric string,
		tags map[string]string) GaugeStat

	NewSummary(
		metric string,
		tags map[string]string) SummaryStat
}

// Sorted tag names.
func tagNames(tags map[string]string) []string {
	names := make([]string, 0, len(tags))
	for k := range tags {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Canonical "metric{k1=v1,k2=v2}" key for a metric and its tags.
func StatKey(metric string, tags map[string]string) string {
	if len(tags) == 0 {
		return metric
	}
	var b strings.Builder
	b.WriteString(metric)
	b.WriteByte('{')
	for i, name := range tagNames(tags) {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(tags[name])
	}
	b.WriteByte('}')
	return b.String()
}
