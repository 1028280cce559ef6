package stats

type compositeCounter []CounterStat

func (s compositeCounter) Inc() {
	for _, metric := range s {
		metric.Inc()
	}
}

func (s compositeCounter) Add(value float64) {
	for _, metric := range s {
		metric.Add(value)
	}
}

type compositeGauge []GaugeStat

func (s compositeGauge) Inc() {
	for _, metric := range s {
		metric.Inc()
	}
}

func (s compositeGauge) Add(value float64) {
	for _, metric := range s {
		metric.Add(value)
	}
}

func (s compositeGauge) Dec() {
	for _, metric := range s {
		metric.Dec()
	}
}

func (s compositeGauge) Sub(value float64) {
	for _, metric := range s {
		metric.Sub(value)
	}
}

func (s compositeGauge) Set(value float64) {
	for _, metric := range s {
		metric.Set(value)
	}
}

// Assumes every member holds the same value.
func (s compositeGauge) Get() float64 {
	if len(s) > 0 {
		return s[0].Get()
	}
	return 0
}

type compositeSummary []SummaryStat

func (s compositeSummary) Observe(value float64) {
	for _, metric := range s {
		metric.Observe(value)
	}
}

type compositeStatsFactory []StatsFactory

// Fans every observation out to all of the given factories, e.g. an
// in-memory factory for the CLI report plus Prometheus for scraping.
func NewCompositeFactory(factories ...StatsFactory) StatsFactory {
	return compositeStatsFactory(factories)
}

func (f compositeStatsFactory) NewCounter(
	metric string, tags map[string]string) CounterStat {

	metrics := make(compositeCounter, len(f))
	for i, factory := range f {
		metrics[i] = factory.NewCounter(metric, tags)
	}
	return metrics
}

func (f compositeStatsFactory) NewGauge(
	metric string, tags map[string]string) GaugeStat {

	metrics := make(compositeGauge, len(f))
	for i, factory := range f {
		metrics[i] = factory.NewGauge(metric, tags)
	}
	return metrics
}

func (f compositeStatsFactory) NewSummary(
	metric string, tags map[string]string) SummaryStat {

	metrics := make(compositeSummary, len(f))
	for i, factory := range f {
		metrics[i] = factory.NewSummary(metric, tags)
	}
	return metrics
}
