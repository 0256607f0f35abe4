package prometheus

import (
	"fmt"
	"time"

	"github.com/ethbind/ethbind/internal/metrics/metricsTypes"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type PrometheusMetricsConfig struct {
	Metrics map[metricsTypes.MetricsType][]metricsTypes.MetricsTypeConfig

	// Registry receives the collectors. Nil uses the default registerer.
	Registry prometheus.Registerer
}

type PrometheusMetricsClient struct {
	logger *zap.Logger
	config *PrometheusMetricsConfig

	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
	labelNames map[string][]string
}

func NewPrometheusMetricsClient(config *PrometheusMetricsConfig, l *zap.Logger) (*PrometheusMetricsClient, error) {
	client := &PrometheusMetricsClient{
		config: config,
		logger: l,

		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		labelNames: make(map[string][]string),
	}

	if err := client.initializeTypes(); err != nil {
		return nil, err
	}

	return client, nil
}

func (p *PrometheusMetricsClient) registerer() prometheus.Registerer {
	if p.config.Registry != nil {
		return p.config.Registry
	}
	return prometheus.DefaultRegisterer
}

func (p *PrometheusMetricsClient) initializeTypes() error {
	for metricType, configs := range p.config.Metrics {
		for _, cfg := range configs {
			if _, ok := p.labelNames[cfg.Name]; ok {
				return errors.Errorf("duplicate metric name '%s'", cfg.Name)
			}
			p.labelNames[cfg.Name] = cfg.Labels

			switch metricType {
			case metricsTypes.MetricsType_Incr:
				c := prometheus.NewCounterVec(prometheus.CounterOpts{Name: cfg.Name}, cfg.Labels)
				p.counters[cfg.Name] = c
				p.registerer().MustRegister(c)
			case metricsTypes.MetricsType_Gauge:
				g := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: cfg.Name}, cfg.Labels)
				p.gauges[cfg.Name] = g
				p.registerer().MustRegister(g)
			case metricsTypes.MetricsType_Timing:
				h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
					Name:    cfg.Name,
					Buckets: prometheus.ExponentialBuckets(50, 2, 14),
				}, cfg.Labels)
				p.histograms[cfg.Name] = h
				p.registerer().MustRegister(h)
			default:
				return errors.Errorf("unknown metric type '%s'", metricType)
			}
		}
	}
	return nil
}

func (p *PrometheusMetricsClient) labelValues(name string, labels []metricsTypes.MetricsLabel) (prometheus.Labels, error) {
	expected, ok := p.labelNames[name]
	if !ok {
		return nil, errors.Errorf("metric '%s' is not registered", name)
	}

	values := prometheus.Labels{}
	for _, l := range labels {
		values[l.Name] = l.Value
	}
	if len(values) != len(expected) {
		return nil, errors.Errorf("metric '%s' expects labels %v", name, expected)
	}
	for _, name := range expected {
		if _, ok := values[name]; !ok {
			return nil, fmt.Errorf("metric is missing label '%s'", name)
		}
	}
	return values, nil
}

func (p *PrometheusMetricsClient) Incr(name string, labels []metricsTypes.MetricsLabel, value float64) error {
	values, err := p.labelValues(name, labels)
	if err != nil {
		return err
	}
	counter, ok := p.counters[name]
	if !ok {
		return errors.Errorf("'%s' is not a counter", name)
	}
	counter.With(values).Add(value)
	return nil
}

func (p *PrometheusMetricsClient) Gauge(name string, value float64, labels []metricsTypes.MetricsLabel) error {
	values, err := p.labelValues(name, labels)
	if err != nil {
		return err
	}
	gauge, ok := p.gauges[name]
	if !ok {
		return errors.Errorf("'%s' is not a gauge", name)
	}
	gauge.With(values).Set(value)
	return nil
}

func (p *PrometheusMetricsClient) Timing(name string, value time.Duration, labels []metricsTypes.MetricsLabel) error {
	values, err := p.labelValues(name, labels)
	if err != nil {
		return err
	}
	histogram, ok := p.histograms[name]
	if !ok {
		return errors.Errorf("'%s' is not a timing", name)
	}
	histogram.With(values).Observe(float64(value.Milliseconds()))
	return nil
}
