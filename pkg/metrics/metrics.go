// Package metrics exposes Prometheus metrics about parsed configurations.
package metrics

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/psaab/fgtconf/pkg/config"
)

// Source is what the collector reads on each scrape; *configstore.Store
// implements it.
type Source interface {
	Active() *config.Config
	HistoryLen() int
	LoadedAt() time.Time
}

// storeCollector implements prometheus.Collector, counting the active
// configuration on each scrape.
type storeCollector struct {
	src Source

	nodes    *prometheus.Desc
	vdoms    *prometheus.Desc
	history  *prometheus.Desc
	lastLoad *prometheus.Desc
}

// NewCollector returns a collector reporting on src.
func NewCollector(src Source) prometheus.Collector {
	return &storeCollector{
		src: src,

		nodes: prometheus.NewDesc(
			"fgtconf_nodes",
			"Number of nodes in the active configuration.",
			[]string{"kind"}, nil,
		),
		vdoms: prometheus.NewDesc(
			"fgtconf_vdoms",
			"Number of vdoms in the active configuration.",
			nil, nil,
		),
		history: prometheus.NewDesc(
			"fgtconf_history_entries",
			"Number of configurations available for rollback.",
			nil, nil,
		),
		lastLoad: prometheus.NewDesc(
			"fgtconf_last_load_timestamp_seconds",
			"Unix time the active configuration was loaded or committed.",
			nil, nil,
		),
	}
}

func (c *storeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.nodes
	ch <- c.vdoms
	ch <- c.history
	ch <- c.lastLoad
}

func (c *storeCollector) Collect(ch chan<- prometheus.Metric) {
	cfg := c.src.Active()
	if cfg == nil {
		return
	}

	var total config.Counts
	for _, scope := range cfg.Scopes() {
		n := config.Count(scope.Node.(*config.Object))
		total.Sets += n.Sets
		total.Unsets += n.Unsets
		total.Objects += n.Objects
		total.Tables += n.Tables
	}
	for kind, v := range map[config.Kind]int{
		config.KindSet:    total.Sets,
		config.KindUnset:  total.Unsets,
		config.KindObject: total.Objects,
		config.KindTable:  total.Tables,
	} {
		ch <- prometheus.MustNewConstMetric(c.nodes, prometheus.GaugeValue, float64(v), kind.String())
	}

	ch <- prometheus.MustNewConstMetric(c.vdoms, prometheus.GaugeValue, float64(cfg.VDOMs.Len()))
	ch <- prometheus.MustNewConstMetric(c.history, prometheus.GaugeValue, float64(c.src.HistoryLen()))

	if t := c.src.LoadedAt(); !t.IsZero() {
		ch <- prometheus.MustNewConstMetric(c.lastLoad, prometheus.GaugeValue, float64(t.Unix()))
	}
}

// Parser counts and times parses.
type Parser struct {
	total    *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewParser creates unregistered parse metrics.
func NewParser() *Parser {
	return &Parser{
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fgtconf_parse_total",
			Help: "Total configurations parsed, by result.",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fgtconf_parse_duration_seconds",
			Help:    "Time spent parsing a configuration.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
	}
}

// Describe implements prometheus.Collector.
func (p *Parser) Describe(ch chan<- *prometheus.Desc) {
	p.total.Describe(ch)
	p.duration.Describe(ch)
}

// Collect implements prometheus.Collector.
func (p *Parser) Collect(ch chan<- prometheus.Metric) {
	p.total.Collect(ch)
	p.duration.Collect(ch)
}

// Parse parses input and records the outcome.
func (p *Parser) Parse(input string) (*config.Config, error) {
	start := time.Now()
	cfg, err := config.Parse(input)
	p.duration.Observe(time.Since(start).Seconds())
	if err != nil {
		p.total.WithLabelValues("error").Inc()
		return nil, err
	}
	p.total.WithLabelValues("ok").Inc()
	return cfg, nil
}

// ParseFile reads the file at path and parses it with Parse. Read errors
// are not counted.
func (p *Parser) ParseFile(path string) (*config.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := p.Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// NewRegistry returns a registry holding the collectors; nil arguments are
// skipped.
func NewRegistry(src Source, parser *Parser) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	if src != nil {
		registry.MustRegister(NewCollector(src))
	}
	if parser != nil {
		registry.MustRegister(parser)
	}
	return registry
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
