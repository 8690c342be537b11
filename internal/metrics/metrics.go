// Package metrics provides Prometheus metrics for Graph requests.
package metrics

import (
	"net/http"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/graphkit/graph-cli/internal/graph"
)

// Collector counts Graph traffic in its own registry. It implements
// graph.RequestCounter.
type Collector struct {
	registry *prometheus.Registry

	requestsTotal   prometheus.Counter
	batchItemsTotal prometheus.Counter
	errorsTotal     *prometheus.CounterVec
}

var _ graph.RequestCounter = (*Collector)(nil)

// New returns a Collector registered on a fresh registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "graph_requests_total",
			Help: "Total number of HTTP requests sent to Graph",
		}),
		batchItemsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "graph_batch_items_total",
			Help: "Total number of requests sent inside batch requests",
		}),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "graph_errors_total",
				Help: "Total Graph errors by kind",
			},
			[]string{"kind"},
		),
	}
	c.registry.MustRegister(c.requestsTotal, c.batchItemsTotal, c.errorsTotal)
	return c
}

// RequestSent records one HTTP exchange carrying batchSize batched requests.
func (c *Collector) RequestSent(batchSize int) {
	c.requestsTotal.Inc()
	if batchSize > 0 {
		c.batchItemsTotal.Add(float64(batchSize))
	}
}

// RequestFailed records a Graph error.
func (c *Collector) RequestFailed(kind graph.ErrorKind) {
	c.errorsTotal.WithLabelValues(string(kind)).Inc()
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Stats is a point-in-time summary of a Collector.
type Stats struct {
	Requests   int64            `json:"requests"`
	BatchItems int64            `json:"batch_items"`
	Errors     map[string]int64 `json:"errors,omitempty"`
}

// ErrorKinds returns the kinds in Errors, sorted.
func (s Stats) ErrorKinds() []string {
	kinds := make([]string, 0, len(s.Errors))
	for k := range s.Errors {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Snapshot gathers the current counter values.
func (c *Collector) Snapshot() (Stats, error) {
	families, err := c.registry.Gather()
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Errors: map[string]int64{}}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			v := int64(m.GetCounter().GetValue())
			switch mf.GetName() {
			case "graph_requests_total":
				stats.Requests = v
			case "graph_batch_items_total":
				stats.BatchItems = v
			case "graph_errors_total":
				for _, l := range m.GetLabel() {
					if l.GetName() == "kind" {
						stats.Errors[l.GetValue()] = v
					}
				}
			}
		}
	}
	return stats, nil
}
