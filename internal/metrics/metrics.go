// Package metrics holds the prometheus collectors exported by the table
// server on /metrics.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var RequestCount = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "gophlibrary",
	Subsystem: "http",
	Name:      "requests_total",
}, []string{"method", "route", "code"})

var RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "gophlibrary",
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
}, []string{"method", "route"})

// TableOps counts repository operations per table and outcome
// ("ok", "conflict", "missing", "error").
var TableOps = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "gophlibrary",
	Subsystem: "table",
	Name:      "operations_total",
}, []string{"table", "op", "result"})

// Collectors lists every collector of the package.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{RequestCount, RequestDuration, TableOps}
}

// Register adds the package collectors to reg. Collectors that are already
// registered are skipped so tests can build several routers.
func Register(reg prometheus.Registerer) error {
	for _, c := range Collectors() {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}
