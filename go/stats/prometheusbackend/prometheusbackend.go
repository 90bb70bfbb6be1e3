/*
Copyright 2019 The Vitess Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package prometheusbackend exports the variables of the stats package as
// Prometheus collectors.
package prometheusbackend

import (
	"expvar"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"shardmerge.io/shardmerge/go/stats"
	"shardmerge.io/shardmerge/go/vt/log"
)

// PromBackend exports stats variables to a Prometheus registry.
type PromBackend struct {
	namespace string
	registry  prometheus.Registerer
}

// Init initializes the Prometheus backend with the given namespace and
// registers its collectors with the default registry.
func Init(namespace string) {
	InitWithRegistry(namespace, prometheus.DefaultRegisterer)
}

// InitWithRegistry exports every stats variable, published or yet to be
// published, to the given registry.
func InitWithRegistry(namespace string, registry prometheus.Registerer) *PromBackend {
	be := &PromBackend{namespace: namespace, registry: registry}
	stats.Register(be.publishPrometheusMetric)
	return be
}

// publishPrometheusMetric is used to publish the metric to Prometheus.
func (be *PromBackend) publishPrometheusMetric(name string, v expvar.Var) {
	switch st := v.(type) {
	case *stats.Counter:
		be.newMetric(st, name, prometheus.CounterValue, func() float64 { return float64(st.Get()) })
	case *stats.Gauge:
		be.newMetric(st, name, prometheus.GaugeValue, func() float64 { return float64(st.Get()) })
	case *stats.CountersWithSingleLabel:
		be.newCountersWithSingleLabel(st, name, st.Label(), prometheus.CounterValue)
	case *stats.Timings:
		be.newTiming(st, name)
	case *stats.Histogram:
		be.newHistogram(st, name)
	default:
		log.Infof("Not exporting to Prometheus an unsupported metric type of %T: %s", st, name)
	}
}

func (be *PromBackend) newCountersWithSingleLabel(c *stats.CountersWithSingleLabel, name string, labelName string, vt prometheus.ValueType) {
	collector := &countersWithSingleLabelCollector{
		counters: c,
		desc: prometheus.NewDesc(
			be.buildPromName(name),
			c.Help(),
			[]string{normalizeMetric(labelName)},
			nil),
		vt: vt}

	be.register(name, collector)
}

func (be *PromBackend) newTiming(t *stats.Timings, name string) {
	collector := &timingsCollector{
		t:       t,
		cutoffs: secondCutoffs(t.Cutoffs()),
		desc: prometheus.NewDesc(
			be.buildPromName(name),
			t.Help(),
			[]string{normalizeMetric(t.Label())},
			nil),
	}

	be.register(name, collector)
}

func (be *PromBackend) newHistogram(h *stats.Histogram, name string) {
	collector := &histogramCollector{
		h: h,
		desc: prometheus.NewDesc(
			be.buildPromName(name),
			h.Help(),
			nil,
			nil),
	}

	be.register(name, collector)
}

func (be *PromBackend) newMetric(v stats.Variable, name string, vt prometheus.ValueType, f func() float64) {
	collector := &metricFuncCollector{
		f: f,
		desc: prometheus.NewDesc(
			be.buildPromName(name),
			v.Help(),
			nil,
			nil),
		vt: vt}

	be.register(name, collector)
}

func (be *PromBackend) register(name string, c prometheus.Collector) {
	if err := be.registry.Register(c); err != nil {
		log.Warningf("Cannot export %s to Prometheus: %v", name, err)
	}
}

// buildPromName specifies the namespace as a prefix to the metric name
func (be *PromBackend) buildPromName(name string) string {
	s := strings.TrimPrefix(normalizeMetric(name), be.namespace+"_")
	return prometheus.BuildFQName("", be.namespace, s)
}

// normalizeMetric produces a compliant name by applying
// a camel case to snake case converter.
func normalizeMetric(name string) string {
	return stats.GetSnakeName(name)
}
