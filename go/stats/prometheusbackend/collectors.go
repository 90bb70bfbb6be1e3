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

package prometheusbackend

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"shardmerge.io/shardmerge/go/stats"
)

type metricFuncCollector struct {
	// f returns the floating point value of the metric.
	f    func() float64
	desc *prometheus.Desc
	vt   prometheus.ValueType
}

// Describe implements Collector.
func (mc *metricFuncCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- mc.desc
}

// Collect implements Collector.
func (mc *metricFuncCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(mc.desc, mc.vt, mc.f())
}

// countersWithSingleLabelCollector collects stats.CountersWithSingleLabel.
type countersWithSingleLabelCollector struct {
	counters *stats.CountersWithSingleLabel
	desc     *prometheus.Desc
	vt       prometheus.ValueType
}

// Describe implements Collector.
func (c *countersWithSingleLabelCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

// Collect implements Collector.
func (c *countersWithSingleLabelCollector) Collect(ch chan<- prometheus.Metric) {
	for tag, val := range c.counters.Counts() {
		ch <- prometheus.MustNewConstMetric(
			c.desc,
			c.vt,
			float64(val),
			tag)
	}
}

// timingsCollector collects stats.Timings
type timingsCollector struct {
	t       *stats.Timings
	cutoffs []float64
	desc    *prometheus.Desc
}

// Describe implements Collector.
func (c *timingsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

// Collect implements Collector.
func (c *timingsCollector) Collect(ch chan<- prometheus.Metric) {
	for cat, his := range c.t.Histograms() {
		ch <- prometheus.MustNewConstHistogram(
			c.desc,
			uint64(his.Count()),
			float64(his.Total())/float64(time.Second),
			makeCumulativeBuckets(c.cutoffs, his.Buckets()),
			cat)
	}
}

// histogramCollector collects a plain stats.Histogram, whose cutoffs are
// used as bucket upper bounds as they are.
type histogramCollector struct {
	h    *stats.Histogram
	desc *prometheus.Desc
}

// Describe implements Collector.
func (c *histogramCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

// Collect implements Collector.
func (c *histogramCollector) Collect(ch chan<- prometheus.Metric) {
	cutoffs := make([]float64, len(c.h.Cutoffs()))
	for i, v := range c.h.Cutoffs() {
		cutoffs[i] = float64(v)
	}
	ch <- prometheus.MustNewConstHistogram(
		c.desc,
		uint64(c.h.Count()),
		float64(c.h.Total()),
		makeCumulativeBuckets(cutoffs, c.h.Buckets()))
}

// secondCutoffs converts nanosecond cutoffs to seconds.
func secondCutoffs(cutoffs []int64) []float64 {
	out := make([]float64, len(cutoffs))
	for i, v := range cutoffs {
		out[i] = float64(v) / float64(time.Second)
	}
	return out
}

// makeCumulativeBuckets turns per bucket counts into the cumulative counts
// Prometheus expects. The last bucket is the implicit +Inf one.
func makeCumulativeBuckets(cutoffs []float64, buckets []int64) map[float64]uint64 {
	output := make(map[float64]uint64, len(cutoffs))
	last := uint64(0)
	for i, cutoff := range cutoffs {
		last += uint64(buckets[i])
		output[cutoff] = last
	}
	return output
}
