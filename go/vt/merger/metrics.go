/*
Copyright 2024 The Vitess Authors.

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

package merger

import (
	"sync"

	"shardmerge.io/shardmerge/go/stats"
)

// Metrics are the process wide merge counters.
type Metrics struct {
	executions   *stats.CountersWithSingleLabel
	rowsEmitted  *stats.Counter
	rowsBuffered *stats.Counter
	errors       *stats.CountersWithSingleLabel
	timings      *stats.Timings
}

var defaultMetrics = &Metrics{}
var once sync.Once

// InitializeMetrics publishes the merge metrics on first use and returns them.
func InitializeMetrics() *Metrics {
	once.Do(func() {
		modes := []string{ModeStreaming.String(), ModeMemorySort.String()}
		defaultMetrics.executions = stats.NewCountersWithSingleLabel("MergeExecutions", "Merges started by merge mode.", "Mode", modes...)
		defaultMetrics.rowsEmitted = stats.NewCounter("MergeRowsEmitted", "Rows returned by merge cursors.")
		defaultMetrics.rowsBuffered = stats.NewCounter("MergeRowsBuffered", "Rows buffered by in-memory sorts.")
		defaultMetrics.errors = stats.NewCountersWithSingleLabel("MergeErrors", "Failed merges by error code.", "Code")
		defaultMetrics.timings = stats.NewTimings("MergeTimings", "Merge duration from start to the last row.", "Mode", modes...)
	})
	return defaultMetrics
}
