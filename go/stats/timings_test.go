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

package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimings(t *testing.T) {
	tm := NewTimings("TestTimings", "help", "Mode", "streaming")
	tm.Add("streaming", 500*time.Microsecond)
	tm.Add("memory_sort", 2*time.Millisecond)
	tm.Add("memory_sort", 20*time.Second)

	assert.EqualValues(t, 3, tm.Count())
	assert.EqualValues(t, int64(500*time.Microsecond+2*time.Millisecond+20*time.Second), tm.Time())
	assert.Equal(t, map[string]int64{"All": 3, "streaming": 1, "memory_sort": 2}, tm.Counts())
	assert.Equal(t, "Mode", tm.Label())

	want := `{"TotalCount":3,"TotalTime":20002500000,"Histograms":{` +
		`"memory_sort":{"500µs":0,"1ms":0,"5ms":1,"10ms":0,"50ms":0,"100ms":0,"500ms":0,"1s":0,"5s":0,"10s":0,"inf":1,"Count":2,"Time":20002000000},` +
		`"streaming":{"500µs":1,"1ms":0,"5ms":0,"10ms":0,"50ms":0,"100ms":0,"500ms":0,"1s":0,"5s":0,"10s":0,"inf":0,"Count":1,"Time":500000}}}`
	assert.Equal(t, want, tm.String())

	hists := tm.Histograms()
	assert.Len(t, hists, 2)
	assert.Equal(t, []int64{0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 1}, hists["memory_sort"].Buckets())
	assert.Equal(t, bucketCutoffs, tm.Cutoffs())
}

func TestTimingsRecord(t *testing.T) {
	tm := NewTimings("", "help", "Mode")
	tm.Record("streaming", time.Now().Add(-time.Millisecond))
	assert.EqualValues(t, 1, tm.Counts()["streaming"])
	assert.GreaterOrEqual(t, tm.Time(), int64(time.Millisecond))
}
